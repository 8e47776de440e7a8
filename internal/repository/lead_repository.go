package repository

import (
	"context"

	"salesgenius/internal/entities"

	"github.com/jackc/pgx/v5/pgxpool"
)

type LeadRepository struct {
	db *pgxpool.Pool
}

func NewLeadRepository(db *pgxpool.Pool) *LeadRepository {
	return &LeadRepository{db: db}
}

func (r *LeadRepository) CreateLead(ctx context.Context, l *entities.Lead) error {
	_, err := r.db.Exec(ctx, "INSERT INTO leads (id, account_id, session_id, name, email, phone, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		l.ID, l.AccountID, l.SessionID, l.Name, l.Email, l.Phone, l.CreatedAt)
	return err
}

func (r *LeadRepository) ListLeads(ctx context.Context, accountID string, limit int) ([]entities.Lead, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, account_id, session_id, name, email, phone, created_at
		FROM leads WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := []entities.Lead{}
	for rows.Next() {
		var l entities.Lead
		if err := rows.Scan(&l.ID, &l.AccountID, &l.SessionID, &l.Name, &l.Email, &l.Phone, &l.CreatedAt); err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

func (r *LeadRepository) LeadExists(ctx context.Context, accountID, sessionID, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM leads WHERE account_id = $1 AND session_id = $2 AND lower(email) = lower($3))`,
		accountID, sessionID, email).Scan(&exists)
	return exists, err
}

func (r *LeadRepository) AddCartItem(ctx context.Context, item *entities.CartItem) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO cart_items (id, account_id, session_id, product_id, name, price, unit_value, quantity, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (account_id, session_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, quantity, added_at`,
		item.ID, item.AccountID, item.SessionID, item.ProductID, item.Name, item.Price, item.UnitValue, item.Quantity, item.AddedAt).
		Scan(&item.ID, &item.Quantity, &item.AddedAt)
}

func (r *LeadRepository) ListCartItems(ctx context.Context, accountID, sessionID string) ([]entities.CartItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, account_id, session_id, product_id, name, price, unit_value, quantity, added_at
		FROM cart_items WHERE account_id = $1 AND session_id = $2 ORDER BY added_at ASC`, accountID, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []entities.CartItem{}
	for rows.Next() {
		var it entities.CartItem
		if err := rows.Scan(&it.ID, &it.AccountID, &it.SessionID, &it.ProductID, &it.Name, &it.Price, &it.UnitValue, &it.Quantity, &it.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
