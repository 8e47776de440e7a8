package repository

import (
	"context"
	"errors"
	"strings"

	"salesgenius/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductRepository struct {
	db *pgxpool.Pool
}

func NewProductRepository(db *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = "id, account_id, source_id, name, description, price, price_value, image_url, product_url, category, in_stock, created_at, updated_at"

func scanProducts(rows pgx.Rows) ([]entities.Product, error) {
	products := []entities.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (*entities.Product, error) {
	var p entities.Product
	err := row.Scan(&p.ID, &p.AccountID, &p.SourceID, &p.Name, &p.Description, &p.Price, &p.PriceValue,
		&p.ImageURL, &p.ProductURL, &p.Category, &p.InStock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) ListProducts(ctx context.Context, accountID string, limit int) ([]entities.Product, error) {
	rows, err := r.db.Query(ctx, "SELECT "+productColumns+" FROM products WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2", accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *ProductRepository) GetProduct(ctx context.Context, accountID, id string) (*entities.Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE account_id = $1 AND id = $2", accountID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *ProductRepository) CreateProduct(ctx context.Context, p *entities.Product) error {
	return insertProduct(ctx, r.db, p)
}

func insertProduct(ctx context.Context, db execer, p *entities.Product) error {
	_, err := db.Exec(ctx, "INSERT INTO products ("+productColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)",
		p.ID, p.AccountID, p.SourceID, p.Name, p.Description, p.Price, p.PriceValue,
		p.ImageURL, p.ProductURL, p.Category, p.InStock, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *ProductRepository) UpdateProduct(ctx context.Context, p *entities.Product) error {
	return execOne(ctx, r.db, `
		UPDATE products SET name = $3, description = $4, price = $5, price_value = $6,
			image_url = $7, product_url = $8, category = $9, in_stock = $10, updated_at = $11
		WHERE account_id = $1 AND id = $2`,
		p.AccountID, p.ID, p.Name, p.Description, p.Price, p.PriceValue,
		p.ImageURL, p.ProductURL, p.Category, p.InStock, p.UpdatedAt)
}

func (r *ProductRepository) DeleteProduct(ctx context.Context, accountID, id string) error {
	return execOne(ctx, r.db, "DELETE FROM products WHERE account_id = $1 AND id = $2", accountID, id)
}

func (r *ProductRepository) ReplaceSourceProducts(ctx context.Context, accountID, sourceID string, products []entities.Product) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM products WHERE account_id = $1 AND source_id = $2", accountID, sourceID); err != nil {
		return err
	}
	for i := range products {
		if err := insertProduct(ctx, tx, &products[i]); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *ProductRepository) SearchProducts(ctx context.Context, accountID string, terms []string, limit int) ([]entities.Product, error) {
	if len(terms) == 0 {
		return []entities.Product{}, nil
	}
	patterns := make([]string, len(terms))
	for i, t := range terms {
		patterns[i] = "%" + escapeLike(strings.ToLower(t)) + "%"
	}
	rows, err := r.db.Query(ctx, "SELECT "+productColumns+` FROM products
		WHERE account_id = $1 AND in_stock
		  AND (lower(name) LIKE ANY($2) OR lower(category) LIKE ANY($2))
		ORDER BY name ASC LIMIT $3`, accountID, patterns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
