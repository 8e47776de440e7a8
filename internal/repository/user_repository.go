package repository

import (
	"context"
	"errors"
	"fmt"

	"salesgenius/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// CreateAccount writes the account, its owner, the owner's team row, the
// widget config and the settings in one transaction.
func (r *UserRepository) CreateAccount(ctx context.Context, acc *entities.Account, owner *entities.User, cfg *entities.WidgetConfig, settings *entities.AccountSettings) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		"INSERT INTO accounts (id, company_name, widget_key, created_at) VALUES ($1, $2, $3, $4)",
		acc.ID, acc.CompanyName, acc.WidgetKey, acc.CreatedAt); err != nil {
		return fmt.Errorf("insert account: %w", translate(err))
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO users (id, account_id, email, password_hash, role, is_super_admin, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		owner.ID, owner.AccountID, owner.Email, owner.PasswordHash, owner.Role, owner.IsSuperAdmin, owner.CreatedAt); err != nil {
		return fmt.Errorf("insert owner: %w", translate(err))
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO team_members (id, account_id, user_id, email, role, invited_at, joined_at) VALUES ($1, $2, $3, $4, $5, $6, $6)",
		owner.ID, acc.ID, owner.ID, owner.Email, entities.RoleOwner, owner.CreatedAt); err != nil {
		return fmt.Errorf("insert owner membership: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO widget_configs (id, account_id, bot_name, welcome_message, primary_color, position, avatar_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		cfg.ID, cfg.AccountID, cfg.BotName, cfg.WelcomeMessage, cfg.PrimaryColor, cfg.Position, cfg.AvatarURL, cfg.UpdatedAt); err != nil {
		return fmt.Errorf("insert widget config: %w", err)
	}
	if err := insertSettings(ctx, tx, settings); err != nil {
		return fmt.Errorf("insert settings: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *UserRepository) GetAccount(ctx context.Context, id string) (*entities.Account, error) {
	return r.scanAccount(ctx, "SELECT id, company_name, widget_key, created_at FROM accounts WHERE id = $1", id)
}

func (r *UserRepository) GetAccountByWidgetKey(ctx context.Context, key string) (*entities.Account, error) {
	return r.scanAccount(ctx, "SELECT id, company_name, widget_key, created_at FROM accounts WHERE widget_key = $1", key)
}

func (r *UserRepository) scanAccount(ctx context.Context, query string, arg string) (*entities.Account, error) {
	var a entities.Account
	err := r.db.QueryRow(ctx, query, arg).Scan(&a.ID, &a.CompanyName, &a.WidgetKey, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *UserRepository) RenameAccount(ctx context.Context, id, companyName string) error {
	return execOne(ctx, r.db, "UPDATE accounts SET company_name = $2 WHERE id = $1", id, companyName)
}

func (r *UserRepository) CreateUser(ctx context.Context, u *entities.User) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO users (id, account_id, email, password_hash, role, is_super_admin, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		u.ID, u.AccountID, u.Email, u.PasswordHash, u.Role, u.IsSuperAdmin, u.CreatedAt)
	return translate(err)
}

const userColumns = "id, account_id, email, password_hash, role, is_super_admin, created_at"

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.scanUser(ctx, "SELECT "+userColumns+" FROM users WHERE lower(email) = lower($1)", email)
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*entities.User, error) {
	return r.scanUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

func (r *UserRepository) scanUser(ctx context.Context, query, arg string) (*entities.User, error) {
	var u entities.User
	err := r.db.QueryRow(ctx, query, arg).Scan(&u.ID, &u.AccountID, &u.Email, &u.PasswordHash, &u.Role, &u.IsSuperAdmin, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) UpdateUserRole(ctx context.Context, id, role string) error {
	return execOne(ctx, r.db, "UPDATE users SET role = $2 WHERE id = $1", id, role)
}

func (r *UserRepository) SetSuperAdmin(ctx context.Context, id string, super bool) error {
	return execOne(ctx, r.db, "UPDATE users SET is_super_admin = $2 WHERE id = $1", id, super)
}

// DeleteUser removes the user and their team row.
func (r *UserRepository) DeleteUser(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM team_members WHERE user_id = $1", id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *UserRepository) ListUsers(ctx context.Context) ([]entities.AdminUserView, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.id, u.account_id, u.email, a.company_name, u.role, u.is_super_admin, a.widget_key, u.created_at
		FROM users u JOIN accounts a ON a.id = u.account_id
		ORDER BY u.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []entities.AdminUserView{}
	for rows.Next() {
		var u entities.AdminUserView
		if err := rows.Scan(&u.ID, &u.AccountID, &u.Email, &u.CompanyName, &u.Role, &u.IsSuperAdmin, &u.WidgetKey, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// translate maps unique violations to entities.ErrConflict.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if pgErr.ConstraintName == "accounts_widget_key_key" {
			return entities.ErrWidgetKeyTaken
		}
		return fmt.Errorf("%w: %s", entities.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// execOne runs a statement that must touch at least one row.
func execOne(ctx context.Context, db execer, sql string, args ...any) error {
	tag, err := db.Exec(ctx, sql, args...)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrNotFound
	}
	return nil
}
