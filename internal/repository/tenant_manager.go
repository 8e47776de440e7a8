package repository

import (
	"context"
	"fmt"
	"slices"

	"salesgenius/internal/entities"
	"salesgenius/internal/interfaces"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TenantManager handles whole-account operations that span every table.
type TenantManager struct {
	db *pgxpool.Pool
}

func NewTenantManager(db *pgxpool.Pool) *TenantManager {
	return &TenantManager{db: db}
}

// tenantTables are deleted child-first so the order does not depend on
// cascade rules.
var tenantTables = []string{
	"cart_items", "leads", "products", "knowledge_sources", "account_settings",
	"widget_configs", "team_members", "users", "conversations",
}

// DeleteAccount removes an account and all of its data in one transaction.
func (t *TenantManager) DeleteAccount(ctx context.Context, accountID string) error {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM messages WHERE conversation_id IN (SELECT id FROM conversations WHERE account_id = $1)", accountID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	for _, table := range tenantTables {
		if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE account_id = $1", table), accountID); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	if err := execOne(ctx, tx, "DELETE FROM accounts WHERE id = $1", accountID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CountRows counts every row of a known table.
func (t *TenantManager) CountRows(ctx context.Context, table string) (int64, error) {
	if !slices.Contains(interfaces.Tables, table) {
		return 0, fmt.Errorf("%w: unknown table %q", entities.ErrInvalidInput, table)
	}
	var n int64
	err := t.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n)
	return n, err
}
