package repository

import (
	"context"
	"errors"

	"salesgenius/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type KnowledgeRepository struct {
	db *pgxpool.Pool
}

func NewKnowledgeRepository(db *pgxpool.Pool) *KnowledgeRepository {
	return &KnowledgeRepository{db: db}
}

const sourceColumns = "id, account_id, type, name, url, content, content_preview, status, created_at"

func scanSource(row pgx.Row) (*entities.KnowledgeSource, error) {
	var s entities.KnowledgeSource
	err := row.Scan(&s.ID, &s.AccountID, &s.Type, &s.Name, &s.URL, &s.Content, &s.ContentPreview, &s.Status, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *KnowledgeRepository) ListSources(ctx context.Context, accountID string, limit int) ([]entities.KnowledgeSource, error) {
	rows, err := r.db.Query(ctx, "SELECT "+sourceColumns+" FROM knowledge_sources WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2", accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sources := []entities.KnowledgeSource{}
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *s)
	}
	return sources, rows.Err()
}

func (r *KnowledgeRepository) GetSource(ctx context.Context, accountID, id string) (*entities.KnowledgeSource, error) {
	s, err := scanSource(r.db.QueryRow(ctx, "SELECT "+sourceColumns+" FROM knowledge_sources WHERE account_id = $1 AND id = $2", accountID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *KnowledgeRepository) CreateSource(ctx context.Context, s *entities.KnowledgeSource) error {
	_, err := r.db.Exec(ctx, "INSERT INTO knowledge_sources ("+sourceColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		s.ID, s.AccountID, s.Type, s.Name, s.URL, s.Content, s.ContentPreview, s.Status, s.CreatedAt)
	return err
}

func (r *KnowledgeRepository) DeleteSource(ctx context.Context, accountID, id string) error {
	return execOne(ctx, r.db, "DELETE FROM knowledge_sources WHERE account_id = $1 AND id = $2", accountID, id)
}

func (r *KnowledgeRepository) ActiveContents(ctx context.Context, accountID string, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT content FROM knowledge_sources
		WHERE account_id = $1 AND status = 'active' AND content <> ''
		ORDER BY created_at ASC LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contents []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		contents = append(contents, c)
	}
	return contents, rows.Err()
}
