package repository

import (
	"context"
	"errors"
	"time"

	"salesgenius/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TeamRepository struct {
	db *pgxpool.Pool
}

func NewTeamRepository(db *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{db: db}
}

const memberColumns = "id, account_id, user_id, email, role, invited_at, joined_at"

func scanMember(row pgx.Row) (*entities.TeamMember, error) {
	var m entities.TeamMember
	if err := row.Scan(&m.ID, &m.AccountID, &m.UserID, &m.Email, &m.Role, &m.InvitedAt, &m.JoinedAt); err != nil {
		return nil, err
	}
	m.Status = entities.MemberInvited
	if m.JoinedAt != nil {
		m.Status = entities.MemberActive
	}
	return &m, nil
}

// ListMembers returns the owner first, then everyone by invite date.
func (r *TeamRepository) ListMembers(ctx context.Context, accountID string) ([]entities.TeamMember, error) {
	rows, err := r.db.Query(ctx, "SELECT "+memberColumns+` FROM team_members WHERE account_id = $1
		ORDER BY (role = 'owner') DESC, invited_at ASC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []entities.TeamMember{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (r *TeamRepository) GetMember(ctx context.Context, accountID, id string) (*entities.TeamMember, error) {
	return r.one(ctx, "SELECT "+memberColumns+" FROM team_members WHERE account_id = $1 AND id = $2", accountID, id)
}

func (r *TeamRepository) GetMemberByEmail(ctx context.Context, accountID, email string) (*entities.TeamMember, error) {
	return r.one(ctx, "SELECT "+memberColumns+" FROM team_members WHERE account_id = $1 AND lower(email) = lower($2)", accountID, email)
}

func (r *TeamRepository) GetPendingInvite(ctx context.Context, email string) (*entities.TeamMember, error) {
	return r.one(ctx, "SELECT "+memberColumns+` FROM team_members
		WHERE lower(email) = lower($1) AND joined_at IS NULL ORDER BY invited_at ASC LIMIT 1`, email)
}

func (r *TeamRepository) one(ctx context.Context, query string, args ...any) (*entities.TeamMember, error) {
	m, err := scanMember(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (r *TeamRepository) CreateMember(ctx context.Context, m *entities.TeamMember) error {
	_, err := r.db.Exec(ctx, "INSERT INTO team_members ("+memberColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		m.ID, m.AccountID, m.UserID, m.Email, m.Role, m.InvitedAt, m.JoinedAt)
	return translate(err)
}

func (r *TeamRepository) MarkJoined(ctx context.Context, id, userID string, at time.Time) error {
	return execOne(ctx, r.db, "UPDATE team_members SET user_id = $2, joined_at = $3 WHERE id = $1", id, userID, at)
}

func (r *TeamRepository) UpdateMemberRole(ctx context.Context, accountID, id, role string) error {
	return execOne(ctx, r.db, "UPDATE team_members SET role = $3 WHERE account_id = $1 AND id = $2", accountID, id, role)
}

func (r *TeamRepository) DeleteMember(ctx context.Context, accountID, id string) error {
	return execOne(ctx, r.db, "DELETE FROM team_members WHERE account_id = $1 AND id = $2", accountID, id)
}
