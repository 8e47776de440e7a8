package repository

import (
	"context"
	"errors"
	"slices"
	"time"

	"salesgenius/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

const conversationColumns = "id, account_id, session_id, visitor_id, messages_count, started_at, last_message_at"

func scanConversation(row pgx.Row) (*entities.Conversation, error) {
	var c entities.Conversation
	if err := row.Scan(&c.ID, &c.AccountID, &c.SessionID, &c.VisitorID, &c.MessagesCount, &c.StartedAt, &c.LastMessageAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConversationRepository) GetConversationBySession(ctx context.Context, accountID, sessionID string) (*entities.Conversation, error) {
	c, err := scanConversation(r.db.QueryRow(ctx, "SELECT "+conversationColumns+" FROM conversations WHERE account_id = $1 AND session_id = $2", accountID, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *ConversationRepository) GetConversation(ctx context.Context, accountID, id string) (*entities.Conversation, error) {
	c, err := scanConversation(r.db.QueryRow(ctx, "SELECT "+conversationColumns+" FROM conversations WHERE account_id = $1 AND id = $2", accountID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *ConversationRepository) CreateConversation(ctx context.Context, c *entities.Conversation) error {
	_, err := r.db.Exec(ctx, "INSERT INTO conversations ("+conversationColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		c.ID, c.AccountID, c.SessionID, c.VisitorID, c.MessagesCount, c.StartedAt, c.LastMessageAt)
	return translate(err)
}

func (r *ConversationRepository) ListConversations(ctx context.Context, accountID string, limit int) ([]entities.Conversation, error) {
	rows, err := r.db.Query(ctx, "SELECT "+conversationColumns+" FROM conversations WHERE account_id = $1 ORDER BY last_message_at DESC LIMIT $2", accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entities.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *ConversationRepository) AppendMessage(ctx context.Context, m *entities.Message) error {
	_, err := r.db.Exec(ctx, "INSERT INTO messages (id, conversation_id, session_id, role, content, timestamp) VALUES ($1, $2, $3, $4, $5, $6)",
		m.ID, m.ConversationID, m.SessionID, m.Role, m.Content, m.Timestamp)
	return err
}

func (r *ConversationRepository) TouchConversation(ctx context.Context, id string, added int, at time.Time) error {
	return execOne(ctx, r.db, "UPDATE conversations SET messages_count = messages_count + $2, last_message_at = $3 WHERE id = $1", id, added, at)
}

const messageColumns = "m.id, m.conversation_id, m.session_id, m.role, m.content, m.timestamp"

func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]entities.Message, error) {
	return r.messages(ctx, "SELECT "+messageColumns+" FROM messages m WHERE m.conversation_id = $1 ORDER BY m.timestamp ASC LIMIT $2", conversationID, limit)
}

func (r *ConversationRepository) ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]entities.Message, error) {
	msgs, err := r.messages(ctx, "SELECT "+messageColumns+" FROM messages m WHERE m.conversation_id = $1 ORDER BY m.timestamp DESC LIMIT $2", conversationID, limit)
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}

func (r *ConversationRepository) ListSessionMessages(ctx context.Context, accountID, sessionID string, limit int) ([]entities.Message, error) {
	if accountID == "" {
		return r.messages(ctx, "SELECT "+messageColumns+" FROM messages m WHERE m.session_id = $1 ORDER BY m.timestamp ASC LIMIT $2", sessionID, limit)
	}
	return r.messages(ctx, "SELECT "+messageColumns+` FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.account_id = $1 AND m.session_id = $2 ORDER BY m.timestamp ASC LIMIT $3`, accountID, sessionID, limit)
}

func (r *ConversationRepository) messages(ctx context.Context, query string, args ...any) ([]entities.Message, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entities.Message{}
	for rows.Next() {
		var m entities.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SessionID, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
