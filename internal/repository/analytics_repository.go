package repository

import (
	"context"
	"math"
	"time"

	"salesgenius/internal/entities"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AnalyticsRepository struct {
	db *pgxpool.Pool
}

func NewAnalyticsRepository(db *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// AccountOverview returns the dashboard counters for one account.
func (r *AnalyticsRepository) AccountOverview(ctx context.Context, accountID string, todayStart time.Time) (entities.AnalyticsOverview, error) {
	var o entities.AnalyticsOverview
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM conversations WHERE account_id = $1),
			(SELECT COUNT(*) FROM messages m JOIN conversations c ON c.id = m.conversation_id WHERE c.account_id = $1),
			(SELECT COUNT(*) FROM leads WHERE account_id = $1),
			(SELECT COUNT(*) FROM conversations WHERE account_id = $1 AND started_at >= $2)`,
		accountID, todayStart).Scan(&o.TotalConversations, &o.TotalMessages, &o.TotalLeads, &o.ConversationsToday)
	if err != nil {
		return o, err
	}
	o.AvgMessagesPerConversation = AverageMessages(o.TotalMessages, o.TotalConversations)
	return o, nil
}

// AverageMessages is messages per conversation rounded to one decimal.
func AverageMessages(messages, conversations int) float64 {
	if conversations <= 0 {
		return 0
	}
	return math.Round(float64(messages)/float64(conversations)*10) / 10
}

// CountConversationsBetween counts conversations started in [from, to).
func (r *AnalyticsRepository) CountConversationsBetween(ctx context.Context, accountID string, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM conversations
		WHERE account_id = $1 AND started_at >= $2 AND started_at < $3`, accountID, from, to).Scan(&n)
	return n, err
}
