package usecases

import (
	"context"

	"salesgenius/internal/entities"
	"salesgenius/internal/interfaces"
)

const (
	conversationLimit = 100
	transcriptLimit   = 200
	dailyWindow       = 7
)

type dashboardStore interface {
	interfaces.ConversationStore
	interfaces.AnalyticsStore
}

// DashboardUsecase serves the conversation inbox and the analytics cards.
type DashboardUsecase struct {
	store dashboardStore
}

func NewDashboardUsecase(store dashboardStore) *DashboardUsecase {
	return &DashboardUsecase{store: store}
}

type Transcript struct {
	Conversation *entities.Conversation `json:"conversation"`
	Messages     []entities.Message     `json:"messages"`
}

func (u *DashboardUsecase) Conversations(ctx context.Context, accountID string) ([]entities.Conversation, error) {
	return u.store.ListConversations(ctx, accountID, conversationLimit)
}

func (u *DashboardUsecase) Transcript(ctx context.Context, accountID, conversationID string) (*Transcript, error) {
	conv, err := u.store.GetConversation(ctx, accountID, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, entities.NotFound("Conversazione non trovata")
	}
	msgs, err := u.store.ListMessages(ctx, conv.ID, transcriptLimit)
	if err != nil {
		return nil, err
	}
	return &Transcript{Conversation: conv, Messages: msgs}, nil
}

// Overview counts the account activity. "Today" starts at UTC midnight.
func (u *DashboardUsecase) Overview(ctx context.Context, accountID string) (entities.AnalyticsOverview, error) {
	return u.store.AccountOverview(ctx, accountID, startOfDay(now()))
}

// Daily returns conversations started on each of the last seven UTC days,
// oldest first.
func (u *DashboardUsecase) Daily(ctx context.Context, accountID string) ([]entities.DailyStat, error) {
	today := startOfDay(now())
	stats := make([]entities.DailyStat, 0, dailyWindow)
	for i := dailyWindow - 1; i >= 0; i-- {
		from := today.AddDate(0, 0, -i)
		n, err := u.store.CountConversationsBetween(ctx, accountID, from, from.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		stats = append(stats, entities.DailyStat{Date: from.Format("02/01"), Conversations: n})
	}
	return stats, nil
}
