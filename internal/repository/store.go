package repository

import (
	"salesgenius/internal/interfaces"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres implementation of interfaces.Store.
type Store struct {
	*UserRepository
	*TeamRepository
	*WidgetRepository
	*KnowledgeRepository
	*ProductRepository
	*ConversationRepository
	*LeadRepository
	*AnalyticsRepository
	*TenantManager
}

var _ interfaces.Store = (*Store)(nil)

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{
		UserRepository:         NewUserRepository(db),
		TeamRepository:         NewTeamRepository(db),
		WidgetRepository:       NewWidgetRepository(db),
		KnowledgeRepository:    NewKnowledgeRepository(db),
		ProductRepository:      NewProductRepository(db),
		ConversationRepository: NewConversationRepository(db),
		LeadRepository:         NewLeadRepository(db),
		AnalyticsRepository:    NewAnalyticsRepository(db),
		TenantManager:          NewTenantManager(db),
	}
}
