package interfaces

import (
	"context"
	"io"
	"time"

	"salesgenius/internal/entities"
)

// CompletionRequest is one call to the language model.
type CompletionRequest struct {
	Model     string
	System    string
	History   []entities.ChatTurn
	Prompt    string
	MaxTokens int
	JSON      bool // ask for a JSON-only answer
}

type AIClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Notifier pushes short alerts to an account owner.
type Notifier interface {
	Notify(ctx context.Context, chatID, text string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, msg entities.Envelope) error
	Close() error
}

type PageFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

type PDFExtractor interface {
	ExtractText(r io.ReaderAt, size int64, maxPages int) (string, error)
}

// Single-record getters return (nil, nil) when nothing matches.

type AccountStore interface {
	CreateAccount(ctx context.Context, acc *entities.Account, owner *entities.User, cfg *entities.WidgetConfig, settings *entities.AccountSettings) error
	GetAccount(ctx context.Context, id string) (*entities.Account, error)
	GetAccountByWidgetKey(ctx context.Context, key string) (*entities.Account, error)
	RenameAccount(ctx context.Context, id, companyName string) error
	// DeleteAccount removes the account and every row it owns.
	DeleteAccount(ctx context.Context, id string) error
}

type UserStore interface {
	CreateUser(ctx context.Context, u *entities.User) error
	GetUserByEmail(ctx context.Context, email string) (*entities.User, error)
	GetUserByID(ctx context.Context, id string) (*entities.User, error)
	UpdateUserRole(ctx context.Context, id, role string) error
	SetSuperAdmin(ctx context.Context, id string, super bool) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]entities.AdminUserView, error)
}

type TeamStore interface {
	ListMembers(ctx context.Context, accountID string) ([]entities.TeamMember, error)
	GetMember(ctx context.Context, accountID, id string) (*entities.TeamMember, error)
	GetMemberByEmail(ctx context.Context, accountID, email string) (*entities.TeamMember, error)
	GetPendingInvite(ctx context.Context, email string) (*entities.TeamMember, error)
	CreateMember(ctx context.Context, m *entities.TeamMember) error
	MarkJoined(ctx context.Context, id, userID string, at time.Time) error
	UpdateMemberRole(ctx context.Context, accountID, id, role string) error
	DeleteMember(ctx context.Context, accountID, id string) error
}

type WidgetStore interface {
	GetWidgetConfig(ctx context.Context, accountID string) (*entities.WidgetConfig, error)
	UpdateWidgetConfig(ctx context.Context, cfg *entities.WidgetConfig) error
	GetSettings(ctx context.Context, accountID string) (*entities.AccountSettings, error)
	UpdateSettings(ctx context.Context, s *entities.AccountSettings) error
}

type KnowledgeStore interface {
	ListSources(ctx context.Context, accountID string, limit int) ([]entities.KnowledgeSource, error)
	GetSource(ctx context.Context, accountID, id string) (*entities.KnowledgeSource, error)
	CreateSource(ctx context.Context, s *entities.KnowledgeSource) error
	DeleteSource(ctx context.Context, accountID, id string) error
	// ActiveContents returns the content of active sources, oldest first.
	ActiveContents(ctx context.Context, accountID string, limit int) ([]string, error)
}

type ProductStore interface {
	ListProducts(ctx context.Context, accountID string, limit int) ([]entities.Product, error)
	GetProduct(ctx context.Context, accountID, id string) (*entities.Product, error)
	CreateProduct(ctx context.Context, p *entities.Product) error
	UpdateProduct(ctx context.Context, p *entities.Product) error
	DeleteProduct(ctx context.Context, accountID, id string) error
	// ReplaceSourceProducts swaps the products extracted from one source.
	ReplaceSourceProducts(ctx context.Context, accountID, sourceID string, products []entities.Product) error
	// SearchProducts matches in-stock products whose name or category
	// contains any of terms.
	SearchProducts(ctx context.Context, accountID string, terms []string, limit int) ([]entities.Product, error)
}

type ConversationStore interface {
	GetConversationBySession(ctx context.Context, accountID, sessionID string) (*entities.Conversation, error)
	GetConversation(ctx context.Context, accountID, id string) (*entities.Conversation, error)
	CreateConversation(ctx context.Context, c *entities.Conversation) error
	ListConversations(ctx context.Context, accountID string, limit int) ([]entities.Conversation, error)
	AppendMessage(ctx context.Context, m *entities.Message) error
	// TouchConversation adds to messages_count and moves last_message_at.
	TouchConversation(ctx context.Context, id string, added int, at time.Time) error
	ListMessages(ctx context.Context, conversationID string, limit int) ([]entities.Message, error)
	// ListRecentMessages returns the newest limit messages, oldest first.
	ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]entities.Message, error)
	// ListSessionMessages scopes to accountID unless it is empty.
	ListSessionMessages(ctx context.Context, accountID, sessionID string, limit int) ([]entities.Message, error)
}

type LeadStore interface {
	CreateLead(ctx context.Context, l *entities.Lead) error
	ListLeads(ctx context.Context, accountID string, limit int) ([]entities.Lead, error)
	LeadExists(ctx context.Context, accountID, sessionID, email string) (bool, error)
}

type CartStore interface {
	// AddCartItem inserts the item or bumps the quantity of an existing
	// (session, product) line.
	AddCartItem(ctx context.Context, item *entities.CartItem) error
	ListCartItems(ctx context.Context, accountID, sessionID string) ([]entities.CartItem, error)
}

type AnalyticsStore interface {
	AccountOverview(ctx context.Context, accountID string, todayStart time.Time) (entities.AnalyticsOverview, error)
	CountConversationsBetween(ctx context.Context, accountID string, from, to time.Time) (int, error)
	// CountRows counts a whole table across tenants.
	CountRows(ctx context.Context, table string) (int64, error)
}

// Store is everything the use cases persist.
type Store interface {
	AccountStore
	UserStore
	TeamStore
	WidgetStore
	KnowledgeStore
	ProductStore
	ConversationStore
	LeadStore
	CartStore
	AnalyticsStore
}

// Tables lists the tables reported in the super admin panel.
var Tables = []string{
	"accounts", "users", "team_members", "widget_configs", "account_settings",
	"knowledge_sources", "products", "conversations", "messages", "leads", "cart_items",
}
