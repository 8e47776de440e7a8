package entities

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Conversation struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"-"`
	SessionID     string    `json:"session_id"`
	VisitorID     string    `json:"visitor_id"`
	MessagesCount int       `json:"messages_count"`
	StartedAt     time.Time `json:"started_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SessionID      string    `json:"session_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

// ProductCard is the compact product shape rendered by the widget.
type ProductCard struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Price      string `json:"price,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	ProductURL string `json:"product_url,omitempty"`
}

// ChatReply is the assistant answer returned to the widget.
type ChatReply struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	Role      string        `json:"role"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
	Products  []ProductCard `json:"products"`
}

// ChatTurn is one prior exchange passed to the language model.
type ChatTurn struct {
	Role    string
	Content string
}
