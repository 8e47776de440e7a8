package entities

import "time"

// Routing keys for domain events.
const (
	EventLeadCreated         = "lead.created"
	EventConversationStarted = "conversation.started"
	EventKnowledgeIngested   = "knowledge.ingested"
)

type EventMeta struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	AccountID  string    `json:"account_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Envelope struct {
	Meta    EventMeta `json:"meta"`
	Payload any       `json:"payload"`
}
