package usecases

import (
	"context"
	"fmt"
	"time"

	"salesgenius/internal/entities"
	"salesgenius/internal/infrastructure"
	"salesgenius/internal/interfaces"

	"github.com/rs/zerolog"
)

// Broadcaster sends domain events to the event bus and, when the account
// enabled it, to the owner's Telegram chat. Failures are logged only.
type Broadcaster struct {
	settings interfaces.WidgetStore
	events   interfaces.EventPublisher
	notifier interfaces.Notifier
	log      zerolog.Logger
}

func NewBroadcaster(settings interfaces.WidgetStore, events interfaces.EventPublisher, notifier interfaces.Notifier, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{settings: settings, events: events, notifier: notifier, log: log}
}

func (b *Broadcaster) Emit(ctx context.Context, eventType, accountID string, payload any) {
	if b == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if b.events != nil {
		env := infrastructure.NewEnvelope(eventType, accountID, payload)
		if err := b.events.Publish(ctx, eventType, env); err != nil {
			b.log.Warn().Err(err).Str("event", eventType).Str("account_id", accountID).Msg("publish failed")
		}
	}

	if b.notifier == nil {
		return
	}
	text := alertText(payload)
	if text == "" {
		return
	}
	st, err := b.settings.GetSettings(ctx, accountID)
	if err != nil || st == nil || st.TelegramChatID == "" {
		return
	}
	switch eventType {
	case entities.EventLeadCreated:
		if !st.NotificationNewLead {
			return
		}
	case entities.EventConversationStarted:
		if !st.NotificationNewConversation {
			return
		}
	default:
		return
	}
	if err := b.notifier.Notify(ctx, st.TelegramChatID, text); err != nil {
		b.log.Warn().Err(err).Str("event", eventType).Msg("owner notification failed")
	}
}

func alertText(payload any) string {
	switch p := payload.(type) {
	case entities.Lead:
		return fmt.Sprintf("*Nuovo lead*\nNome: %s\nEmail: %s\nTelefono: %s",
			orDash(p.Name), orDash(p.Email), orDash(p.Phone))
	case entities.Conversation:
		return fmt.Sprintf("*Nuova conversazione*\nVisitatore: %s", infrastructure.EscapeMarkdown(p.VisitorID))
	}
	return ""
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return infrastructure.EscapeMarkdown(*s)
}
