package usecases

import (
	"context"
	"strings"

	"salesgenius/internal/entities"
	"salesgenius/internal/interfaces"

	"github.com/rs/zerolog"
)

const leadLimit = 100

type LeadInput struct {
	SessionID string  `json:"session_id"`
	WidgetKey string  `json:"widget_key"`
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
}

type leadStore interface {
	interfaces.AccountStore
	interfaces.LeadStore
}

type LeadUsecase struct {
	store  leadStore
	events *Broadcaster
	log    zerolog.Logger
}

func NewLeadUsecase(store leadStore, events *Broadcaster, log zerolog.Logger) *LeadUsecase {
	return &LeadUsecase{store: store, events: events, log: log}
}

// Submit stores a lead sent by the widget form.
func (uc *LeadUsecase) Submit(ctx context.Context, in LeadInput) (*entities.Lead, error) {
	acc, err := uc.store.GetAccountByWidgetKey(ctx, strings.TrimSpace(in.WidgetKey))
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, entities.NotFound("Widget non valido")
	}
	if strings.TrimSpace(in.SessionID) == "" {
		return nil, entities.Invalid("session_id richiesto")
	}
	lead := &entities.Lead{
		ID:        newID(),
		AccountID: acc.ID,
		SessionID: strings.TrimSpace(in.SessionID),
		Name:      trimmed(in.Name),
		Email:     trimmed(in.Email),
		Phone:     trimmed(in.Phone),
		CreatedAt: now(),
	}
	if lead.Name == nil && lead.Email == nil && lead.Phone == nil {
		return nil, entities.Invalid("Inserisci almeno un contatto")
	}
	if lead.Email != nil {
		e := normalizeEmail(*lead.Email)
		if !ValidEmail(e) {
			return nil, entities.Invalid("Email non valida")
		}
		lead.Email = &e
	}
	if err := uc.save(ctx, lead); err != nil {
		return nil, err
	}
	return lead, nil
}

// Capture records an email a visitor typed in the chat, once per session.
func (uc *LeadUsecase) Capture(ctx context.Context, accountID, sessionID, message string) (*entities.Lead, error) {
	email := normalizeEmail(emailInText.FindString(message))
	if email == "" || !ValidEmail(email) {
		return nil, nil
	}
	exists, err := uc.store.LeadExists(ctx, accountID, sessionID, email)
	if err != nil || exists {
		return nil, err
	}
	lead := &entities.Lead{
		ID:        newID(),
		AccountID: accountID,
		SessionID: sessionID,
		Email:     &email,
		CreatedAt: now(),
	}
	if err := uc.save(ctx, lead); err != nil {
		return nil, err
	}
	uc.log.Info().Str("account_id", accountID).Str("session_id", sessionID).Msg("lead captured from chat")
	return lead, nil
}

func (uc *LeadUsecase) List(ctx context.Context, accountID string) ([]entities.Lead, error) {
	return uc.store.ListLeads(ctx, accountID, leadLimit)
}

func (uc *LeadUsecase) save(ctx context.Context, lead *entities.Lead) error {
	if err := uc.store.CreateLead(ctx, lead); err != nil {
		return err
	}
	uc.events.Emit(ctx, entities.EventLeadCreated, lead.AccountID, *lead)
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	return optional(*s)
}
