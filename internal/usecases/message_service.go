package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"salesgenius/internal/entities"
	"salesgenius/internal/infrastructure"
	"salesgenius/internal/interfaces"

	"github.com/rs/zerolog"
)

const (
	maxChatMessage     = 2000
	historyLimit       = 100
	promptHistoryTurns = 10
	knowledgeSources   = 50
	perSourceChars     = 2000
	knowledgeChars     = 3000

	noKnowledge  = "Nessuna informazione specifica disponibile."
	apologyReply = "Mi scuso, ma al momento non riesco a rispondere. Per favore riprova più tardi o contatta direttamente l'azienda."
)

var languageNames = map[string]string{
	"it": "italiano",
	"en": "inglese",
	"es": "spagnolo",
	"fr": "francese",
	"de": "tedesco",
}

type ChatInput struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	WidgetKey string `json:"widget_key"`
}

// MessageService answers visitors of the public widget.
type MessageService struct {
	store        interfaces.Store
	ai           interfaces.AIClient
	products     *ProductUsecase
	leads        *LeadUsecase
	events       *Broadcaster
	limiter      *infrastructure.MessageRateLimiter
	sessions     *infrastructure.SessionManager
	defaultModel string
	log          zerolog.Logger
}

type MessageServiceDeps struct {
	Store        interfaces.Store
	AI           interfaces.AIClient
	Products     *ProductUsecase
	Leads        *LeadUsecase
	Events       *Broadcaster
	Limiter      *infrastructure.MessageRateLimiter
	Sessions     *infrastructure.SessionManager
	DefaultModel string
}

func NewMessageService(deps MessageServiceDeps, log zerolog.Logger) *MessageService {
	return &MessageService{
		store:        deps.Store,
		ai:           deps.AI,
		products:     deps.Products,
		leads:        deps.Leads,
		events:       deps.Events,
		limiter:      deps.Limiter,
		sessions:     deps.Sessions,
		defaultModel: deps.DefaultModel,
		log:          log,
	}
}

// Reply stores the visitor message, asks the model for an answer grounded on
// the account knowledge and returns it with matching product cards.
func (s *MessageService) Reply(ctx context.Context, in ChatInput) (*entities.ChatReply, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	message := strings.TrimSpace(in.Message)
	if sessionID == "" {
		return nil, entities.Invalid("session_id richiesto")
	}
	if message == "" {
		return nil, entities.Invalid("Messaggio vuoto")
	}
	if utf8.RuneCountInString(message) > maxChatMessage {
		return nil, entities.Invalid("Messaggio troppo lungo (max 2000 caratteri)")
	}

	acc, err := s.account(ctx, in.WidgetKey)
	if err != nil {
		return nil, err
	}

	key := acc.ID + ":" + sessionID
	if s.limiter != nil && !s.limiter.Allow(key) {
		s.log.Warn().Str("session", key).Dur("retry_in", s.limiter.WaitTime(key)).Msg("chat rate limited")
		return nil, &entities.ValidationError{Kind: entities.ErrRateLimited, Message: "Troppi messaggi, attendi qualche secondo"}
	}
	if s.sessions != nil {
		if !s.sessions.TryStart(key) {
			return nil, &entities.ValidationError{Kind: entities.ErrBusy, Message: "Sto ancora rispondendo al messaggio precedente"}
		}
		defer s.sessions.Finish(key)
	}

	conv, err := s.conversation(ctx, acc.ID, sessionID)
	if err != nil {
		return nil, err
	}
	prior, err := s.store.ListRecentMessages(ctx, conv.ID, promptHistoryTurns)
	if err != nil {
		return nil, err
	}

	userMsg := &entities.Message{
		ID:             newID(),
		ConversationID: conv.ID,
		SessionID:      sessionID,
		Role:           entities.RoleUser,
		Content:        message,
		Timestamp:      now(),
	}
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	products := s.matchProducts(ctx, acc.ID, message)
	req, err := s.completionRequest(ctx, acc, prior, message, products)
	if err != nil {
		return nil, err
	}
	answer, err := s.ai.Complete(ctx, req)
	answer = strings.TrimSpace(answer)
	if err != nil || answer == "" {
		s.log.Error().Err(err).Str("account_id", acc.ID).Str("session_id", sessionID).Msg("ai reply failed")
		answer = apologyReply
	}

	ts := now()
	if !ts.After(userMsg.Timestamp) {
		ts = userMsg.Timestamp.Add(time.Microsecond)
	}
	aiMsg := &entities.Message{
		ID:             newID(),
		ConversationID: conv.ID,
		SessionID:      sessionID,
		Role:           entities.RoleAssistant,
		Content:        answer,
		Timestamp:      ts,
	}
	if err := s.store.AppendMessage(ctx, aiMsg); err != nil {
		return nil, err
	}
	if err := s.store.TouchConversation(ctx, conv.ID, 2, ts); err != nil {
		return nil, err
	}

	if s.leads != nil {
		if _, err := s.leads.Capture(ctx, acc.ID, sessionID, message); err != nil {
			s.log.Warn().Err(err).Str("session_id", sessionID).Msg("lead capture failed")
		}
	}

	cards := make([]entities.ProductCard, 0, len(products))
	for _, p := range products {
		cards = append(cards, p.Card())
	}
	return &entities.ChatReply{
		ID:        aiMsg.ID,
		SessionID: sessionID,
		Role:      entities.RoleAssistant,
		Content:   answer,
		Timestamp: aiMsg.Timestamp,
		Products:  cards,
	}, nil
}

// History returns a session transcript, oldest first. A widget key scopes it
// to that account.
func (s *MessageService) History(ctx context.Context, sessionID, widgetKey string) ([]entities.Message, error) {
	accountID := ""
	if strings.TrimSpace(widgetKey) != "" {
		acc, err := s.account(ctx, widgetKey)
		if err != nil {
			return nil, err
		}
		accountID = acc.ID
	}
	return s.store.ListSessionMessages(ctx, accountID, sessionID, historyLimit)
}

func (s *MessageService) account(ctx context.Context, widgetKey string) (*entities.Account, error) {
	acc, err := s.store.GetAccountByWidgetKey(ctx, strings.TrimSpace(widgetKey))
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, entities.NotFound("Widget non valido")
	}
	return acc, nil
}

func (s *MessageService) conversation(ctx context.Context, accountID, sessionID string) (*entities.Conversation, error) {
	conv, err := s.store.GetConversationBySession(ctx, accountID, sessionID)
	if err != nil || conv != nil {
		return conv, err
	}
	ts := now()
	conv = &entities.Conversation{
		ID:            newID(),
		AccountID:     accountID,
		SessionID:     sessionID,
		VisitorID:     shortKey(),
		StartedAt:     ts,
		LastMessageAt: ts,
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		if errors.Is(err, entities.ErrConflict) {
			return s.store.GetConversationBySession(ctx, accountID, sessionID)
		}
		return nil, err
	}
	s.events.Emit(ctx, entities.EventConversationStarted, accountID, *conv)
	return conv, nil
}

func (s *MessageService) matchProducts(ctx context.Context, accountID, message string) []entities.Product {
	if s.products == nil {
		return nil
	}
	products, err := s.products.Match(ctx, accountID, message)
	if err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID).Msg("product match failed")
		return nil
	}
	return products
}

func (s *MessageService) completionRequest(ctx context.Context, acc *entities.Account, prior []entities.Message, message string, products []entities.Product) (interfaces.CompletionRequest, error) {
	var req interfaces.CompletionRequest

	contents, err := s.store.ActiveContents(ctx, acc.ID, knowledgeSources)
	if err != nil {
		return req, err
	}
	botName := entities.DefaultBotName
	if cfg, err := s.store.GetWidgetConfig(ctx, acc.ID); err == nil && cfg != nil && cfg.BotName != "" {
		botName = cfg.BotName
	}
	req.Model = s.defaultModel
	req.MaxTokens = 500
	language := "it"
	if st, err := s.store.GetSettings(ctx, acc.ID); err == nil && st != nil {
		if st.AIModel != "" {
			req.Model = st.AIModel
		}
		if st.MaxTokensPerResponse > 0 {
			req.MaxTokens = st.MaxTokensPerResponse
		}
		if st.Language != "" {
			language = st.Language
		}
	}

	req.System = SystemPrompt(botName, acc.CompanyName, language, BuildKnowledge(contents), products)
	if len(prior) > promptHistoryTurns {
		prior = prior[len(prior)-promptHistoryTurns:]
	}
	for _, m := range prior {
		req.History = append(req.History, entities.ChatTurn{Role: m.Role, Content: m.Content})
	}
	req.Prompt = message
	return req, nil
}

// BuildKnowledge joins source texts into the prompt context block.
func BuildKnowledge(contents []string) string {
	parts := make([]string, 0, len(contents))
	for _, c := range contents {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, truncate(c, perSourceChars))
		}
	}
	block := truncate(strings.Join(parts, "\n\n"), knowledgeChars)
	if block == "" {
		return noKnowledge
	}
	return block
}

func SystemPrompt(botName, companyName, language, knowledge string, products []entities.Product) string {
	if companyName == "" {
		companyName = "un'azienda"
	}
	lang, ok := languageNames[language]
	if !ok {
		lang = languageNames["it"]
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Sei %s, un assistente vendite AI professionale e amichevole per %s.\n", botName, companyName)
	sb.WriteString("Il tuo obiettivo è aiutare i visitatori a trovare prodotti/servizi e rispondere alle loro domande.\n")
	fmt.Fprintf(&sb, "Rispondi sempre in %s, in modo conciso e utile.\n", lang)
	sb.WriteString("Se non conosci la risposta, suggerisci di contattare l'azienda direttamente.\n\n")
	sb.WriteString("CONOSCENZE AZIENDALI:\n")
	sb.WriteString(knowledge)
	sb.WriteString("\n")
	if len(products) > 0 {
		sb.WriteString("\nPRODOTTI PERTINENTI DAL CATALOGO:\n")
		for _, p := range products {
			fmt.Fprintf(&sb, "- %s", p.Name)
			if p.Price != "" {
				fmt.Fprintf(&sb, " (%s)", p.Price)
			}
			if p.Description != "" {
				fmt.Fprintf(&sb, ": %s", truncate(p.Description, 200))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("Questi prodotti vengono mostrati al visitatore come schede: citali se sono utili.\n")
	}
	return sb.String()
}
