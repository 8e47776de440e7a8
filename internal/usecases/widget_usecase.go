package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"salesgenius/internal/entities"
	"salesgenius/internal/interfaces"
)

const (
	maxBotName        = 50
	maxWelcomeMessage = 500
)

type WidgetInput struct {
	BotName        string  `json:"bot_name"`
	WelcomeMessage string  `json:"welcome_message"`
	PrimaryColor   string  `json:"primary_color"`
	Position       string  `json:"position"`
	AvatarURL      *string `json:"avatar_url"`
}

// EmbedCode is what the dashboard shows for installing the widget.
type EmbedCode struct {
	WidgetKey string `json:"widget_key"`
	APIURL    string `json:"api_url"`
	ChatURL   string `json:"chat_url"`
	Snippet   string `json:"snippet"`
}

type widgetStore interface {
	interfaces.AccountStore
	interfaces.WidgetStore
}

type WidgetUsecase struct {
	store   widgetStore
	baseURL string
}

func NewWidgetUsecase(store widgetStore, publicBaseURL string) *WidgetUsecase {
	return &WidgetUsecase{store: store, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (uc *WidgetUsecase) GetConfig(ctx context.Context, accountID string) (*entities.WidgetConfig, error) {
	cfg, err := uc.store.GetWidgetConfig(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, entities.NotFound("Configurazione non trovata")
	}
	return cfg, nil
}

func (uc *WidgetUsecase) UpdateConfig(ctx context.Context, accountID string, in WidgetInput) (*entities.WidgetConfig, error) {
	cfg := entities.WidgetConfig{
		AccountID:      accountID,
		BotName:        strings.TrimSpace(in.BotName),
		WelcomeMessage: strings.TrimSpace(in.WelcomeMessage),
		PrimaryColor:   strings.TrimSpace(in.PrimaryColor),
		Position:       strings.TrimSpace(in.Position),
		UpdatedAt:      now(),
	}
	if in.AvatarURL != nil {
		cfg.AvatarURL = optional(*in.AvatarURL)
	}
	if cfg.WelcomeMessage == "" {
		cfg.WelcomeMessage = entities.DefaultWelcomeMessage
	}
	if cfg.PrimaryColor == "" {
		cfg.PrimaryColor = entities.DefaultPrimaryColor
	}
	if cfg.Position == "" {
		cfg.Position = entities.DefaultPosition
	}

	if n := utf8.RuneCountInString(cfg.BotName); n < 1 || n > maxBotName {
		return nil, entities.Invalid("Il nome del bot deve avere tra 1 e 50 caratteri")
	}
	if utf8.RuneCountInString(cfg.WelcomeMessage) > maxWelcomeMessage {
		return nil, entities.Invalid("Il messaggio di benvenuto non può superare 500 caratteri")
	}
	if !ValidHexColor(cfg.PrimaryColor) {
		return nil, entities.Invalid("Colore non valido, usa il formato #RRGGBB")
	}
	if cfg.Position != "bottom-right" && cfg.Position != "bottom-left" {
		return nil, entities.Invalid("Posizione non valida")
	}
	if cfg.AvatarURL != nil && !validHTTPURL(*cfg.AvatarURL) {
		return nil, entities.Invalid("URL avatar non valido")
	}

	if err := uc.store.UpdateWidgetConfig(ctx, &cfg); err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			return nil, entities.NotFound("Configurazione non trovata")
		}
		return nil, err
	}
	return uc.GetConfig(ctx, accountID)
}

// PublicConfig is the config the widget loads by key. It carries no owner
// identifiers.
func (uc *WidgetUsecase) PublicConfig(ctx context.Context, widgetKey string) (*entities.WidgetConfig, error) {
	acc, err := uc.store.GetAccountByWidgetKey(ctx, widgetKey)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, entities.NotFound("Widget non trovato")
	}
	cfg, err := uc.store.GetWidgetConfig(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		def := entities.DefaultWidgetConfig("")
		return &def, nil
	}
	cfg.AccountID = ""
	return cfg, nil
}

func (uc *WidgetUsecase) Embed(ctx context.Context, accountID string) (*EmbedCode, error) {
	acc, err := uc.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, entities.NotFound("Account non trovato")
	}
	api := uc.baseURL + "/api"
	return &EmbedCode{
		WidgetKey: acc.WidgetKey,
		APIURL:    api,
		ChatURL:   fmt.Sprintf("%s/chat/%s", uc.baseURL, acc.WidgetKey),
		Snippet: fmt.Sprintf(`<script src="%s/widget.js" data-widget-key="%s" data-api-url="%s" defer></script>`,
			uc.baseURL, acc.WidgetKey, api),
	}, nil
}
