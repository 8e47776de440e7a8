package usecases

import (
	"context"
	"slices"
	"strings"

	"salesgenius/internal/entities"
	"salesgenius/internal/interfaces"

	"github.com/rs/zerolog"
)

const (
	minResponseTokens = 50
	maxResponseTokens = 4096
)

// AvailableModels are the chat models an account may pick.
var AvailableModels = []string{
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemini-2.5-flash",
	"gemini-2.5-pro",
}

var supportedLanguages = []string{"it", "en", "es", "fr", "de"}

type SettingsInput struct {
	CompanyName                 string `json:"company_name"`
	SupportEmail                string `json:"support_email"`
	Timezone                    string `json:"timezone"`
	Language                    string `json:"language"`
	CompanyLogo                 string `json:"company_logo"`
	NotificationNewLead         bool   `json:"notification_new_lead"`
	NotificationNewConversation bool   `json:"notification_new_conversation"`
	AIModel                     string `json:"ai_model"`
	MaxTokensPerResponse        int    `json:"max_tokens_per_response"`
	TelegramChatID              string `json:"telegram_chat_id"`
}

type APIConfig struct {
	AvailableModels []string          `json:"available_models"`
	DefaultModel    string            `json:"default_model"`
	UsingSharedKey  bool              `json:"using_shared_key"`
	Instructions    map[string]string `json:"instructions"`
}

type settingsStore interface {
	interfaces.AccountStore
	interfaces.WidgetStore
}

type SettingsUsecase struct {
	store        settingsStore
	defaultModel string
	sharedKey    bool
	log          zerolog.Logger
}

func NewSettingsUsecase(store settingsStore, defaultModel string, sharedKeyConfigured bool, log zerolog.Logger) *SettingsUsecase {
	return &SettingsUsecase{store: store, defaultModel: defaultModel, sharedKey: sharedKeyConfigured, log: log}
}

func (uc *SettingsUsecase) Get(ctx context.Context, actor Actor) (*entities.AccountSettings, error) {
	if !actor.CanManage() {
		return nil, entities.Forbidden("Permessi insufficienti")
	}
	st, err := uc.store.GetSettings(ctx, actor.AccountID)
	if err != nil {
		return nil, err
	}
	if st != nil {
		return st, nil
	}
	acc, err := uc.store.GetAccount(ctx, actor.AccountID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, entities.NotFound("Account non trovato")
	}
	def := entities.DefaultAccountSettings(acc.ID, acc.CompanyName, uc.defaultModel)
	return &def, nil
}

func (uc *SettingsUsecase) Update(ctx context.Context, actor Actor, in SettingsInput) (*entities.AccountSettings, error) {
	if !actor.CanManage() {
		return nil, entities.Forbidden("Permessi insufficienti")
	}
	st := &entities.AccountSettings{
		AccountID:                   actor.AccountID,
		CompanyName:                 strings.TrimSpace(in.CompanyName),
		SupportEmail:                normalizeEmail(in.SupportEmail),
		Timezone:                    strings.TrimSpace(in.Timezone),
		Language:                    strings.TrimSpace(in.Language),
		CompanyLogo:                 strings.TrimSpace(in.CompanyLogo),
		NotificationNewLead:         in.NotificationNewLead,
		NotificationNewConversation: in.NotificationNewConversation,
		AIModel:                     strings.TrimSpace(in.AIModel),
		MaxTokensPerResponse:        in.MaxTokensPerResponse,
		TelegramChatID:              strings.TrimSpace(in.TelegramChatID),
		UpdatedAt:                   now(),
	}
	if st.Timezone == "" {
		st.Timezone = "Europe/Rome"
	}
	if st.Language == "" {
		st.Language = "it"
	}
	if st.AIModel == "" {
		st.AIModel = uc.defaultModel
	}
	if st.MaxTokensPerResponse == 0 {
		st.MaxTokensPerResponse = 500
	}

	if st.SupportEmail != "" && !ValidEmail(st.SupportEmail) {
		return nil, entities.Invalid("Email di supporto non valida")
	}
	if !slices.Contains(supportedLanguages, st.Language) {
		return nil, entities.Invalid("Lingua non supportata")
	}
	if !slices.Contains(AvailableModels, st.AIModel) && st.AIModel != uc.defaultModel {
		return nil, entities.Invalid("Modello AI non disponibile")
	}
	if st.MaxTokensPerResponse < minResponseTokens || st.MaxTokensPerResponse > maxResponseTokens {
		return nil, entities.Invalid("max_tokens_per_response deve essere tra 50 e 4096")
	}

	if st.CompanyName != "" {
		if err := uc.store.RenameAccount(ctx, actor.AccountID, st.CompanyName); err != nil {
			return nil, err
		}
	} else if acc, err := uc.store.GetAccount(ctx, actor.AccountID); err == nil && acc != nil {
		st.CompanyName = acc.CompanyName
	}
	if err := uc.store.UpdateSettings(ctx, st); err != nil {
		return nil, err
	}
	uc.log.Info().Str("account_id", actor.AccountID).Msg("settings updated")
	return st, nil
}

func (uc *SettingsUsecase) APIConfig() APIConfig {
	models := slices.Clone(AvailableModels)
	if !slices.Contains(models, uc.defaultModel) && uc.defaultModel != "" {
		models = append([]string{uc.defaultModel}, models...)
	}
	return APIConfig{
		AvailableModels: models,
		DefaultModel:    uc.defaultModel,
		UsingSharedKey:  uc.sharedKey,
		Instructions: map[string]string{
			"shared_key": "La piattaforma usa una chiave Gemini condivisa: non serve alcuna configurazione.",
			"custom_key": "Per usare una chiave dedicata imposta GEMINI_API_KEY sul server e riavvia il servizio.",
		},
	}
}
