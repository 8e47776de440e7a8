package entities

import "time"

const (
	DefaultBotName        = "SalesGenius"
	DefaultWelcomeMessage = "Ciao! Come posso aiutarti oggi?"
	DefaultPrimaryColor   = "#F97316"
	DefaultPosition       = "bottom-right"
)

type WidgetConfig struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"account_id,omitempty"`
	BotName        string    `json:"bot_name"`
	WelcomeMessage string    `json:"welcome_message"`
	PrimaryColor   string    `json:"primary_color"`
	Position       string    `json:"position"`
	AvatarURL      *string   `json:"avatar_url"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func DefaultWidgetConfig(accountID string) WidgetConfig {
	return WidgetConfig{
		AccountID:      accountID,
		BotName:        DefaultBotName,
		WelcomeMessage: DefaultWelcomeMessage,
		PrimaryColor:   DefaultPrimaryColor,
		Position:       DefaultPosition,
	}
}

// AccountSettings are the organization-level knobs edited in the admin panel.
type AccountSettings struct {
	AccountID                   string    `json:"-"`
	CompanyName                 string    `json:"company_name"`
	SupportEmail                string    `json:"support_email"`
	Timezone                    string    `json:"timezone"`
	Language                    string    `json:"language"`
	CompanyLogo                 string    `json:"company_logo"`
	NotificationNewLead         bool      `json:"notification_new_lead"`
	NotificationNewConversation bool      `json:"notification_new_conversation"`
	AIModel                     string    `json:"ai_model"`
	MaxTokensPerResponse        int       `json:"max_tokens_per_response"`
	TelegramChatID              string    `json:"telegram_chat_id"`
	UpdatedAt                   time.Time `json:"updated_at"`
}

func DefaultAccountSettings(accountID, companyName, model string) AccountSettings {
	return AccountSettings{
		AccountID:            accountID,
		CompanyName:          companyName,
		Timezone:             "Europe/Rome",
		Language:             "it",
		NotificationNewLead:  true,
		AIModel:              model,
		MaxTokensPerResponse: 500,
	}
}
