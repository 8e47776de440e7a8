package repository

import (
	"context"
	"errors"

	"salesgenius/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WidgetRepository struct {
	db *pgxpool.Pool
}

func NewWidgetRepository(db *pgxpool.Pool) *WidgetRepository {
	return &WidgetRepository{db: db}
}

func (r *WidgetRepository) GetWidgetConfig(ctx context.Context, accountID string) (*entities.WidgetConfig, error) {
	var c entities.WidgetConfig
	err := r.db.QueryRow(ctx, `
		SELECT id, account_id, bot_name, welcome_message, primary_color, position, avatar_url, updated_at
		FROM widget_configs WHERE account_id = $1`, accountID).
		Scan(&c.ID, &c.AccountID, &c.BotName, &c.WelcomeMessage, &c.PrimaryColor, &c.Position, &c.AvatarURL, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *WidgetRepository) UpdateWidgetConfig(ctx context.Context, c *entities.WidgetConfig) error {
	return execOne(ctx, r.db, `
		UPDATE widget_configs
		SET bot_name = $2, welcome_message = $3, primary_color = $4, position = $5, avatar_url = $6, updated_at = $7
		WHERE account_id = $1`,
		c.AccountID, c.BotName, c.WelcomeMessage, c.PrimaryColor, c.Position, c.AvatarURL, c.UpdatedAt)
}

func (r *WidgetRepository) GetSettings(ctx context.Context, accountID string) (*entities.AccountSettings, error) {
	var s entities.AccountSettings
	err := r.db.QueryRow(ctx, `
		SELECT account_id, company_name, support_email, timezone, language, company_logo,
		       notification_new_lead, notification_new_conversation, ai_model,
		       max_tokens_per_response, telegram_chat_id, updated_at
		FROM account_settings WHERE account_id = $1`, accountID).
		Scan(&s.AccountID, &s.CompanyName, &s.SupportEmail, &s.Timezone, &s.Language, &s.CompanyLogo,
			&s.NotificationNewLead, &s.NotificationNewConversation, &s.AIModel,
			&s.MaxTokensPerResponse, &s.TelegramChatID, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSettings upserts so accounts created before settings existed still work.
func (r *WidgetRepository) UpdateSettings(ctx context.Context, s *entities.AccountSettings) error {
	return insertSettings(ctx, r.db, s)
}

func insertSettings(ctx context.Context, db execer, s *entities.AccountSettings) error {
	_, err := db.Exec(ctx, `
		INSERT INTO account_settings (account_id, company_name, support_email, timezone, language, company_logo,
			notification_new_lead, notification_new_conversation, ai_model, max_tokens_per_response,
			telegram_chat_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (account_id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			support_email = EXCLUDED.support_email,
			timezone = EXCLUDED.timezone,
			language = EXCLUDED.language,
			company_logo = EXCLUDED.company_logo,
			notification_new_lead = EXCLUDED.notification_new_lead,
			notification_new_conversation = EXCLUDED.notification_new_conversation,
			ai_model = EXCLUDED.ai_model,
			max_tokens_per_response = EXCLUDED.max_tokens_per_response,
			telegram_chat_id = EXCLUDED.telegram_chat_id,
			updated_at = EXCLUDED.updated_at`,
		s.AccountID, s.CompanyName, s.SupportEmail, s.Timezone, s.Language, s.CompanyLogo,
		s.NotificationNewLead, s.NotificationNewConversation, s.AIModel, s.MaxTokensPerResponse,
		s.TelegramChatID, s.UpdatedAt)
	return err
}
