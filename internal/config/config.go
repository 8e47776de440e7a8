// Package config loads the service configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	HTTPAddr      string `mapstructure:"HTTP_ADDR"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	Storage       string `mapstructure:"STORAGE"`
	JWTSecret     string `mapstructure:"JWT_SECRET_KEY"`
	JWTTTL        string `mapstructure:"JWT_TTL"`
	BcryptCost    int    `mapstructure:"BCRYPT_COST"`
	GeminiAPIKey  string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel   string `mapstructure:"GEMINI_MODEL"`
	CORSOrigins   string `mapstructure:"CORS_ORIGINS"`
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL"`

	RabbitMQURL      string `mapstructure:"RABBITMQ_URL"`
	RabbitMQExchange string `mapstructure:"RABBITMQ_EXCHANGE"`
	KafkaBrokers     string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic       string `mapstructure:"KAFKA_TOPIC"`

	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	SuperAdminEmails string `mapstructure:"SUPERADMIN_EMAILS"`

	// Public chat limiter: tokens per second and burst, per session.
	ChatRate  float64 `mapstructure:"CHAT_RATE"`
	ChatBurst int     `mapstructure:"CHAT_BURST"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

// Load reads .env when present, then the environment. Env vars win.
func Load() (*Config, error) {
	_ = godotenv.Load() // missing .env is fine outside development

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("STORAGE", StoragePostgres)
	v.SetDefault("JWT_SECRET_KEY", "salesgenius_secret")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "salesgenius.events")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "salesgenius-events")
	v.SetDefault("TELEGRAM_BOT_TOKEN", "")
	v.SetDefault("SUPERADMIN_EMAILS", "")
	v.SetDefault("CHAT_RATE", 1.0)
	v.SetDefault("CHAT_BURST", 5)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET_KEY must be set")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required when STORAGE=postgres")
		}
	case StorageMemory:
	default:
		return errors.New("config: STORAGE must be postgres or memory")
	}
	return nil
}

// TokenTTL parses JWTTTL, falling back to 24h.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

func (c *Config) CORSOriginList() []string {
	return splitList(c.CORSOrigins)
}

func (c *Config) KafkaBrokerList() []string {
	return splitList(c.KafkaBrokers)
}

// SuperAdmins returns the lowercased super admin emails.
func (c *Config) SuperAdmins() []string {
	out := splitList(c.SuperAdminEmails)
	for i := range out {
		out[i] = strings.ToLower(out[i])
	}
	return out
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
