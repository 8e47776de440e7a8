package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
	assert.Equal(t, []string{"*"}, cfg.CORSOriginList())
	assert.Equal(t, 5, cfg.ChatBurst)
	assert.Empty(t, cfg.KafkaBrokerList())
}

func TestLoad_PostgresNeedsDSN(t *testing.T) {
	t.Setenv("STORAGE", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STORAGE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/db?sslmode=disable")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("KAFKA_BROKERS", " a:9092 , ,b:9092")
	t.Setenv("SUPERADMIN_EMAILS", "Root@Example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL())
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokerList())
	assert.Equal(t, []string{"root@example.com"}, cfg.SuperAdmins())
}

func TestValidate(t *testing.T) {
	base := Config{HTTPAddr: ":8080", JWTSecret: "s", BcryptCost: 10, Storage: StorageMemory}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"empty addr", func(c *Config) { c.HTTPAddr = "" }, false},
		{"empty secret", func(c *Config) { c.JWTSecret = "" }, false},
		{"cost too low", func(c *Config) { c.BcryptCost = 3 }, false},
		{"cost too high", func(c *Config) { c.BcryptCost = 32 }, false},
		{"unknown storage", func(c *Config) { c.Storage = "mongo" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestTokenTTL_Invalid(t *testing.T) {
	c := Config{JWTTTL: "soon"}
	assert.Equal(t, 24*time.Hour, c.TokenTTL())
}
