package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/obras")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ACCESS_PIN_HASH", "$2a$10$abcdefghijklmnopqrstuv")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "production", cfg.AppEnv)
	assert.True(t, cfg.AutoMigrate)
	assert.False(t, cfg.ReportEnabled)
	assert.Equal(t, "0 0 6 * * MON", cfg.ReportCron)
	assert.Empty(t, cfg.NATSURL)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("REPORT_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.True(t, cfg.ReportEnabled)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequired(t)
	require.NoError(t, os.Unsetenv("DATABASE_URL"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
