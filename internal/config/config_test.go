package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("billing")
	require.NoError(t, err)
	assert.Equal(t, 8082, cfg.Port)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Otel.Enabled)
	assert.False(t, cfg.SMTPEnabled())
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "http://localhost:8081", cfg.Services.Membership)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("BATCH_WORKERS", "8")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("SMTP_HOST", "smtp.example.cl")
	t.Setenv("BILLING_URL", "http://billing:8082/")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load("api")
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 8, cfg.Batch.Workers)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Otel.Enabled)
	assert.True(t, cfg.SMTPEnabled())
	assert.Equal(t, "http://billing:8082", cfg.Services.Billing)
	assert.False(t, cfg.Development())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"zero workers": {"BATCH_WORKERS", "0"},
		"bad port":     {"PORT", "70000"},
		"bad level":    {"LOG_LEVEL", "verbose"},
		"no burst":     {"RATE_LIMIT_BURST", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load("membership")
			assert.Error(t, err)
		})
	}
}
