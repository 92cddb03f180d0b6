package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", cfg.ConfigPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "en", cfg.Lang)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.AdminToken)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CANVAS_GATEWAY_CONFIG", "/etc/gateway.yaml")
	t.Setenv("CANVAS_GATEWAY_LANG", "ru")
	t.Setenv("CANVAS_GATEWAY_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("CANVAS_GATEWAY_LLM_API_KEY", "sk-test")
	t.Setenv("CANVAS_GATEWAY_ADMIN_TOKEN", "admin")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/etc/gateway.yaml", cfg.ConfigPath)
	assert.Equal(t, "ru", cfg.Lang)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "sk-test", cfg.LLMAPIKey)
	assert.Equal(t, "admin", cfg.AdminToken)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("CANVAS_GATEWAY_SHUTDOWN_TIMEOUT", "later")
	_, err := Load()
	assert.Error(t, err)
}
