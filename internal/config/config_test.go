package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ohmok/gomoku-server/internal/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := config.LoadConfig()

	assert.Equal(t, "127.0.0.1:10000", cfg.Addr())
	assert.Equal(t, 60*time.Second, cfg.TurnTimeLimit)
	assert.Equal(t, 180*time.Second, cfg.ReconnectWindow)
	assert.Equal(t, 30*time.Second, cfg.RematchWindow)
	assert.Contains(t, cfg.AllowedOrigins, "http://localhost:5173")
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("TURN_TIME_SECONDS", "15")
	t.Setenv("RECONNECT_WINDOW_SECONDS", "45")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := config.LoadConfig()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.TurnTimeLimit)
	assert.Equal(t, 45*time.Second, cfg.ReconnectWindow)
	assert.Contains(t, cfg.AllowedOrigins, "https://a.example")
	assert.Contains(t, cfg.AllowedOrigins, "https://b.example")
}

func TestGetEnvAsIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("TURN_TIME_SECONDS", "soon")
	cfg := config.LoadConfig()
	assert.Equal(t, 60*time.Second, cfg.TurnTimeLimit)
}
