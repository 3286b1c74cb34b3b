// internal/config/config_test.go
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

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.GenModel)
	assert.Equal(t, 15*time.Second, cfg.GenTimeout)
	assert.Equal(t, 90*time.Second, cfg.TriviaInterval)
	assert.Equal(t, 5*time.Minute, cfg.CleanupGrace)
	assert.Equal(t, 2*time.Second, cfg.BotReplyDelay)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("TRIVIA_INTERVAL", "30s")
	t.Setenv("CLEANUP_GRACE", "1m")
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.TriviaInterval)
	assert.Equal(t, time.Minute, cfg.CleanupGrace)
	assert.Equal(t, "test-key", cfg.AnthropicAPIKey)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("TRIVIA_INTERVAL", "not-a-duration")

	_, err := Load()
	assert.Error(t, err)
}
