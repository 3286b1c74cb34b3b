// internal/config/config.go
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all server settings, populated from the environment.
// Values for timers mirror the defaults the service has always shipped with;
// tests override them through lobby.Timings directly rather than env vars.
type Config struct {
	Port     string `envconfig:"PORT" default:"3001"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	AnthropicAPIKey string        `envconfig:"ANTHROPIC_API_KEY"`
	GenModel        string        `envconfig:"GENAI_MODEL" default:"claude-3-5-haiku-latest"`
	GenTimeout      time.Duration `envconfig:"GENAI_TIMEOUT" default:"15s"`

	TriviaInterval time.Duration `envconfig:"TRIVIA_INTERVAL" default:"90s"`
	CleanupGrace   time.Duration `envconfig:"CLEANUP_GRACE" default:"5m"`
	BotReplyDelay  time.Duration `envconfig:"BOT_REPLY_DELAY" default:"2s"`
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
