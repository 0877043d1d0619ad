package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// Query-time recall knob for the ivfflat indexes.
	IVFFlatProbes int `envconfig:"IVFFLAT_PROBES" default:"10"`

	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"168h"`

	StuckTimeout     time.Duration `envconfig:"STUCK_TIMEOUT" default:"2h"`
	JanitorInterval  time.Duration `envconfig:"JANITOR_INTERVAL" default:"1h"`
	WatchdogInterval time.Duration `envconfig:"WATCHDOG_INTERVAL" default:"10m"`

	// Bootstrap: create an initial API key on startup if none exists
	InitAPIKeyName string `envconfig:"INIT_API_KEY_NAME"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("RECALL", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
