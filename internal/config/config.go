// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	DatabaseURL string `env:"DATABASE_URL"`

	// AdminToken authenticates the cache control-plane endpoints.
	AdminToken string `env:"ADMIN_TOKEN"`

	// WarmOnStart runs a critical warming pass before the API starts serving.
	WarmOnStart bool `env:"WARM_ON_START" envDefault:"true"`

	// RefreshInterval is how often the worker re-populates missing
	// high-priority entries.
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"5m"`

	// WarmAllCron is the cron spec for the periodic full warming pass.
	WarmAllCron string `env:"WARM_ALL_CRON" envDefault:"0 * * * *"`
}

// Load reads configuration from environment variables
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate ensures the configuration is complete enough to start a binary
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.AdminToken == "" {
		return fmt.Errorf("ADMIN_TOKEN is required")
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL must be positive, got %s", c.RefreshInterval)
	}
	return nil
}
