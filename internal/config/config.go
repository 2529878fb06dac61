package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`

	// SessionSecret keys the HMAC that derives admin storage scopes from tokens.
	SessionSecret string `env:"SESSION_SECRET"`

	// Admin session ceilings. Both must hold for a session to stay valid.
	SessionMaxMinutes    int `env:"SESSION_MAX_MINUTES" envDefault:"120"`
	InactivityMaxMinutes int `env:"INACTIVITY_MAX_MINUTES" envDefault:"30"`
	SessionCheckSeconds  int `env:"SESSION_CHECK_SECONDS" envDefault:"30"`

	CartTTLHours int    `env:"CART_TTL_HOURS" envDefault:"168"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	StaticDir    string `env:"STATIC_DIR" envDefault:"static"`
}

func (c *Config) SessionMax() time.Duration {
	return time.Duration(c.SessionMaxMinutes) * time.Minute
}

func (c *Config) InactivityMax() time.Duration {
	return time.Duration(c.InactivityMaxMinutes) * time.Minute
}

func (c *Config) SessionCheckInterval() time.Duration {
	return time.Duration(c.SessionCheckSeconds) * time.Second
}

func (c *Config) CartTTL() time.Duration {
	return time.Duration(c.CartTTLHours) * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.SessionMaxMinutes <= 0 || c.InactivityMaxMinutes <= 0 || c.SessionCheckSeconds <= 0 {
		return fmt.Errorf("session ceilings and check interval must be positive")
	}

	if isProduction {
		if err := validateSecret("SESSION_SECRET", c.SessionSecret); err != nil {
			return err
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
