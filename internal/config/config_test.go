package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("SessionMax converts minutes to duration", func(t *testing.T) {
		cfg := &Config{SessionMaxMinutes: 120}
		assert.Equal(t, 2*time.Hour, cfg.SessionMax())
	})

	t.Run("InactivityMax converts minutes to duration", func(t *testing.T) {
		cfg := &Config{InactivityMaxMinutes: 30}
		assert.Equal(t, 30*time.Minute, cfg.InactivityMax())
	})

	t.Run("SessionCheckInterval converts seconds to duration", func(t *testing.T) {
		cfg := &Config{SessionCheckSeconds: 30}
		assert.Equal(t, 30*time.Second, cfg.SessionCheckInterval())
	})

	t.Run("CartTTL converts hours to duration", func(t *testing.T) {
		cfg := &Config{CartTTLHours: 168}
		assert.Equal(t, 168*time.Hour, cfg.CartTTL())
	})
}

func TestLoad(t *testing.T) {
	originalEnv := map[string]string{
		"PORT":                   os.Getenv("PORT"),
		"DATABASE_URL":           os.Getenv("DATABASE_URL"),
		"REDIS_URL":              os.Getenv("REDIS_URL"),
		"SESSION_SECRET":         os.Getenv("SESSION_SECRET"),
		"SESSION_MAX_MINUTES":    os.Getenv("SESSION_MAX_MINUTES"),
		"INACTIVITY_MAX_MINUTES": os.Getenv("INACTIVITY_MAX_MINUTES"),
		"SESSION_CHECK_SECONDS":  os.Getenv("SESSION_CHECK_SECONDS"),
		"LOG_LEVEL":              os.Getenv("LOG_LEVEL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Unsetenv("PORT")
		os.Unsetenv("SESSION_MAX_MINUTES")
		os.Unsetenv("INACTIVITY_MAX_MINUTES")
		os.Unsetenv("SESSION_CHECK_SECONDS")
		os.Unsetenv("LOG_LEVEL")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, 120, cfg.SessionMaxMinutes)
		assert.Equal(t, 30, cfg.InactivityMaxMinutes)
		assert.Equal(t, 30, cfg.SessionCheckSeconds)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("PORT", "3000")
		os.Setenv("SESSION_MAX_MINUTES", "60")
		os.Setenv("INACTIVITY_MAX_MINUTES", "10")
		os.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, 60, cfg.SessionMaxMinutes)
		assert.Equal(t, 10, cfg.InactivityMaxMinutes)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("fails when DATABASE_URL missing", func(t *testing.T) {
		os.Unsetenv("DATABASE_URL")
		os.Setenv("REDIS_URL", "redis://localhost:6379")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			DatabaseURL:          "postgres://localhost/test",
			RedisURL:             "rediss://localhost:6379",
			SessionSecret:        "0123456789abcdef0123456789abcdef",
			SessionMaxMinutes:    120,
			InactivityMaxMinutes: 30,
			SessionCheckSeconds:  30,
		}
	}

	t.Run("accepts valid production config", func(t *testing.T) {
		assert.NoError(t, base().Validate(true))
	})

	t.Run("rejects short secret in production", func(t *testing.T) {
		cfg := base()
		cfg.SessionSecret = "short"
		assert.Error(t, cfg.Validate(true))
	})

	t.Run("rejects weak secret in production", func(t *testing.T) {
		cfg := base()
		cfg.SessionSecret = "change-me"
		assert.Error(t, cfg.Validate(true))
	})

	t.Run("allows empty secret outside production", func(t *testing.T) {
		cfg := base()
		cfg.SessionSecret = ""
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("rejects non-positive ceilings", func(t *testing.T) {
		cfg := base()
		cfg.InactivityMaxMinutes = 0
		assert.Error(t, cfg.Validate(false))
	})
}
