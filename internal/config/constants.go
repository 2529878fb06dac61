package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Maximum accepted request body size
const MaxRequestBodySize = 1 << 20

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// Default rate limiting for public API calls, per device per minute
const DefaultRateLimitPerMin = 120

// Retention for analytics view counters
const ViewCounterTTL = 90 * 24 * time.Hour
