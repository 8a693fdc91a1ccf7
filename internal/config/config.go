// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all portal server configuration.
type Config struct {
	// Server
	ListenAddr  string
	MetricsAddr string

	// Logging
	LogLevel  string
	LogFormat string

	// Database
	DatabaseURL string

	// Auth
	JWTSecret string

	// S3 storage for document bytes; URLs are presigned on demand.
	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Region    string
	S3UseSSL    bool
	URLTTL      time.Duration

	// Document PIN
	PinMaxAttempts  int
	PinLockDuration time.Duration

	// Navigator
	ExplorerProfiles   string // optional YAML file overriding the built-in profiles
	SessionIdleTimeout time.Duration

	// Quotas
	RequestsPerMinute int // 0 = unlimited
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:         envOr("LISTEN_ADDR", ":8080"),
		MetricsAddr:        envOr("METRICS_ADDR", ":9090"),
		LogLevel:           envOr("LOG_LEVEL", "info"),
		LogFormat:          envOr("LOG_FORMAT", "json"),
		DatabaseURL:        envOr("DATABASE_URL", ""),
		JWTSecret:          envOr("JWT_SECRET", ""),
		S3Endpoint:         envOr("S3_ENDPOINT", "http://localhost:9000"),
		S3Bucket:           envOr("S3_BUCKET", "docportal"),
		S3AccessKey:        envOr("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:        envOr("S3_SECRET_KEY", "minioadmin"),
		S3Region:           envOr("S3_REGION", "us-east-1"),
		S3UseSSL:           envBool("S3_USE_SSL", false),
		URLTTL:             envDuration("URL_TTL", 5*time.Minute),
		PinMaxAttempts:     envInt("PIN_MAX_ATTEMPTS", 5),
		PinLockDuration:    envDuration("PIN_LOCK_DURATION", 15*time.Minute),
		ExplorerProfiles:   envOr("EXPLORER_PROFILES", ""),
		SessionIdleTimeout: envDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		RequestsPerMinute:  envInt("REQUESTS_PER_MINUTE", 0),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.PinMaxAttempts < 1 {
		return nil, fmt.Errorf("PIN_MAX_ATTEMPTS must be at least 1, got %d", cfg.PinMaxAttempts)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
