// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "entrant/pkg/platform/strings"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	PostgresURL   string
	RedisURL      string
	KafkaBrokers  []string
	AuditTopic    string
	JWTSigningKey string

	// PendingPaymentTTL bounds how long a paid registration may sit in
	// pending_payment before the sweeper rejects it and releases its slot.
	PendingPaymentTTL time.Duration
	// SweepInterval is how often the expiry sweeper runs.
	SweepInterval time.Duration

	// RateLimitPerMinute caps authenticated requests per client per minute.
	RateLimitPerMinute int

	// HTTPReadTimeout and HTTPWriteTimeout bound request reads and
	// response writes on the public server.
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration

	ShutdownTimeout time.Duration
}

// RedisConfig tunes the shared Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:               getenv("ENTRANT_ADDR", ":8080"),
		PostgresURL:        os.Getenv("ENTRANT_POSTGRES_URL"),
		RedisURL:           os.Getenv("ENTRANT_REDIS_URL"),
		AuditTopic:         getenv("ENTRANT_AUDIT_TOPIC", "entrant.audit"),
		JWTSigningKey:      os.Getenv("JWT_SIGNING_KEY"),
		PendingPaymentTTL:  getenvDuration("PENDING_PAYMENT_TTL", 30*time.Minute),
		SweepInterval:      getenvDuration("SWEEP_INTERVAL", time.Minute),
		RateLimitPerMinute: getenvInt("RATE_LIMIT_PER_MINUTE", 60),
		HTTPReadTimeout:    getenvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
		HTTPWriteTimeout:   getenvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if brokers := os.Getenv("ENTRANT_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = pstrings.DedupeAndTrim(strings.Split(brokers, ","))
	}
	if cfg.JWTSigningKey == "" {
		// Use a default for development - should be overridden in production
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	return cfg
}

// Redis derives the Redis client configuration with pool defaults.
func (s Server) Redis() RedisConfig {
	return RedisConfig{
		URL:          s.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
