// Package config reads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	strs "ecommerce/pkg/platform/strings"
)

// Server captures process-level configuration.
type Server struct {
	Addr            string
	LogLevel        string
	JWTSigningKey   string
	DefaultCurrency string
	SeedDemo        bool

	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Ordering    OrderingConfig
	Idempotency IdempotencyConfig
	RateLimit   RateLimitConfig
}

// DatabaseConfig selects Postgres. An empty URL runs on in-memory stores.
type DatabaseConfig struct {
	URL          string
	Driver       string
	MaxOpenConns int
	MaxIdleConns int
	TxTimeout    time.Duration
}

// RedisConfig configures the idempotency record store. An empty URL keeps
// records in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures order event publishing. No brokers means events are
// only logged.
type KafkaConfig struct {
	Brokers          []string
	OrderTopic       string
	ClientID         string
	FailureThreshold int
	Cooldown         time.Duration
	PublishTimeout   time.Duration
}

type OrderingConfig struct {
	LowStockThreshold int
}

type IdempotencyConfig struct {
	TTL time.Duration
}

// RateLimitConfig bounds requests per client IP over a sliding window.
type RateLimitConfig struct {
	Disabled bool
	Limit    int
	Window   time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	cfg := Server{
		Addr:            envOr("ORDERS_ADDR", ":8080"),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		JWTSigningKey:   jwtSigningKey,
		DefaultCurrency: strings.ToUpper(envOr("DEFAULT_CURRENCY", "CNY")),
		Database: DatabaseConfig{
			URL:    os.Getenv("DATABASE_URL"),
			Driver: envOr("DATABASE_DRIVER", "pgx"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Kafka: KafkaConfig{
			Brokers:    strs.SplitList(os.Getenv("KAFKA_BROKERS")),
			OrderTopic: envOr("KAFKA_ORDER_TOPIC", "orders.events"),
			ClientID:   envOr("KAFKA_CLIENT_ID", "orders-service"),
		},
	}

	var err error
	cfg.SeedDemo, err = boolEnv("SEED_DEMO", false)
	collect(err)
	cfg.Database.MaxOpenConns, err = intEnv("DATABASE_MAX_OPEN_CONNS", 20)
	collect(err)
	cfg.Database.MaxIdleConns, err = intEnv("DATABASE_MAX_IDLE_CONNS", 5)
	collect(err)
	cfg.Database.TxTimeout, err = durationEnv("TX_TIMEOUT", 5*time.Second)
	collect(err)
	cfg.Redis.PoolSize, err = intEnv("REDIS_POOL_SIZE", 10)
	collect(err)
	cfg.Redis.MinIdleConns, err = intEnv("REDIS_MIN_IDLE_CONNS", 2)
	collect(err)
	cfg.Redis.DialTimeout, err = durationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second)
	collect(err)
	cfg.Redis.ReadTimeout, err = durationEnv("REDIS_READ_TIMEOUT", 3*time.Second)
	collect(err)
	cfg.Redis.WriteTimeout, err = durationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second)
	collect(err)
	cfg.Kafka.FailureThreshold, err = intEnv("KAFKA_FAILURE_THRESHOLD", 5)
	collect(err)
	cfg.Kafka.Cooldown, err = durationEnv("KAFKA_COOLDOWN", 30*time.Second)
	collect(err)
	cfg.Kafka.PublishTimeout, err = durationEnv("KAFKA_PUBLISH_TIMEOUT", 10*time.Second)
	collect(err)
	cfg.Ordering.LowStockThreshold, err = intEnv("LOW_STOCK_THRESHOLD", 10)
	collect(err)
	cfg.Idempotency.TTL, err = durationEnv("IDEMPOTENCY_TTL", 24*time.Hour)
	collect(err)
	cfg.RateLimit.Disabled, err = boolEnv("RATE_LIMIT_DISABLED", false)
	collect(err)
	cfg.RateLimit.Limit, err = intEnv("RATE_LIMIT_REQUESTS", 120)
	collect(err)
	cfg.RateLimit.Window, err = durationEnv("RATE_LIMIT_WINDOW", time.Minute)
	collect(err)

	switch cfg.Database.Driver {
	case "pgx", "postgres":
	default:
		collect(fmt.Errorf("DATABASE_DRIVER must be pgx or postgres, got %q", cfg.Database.Driver))
	}
	if !cfg.RateLimit.Disabled && (cfg.RateLimit.Limit <= 0 || cfg.RateLimit.Window <= 0) {
		collect(errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive"))
	}
	if cfg.Kafka.PublishTimeout <= 0 {
		collect(errors.New("KAFKA_PUBLISH_TIMEOUT must be positive"))
	}
	if len(cfg.DefaultCurrency) != 3 {
		collect(fmt.Errorf("DEFAULT_CURRENCY must be a three-letter code, got %q", cfg.DefaultCurrency))
	}

	if len(errs) > 0 {
		return Server{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, raw)
	}
	return v, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, raw)
	}
	return v, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, raw)
	}
	return v, nil
}

