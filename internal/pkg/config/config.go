package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	Env         string
	HTTPAddr    string

	// DBPath selects the SQLite cart store; empty means in-memory.
	DBPath string

	CartTTL      time.Duration
	ReapInterval time.Duration

	PaymentSuccessRate float64
	IdempotencyTTL     time.Duration

	CatalogCacheSize int
	CatalogCacheTTL  time.Duration

	// AMQPURL enables the RabbitMQ checkout-event relay when non-empty.
	AMQPURL      string
	AMQPExchange string
}

// Load reads .env (when present) and then the environment, applying
// defaults for anything unset.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ServiceName:        env("SERVICE_NAME", "cartservice"),
		Env:                env("ENV", "dev"),
		HTTPAddr:           env("HTTP_ADDR", ":8080"),
		DBPath:             env("CART_DB_PATH", ""),
		CartTTL:            envDuration("CART_TTL", 72*time.Hour),
		ReapInterval:       envDuration("CART_REAP_INTERVAL", 15*time.Minute),
		PaymentSuccessRate: envFloat("PAYMENT_SUCCESS_RATE", 1.0),
		IdempotencyTTL:     envDuration("CHECKOUT_IDEMPOTENCY_TTL", 24*time.Hour),
		CatalogCacheSize:   envInt("CATALOG_CACHE_SIZE", 512),
		CatalogCacheTTL:    envDuration("CATALOG_CACHE_TTL", time.Minute),
		AMQPURL:            env("AMQP_URL", ""),
		AMQPExchange:       env("AMQP_EXCHANGE", "cart.events"),
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
