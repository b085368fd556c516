package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort string
	GRPCPort string

	MongoURI    string
	MongoDBName string

	// RedisAddr empty disables the cart cache.
	RedisAddr     string
	RedisPassword string

	// KafkaBrokers empty disables checkout events.
	KafkaBrokers  []string
	CheckoutTopic string

	IdentitySecret   string
	IdentityIssuer   string
	IdentityAudience string

	ProductQueryStrategy string
	PurchaseCommitMode   string
	ReservationTTL       time.Duration
	ReaperInterval       time.Duration

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	StartupRetries  int

	LogLevel string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg := &Config{
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		GRPCPort:             getEnv("GRPC_PORT", "50051"),
		MongoURI:             getEnv("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
		MongoDBName:          getEnv("MONGO_DB_NAME", "ecofinds"),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:         splitList(getEnv("KAFKA_BROKERS", "")),
		CheckoutTopic:        getEnv("CHECKOUT_TOPIC", "checkout-completed"),
		IdentitySecret:       getEnv("IDENTITY_SECRET", ""),
		IdentityIssuer:       getEnv("IDENTITY_ISSUER", ""),
		IdentityAudience:     getEnv("IDENTITY_AUDIENCE", ""),
		ProductQueryStrategy: getEnv("PRODUCT_QUERY_STRATEGY", "native"),
		PurchaseCommitMode:   getEnv("PURCHASE_COMMIT_MODE", "per-item"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.ReservationTTL, err = getDuration("RESERVATION_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ReaperInterval, err = getDuration("REAPER_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.StartupRetries, err = getInt("STARTUP_RETRIES", 5); err != nil {
		return nil, err
	}

	if cfg.IdentitySecret == "" {
		return nil, fmt.Errorf("IDENTITY_SECRET is required")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
