package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	FeedDriverLocal    = "local"
	FeedDriverPostgres = "postgres"
	FeedDriverRedis    = "redis"
)

type Config struct {
	Port                   string
	DBUrl                  string
	JWTSecret              string
	SupabaseURL            string
	SupabaseBucket         string
	SupabaseServiceKey     string
	AppEnv                 string
	FeedDriver             string
	FeedChannel            string
	RedisURL               string
	AMQPURL                string
	AMQPExchange           string
	LiveQueueSize          int
	LiveConnectionsPerUser int
	NotificationFeedLimit  int
	EnableMetrics          bool
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	cfg := &Config{
		Port:                   getEnv("PORT", "8080"),
		DBUrl:                  getEnv("DB_URL", ""),
		JWTSecret:              jwtSecret,
		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseBucket:         getEnv("SUPABASE_BUCKET", ""),
		SupabaseServiceKey:     getEnv("SUPABASE_SERVICE_KEY", ""),
		AppEnv:                 normalizeEnv(getEnv("APP_ENV", "production")),
		FeedDriver:             strings.ToLower(strings.TrimSpace(getEnv("FEED_DRIVER", FeedDriverPostgres))),
		FeedChannel:            getEnv("FEED_CHANNEL", "table_changes"),
		RedisURL:               getEnv("REDIS_URL", ""),
		AMQPURL:                getEnv("AMQP_URL", ""),
		AMQPExchange:           getEnv("AMQP_EXCHANGE", "coachsync.events"),
		LiveQueueSize:          getEnvInt("LIVE_QUEUE_SIZE", 256),
		LiveConnectionsPerUser: getEnvInt("LIVE_CONNECTIONS_PER_USER", 5),
		NotificationFeedLimit:  getEnvInt("NOTIFICATION_FEED_LIMIT", 50),
		EnableMetrics:          getEnvBool("ENABLE_METRICS", true),
	}

	switch cfg.FeedDriver {
	case FeedDriverLocal, FeedDriverPostgres:
	case FeedDriverRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when FEED_DRIVER=redis")
		}
	default:
		return nil, fmt.Errorf("unsupported FEED_DRIVER %q", cfg.FeedDriver)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		log.Printf("ignoring invalid %s=%q", key, value)
		return fallback
	}
	return parsed
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func (c *Config) StorageConfigured() bool {
	return c != nil && c.SupabaseURL != "" && c.SupabaseBucket != "" && c.SupabaseServiceKey != ""
}
