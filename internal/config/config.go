package config

import (
	"os"
	"strconv"

	"equipdata/internal/database"
)

// DefaultRetentionLimit is how many datasets are kept per owner unless
// RETENTION_LIMIT overrides it.
const DefaultRetentionLimit = 5

// Config equipdata service configuration
type Config struct {
	DBEnabled bool
	Database  database.Config
	Redis     struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	// RetentionLimit is the maximum number of datasets kept per owner.
	RetentionLimit int
	Webhook        WebhookConfig
}

// WebhookConfig configures the optional ingestion-completed notification.
type WebhookConfig struct {
	Enabled bool   // default false
	URL     string // POST target for ingestion results
}

func Load() *Config {
	cfg := &Config{}

	// Default to true for local dev; cmd binaries fall back to the in-memory
	// repository when the DB is unavailable.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "equipdata")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.RetentionLimit = parseInt(getEnv("RETENTION_LIMIT", "5"), DefaultRetentionLimit)
	if cfg.RetentionLimit <= 0 {
		cfg.RetentionLimit = DefaultRetentionLimit
	}

	cfg.Webhook.Enabled = getEnv("WEBHOOK_ENABLED", "false") == "true"
	cfg.Webhook.URL = getEnv("WEBHOOK_URL", "")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
