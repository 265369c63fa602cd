package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"salonbot/internal/validation"
)

// Storage backends for intake records
const (
	StorageFile       = "file"
	StorageClickHouse = "clickhouse"
	StorageMemory     = "memory"
)

// Session backends for conversation state
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// Config holds the application configuration
type Config struct {
	TelegramToken  string
	AllowedUserIDs []int64
	AuditChatID    int64

	// Bot mode configuration
	WebhookMode bool   // If true, use webhook mode; if false, use polling mode
	WebhookURL  string // URL for webhook (required if WebhookMode is true)
	Port        string
	LogDev      bool

	StorageBackend    string
	ClientStorageFile string
	SalonStorageFile  string

	// ClickHouse configuration
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseUseTLS   bool

	SessionBackend string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SessionTTL     time.Duration

	SalonImagesDir    string
	OrderDocumentsDir string
	OrderDocumentURL  string

	GoogleVisionAPIKey string

	WooStoreURL       string
	WooConsumerKey    string
	WooConsumerSecret string

	ExternalTimeout time.Duration
	SKUPattern      string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}
	var err error

	// Telegram Bot Token (required)
	config.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if config.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	// Allowed User IDs (required)
	allowedIDsStr := os.Getenv("ALLOWED_USER_IDS")
	if allowedIDsStr == "" {
		return nil, fmt.Errorf("ALLOWED_USER_IDS is required (comma-separated list of Telegram user IDs)")
	}
	for _, idStr := range strings.Split(allowedIDsStr, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID in ALLOWED_USER_IDS: %s", idStr)
		}
		config.AllowedUserIDs = append(config.AllowedUserIDs, id)
	}

	auditStr := os.Getenv("AUDIT_CHAT_ID")
	if auditStr == "" {
		return nil, fmt.Errorf("AUDIT_CHAT_ID is required")
	}
	if config.AuditChatID, err = strconv.ParseInt(strings.TrimSpace(auditStr), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid AUDIT_CHAT_ID: %w", err)
	}

	// Bot mode configuration
	config.WebhookMode = os.Getenv("WEBHOOK_MODE") == "true"
	if config.WebhookMode {
		config.WebhookURL = os.Getenv("WEBHOOK_URL")
		if config.WebhookURL == "" {
			return nil, fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
		}
	}
	config.Port = getEnv("PORT", "8080")
	config.LogDev = os.Getenv("LOG_DEV") == "true"

	if err := config.loadStorage(); err != nil {
		return nil, err
	}
	if err := config.loadSessions(); err != nil {
		return nil, err
	}

	required := []struct {
		name   string
		target *string
	}{
		{"SALON_IMAGES_DIR", &config.SalonImagesDir},
		{"ORDER_DOCUMENTS_DIR", &config.OrderDocumentsDir},
		{"ORDER_DOCUMENT_URL", &config.OrderDocumentURL},
		{"GOOGLE_VISION_API_KEY", &config.GoogleVisionAPIKey},
		{"WOO_STORE_URL", &config.WooStoreURL},
		{"WOO_CONSUMER_KEY", &config.WooConsumerKey},
		{"WOO_CONSUMER_SECRET", &config.WooConsumerSecret},
	}
	for _, r := range required {
		*r.target = os.Getenv(r.name)
		if *r.target == "" {
			return nil, fmt.Errorf("%s is required", r.name)
		}
	}

	if config.ExternalTimeout, err = durationEnv("EXTERNAL_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	config.SKUPattern = getEnv("SKU_PATTERN", validation.DefaultSKUPattern)
	if _, err := validation.NewSKUExtractor(config.SKUPattern); err != nil {
		return nil, fmt.Errorf("invalid SKU_PATTERN: %w", err)
	}

	return config, nil
}

func (c *Config) loadStorage() error {
	c.StorageBackend = getEnv("STORAGE_BACKEND", StorageFile)
	switch c.StorageBackend {
	case StorageMemory:
	case StorageFile:
		c.ClientStorageFile = getEnv("CLIENT_STORAGE_FILE", "data/clients.jsonl")
		c.SalonStorageFile = getEnv("SALON_STORAGE_FILE", "data/salons.jsonl")
	case StorageClickHouse:
		c.ClickHouseHost = os.Getenv("CLICKHOUSE_HOST")
		if c.ClickHouseHost == "" {
			return fmt.Errorf("CLICKHOUSE_HOST is required when STORAGE_BACKEND is clickhouse")
		}

		portStr := os.Getenv("CLICKHOUSE_PORT")
		if portStr == "" {
			c.ClickHousePort = 9000 // Default ClickHouse native port
		} else {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return fmt.Errorf("invalid CLICKHOUSE_PORT: %w", err)
			}
			c.ClickHousePort = port
		}

		c.ClickHouseDatabase = getEnv("CLICKHOUSE_DATABASE", "default")
		c.ClickHouseUser = getEnv("CLICKHOUSE_USER", "default")
		c.ClickHousePassword = os.Getenv("CLICKHOUSE_PASSWORD")
		c.ClickHouseUseTLS = os.Getenv("CLICKHOUSE_USE_TLS") == "true"
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (file, clickhouse or memory)", c.StorageBackend)
	}
	return nil
}

func (c *Config) loadSessions() error {
	c.SessionBackend = getEnv("SESSION_BACKEND", SessionMemory)
	switch c.SessionBackend {
	case SessionMemory:
	case SessionRedis:
		c.RedisAddr = os.Getenv("REDIS_ADDR")
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when SESSION_BACKEND is redis")
		}
		c.RedisPassword = os.Getenv("REDIS_PASSWORD")
		if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
			db, err := strconv.Atoi(dbStr)
			if err != nil {
				return fmt.Errorf("invalid REDIS_DB: %w", err)
			}
			c.RedisDB = db
		}
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q (memory or redis)", c.SessionBackend)
	}

	ttl, err := durationEnv("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return err
	}
	c.SessionTTL = ttl
	return nil
}

// getEnv retrieves environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return d, nil
}
