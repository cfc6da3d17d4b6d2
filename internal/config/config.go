package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Config holds the runtime settings read from the environment.
type Config struct {
	Port        string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret      string
	PersistTimeout time.Duration

	DefaultLanguage string

	TelegramBotToken    string
	TelegramAdminChatID int64

	ReportDigestSchedule string

	// NodeID identifies this replica on the Redis broadcast channel.
	NodeID string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: No .env file found, relying on system environment variables")
	}

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		PersistTimeout:       getEnvDuration("PERSIST_TIMEOUT", DefaultPersistTimeout),
		DefaultLanguage:      getEnv("DEFAULT_LANGUAGE", "ko"),
		TelegramBotToken:     getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAdminChatID:  int64(getEnvInt("TELEGRAM_ADMIN_CHAT_ID", 0)),
		ReportDigestSchedule: getEnv("REPORT_DIGEST_SCHEDULE", "@hourly"),
		NodeID:               getEnv("NODE_ID", ""),
	}

	if cfg.NodeID == "" {
		cfg.NodeID = uuid.NewString()
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	if cfg.DatabaseURL != "" {
		log.Printf("INFO: Database URL detected: %s", maskDSN(cfg.DatabaseURL))
	}
	if cfg.RedisAddr == "" {
		log.Println("WARNING: REDIS_ADDR not set; cross-replica relay and bans are disabled")
	}

	return cfg, nil
}

// AlertsEnabled reports whether Telegram alerts are configured.
func (c *Config) AlertsEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramAdminChatID != 0
}

func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	return strings.TrimSpace(value)
}

func getEnvInt(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("WARNING: %s=%q is not an integer, using default %d", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("WARNING: %s=%q is not a positive duration, using default %s", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func maskDSN(dsn string) string {
	parts := strings.Split(dsn, "@")
	if len(parts) < 2 {
		return "****"
	}
	return "postgres://****:****@" + parts[len(parts)-1]
}
