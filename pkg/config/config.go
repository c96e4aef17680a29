package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	DBDriver       string
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	RedisURL           string
	RedisChannelPrefix string

	GoogleProjectID     string
	GooglePubSubTopic   string
	GoogleCredentials   string
	FirebaseCredentials string

	ReminderInterval time.Duration
	ReminderLead     time.Duration

	LogLevel    string
	LogFormat   string
	CORSOrigins []string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:                getEnv("PORT", "8080"),
		DBDriver:            strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseURL:         getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=projectflow port=5432 sslmode=disable"),
		DBMaxOpenConns:      getInt("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns:      getInt("DB_MAX_IDLE_CONNS", 5),
		JWTSecret:           getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTIssuer:           getEnv("JWT_ISSUER", ""),
		JWTAudience:         getEnv("JWT_AUDIENCE", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		RedisChannelPrefix:  getEnv("REDIS_CHANNEL_PREFIX", "board"),
		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePubSubTopic:   getEnv("GOOGLE_PUBSUB_TOPIC", "board-events"),
		GoogleCredentials:   getEnv("GOOGLE_CREDENTIALS", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		ReminderInterval:    getDuration("REMINDER_INTERVAL", time.Minute),
		ReminderLead:        getDuration("REMINDER_LEAD", 24*time.Hour),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:           strings.ToLower(getEnv("LOG_FORMAT", "text")),
		CORSOrigins:         splitList(getEnv("CORS_ORIGINS", "")),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
