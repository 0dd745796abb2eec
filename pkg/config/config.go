package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds settings loaded from the environment
type Config struct {
	Port             string
	Mode             string
	DatabaseURL      string
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// IMAPEncryptionKey seals stored IMAP passwords; falls back to JWTSecret
	IMAPEncryptionKey string

	GoogleClientID        string
	GoogleClientSecret    string
	GoogleProjectID       string
	GooglePubSubTopic     string
	GoogleCredentialsFile string
	FirebaseCredentials   string

	AIProvider              string
	GeminiAPIKey            string
	GeminiModel             string
	GeminiRequestsPerMinute int
	OllamaBaseURL           string
	OllamaModel             string
	EmbeddingProvider       string
	NomicAPIKey             string
	ProviderTimeout         time.Duration

	ChromaAPIKey   string
	ChromaTenant   string
	ChromaDatabase string

	SyncEmailInterval time.Duration
	SyncMaxResults    int
	SyncLookbackDays  int
	SyncMaxRetries    int

	CalendarTimezone         string
	DeadlineReminderWindow   time.Duration
	DeadlineReminderInterval time.Duration
	// DigestHour is the local hour the daily digest goes out; negative disables it
	DigestHour int
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Mode:             getEnv("GIN_MODE", "debug"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  getDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
		JWTRefreshExpiry: getDuration("JWT_REFRESH_EXPIRY", 168*time.Hour), // 7 days

		IMAPEncryptionKey: getEnv("IMAP_ENCRYPTION_KEY", ""),

		GoogleClientID:        getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:    getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleProjectID:       getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePubSubTopic:     getEnv("GOOGLE_PUBSUB_TOPIC", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		FirebaseCredentials:   getEnv("FIREBASE_CREDENTIALS_FILE", ""),

		AIProvider:              getEnv("AI_PROVIDER", "auto"),
		GeminiAPIKey:            getEnv("GEMINI_API_KEY", ""),
		GeminiModel:             getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiRequestsPerMinute: getInt("GEMINI_REQUESTS_PER_MINUTE", 10),
		OllamaBaseURL:           getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:             getEnv("OLLAMA_MODEL", "llama3"),
		EmbeddingProvider:       getEnv("EMBEDDING_PROVIDER", "nomic"),
		NomicAPIKey:             getEnv("NOMIC_API_KEY", ""),
		ProviderTimeout:         getDuration("PROVIDER_TIMEOUT", 60*time.Second),

		ChromaAPIKey:   getEnv("CHROMA_API_KEY", ""),
		ChromaTenant:   getEnv("CHROMA_TENANT", ""),
		ChromaDatabase: getEnv("CHROMA_DATABASE", ""),

		SyncEmailInterval: getDuration("SYNC_EMAIL_INTERVAL", 7*time.Second),
		SyncMaxResults:    getInt("SYNC_MAX_RESULTS", 100),
		SyncLookbackDays:  getInt("SYNC_LOOKBACK_DAYS", 30),
		SyncMaxRetries:    getInt("SYNC_MAX_RETRIES", 3),

		CalendarTimezone:         getEnv("CALENDAR_TIMEZONE", "America/New_York"),
		DeadlineReminderWindow:   getDuration("DEADLINE_REMINDER_WINDOW", 24*time.Hour),
		DeadlineReminderInterval: getDuration("DEADLINE_REMINDER_INTERVAL", 15*time.Minute),
		DigestHour:               getInt("DIGEST_HOUR", 8),
	}

	if cfg.SyncMaxResults <= 0 || cfg.SyncMaxResults > 100 {
		cfg.SyncMaxResults = 100
	}
	if cfg.DigestHour > 23 {
		cfg.DigestHour = 8
	}

	if cfg.Mode == "release" {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required in release mode")
		}
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required in release mode")
		}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "your-secret-key-change-in-production"
	}
	if cfg.IMAPEncryptionKey == "" {
		cfg.IMAPEncryptionKey = cfg.JWTSecret
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
