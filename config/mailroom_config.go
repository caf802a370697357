package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// generateWorkerID creates a unique worker ID using hostname and PID
func generateWorkerID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "mailroom"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Database
	DatabaseURL string
	RedisURL    string

	// Inbound mailbox (IMAP)
	IMAPHost         string
	IMAPPort         int
	IMAPUsername     string
	IMAPPassword     string
	IMAPFolder       string
	IMAPBatchLimit   int
	IMAPStartTLS     bool // STARTTLS on a plaintext port instead of implicit TLS
	ProcessedFolder  string
	DeadLetterFolder string

	// Outbound mail (SMTP)
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// Pipeline
	RoutingConfigPath string
	ModelDir          string
	PollInterval      time.Duration
	ErrorRetryDelay   time.Duration
	MaxRetries        int
	MaxAttachmentMB   int
	ProcessedTTL      time.Duration

	// Worker
	WorkerID string

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		// IMAP
		IMAPHost:         getEnv("IMAP_HOST", ""),
		IMAPPort:         getEnvInt("IMAP_PORT", 993),
		IMAPUsername:     getEnv("IMAP_USERNAME", ""),
		IMAPPassword:     getEnv("IMAP_PASSWORD", ""),
		IMAPFolder:       getEnv("IMAP_FOLDER", "INBOX"),
		IMAPBatchLimit:   getEnvInt("IMAP_BATCH_LIMIT", 50),
		IMAPStartTLS:     getEnvBool("IMAP_STARTTLS", false),
		ProcessedFolder:  getEnv("IMAP_PROCESSED_FOLDER", ""),
		DeadLetterFolder: getEnv("IMAP_DEAD_LETTER_FOLDER", "DeadLetter"),

		// SMTP
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),

		// Pipeline
		RoutingConfigPath: getEnv("ROUTING_CONFIG_PATH", ""),
		ModelDir:          getEnv("MODEL_DIR", ""),
		PollInterval:      time.Duration(getEnvInt("POLL_INTERVAL_SEC", 300)) * time.Second,
		ErrorRetryDelay:   time.Duration(getEnvInt("ERROR_RETRY_DELAY_SEC", 60)) * time.Second,
		MaxRetries:        getEnvInt("MAX_MESSAGE_RETRIES", 3),
		MaxAttachmentMB:   getEnvInt("MAX_ATTACHMENT_MB", 10),
		ProcessedTTL:      time.Duration(getEnvInt("PROCESSED_TTL_HOURS", 168)) * time.Hour,

		// Worker
		WorkerID: getEnv("WORKER_ID", generateWorkerID()),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUsername
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
