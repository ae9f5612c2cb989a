package app

import (
	"os"
	"strconv"
	"time"

	"github.com/paddockhq/paddock/internal/auth/service"
	"github.com/paddockhq/paddock/pkg/jwtx"
)

type Config struct {
	Issuer   string   // Issuer claim for access tokens
	Audience []string // Audience claim for access tokens

	Algorithm      string // JWT signing algorithm (HS256, EdDSA) (default: HS256)
	JWTSecret      string // Required for HS256: symmetric signing secret, min 32 bytes
	SigningKeyFile string // Required for EdDSA: path to PKCS8 PEM private key

	DatabaseFile string // Path to SQLite database file (default: ./paddock.db)

	AccessTTL  time.Duration // Access token lifetime (default: 30m)
	RefreshTTL time.Duration // Refresh token lifetime (default: 14d)
	InviteTTL  time.Duration // Worker invitation lifetime (default: 7d)
	ConfirmTTL time.Duration // Email confirmation code lifetime (default: 24h)

	EmailMode    string // "dev" logs mail, "smtp" delivers it (default: dev)
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:         getEnvOrDefault("AUTH_ISSUER", "paddock-auth"),
		Algorithm:      getEnvOrDefault("AUTH_ALGORITHM", "HS256"),
		JWTSecret:      os.Getenv("AUTH_JWT_SECRET"),
		SigningKeyFile: os.Getenv("AUTH_SIGNING_KEY_FILE"),
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", "paddock.db"),

		AccessTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL: getEnvDurationOrDefault("AUTH_REFRESH_TTL", service.DefaultRefreshTTL),
		InviteTTL:  getEnvDurationOrDefault("AUTH_INVITE_TTL", service.DefaultInviteTTL),
		ConfirmTTL: getEnvDurationOrDefault("AUTH_CONFIRM_TTL", service.DefaultConfirmationTTL),

		EmailMode:    getEnvOrDefault("EMAIL_MODE", "dev"),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	if aud := os.Getenv("AUTH_AUDIENCE"); aud != "" {
		cfg.Audience = []string{aud}
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
