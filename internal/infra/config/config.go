package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL    string
	DBMaxOpenConns int // 0 keeps the pool default
	LogLevel       string
	Environment    string
	SchoolName     string
	NotifyScale    float64 // scale used for normalized scores in parent messages

	// Admin bot. Disabled when TelegramToken is empty.
	TelegramToken       string
	AdminTelegramID     int64
	DirectorTelegramIDs []int64
	TeacherTelegramIDs  []int64

	CronSpecRetrySweep string

	// WhatsApp providers, tried in this order: Twilio, WhatsApp Web, log stub.
	TwilioAccountSID    string
	TwilioAuthToken     string
	TwilioWhatsAppFrom  string
	WhatsAppWebEnabled  bool
	WhatsAppWebProfile  string
	WhatsAppWebTimeout  time.Duration
	WhatsAppCountryCode string

	// Email. The console stub is used when no API key is set.
	SendGridAPIKey string
	SenderEmail    string
	SenderName     string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	if v := os.Getenv("DB_MAX_OPEN_CONNS"); v != "" {
		cfg.DBMaxOpenConns, err = strconv.Atoi(v)
		if err != nil || cfg.DBMaxOpenConns < 0 {
			return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS %q", v)
		}
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.SchoolName = getEnv("SCHOOL_NAME", "School")

	cfg.NotifyScale = 20
	if v := os.Getenv("NOTIFY_SCALE"); v != "" {
		cfg.NotifyScale, err = strconv.ParseFloat(v, 64)
		if err != nil || cfg.NotifyScale <= 0 {
			return nil, fmt.Errorf("invalid NOTIFY_SCALE %q: must be a positive number", v)
		}
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken != "" {
		adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
		if adminIDStr == "" {
			return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
		}
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}
	if cfg.DirectorTelegramIDs, err = parseIDList(os.Getenv("DIRECTOR_TELEGRAM_IDS")); err != nil {
		return nil, fmt.Errorf("invalid DIRECTOR_TELEGRAM_IDS: %w", err)
	}
	if cfg.TeacherTelegramIDs, err = parseIDList(os.Getenv("TEACHER_TELEGRAM_IDS")); err != nil {
		return nil, fmt.Errorf("invalid TEACHER_TELEGRAM_IDS: %w", err)
	}

	cfg.CronSpecRetrySweep = getEnv("CRON_SPEC_RETRY_SWEEP", "*/10 * * * *") // Default: every 10 minutes

	cfg.TwilioAccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	cfg.TwilioAuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	cfg.TwilioWhatsAppFrom = os.Getenv("TWILIO_WHATSAPP_FROM")

	cfg.WhatsAppWebEnabled, err = parseBool(os.Getenv("WHATSAPP_WEB_ENABLED"))
	if err != nil {
		return nil, fmt.Errorf("invalid WHATSAPP_WEB_ENABLED: %w", err)
	}
	cfg.WhatsAppWebProfile = os.Getenv("WHATSAPP_WEB_PROFILE_DIR")
	cfg.WhatsAppWebTimeout = 45 * time.Second
	if v := os.Getenv("WHATSAPP_WEB_TIMEOUT"); v != "" {
		cfg.WhatsAppWebTimeout, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid WHATSAPP_WEB_TIMEOUT: %w", err)
		}
	}
	cfg.WhatsAppCountryCode = getEnv("WHATSAPP_COUNTRY_CODE", "")

	cfg.SendGridAPIKey = os.Getenv("SENDGRID_API_KEY")
	cfg.SenderEmail = getEnv("SENDER_EMAIL", "no-reply@school.local")
	cfg.SenderName = getEnv("SENDER_NAME", cfg.SchoolName)

	return cfg, nil
}

// TwilioConfigured reports whether every Twilio credential is present.
func (c *AppConfig) TwilioConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioWhatsAppFrom != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

// parseIDList parses a comma separated list of Telegram IDs.
func parseIDList(v string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
