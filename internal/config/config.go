/*
Package config loads runtime configuration from the environment (with an
optional .env file). SEC_USER_AGENT and REPORTER_EMAIL are mandatory; the
email provider is chosen from whichever credentials are present.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime settings.
type Config struct {
	// EDGAR access.
	SECUserAgent   string
	RequestTimeout time.Duration

	// Alert delivery.
	ReporterEmail string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPFromEmail string
	ResendAPIKey  string
	ResendFrom    string

	// Summarization.
	GeminiAPIKey string
	GeminiModel  string

	// Classification.
	CryptoKeywords []string

	// Persistence.
	DataDir        string
	AlertRetention int

	// Push-feed stream.
	StreamHost      string
	StreamPort      int
	StreamChunkSize int
	StreamReconnect time.Duration

	// Logging.
	LogLevel string
	LogFile  string
}

// Load reads configuration from the environment. A .env file in the working
// directory is honored when present but never required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-pro")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("ALERT_RETENTION", 200)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("STREAM_HOST", "127.0.0.1")
	v.SetDefault("STREAM_PORT", 9035)
	v.SetDefault("STREAM_CHUNK_SIZE", 65536)
	v.SetDefault("STREAM_RECONNECT_SECONDS", 5)
	v.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		SECUserAgent:    v.GetString("SEC_USER_AGENT"),
		RequestTimeout:  time.Duration(v.GetInt("REQUEST_TIMEOUT_SECONDS")) * time.Second,
		ReporterEmail:   v.GetString("REPORTER_EMAIL"),
		SMTPHost:        v.GetString("SMTP_HOST"),
		SMTPPort:        v.GetInt("SMTP_PORT"),
		SMTPUsername:    v.GetString("SMTP_USERNAME"),
		SMTPPassword:    v.GetString("SMTP_PASSWORD"),
		SMTPFromEmail:   v.GetString("SMTP_FROM_EMAIL"),
		ResendAPIKey:    v.GetString("RESEND_API_KEY"),
		ResendFrom:      v.GetString("RESEND_FROM_EMAIL"),
		GeminiAPIKey:    v.GetString("GEMINI_API_KEY"),
		GeminiModel:     v.GetString("GEMINI_MODEL"),
		DataDir:         v.GetString("DATA_DIR"),
		AlertRetention:  v.GetInt("ALERT_RETENTION"),
		StreamHost:      v.GetString("STREAM_HOST"),
		StreamPort:      v.GetInt("STREAM_PORT"),
		StreamChunkSize: v.GetInt("STREAM_CHUNK_SIZE"),
		StreamReconnect: time.Duration(v.GetInt("STREAM_RECONNECT_SECONDS")) * time.Second,
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogFile:         v.GetString("LOG_FILE"),
	}

	if raw := v.GetString("CRYPTO_KEYWORDS"); raw != "" {
		for _, kw := range strings.Split(raw, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				cfg.CryptoKeywords = append(cfg.CryptoKeywords, kw)
			}
		}
	}

	if cfg.SECUserAgent == "" {
		return nil, fmt.Errorf("SEC_USER_AGENT is required (the SEC rejects anonymous clients)")
	}
	if cfg.ReporterEmail == "" {
		return nil, fmt.Errorf("REPORTER_EMAIL is required")
	}
	if cfg.SMTPHost != "" && cfg.SMTPFromEmail == "" {
		return nil, fmt.Errorf("SMTP_FROM_EMAIL is required when SMTP_HOST is set")
	}
	if cfg.ResendAPIKey != "" && cfg.ResendFrom == "" {
		return nil, fmt.Errorf("RESEND_FROM_EMAIL is required when RESEND_API_KEY is set")
	}

	return cfg, nil
}
