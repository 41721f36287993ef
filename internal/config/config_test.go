package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SEC_USER_AGENT", "edgarwatch test@example.com")
	t.Setenv("REPORTER_EMAIL", "reporter@example.com")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "edgarwatch test@example.com", cfg.SECUserAgent)
	assert.Equal(t, "reporter@example.com", cfg.ReporterEmail)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "gemini-1.5-pro", cfg.GeminiModel)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 200, cfg.AlertRetention)
	assert.Equal(t, 65536, cfg.StreamChunkSize)
	assert.Equal(t, 5*time.Second, cfg.StreamReconnect)
	assert.Empty(t, cfg.CryptoKeywords)
}

func TestLoadMissingUserAgent(t *testing.T) {
	t.Setenv("SEC_USER_AGENT", "")
	t.Setenv("REPORTER_EMAIL", "reporter@example.com")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEC_USER_AGENT")
}

func TestLoadMissingReporterEmail(t *testing.T) {
	t.Setenv("SEC_USER_AGENT", "edgarwatch test@example.com")
	t.Setenv("REPORTER_EMAIL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPORTER_EMAIL")
}

func TestLoadProviderFromAddressRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_FROM_EMAIL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP_FROM_EMAIL")

	t.Setenv("SMTP_FROM_EMAIL", "alerts@example.com")
	t.Setenv("RESEND_API_KEY", "re_123")
	t.Setenv("RESEND_FROM_EMAIL", "")

	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESEND_FROM_EMAIL")
}

func TestLoadCryptoKeywordsSplit(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CRYPTO_KEYWORDS", " Bitcoin , Solana ,, Spot ")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"Bitcoin", "Solana", "Spot"}, cfg.CryptoKeywords)
}
