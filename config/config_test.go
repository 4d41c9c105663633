package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "./storage", cfg.StorageRoot)
	assert.Equal(t, 5, cfg.RateLimit)
	assert.Equal(t, time.Second, cfg.RateLimitInterval)
	assert.Equal(t, "English", cfg.TargetLanguage)
	assert.Equal(t, "tts-1", cfg.SpeechModel)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("READ_TIMEOUT", "45s")
	t.Setenv("RATE_LIMIT", "20")

	cfg := LoadConfig()

	assert.Equal(t, "9999", cfg.ServerPort)
	assert.Equal(t, 45*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 20, cfg.RateLimit)
}

func TestInvalidEnvValuesFallBack(t *testing.T) {
	t.Setenv("READ_TIMEOUT", "not-a-duration")
	t.Setenv("RATE_LIMIT", "not-a-number")

	cfg := LoadConfig()

	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 5, cfg.RateLimit)
}

func TestValidateConfig(t *testing.T) {
	cfg := LoadConfig()
	require.NoError(t, ValidateConfig(cfg))

	cfg.StorageRoot = ""
	assert.Error(t, ValidateConfig(cfg))

	cfg = LoadConfig()
	cfg.RateLimit = 0
	assert.Error(t, ValidateConfig(cfg))
}
