package config

import (
	"testing"
	"time"

	"github.com/escalateai/api/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "GO_ENV", "OPENROUTER_API_KEY", "OPENROUTER_MODEL_PRIMARY", "OPENROUTER_MODEL_FALLBACK",
	"PRIMARY_PROVIDER", "FALLBACK_PROVIDER", "GEMINI_API_KEY", "GENERATION_MAX_ATTEMPTS",
	"GENERATION_ATTEMPT_TIMEOUT", "GENERATION_BACKOFF_INITIAL", "GENERATION_BACKOFF_MAX",
	"GENERATION_BACKOFF_MULTIPLIER", "GENERATION_BACKOFF_JITTER", "GENERATION_TEMPERATURE",
	"CORS_ALLOWED_ORIGINS", "RATE_LIMIT_PER_MINUTE", "REDIS_URL", "NATS_URL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 2, cfg.MaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.AttemptTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 20, cfg.RateLimitPerMinute)
	assert.Empty(t, cfg.RedisURL)

	primary := cfg.BackendPrimary()
	assert.Equal(t, llm.ProviderOpenRouter, primary.Provider)
	assert.Equal(t, "openai/gpt-4o-mini", primary.Model)
	assert.False(t, primary.Configured())
	assert.Equal(t, "meta-llama/llama-3.1-8b-instruct", cfg.BackendFallback().Model)

	inv := cfg.InvokerConfig()
	assert.Equal(t, 2, inv.MaxAttempts)
	assert.Equal(t, 800*time.Millisecond, inv.Backoff.Initial)
	assert.Equal(t, 6*time.Second, inv.Backoff.Max)
	assert.InDelta(t, 2.0, inv.Backoff.Multiplier, 1e-9)
	assert.InDelta(t, 0.1, inv.Backoff.RandomizationFactor, 1e-9)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("GO_ENV", "production")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")
	t.Setenv("FALLBACK_PROVIDER", "Gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("GENERATION_MAX_ATTEMPTS", "4")
	t.Setenv("GENERATION_ATTEMPT_TIMEOUT", "15s")
	t.Setenv("GENERATION_BACKOFF_MULTIPLIER", "1.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 4, cfg.InvokerConfig().MaxAttempts)
	assert.Equal(t, 15*time.Second, cfg.InvokerConfig().AttemptTimeout)
	assert.InDelta(t, 1.5, cfg.InvokerConfig().Backoff.Multiplier, 1e-9)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)

	primary := cfg.BackendPrimary()
	assert.Equal(t, "sk-or-test", primary.APIKey)
	assert.True(t, primary.Configured())

	fallback := cfg.BackendFallback()
	assert.Equal(t, llm.ProviderGemini, fallback.Provider)
	assert.Equal(t, "gemini-1.5-flash", fallback.Model)
	assert.Equal(t, "g-key", fallback.APIKey)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string][2]string{
		"single attempt":   {"GENERATION_MAX_ATTEMPTS", "1"},
		"not a number":     {"GENERATION_MAX_ATTEMPTS", "two"},
		"bad duration":     {"GENERATION_ATTEMPT_TIMEOUT", "soon"},
		"zero timeout":     {"GENERATION_ATTEMPT_TIMEOUT", "0s"},
		"unknown provider": {"PRIMARY_PROVIDER", "carrier-pigeon"},
		"bad port":         {"PORT", "http"},
		"jitter too large": {"GENERATION_BACKOFF_JITTER", "1.5"},
		"shrinking":        {"GENERATION_BACKOFF_MULTIPLIER", "0.5"},
		"max below start":  {"GENERATION_BACKOFF_MAX", "100ms"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), kv[0])
		})
	}
}
