package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/escalateai/api/internal/generation"
	"github.com/escalateai/api/internal/llm"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the API service. It is read once at
// startup and passed by value afterwards.
type Config struct {
	// Server
	Port        string
	Environment string

	// OpenRouter
	OpenRouterAPIKey        string
	OpenRouterBaseURL       string
	OpenRouterSiteURL       string
	OpenRouterAppName       string
	OpenRouterModelPrimary  string
	OpenRouterModelFallback string

	// Gemini
	GeminiAPIKey        string
	GeminiModelPrimary  string
	GeminiModelFallback string

	PrimaryProvider  string
	FallbackProvider string

	// Generation
	Temperature       float64
	MaxAttempts       int
	AttemptTimeout    time.Duration
	BackoffInitial    time.Duration
	BackoffMax        time.Duration
	BackoffMultiplier float64
	BackoffJitter     float64

	// HTTP surface
	CORSAllowedOrigins      []string
	RateLimitPerMinute      int
	CircuitFailureThreshold int
	CircuitOpenTimeout      time.Duration

	// Optional infrastructure
	RedisURL     string
	NATSURL      string
	EventSubject string
	OTLPEndpoint string
}

// Load reads configuration from the environment. Variables from a .env file
// in the working directory are applied first without overriding the
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8000"),
		Environment: getEnv("GO_ENV", "development"),

		OpenRouterAPIKey:        getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL:       getEnv("OPENROUTER_BASE_URL", llm.DefaultOpenRouterBaseURL),
		OpenRouterSiteURL:       getEnv("OPENROUTER_SITE_URL", "http://localhost:3000"),
		OpenRouterAppName:       getEnv("OPENROUTER_APP_NAME", "EscalateAI"),
		OpenRouterModelPrimary:  getEnv("OPENROUTER_MODEL_PRIMARY", "openai/gpt-4o-mini"),
		OpenRouterModelFallback: getEnv("OPENROUTER_MODEL_FALLBACK", "meta-llama/llama-3.1-8b-instruct"),

		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModelPrimary:  getEnv("GEMINI_MODEL_PRIMARY", "gemini-2.0-flash"),
		GeminiModelFallback: getEnv("GEMINI_MODEL_FALLBACK", "gemini-1.5-flash"),

		PrimaryProvider:  strings.ToLower(getEnv("PRIMARY_PROVIDER", llm.ProviderOpenRouter)),
		FallbackProvider: strings.ToLower(getEnv("FALLBACK_PROVIDER", llm.ProviderOpenRouter)),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		RedisURL:     getEnv("REDIS_URL", ""),
		NATSURL:      getEnv("NATS_URL", ""),
		EventSubject: getEnv("EVENT_SUBJECT", "complaint.generated"),
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	var errs []error
	cfg.Temperature = getEnvFloat("GENERATION_TEMPERATURE", 0.7, &errs)
	cfg.MaxAttempts = getEnvInt("GENERATION_MAX_ATTEMPTS", 2, &errs)
	cfg.AttemptTimeout = getEnvDuration("GENERATION_ATTEMPT_TIMEOUT", 60*time.Second, &errs)
	cfg.BackoffInitial = getEnvDuration("GENERATION_BACKOFF_INITIAL", 800*time.Millisecond, &errs)
	cfg.BackoffMax = getEnvDuration("GENERATION_BACKOFF_MAX", 6*time.Second, &errs)
	cfg.BackoffMultiplier = getEnvFloat("GENERATION_BACKOFF_MULTIPLIER", 2, &errs)
	cfg.BackoffJitter = getEnvFloat("GENERATION_BACKOFF_JITTER", 0.1, &errs)
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", 20, &errs)
	cfg.CircuitFailureThreshold = getEnvInt("CIRCUIT_FAILURE_THRESHOLD", 5, &errs)
	cfg.CircuitOpenTimeout = getEnvDuration("CIRCUIT_OPEN_TIMEOUT", 30*time.Second, &errs)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be fixed up with defaults
func (c *Config) Validate() error {
	var errs []error
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		errs = append(errs, fmt.Errorf("PORT: invalid port %q", c.Port))
	}
	for name, provider := range map[string]string{"PRIMARY_PROVIDER": c.PrimaryProvider, "FALLBACK_PROVIDER": c.FallbackProvider} {
		if provider != llm.ProviderOpenRouter && provider != llm.ProviderGemini {
			errs = append(errs, fmt.Errorf("%s: unknown provider %q", name, provider))
		}
	}
	if c.MaxAttempts < 2 {
		errs = append(errs, fmt.Errorf("GENERATION_MAX_ATTEMPTS: must be at least 2, got %d", c.MaxAttempts))
	}
	if c.AttemptTimeout <= 0 {
		errs = append(errs, errors.New("GENERATION_ATTEMPT_TIMEOUT: must be positive"))
	}
	if c.BackoffInitial < 0 {
		errs = append(errs, errors.New("GENERATION_BACKOFF_INITIAL: must not be negative"))
	}
	if c.BackoffMax < c.BackoffInitial {
		errs = append(errs, errors.New("GENERATION_BACKOFF_MAX: must not be below GENERATION_BACKOFF_INITIAL"))
	}
	if c.BackoffMultiplier < 1 {
		errs = append(errs, errors.New("GENERATION_BACKOFF_MULTIPLIER: must be at least 1"))
	}
	if c.BackoffJitter < 0 || c.BackoffJitter > 1 {
		errs = append(errs, errors.New("GENERATION_BACKOFF_JITTER: must be between 0 and 1"))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, errors.New("GENERATION_TEMPERATURE: must be between 0 and 2"))
	}
	if c.RateLimitPerMinute < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE: must be positive"))
	}
	if c.CircuitFailureThreshold < 1 {
		errs = append(errs, errors.New("CIRCUIT_FAILURE_THRESHOLD: must be positive"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether GO_ENV is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// InvokerConfig returns the retry policy for the model invoker
func (c *Config) InvokerConfig() generation.InvokerConfig {
	return generation.InvokerConfig{
		MaxAttempts:    c.MaxAttempts,
		AttemptTimeout: c.AttemptTimeout,
		Backoff: generation.BackoffConfig{
			Initial:             c.BackoffInitial,
			Max:                 c.BackoffMax,
			Multiplier:          c.BackoffMultiplier,
			RandomizationFactor: c.BackoffJitter,
		},
	}
}

// BackendPrimary describes the primary generation backend
func (c *Config) BackendPrimary() llm.Config {
	return c.backend(c.PrimaryProvider, c.OpenRouterModelPrimary, c.GeminiModelPrimary)
}

// BackendFallback describes the fallback generation backend
func (c *Config) BackendFallback() llm.Config {
	return c.backend(c.FallbackProvider, c.OpenRouterModelFallback, c.GeminiModelFallback)
}

func (c *Config) backend(provider, openRouterModel, geminiModel string) llm.Config {
	if provider == llm.ProviderGemini {
		return llm.Config{
			Provider:    llm.ProviderGemini,
			Model:       geminiModel,
			APIKey:      c.GeminiAPIKey,
			Temperature: c.Temperature,
		}
	}
	return llm.Config{
		Provider:    llm.ProviderOpenRouter,
		Model:       openRouterModel,
		APIKey:      c.OpenRouterAPIKey,
		BaseURL:     c.OpenRouterBaseURL,
		SiteURL:     c.OpenRouterSiteURL,
		AppName:     c.OpenRouterAppName,
		Temperature: c.Temperature,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64, errs *[]error) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
