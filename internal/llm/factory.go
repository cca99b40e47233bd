package llm

import (
	"context"
	"fmt"
	"net/http"
)

// Provider names accepted in configuration
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// Config selects one provider and model
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	SiteURL     string
	AppName     string
	Temperature float64
}

// Configured reports whether the backend has credentials
func (c Config) Configured() bool {
	return c.APIKey != ""
}

// New builds the Backend described by cfg
func New(ctx context.Context, cfg Config, httpClient *http.Client) (Backend, error) {
	switch cfg.Provider {
	case ProviderOpenRouter, "":
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			SiteURL:     cfg.SiteURL,
			AppName:     cfg.AppName,
			Temperature: cfg.Temperature,
		}, httpClient), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		}, httpClient)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
