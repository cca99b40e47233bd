package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/escalateai/api/internal/complaint"
)

const (
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	maxResponseBytes         = 10 * 1024 * 1024
	maxErrorBodyBytes        = 800
)

// OpenRouterConfig configures one OpenRouter model
type OpenRouterConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	SiteURL     string
	AppName     string
	Temperature float64
}

// OpenRouterClient talks to the OpenAI-compatible chat completions API of
// OpenRouter
type OpenRouterClient struct {
	cfg        OpenRouterConfig
	httpClient *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// NewOpenRouterClient creates a client. httpClient may be nil; per-call
// deadlines come from the context.
func NewOpenRouterClient(cfg OpenRouterConfig, httpClient *http.Client) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenRouterBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenRouterClient{cfg: cfg, httpClient: httpClient}
}

// Model returns the configured model identifier
func (c *OpenRouterClient) Model() string {
	return c.cfg.Model
}

// Generate sends one chat completion request and returns the message text
func (c *OpenRouterClient) Generate(ctx context.Context, prompt complaint.Prompt) (string, error) {
	if c.cfg.APIKey == "" {
		return "", Permanent(c.cfg.Model, 0, ErrNotConfigured)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", Permanent(c.cfg.Model, 0, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", Permanent(c.cfg.Model, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.SiteURL != "" {
		req.Header.Set("HTTP-Referer", c.cfg.SiteURL)
	}
	if c.cfg.AppName != "" {
		req.Header.Set("X-Title", c.cfg.AppName)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransport(c.cfg.Model, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", classifyTransport(c.cfg.Model, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", &Error{
			Kind:       KindForStatus(resp.StatusCode),
			Model:      c.cfg.Model,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("openrouter: %s", truncate(string(data), maxErrorBodyBytes)),
		}
	}

	var out chatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", Transient(c.cfg.Model, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	if out.Error != nil {
		return "", Transient(c.cfg.Model, resp.StatusCode, fmt.Errorf("openrouter: %s", out.Error.Message))
	}
	if len(out.Choices) == 0 {
		return "", Transient(c.cfg.Model, resp.StatusCode, errors.New("no completion returned"))
	}

	return out.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
