package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/escalateai/api/internal/complaint"
	"google.golang.org/genai"
)

// GeminiConfig configures one Gemini model
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float64
}

// GeminiClient generates drafts through the Google GenAI SDK
type GeminiClient struct {
	cfg    GeminiConfig
	client *genai.Client
}

// NewGeminiClient creates a Gemini backend. A missing key is not an error
// here; Generate reports it so the invoker can move on to the next backend.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, httpClient *http.Client) (*GeminiClient, error) {
	g := &GeminiClient{cfg: cfg}
	if cfg.APIKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	g.client = client
	return g, nil
}

// Model returns the configured model identifier
func (g *GeminiClient) Model() string {
	return g.cfg.Model
}

// Generate asks Gemini for a JSON answer to prompt
func (g *GeminiClient) Generate(ctx context.Context, prompt complaint.Prompt) (string, error) {
	if g.client == nil {
		return "", Permanent(g.cfg.Model, 0, ErrNotConfigured)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model,
		genai.Text(prompt.User),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
			Temperature:       genai.Ptr(float32(g.cfg.Temperature)),
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		if apiErr, ok := asAPIError(err); ok {
			return "", &Error{
				Kind:       KindForStatus(apiErr.Code),
				Model:      g.cfg.Model,
				StatusCode: apiErr.Code,
				Err:        fmt.Errorf("gemini: %s", truncate(apiErr.Message, maxErrorBodyBytes)),
			}
		}
		return "", classifyTransport(g.cfg.Model, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", Transient(g.cfg.Model, 0, errors.New("empty completion"))
	}
	return text, nil
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}
