package drafting

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	DefaultBaseURL           = "https://generativelanguage.googleapis.com"
	DefaultModel             = "gemini-2.5-flash"
	DefaultTimeout           = 30 * time.Second
	DefaultRequestsPerMinute = 30
)

var errEmptyResponse = errors.New("empty response")

// GeminiConfig configures the Gemini adapter.
type GeminiConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
	HTTPClient        *http.Client
	Logger            *zap.Logger
}

// GeminiGenerator asks a Gemini model for text through the genai client.
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator constructs the adapter. An empty API key is accepted; every call then yields FallbackUnavailable.
func NewGeminiGenerator(cfg GeminiConfig) *GeminiGenerator {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = DefaultRequestsPerMinute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	generator := &GeminiGenerator{
		model:   model,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		logger:  logger,
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return generator
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		logger.Error("drafting client unavailable", zap.String("model", model), zap.Error(err))
		return generator
	}
	generator.client = client
	return generator
}

// Generate returns model text for the topic, or a fallback text when the call cannot be made or fails.
func (g *GeminiGenerator) Generate(ctx context.Context, topic string, kind Kind) string {
	if g.client == nil {
		g.logger.Warn("drafting api key missing")
		return FallbackUnavailable
	}
	if err := g.limiter.Wait(ctx); err != nil {
		g.logger.Warn("drafting rate limit wait aborted", zap.Error(err))
		return FallbackFailed
	}
	text, err := g.generate(ctx, Prompt(topic, kind))
	if err != nil {
		g.logger.Error("drafting generation failed", zap.String("model", g.model), zap.Error(err))
		return FallbackFailed
	}
	return text
}

func (g *GeminiGenerator) generate(ctx context.Context, prompt string) (string, error) {
	response, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := strings.TrimSpace(response.Text())
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}
