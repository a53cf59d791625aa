package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"excelinsights/ports"

	"go.uber.org/zap"
)

// Config selects and parameterizes a completion provider.
type Config struct {
	Provider          string        // none, openai, groq, anthropic or gemini
	Model             string        // e.g., "gpt-4o-mini"
	APIKey            string        // Provider API key
	BaseURL           string        // Optional endpoint override
	Temperature       float64       // 0.0-2.0, lower = more deterministic
	MaxTokens         int           // Default max tokens in response
	Timeout           time.Duration // Request timeout
	RequestsPerSecond float64       // Client side throttle, 0 = unlimited
}

// New creates the client for config.Provider. Provider "none" (or empty)
// returns a nil client: the application then answers from the table.
func New(ctx context.Context, config Config, logger *zap.Logger) (ports.LLMClient, error) {
	provider := strings.ToLower(strings.TrimSpace(config.Provider))
	if provider == "" || provider == "none" {
		return nil, nil
	}
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("missing %s API key", provider)
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		client ports.LLMClient
		err    error
	)
	switch provider {
	case "openai", "groq":
		client, err = NewOpenAIClient(config)
	case "anthropic":
		client, err = NewAnthropicClient(config)
	case "gemini":
		client, err = NewGeminiClient(ctx, config)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", provider, err)
	}
	logger.Info("language model configured",
		zap.String("provider", provider),
		zap.String("model", client.Model()),
		zap.Float64("requests_per_second", config.RequestsPerSecond))
	if config.RequestsPerSecond > 0 {
		return NewRateLimited(client, config.RequestsPerSecond), nil
	}
	return client, nil
}

// MockLLMClient is a mock LLM client for testing
type MockLLMClient struct {
	Response string // Set this for testing
	Error    error  // Set this to simulate errors
	ModelID  string

	Requests []ports.ChatRequest
}

func (m *MockLLMClient) ChatCompletion(ctx context.Context, req ports.ChatRequest) (*ports.LLMResponse, error) {
	m.Requests = append(m.Requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Error != nil {
		return nil, m.Error
	}
	content := m.Response
	if content == "" {
		// Default mock response
		content = `{"answer": "The data looks consistent.", "chart": null}`
	}
	return &ports.LLMResponse{
		Content: content,
		Usage: &ports.UsageData{
			PromptTokens:     len(strings.Fields(req.System + " " + req.Prompt)),
			CompletionTokens: len(strings.Fields(content)),
			Model:            m.Model(),
			Provider:         "mock",
		},
	}, nil
}

func (m *MockLLMClient) Model() string {
	if m.ModelID == "" {
		return "mock"
	}
	return m.ModelID
}

func maxTokens(req ports.ChatRequest, fallback int) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if fallback > 0 {
		return fallback
	}
	return 1024
}

func temperature(req ports.ChatRequest, fallback float64) float64 {
	if req.Temperature > 0 {
		return req.Temperature
	}
	return fallback
}
