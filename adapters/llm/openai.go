package llm

import (
	"context"
	"fmt"
	"strings"

	"excelinsights/ports"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const defaultOpenAIURL = "https://api.openai.com/v1"

// OpenAIClient talks to OpenAI compatible chat completion endpoints (OpenAI
// itself, Groq) through langchaingo.
type OpenAIClient struct {
	llm         *openai.LLM
	model       string
	provider    string
	temperature float64
	maxTokens   int
}

func NewOpenAIClient(config Config) (*OpenAIClient, error) {
	if strings.TrimSpace(config.Model) == "" {
		return nil, fmt.Errorf("missing model")
	}
	baseURL := strings.TrimSpace(config.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	llm, err := openai.New(
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
		openai.WithBaseURL(strings.TrimRight(baseURL, "/")),
	)
	if err != nil {
		return nil, err
	}
	provider := config.Provider
	if provider == "" {
		provider = "openai"
	}
	return &OpenAIClient{
		llm:         llm,
		model:       config.Model,
		provider:    provider,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
	}, nil
}

func (c *OpenAIClient) Model() string { return c.model }

func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ports.ChatRequest) (*ports.LLMResponse, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	resp, err := c.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(temperature(req, c.temperature)),
		llms.WithMaxTokens(maxTokens(req, c.maxTokens)),
	)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.provider, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s response missing choices", c.provider)
	}
	choice := resp.Choices[0]
	return &ports.LLMResponse{
		Content: choice.Content,
		Usage: &ports.UsageData{
			PromptTokens:     intInfo(choice.GenerationInfo, "PromptTokens"),
			CompletionTokens: intInfo(choice.GenerationInfo, "CompletionTokens"),
			TotalTokens:      intInfo(choice.GenerationInfo, "TotalTokens"),
			Model:            c.model,
			Provider:         c.provider,
		},
	}, nil
}

func intInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
