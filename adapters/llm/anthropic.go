package llm

import (
	"context"
	"fmt"
	"strings"

	"excelinsights/ports"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient implements ports.LLMClient with the Messages API.
type AnthropicClient struct {
	client      anthropic.Client
	model       string
	temperature float64
	maxTokens   int
}

func NewAnthropicClient(config Config) (*AnthropicClient, error) {
	if strings.TrimSpace(config.Model) == "" {
		return nil, fmt.Errorf("missing model")
	}
	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	return &AnthropicClient{
		client:      anthropic.NewClient(opts...),
		model:       config.Model,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
	}, nil
}

func (c *AnthropicClient) Model() string { return c.model }

func (c *AnthropicClient) ChatCompletion(ctx context.Context, req ports.ChatRequest) (*ports.LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens(req, c.maxTokens)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(temperature(req, c.temperature)),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("anthropic response contained no text")
	}
	return &ports.LLMResponse{
		Content: text.String(),
		Usage: &ports.UsageData{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
			Model:            c.model,
			Provider:         "anthropic",
		},
	}, nil
}
