package llm

import (
	"context"
	"fmt"
	"strings"

	"excelinsights/ports"

	"google.golang.org/genai"
)

// GeminiClient implements ports.LLMClient on the Gemini API.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float64
	maxTokens   int
}

func NewGeminiClient(ctx context.Context, config Config) (*GeminiClient, error) {
	if strings.TrimSpace(config.Model) == "" {
		return nil, fmt.Errorf("missing model")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      config.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: strings.TrimSpace(config.BaseURL)},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{
		client:      client,
		model:       config.Model,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
	}, nil
}

func (c *GeminiClient) Model() string { return c.model }

func (c *GeminiClient) ChatCompletion(ctx context.Context, req ports.ChatRequest) (*ports.LLMResponse, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(temperature(req, c.temperature))),
		MaxOutputTokens: int32(maxTokens(req, c.maxTokens)),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}

	// first candidate with text wins
	var text strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part != nil && part.Text != "" {
					text.WriteString(part.Text)
				}
			}
			if text.Len() > 0 {
				break
			}
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no response generated from gemini model")
	}

	usage := &ports.UsageData{Model: c.model, Provider: "gemini"}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return &ports.LLMResponse{Content: text.String(), Usage: usage}, nil
}
