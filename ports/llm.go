package ports

import "context"

// UsageData represents raw usage data from LLM provider APIs
type UsageData struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Model            string `json:"model"`
	Provider         string `json:"provider"`
}

// LLMResponse represents an LLM response with usage data
type LLMResponse struct {
	Content string
	Usage   *UsageData
}

// ChatRequest is a single-turn completion request.
type ChatRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// LLMClient interface for LLM providers
type LLMClient interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*LLMResponse, error)
	// Model returns the model name used for completions.
	Model() string
}
