package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiClient creates embeddings with the Gemini embedding models.
type GeminiClient struct {
	client *genai.Client
	model  string
	dims   int
}

func NewGeminiClient(ctx context.Context, apiKey, model string, dims int) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing gemini API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{client: client, model: model, dims: dims}, nil
}

// CreateEmbedding implements embeddings.EmbedderClient.
func (g *GeminiClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	config := &genai.EmbedContentConfig{}
	if g.dims > 0 {
		dims := int32(g.dims)
		config.OutputDimensionality = &dims
	}

	result, err := g.client.Models.EmbedContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", embeddingCount(result), len(texts))
	}

	out := make([][]float32, len(result.Embeddings))
	for i, e := range result.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", i)
		}
		out[i] = e.Values
	}
	return out, nil
}

func embeddingCount(r *genai.EmbedContentResponse) int {
	if r == nil {
		return 0
	}
	return len(r.Embeddings)
}
