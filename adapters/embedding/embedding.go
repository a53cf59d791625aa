// Package embedding builds the text embedders used for retrieval. Every
// backend is wrapped in a langchaingo embeddings.EmbedderImpl, which handles
// batching and newline stripping.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

const defaultBatchSize = 32

// Config selects the embedding backend.
type Config struct {
	Provider   string // hash, ollama, openai or gemini
	Model      string
	URL        string
	APIKey     string
	Dimensions int
	BatchSize  int
}

// New creates the embedder for config.Provider.
func New(ctx context.Context, config Config, logger *zap.Logger) (*embeddings.EmbedderImpl, error) {
	if config.BatchSize <= 0 {
		config.BatchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := newClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s embedder: %w", config.Provider, err)
	}
	logger.Info("embedder configured",
		zap.String("provider", config.Provider),
		zap.String("model", config.Model),
		zap.Int("batch_size", config.BatchSize))

	return embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(config.BatchSize),
		embeddings.WithStripNewLines(false),
	)
}

func newClient(ctx context.Context, config Config) (embeddings.EmbedderClient, error) {
	switch strings.ToLower(strings.TrimSpace(config.Provider)) {
	case "", "hash":
		return NewHashClient(config.Dimensions), nil
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(config.Model)}
		if config.URL != "" {
			opts = append(opts, ollama.WithServerURL(config.URL))
		}
		return ollama.New(opts...)
	case "openai":
		opts := []openai.Option{
			openai.WithToken(config.APIKey),
			openai.WithEmbeddingModel(config.Model),
		}
		if config.URL != "" {
			opts = append(opts, openai.WithBaseURL(config.URL))
		}
		return openai.New(opts...)
	case "gemini":
		return NewGeminiClient(ctx, config.APIKey, config.Model, config.Dimensions)
	}
	return nil, fmt.Errorf("unknown embedding provider %q", config.Provider)
}
