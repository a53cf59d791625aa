package ports

import (
	"context"
	"time"

	"excelinsights/domain/insight"
)

// Embedder turns text into vectors. The method set matches langchaingo's
// embeddings.Embedder so its implementations satisfy it directly.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore holds embedded chunks grouped in named collections.
type VectorStore interface {
	// Replace atomically swaps the contents of a collection.
	Replace(ctx context.Context, collection string, chunks []insight.Chunk) error
	// Search returns the k chunks most similar to query, best first.
	Search(ctx context.Context, collection string, query []float32, k int) ([]insight.Chunk, error)
	DeleteCollection(ctx context.Context, collection string) error
	Count(ctx context.Context, collection string) (int, error)
}

// AnswerCache stores answers keyed by dataset fingerprint and question.
type AnswerCache interface {
	Get(ctx context.Context, key string) (*insight.Answer, bool, error)
	Set(ctx context.Context, key string, answer *insight.Answer, ttl time.Duration) error
}
