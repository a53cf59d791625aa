package rag

import (
	"context"
	"fmt"

	"excelinsights/domain/insight"
	"excelinsights/ports"
)

// Retriever finds the chunks most similar to a question.
type Retriever struct {
	embedder ports.Embedder
	store    ports.VectorStore
	topK     int
}

func NewRetriever(embedder ports.Embedder, store ports.VectorStore, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, store: store, topK: topK}
}

// Retrieve returns up to k chunks, best first. k <= 0 uses the configured
// default.
func (r *Retriever) Retrieve(ctx context.Context, collection, question string, k int) ([]insight.Chunk, error) {
	if k <= 0 {
		k = r.topK
	}
	vector, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	chunks, err := r.store.Search(ctx, collection, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}
	return chunks, nil
}
