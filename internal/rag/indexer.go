package rag

import (
	"context"
	"fmt"
	"time"

	"excelinsights/domain/dataset"
	"excelinsights/domain/insight"
	"excelinsights/internal/metrics"
	"excelinsights/internal/preprocess"
	"excelinsights/ports"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const embedBatchSize = 16

// Indexer chunks a dataset, embeds the chunks and stores them as one
// collection.
type Indexer struct {
	chunker  *Chunker
	embedder ports.Embedder
	store    ports.VectorStore
	workers  int
	logger   *zap.Logger
}

// NewIndexer creates an indexer embedding with at most workers concurrent
// batches.
func NewIndexer(chunker *Chunker, embedder ports.Embedder, store ports.VectorStore, workers int, logger *zap.Logger) *Indexer {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{chunker: chunker, embedder: embedder, store: store, workers: workers, logger: logger}
}

// Build replaces the collection with the embedded chunks of ds and returns
// the number of chunks stored.
func (ix *Indexer) Build(ctx context.Context, collection string, ds *dataset.Dataset) (int, error) {
	start := time.Now()
	texts, err := ix.chunker.Split(preprocess.DatasetText(ds))
	if err != nil {
		return 0, err
	}

	chunks := make([]insight.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = insight.Chunk{
			ID:         fmt.Sprintf("%s-%05d", collection, i),
			Collection: collection,
			Index:      i,
			Text:       t,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for lo := 0; lo < len(chunks); lo += embedBatchSize {
		hi := min(lo+embedBatchSize, len(chunks))
		g.Go(func() error {
			batch := make([]string, hi-lo)
			copy(batch, texts[lo:hi])
			vectors, err := ix.embedder.EmbedDocuments(gctx, batch)
			if err != nil {
				return fmt.Errorf("embed chunks %d-%d: %w", lo, hi-1, err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embed chunks %d-%d: got %d vectors for %d texts", lo, hi-1, len(vectors), len(batch))
			}
			for i, v := range vectors {
				chunks[lo+i].Embedding = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := ix.store.Replace(ctx, collection, chunks); err != nil {
		return 0, fmt.Errorf("store collection %s: %w", collection, err)
	}

	metrics.IndexedChunks.Observe(float64(len(chunks)))
	ix.logger.Info("dataset indexed",
		zap.String("collection", collection),
		zap.Int("chunks", len(chunks)),
		zap.Duration("duration", time.Since(start)))
	return len(chunks), nil
}

// Drop removes the collection.
func (ix *Indexer) Drop(ctx context.Context, collection string) error {
	return ix.store.DeleteCollection(ctx, collection)
}
