package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func cosine(a, b []float32) float64 {
	x := make([]float64, len(a))
	y := make([]float64, len(b))
	for i := range a {
		x[i], y[i] = float64(a[i]), float64(b[i])
	}
	return floats.Dot(x, y) / (floats.Norm(x, 2) * floats.Norm(y, 2))
}

func TestHashClientIsNormalizedAndDeterministic(t *testing.T) {
	h := NewHashClient(64)
	vecs, err := h.CreateEmbedding(context.Background(), []string{"Region: West | Sale Amount: 120", "Region: West | Sale Amount: 120", ""})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Len(t, vecs[0], 64)
	assert.Equal(t, vecs[0], vecs[1])
	assert.InDelta(t, 1.0, cosine(vecs[0], vecs[1]), 1e-6)

	zero := true
	for _, v := range vecs[2] {
		if v != 0 {
			zero = false
		}
	}
	assert.True(t, zero, "empty text embeds to the zero vector")
}

func TestHashClientRanksSharedWordsHigher(t *testing.T) {
	h := NewHashClient(DefaultDimensions)
	vecs, err := h.CreateEmbedding(context.Background(), []string{
		"sales in the west region for desk",
		"Region: West | Item: Desk | Units: 5",
		"Manager: Bob | Item: Pen | Units: 40",
	})
	require.NoError(t, err)
	assert.Greater(t, cosine(vecs[0], vecs[1]), cosine(vecs[0], vecs[2]))
}

func TestHashClientHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashClient(8).CreateEmbedding(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewBuildsBatchedHashEmbedder(t *testing.T) {
	e, err := New(context.Background(), Config{Provider: "hash", Dimensions: 16, BatchSize: 2}, nil)
	require.NoError(t, err)

	docs, err := e.EmbedDocuments(context.Background(), []string{"a b", "c d", "e f", "g"})
	require.NoError(t, err)
	assert.Len(t, docs, 4)

	q, err := e.EmbedQuery(context.Background(), "a b")
	require.NoError(t, err)
	assert.Equal(t, docs[0], q)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "word2vec"}, nil)
	assert.ErrorContains(t, err, "unknown embedding provider")

	_, err = New(context.Background(), Config{Provider: "gemini", Model: "text-embedding-004"}, nil)
	assert.ErrorContains(t, err, "missing gemini API key")
}
