package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/floats"
)

// DefaultDimensions is the vector size of the hash embedder when none is set.
const DefaultDimensions = 384

// HashClient is an offline embedder. Every token and token bigram is hashed
// into a signed bucket and the vector is L2 normalized, so texts sharing
// words are close in cosine distance.
type HashClient struct {
	dims int
}

func NewHashClient(dims int) *HashClient {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashClient{dims: dims}
}

// Dimensions returns the vector size.
func (h *HashClient) Dimensions() int { return h.dims }

// CreateEmbedding implements embeddings.EmbedderClient.
func (h *HashClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(text)
	}
	return out, nil
}

func (h *HashClient) embed(text string) []float32 {
	acc := make([]float64, h.dims)
	tokens := tokenize(text)
	for i, tok := range tokens {
		h.add(acc, tok, 1)
		if i > 0 {
			h.add(acc, tokens[i-1]+" "+tok, 0.5)
		}
	}

	vec := make([]float32, h.dims)
	norm := floats.Norm(acc, 2)
	if norm == 0 {
		return vec
	}
	floats.Scale(1/norm, acc)
	for i, v := range acc {
		vec[i] = float32(v)
	}
	return vec
}

func (h *HashClient) add(acc []float64, token string, weight float64) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(token))
	sum := hasher.Sum64()
	bucket := int(sum % uint64(h.dims))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[bucket] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '-'
	})
}
