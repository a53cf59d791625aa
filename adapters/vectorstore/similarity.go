// Package vectorstore implements ports.VectorStore in memory and on SQLite.
package vectorstore

import (
	"sort"

	"excelinsights/domain/insight"

	"gonum.org/v1/gonum/floats"
)

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when either is a zero vector or their lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	x := toFloat64(a)
	y := toFloat64(b)
	na, nb := floats.Norm(x, 2), floats.Norm(y, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(x, y) / (na * nb)
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

// rank scores candidates against query and keeps the k best. Ties keep
// chunk order.
func rank(candidates []insight.Chunk, query []float32, k int) []insight.Chunk {
	scored := make([]insight.Chunk, len(candidates))
	for i, c := range candidates {
		c.Score = CosineSimilarity(query, c.Embedding)
		c.Embedding = nil
		scored[i] = c
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Index < scored[j].Index
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
