package rag

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultTopK         = 4
)

// Chunker splits dataset text on row boundaries into overlapping chunks.
// A single row longer than the chunk size becomes its own chunk.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

// NewChunker returns a chunker; non-positive values select the defaults.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 5
		}
	}
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithSeparators([]string{"\n"}),
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		),
	}
}

// Split returns the non-empty chunks of text in order.
func (c *Chunker) Split(text string) ([]string, error) {
	parts, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}
	chunks := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			chunks = append(chunks, p)
		}
	}
	return chunks, nil
}
