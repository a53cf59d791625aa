package vectorstore

import (
	"fmt"
	"strings"

	"excelinsights/ports"
)

// New returns the store named by kind: "memory" or "sqlite".
func New(kind, path string) (ports.VectorStore, error) {
	switch strings.ToLower(kind) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		if path == "" {
			return nil, fmt.Errorf("sqlite vector store requires a path")
		}
		return NewSQLiteStore(path)
	}
	return nil, fmt.Errorf("unknown vector store %q", kind)
}
