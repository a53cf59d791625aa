package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Short returns the first 12 hex characters, used in collection names and cache keys.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// HashStrings hashes an ordered list of strings with a separator that cannot
// appear in spreadsheet cells.
func HashStrings(parts ...string) Hash {
	return NewHash([]byte(strings.Join(parts, "\x1f")))
}
