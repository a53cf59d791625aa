package core

import (
	"errors"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}
	if ID("not-empty").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

// TestParseSessionID tests session ID parsing
func TestParseSessionID(t *testing.T) {
	valid := NewSessionID().String()
	tests := []struct {
		input    string
		hasError bool
	}{
		{valid, false},
		{"", true},
		{"   ", true},
		{"not-a-uuid", true},
	}

	for _, test := range tests {
		result, err := ParseSessionID(test.input)
		if test.hasError {
			if err == nil {
				t.Errorf("Expected error for input '%s', got none", test.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result.String() != test.input {
			t.Errorf("Expected %s, got %s", test.input, result)
		}
	}
}

func TestParseDatasetID(t *testing.T) {
	id, err := ParseDatasetID("d-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if id != DatasetID("d-1") {
		t.Errorf("Expected d-1, got %s", id)
	}
	if _, err := ParseDatasetID("  "); err == nil {
		t.Error("Expected error for blank dataset ID")
	}
}

func TestHashShort(t *testing.T) {
	h := NewHash([]byte("sales.xlsx"))
	if len(h) != 64 {
		t.Fatalf("Expected 64 hex characters, got %d", len(h))
	}
	if len(h.Short()) != 12 {
		t.Errorf("Expected 12 character prefix, got %q", h.Short())
	}
	if HashStrings("a", "b") == HashStrings("ab") {
		t.Error("Expected separator to distinguish joined parts")
	}
}

func TestColumnNotFoundError(t *testing.T) {
	err := NewColumnNotFoundError("price")
	if !errors.Is(err, ErrColumnNotFound) || !IsNotFoundError(err) {
		t.Errorf("Expected column not found error to match sentinels, got %v", err)
	}
	if IsInputError(err) {
		t.Error("Expected not-found error to not be an input error")
	}
}
