package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)
	ErrDatasetNotFound = fmt.Errorf("%w: dataset", ErrNotFound)
	ErrColumnNotFound  = fmt.Errorf("%w: column", ErrNotFound)

	// Input errors
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyDataset      = errors.New("dataset has no data rows")
	ErrNoColumns         = errors.New("dataset has no columns")
	ErrEmptyQuestion     = errors.New("question cannot be empty")
	ErrInvalidStrategy   = errors.New("invalid missing value strategy")
	ErrInvalidRequest    = errors.New("invalid request")

	// Analysis errors
	ErrNoNumericColumns = errors.New("no numeric columns found in the dataset")
	ErrNotNumeric       = errors.New("column is not numeric")
	ErrNoSalesColumn    = errors.New("no sales column found in the dataset")
	ErrNoDateColumn     = errors.New("no date column found in the dataset")
	ErrUnsupportedChart = errors.New("unsupported chart type")
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// Model errors
	ErrModelUnavailable = errors.New("language model not configured")
	ErrEmptyCompletion  = errors.New("language model returned an empty response")
)

// NewNotFoundError builds a not-found error carrying the resource and its id.
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewColumnNotFoundError reports a column missing from the dataset.
func NewColumnNotFoundError(column string) error {
	return fmt.Errorf("%w: Column '%s' not found in the dataset.", ErrColumnNotFound, column)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: validation failed for %s: %s", ErrInvalidRequest, field, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInputError reports whether err was caused by the caller's request.
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyDataset) ||
		errors.Is(err, ErrNoColumns) ||
		errors.Is(err, ErrEmptyQuestion) ||
		errors.Is(err, ErrInvalidStrategy) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrNotNumeric) ||
		errors.Is(err, ErrNoNumericColumns) ||
		errors.Is(err, ErrNoSalesColumn) ||
		errors.Is(err, ErrNoDateColumn) ||
		errors.Is(err, ErrInsufficientData)
}

func IsUnsupportedError(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrUnsupportedChart)
}
