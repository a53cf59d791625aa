package excel

import "excelinsights/adapters/coercer"

// ReaderConfig holds configuration for reading uploads
type ReaderConfig struct {
	CoercionConfig coercer.CoercionConfig `json:"coercion_config"`
	// MaxRows caps the number of data rows read; 0 means unlimited.
	MaxRows int `json:"max_rows"`
}

// DefaultReaderConfig returns sensible defaults for spreadsheet processing
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		CoercionConfig: coercer.DefaultCoercionConfig(),
	}
}
