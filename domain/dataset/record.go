package dataset

import (
	"time"

	"excelinsights/domain/core"
)

// Status represents the processing state of an upload
type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// Record is the persisted metadata of one upload. Cell data is never stored.
type Record struct {
	ID          core.DatasetID `json:"id" db:"id"`
	SessionID   core.SessionID `json:"session_id" db:"session_id"`
	Filename    string         `json:"filename" db:"filename"`
	FileSize    int64          `json:"file_size" db:"file_size"`
	Fingerprint core.Hash      `json:"fingerprint" db:"fingerprint"`
	RowCount    int            `json:"row_count" db:"row_count"`
	ColumnCount int            `json:"column_count" db:"column_count"`
	MissingRate float64        `json:"missing_rate" db:"missing_rate"`
	Status      Status         `json:"status" db:"status"`
	Error       string         `json:"error,omitempty" db:"error_message"`
	Fields      []FieldInfo    `json:"fields"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// FieldInfo describes a single column of an upload
type FieldInfo struct {
	Name         string `json:"name"`
	DataType     string `json:"data_type"`
	UniqueCount  int    `json:"unique_count"`
	MissingCount int    `json:"missing_count"`
}

// NewRecord creates a record in the processing state.
func NewRecord(sessionID core.SessionID, filename string, size int64) *Record {
	now := time.Now().UTC()
	return &Record{
		ID:        core.NewDatasetID(),
		SessionID: sessionID,
		Filename:  filename,
		FileSize:  size,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Describe fills the record's shape fields from a loaded dataset.
func (r *Record) Describe(ds *Dataset) {
	r.RowCount = ds.RowCount()
	r.ColumnCount = ds.ColumnCount()
	r.Fingerprint = ds.Fingerprint()
	r.Fields = make([]FieldInfo, len(ds.Columns))
	missing := 0
	for i, c := range ds.Columns {
		m := c.MissingCount()
		missing += m
		r.Fields[i] = FieldInfo{Name: c.Name, DataType: string(c.Type), UniqueCount: c.UniqueCount(), MissingCount: m}
	}
	if cells := r.RowCount * r.ColumnCount; cells > 0 {
		r.MissingRate = float64(missing) / float64(cells)
	}
}

// IsReady returns true if the upload finished processing
func (r *Record) IsReady() bool {
	return r.Status == StatusReady
}
