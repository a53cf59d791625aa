package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"excelinsights/domain/core"
	"excelinsights/domain/dataset"
	"excelinsights/ports"

	"github.com/jmoiron/sqlx"
)

const recordColumns = `id, session_id, filename, file_size, COALESCE(fingerprint, '') AS fingerprint,
		COALESCE(row_count, 0) AS row_count, COALESCE(column_count, 0) AS column_count, COALESCE(missing_rate, 0.0) AS missing_rate,
		status, COALESCE(error_message, '') AS error_message, fields, created_at, updated_at`

// datasetRepository implements the DatasetRepository interface
type datasetRepository struct {
	db *sqlx.DB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *sqlx.DB) ports.DatasetRepository {
	return &datasetRepository{db: db}
}

// Create inserts a new upload record into the database
func (r *datasetRepository) Create(ctx context.Context, rec *dataset.Record) error {
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	query := `INSERT INTO dataset_uploads (
		id, session_id, filename, file_size, fingerprint, row_count, column_count,
		missing_rate, status, error_message, fields, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
	)`

	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.SessionID, rec.Filename, rec.FileSize, rec.Fingerprint, rec.RowCount, rec.ColumnCount,
		rec.MissingRate, rec.Status, rec.Error, fieldsJSON, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create dataset record: %w", err)
	}
	return nil
}

// GetByID retrieves an upload record by its ID
func (r *datasetRepository) GetByID(ctx context.Context, id core.DatasetID) (*dataset.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM dataset_uploads WHERE id = $1`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset record: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrDatasetNotFound, id)
	}
	return records[0], nil
}

// List returns upload records, newest first
func (r *datasetRepository) List(ctx context.Context, limit, offset int) ([]*dataset.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + recordColumns + `
	FROM dataset_uploads
	ORDER BY created_at DESC
	LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Update writes the shape and status of an existing record
func (r *datasetRepository) Update(ctx context.Context, rec *dataset.Record) error {
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	query := `UPDATE dataset_uploads SET
		fingerprint = $2, row_count = $3, column_count = $4, missing_rate = $5,
		status = $6, error_message = $7, fields = $8, updated_at = NOW()
	WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Fingerprint, rec.RowCount, rec.ColumnCount, rec.MissingRate,
		rec.Status, rec.Error, fieldsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to update dataset record: %w", err)
	}
	return expectOneRow(result, rec.ID)
}

// UpdateStatus updates only the status and error message of a record
func (r *datasetRepository) UpdateStatus(ctx context.Context, id core.DatasetID, status dataset.Status, errorMsg string) error {
	query := `UPDATE dataset_uploads SET status = $2, error_message = $3, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status, errorMsg)
	if err != nil {
		return fmt.Errorf("failed to update dataset status: %w", err)
	}
	return expectOneRow(result, id)
}

func expectOneRow(result sql.Result, id core.DatasetID) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", core.ErrDatasetNotFound, id)
	}
	return nil
}

// scanRecords is a helper function to scan multiple record rows
func scanRecords(rows *sql.Rows) ([]*dataset.Record, error) {
	var records []*dataset.Record
	for rows.Next() {
		var rec dataset.Record
		var fieldsJSON []byte

		err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.Filename, &rec.FileSize, &rec.Fingerprint,
			&rec.RowCount, &rec.ColumnCount, &rec.MissingRate,
			&rec.Status, &rec.Error, &fieldsJSON, &rec.CreatedAt, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset record: %w", err)
		}

		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &rec.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
			}
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}
