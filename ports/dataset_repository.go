package ports

import (
	"context"

	"excelinsights/domain/core"
	"excelinsights/domain/dataset"
)

// DatasetRepository defines the interface for upload history storage
type DatasetRepository interface {
	Create(ctx context.Context, rec *dataset.Record) error
	GetByID(ctx context.Context, id core.DatasetID) (*dataset.Record, error)
	List(ctx context.Context, limit, offset int) ([]*dataset.Record, error)
	Update(ctx context.Context, rec *dataset.Record) error
	UpdateStatus(ctx context.Context, id core.DatasetID, status dataset.Status, errorMsg string) error
}
