// Package memory holds in-process implementations of the repository ports,
// used when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"excelinsights/domain/core"
	"excelinsights/domain/dataset"
	"excelinsights/ports"
)

type datasetRepository struct {
	mu      sync.RWMutex
	records map[core.DatasetID]dataset.Record
}

// NewDatasetRepository creates an empty in-memory upload history.
func NewDatasetRepository() ports.DatasetRepository {
	return &datasetRepository{records: make(map[core.DatasetID]dataset.Record)}
}

func (r *datasetRepository) Create(_ context.Context, rec *dataset.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[rec.ID]; exists {
		return fmt.Errorf("dataset record %s already exists", rec.ID)
	}
	r.records[rec.ID] = copyRecord(rec)
	return nil
}

func (r *datasetRepository) GetByID(_ context.Context, id core.DatasetID) (*dataset.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrDatasetNotFound, id)
	}
	out := copyRecord(&rec)
	return &out, nil
}

func (r *datasetRepository) List(_ context.Context, limit, offset int) ([]*dataset.Record, error) {
	r.mu.RLock()
	all := make([]dataset.Record, 0, len(r.records))
	for _, rec := range r.records {
		all = append(all, rec)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	if limit <= 0 {
		limit = 50
	}
	if offset >= len(all) {
		return []*dataset.Record{}, nil
	}
	end := min(offset+limit, len(all))
	out := make([]*dataset.Record, 0, end-offset)
	for i := offset; i < end; i++ {
		rec := copyRecord(&all[i])
		out = append(out, &rec)
	}
	return out, nil
}

func (r *datasetRepository) Update(_ context.Context, rec *dataset.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.ID]; !ok {
		return fmt.Errorf("%w: %s", core.ErrDatasetNotFound, rec.ID)
	}
	stored := copyRecord(rec)
	stored.UpdatedAt = time.Now().UTC()
	r.records[rec.ID] = stored
	return nil
}

func (r *datasetRepository) UpdateStatus(_ context.Context, id core.DatasetID, status dataset.Status, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrDatasetNotFound, id)
	}
	rec.Status = status
	rec.Error = errorMsg
	rec.UpdatedAt = time.Now().UTC()
	r.records[id] = rec
	return nil
}

func copyRecord(rec *dataset.Record) dataset.Record {
	out := *rec
	out.Fields = append([]dataset.FieldInfo(nil), rec.Fields...)
	return out
}
