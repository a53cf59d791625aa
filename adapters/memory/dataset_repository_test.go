package memory

import (
	"context"
	"testing"
	"time"

	"excelinsights/domain/core"
	"excelinsights/domain/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetRepositoryLifecycle(t *testing.T) {
	repo := NewDatasetRepository()
	ctx := context.Background()

	rec := dataset.NewRecord(core.NewSessionID(), "sales.xlsx", 100)
	require.NoError(t, repo.Create(ctx, rec))
	assert.Error(t, repo.Create(ctx, rec))

	rec.Fields = append(rec.Fields, dataset.FieldInfo{Name: "mutated"})
	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Fields, "stored records are copies")
	assert.Equal(t, dataset.StatusProcessing, got.Status)

	require.NoError(t, repo.UpdateStatus(ctx, rec.ID, dataset.StatusFailed, "bad file"))
	got, err = repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "bad file", got.Error)

	got.Status = dataset.StatusReady
	got.RowCount = 10
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.IsReady())
	assert.Equal(t, 10, got.RowCount)

	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, core.ErrDatasetNotFound)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, "nope", dataset.StatusReady, ""), core.ErrDatasetNotFound)
}

func TestDatasetRepositoryListNewestFirst(t *testing.T) {
	repo := NewDatasetRepository()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"a.xlsx", "b.xlsx", "c.xlsx"} {
		rec := dataset.NewRecord(core.NewSessionID(), name, 1)
		rec.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.Create(ctx, rec))
	}

	all, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c.xlsx", all[0].Filename)
	assert.Equal(t, "a.xlsx", all[2].Filename)

	page, err := repo.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b.xlsx", page[0].Filename)

	empty, err := repo.List(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
