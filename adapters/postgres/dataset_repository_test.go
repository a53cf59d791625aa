package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"excelinsights/domain/core"
	"excelinsights/domain/dataset"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recordRowColumns = []string{
	"id", "session_id", "filename", "file_size", "fingerprint", "row_count", "column_count",
	"missing_rate", "status", "error_message", "fields", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*datasetRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &datasetRepository{db: sqlx.NewDb(db, "postgres")}, mock
}

func TestCreateRecord(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec := dataset.NewRecord(core.NewSessionID(), "sales.xlsx", 2048)
	rec.Fields = []dataset.FieldInfo{{Name: "Region", DataType: "categorical", UniqueCount: 3}}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dataset_uploads")).
		WithArgs(rec.ID, rec.SessionID, "sales.xlsx", int64(2048), rec.Fingerprint, 0, 0,
			0.0, rec.Status, "", sqlmock.AnyArg(), rec.CreatedAt, rec.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecordByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(recordRowColumns).AddRow(
		"d1", "s1", "sales.xlsx", int64(10), "abc", 5, 2, 0.1, "ready", "",
		[]byte(`[{"name":"Region","data_type":"categorical","unique_count":3,"missing_count":0}]`), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM dataset_uploads WHERE id = $1")).WithArgs(core.DatasetID("d1")).WillReturnRows(rows)

	rec, err := repo.GetByID(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, dataset.StatusReady, rec.Status)
	assert.Equal(t, 5, rec.RowCount)
	require.Len(t, rec.Fields, 1)
	assert.Equal(t, "Region", rec.Fields[0].Name)
	assert.True(t, rec.IsReady())
}

func TestGetRecordByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM dataset_uploads").WillReturnRows(sqlmock.NewRows(recordRowColumns))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrDatasetNotFound)
}

func TestListRecordsDefaultsLimit(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	rows := sqlmock.NewRows(recordRowColumns).
		AddRow("d2", "s1", "b.csv", int64(1), "", 0, 0, 0.0, "failed", "bad header", nil, now, now).
		AddRow("d1", "s1", "a.xlsx", int64(1), "", 3, 1, 0.0, "ready", "", []byte(`[]`), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).WithArgs(50, 0).WillReturnRows(rows)

	records, err := repo.List(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "bad header", records[0].Error)
	assert.Empty(t, records[0].Fields)
}

func TestUpdateStatusMissingRecord(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE dataset_uploads SET status")).
		WithArgs(core.DatasetID("d9"), dataset.StatusFailed, "boom").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "d9", dataset.StatusFailed, "boom")
	assert.ErrorIs(t, err, core.ErrDatasetNotFound)
}

func TestUpdateRecord(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec := dataset.NewRecord(core.NewSessionID(), "a.xlsx", 1)
	rec.Status = dataset.StatusReady
	rec.RowCount = 3

	mock.ExpectExec(regexp.QuoteMeta("UPDATE dataset_uploads SET")).
		WithArgs(rec.ID, rec.Fingerprint, 3, 0, 0.0, dataset.StatusReady, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}
