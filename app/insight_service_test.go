package app

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"excelinsights/adapters/embedding"
	"excelinsights/adapters/memory"
	"excelinsights/adapters/vectorstore"
	"excelinsights/domain/core"
	"excelinsights/domain/dataset"
	"excelinsights/domain/insight"
	"excelinsights/internal/errors"
	"excelinsights/internal/rag"
	"excelinsights/internal/session"
	"excelinsights/internal/visualization"
	"excelinsights/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"
	"go.uber.org/zap/zaptest"
)

const salesCSV = `Region,Manager,Units,Sale Amount,Order Date
East,Ann,10,100,2024-01-05
West,Bob,2,250,2024-01-09
East,Ann,5,50,2024-01-12
Central,Cid,4,120,2024-01-15
West,Bob,1,10,2024-01-18
West,Bob,,30,2024-01-20
`

type fixture struct {
	svc   *InsightService
	repo  ports.DatasetRepository
	store *vectorstore.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	embedder, err := embeddings.NewEmbedder(embedding.NewHashClient(128))
	require.NoError(t, err)
	return newFixtureWithEmbedder(t, embedder)
}

func newFixtureWithEmbedder(t *testing.T, embedder ports.Embedder) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	store := vectorstore.NewMemoryStore()
	indexer := rag.NewIndexer(rag.NewChunker(200, 20), embedder, store, 2, logger)
	engine := rag.NewEngine(nil, indexer, rag.NewRetriever(embedder, store, 3), nil, nil, rag.Options{}, logger)

	sessions := session.NewManager(time.Hour, func(ctx context.Context, s *session.Session) {
		_ = engine.Forget(ctx, s.Collection())
	}, logger)
	repo := memory.NewDatasetRepository()

	svc := NewInsightService(sessions, engine, repo, ServiceConfig{MaxUploadBytes: 1 << 20}, logger)
	return &fixture{svc: svc, repo: repo, store: store}
}

func (f *fixture) upload(t *testing.T) *UploadResult {
	t.Helper()
	res, err := f.svc.Upload(context.Background(), "sales.csv", []byte(salesCSV))
	require.NoError(t, err)
	return res
}

func TestUploadCreatesSessionAndHistory(t *testing.T) {
	f := newFixture(t)
	res := f.upload(t)

	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, 6, res.Basic.TotalRows)
	assert.Equal(t, 5, res.Basic.TotalColumns)
	assert.Equal(t, 1, res.Basic.MissingValues)
	assert.Positive(t, res.Chunks)
	assert.Len(t, res.Columns, 5)

	count, err := f.store.Count(context.Background(), "session-"+res.SessionID.String())
	require.NoError(t, err)
	assert.Equal(t, res.Chunks, count)

	history, err := f.svc.History(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, dataset.StatusReady, history[0].Status)
	assert.Equal(t, res.SessionID, history[0].SessionID)
	assert.Equal(t, 6, history[0].RowCount)
}

func TestRecordLookup(t *testing.T) {
	f := newFixture(t)
	res := f.upload(t)
	ctx := context.Background()

	rec, err := f.svc.Record(ctx, res.DatasetID)
	require.NoError(t, err)
	assert.Equal(t, "sales.csv", rec.Filename)
	assert.Equal(t, res.SessionID, rec.SessionID)

	_, err = f.svc.Record(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrDatasetNotFound)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))

	noHistory := NewInsightService(session.NewManager(time.Hour, nil, zaptest.NewLogger(t)), nil, nil, ServiceConfig{}, zaptest.NewLogger(t))
	_, err = noHistory.Record(ctx, res.DatasetID)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestUploadRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, "notes.txt", []byte("hello"))
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
	assert.Equal(t, errors.CodeUnsupported, errors.GetCode(err))

	_, err = f.svc.Upload(ctx, "empty.csv", nil)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	big := make([]byte, 2<<20)
	_, err = f.svc.Upload(ctx, "big.csv", big)
	assert.Equal(t, errors.CodeTooLarge, errors.GetCode(err))

	_, err = f.svc.Upload(ctx, "header.csv", []byte("Region,Units\n"))
	assert.ErrorIs(t, err, core.ErrEmptyDataset)

	history, err := f.svc.History(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, dataset.StatusFailed, history[0].Status)
	assert.NotEmpty(t, history[0].Error)
}

func TestReadOperations(t *testing.T) {
	f := newFixture(t)
	res := f.upload(t)
	ctx := context.Background()

	overview, err := f.svc.Overview(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "sales.csv", overview.Filename)
	assert.Len(t, overview.Quality, 5)

	detailed, err := f.svc.DetailedAnalysis(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Len(t, detailed, 2)

	corr, err := f.svc.Correlations(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Units", "Sale Amount"}, corr.Columns)

	spec, err := f.svc.Chart(ctx, res.SessionID, visualization.ChartRequest{Type: "bar", X: "Region", Y: "Sale Amount"})
	require.NoError(t, err)
	assert.NotEmpty(t, spec.Series)

	_, err = f.svc.Chart(ctx, res.SessionID, visualization.ChartRequest{Type: "radar", X: "Region"})
	assert.ErrorIs(t, err, core.ErrUnsupportedChart)

	trend, err := f.svc.Analysis(ctx, res.SessionID, "trend", AnalysisParams{})
	require.NoError(t, err)
	assert.NotNil(t, trend)

	_, err = f.svc.Analysis(ctx, res.SessionID, "histogram", AnalysisParams{Column: "Region"})
	assert.ErrorIs(t, err, core.ErrNotNumeric)

	dash, err := f.svc.Dashboard(ctx, res.SessionID, "overview")
	require.NoError(t, err)
	assert.NotEmpty(t, dash.Charts)

	_, err = f.svc.Dashboard(ctx, res.SessionID, "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAskWithoutModel(t *testing.T) {
	f := newFixture(t)
	res := f.upload(t)

	answer, err := f.svc.Ask(context.Background(), res.SessionID, "What is the total Sale Amount?")
	require.NoError(t, err)
	assert.Equal(t, insight.SourceHeuristic, answer.Source)
	assert.Contains(t, answer.Text, "560.00")
	assert.False(t, f.svc.HasModel())

	_, err = f.svc.Ask(context.Background(), res.SessionID, "  ")
	assert.ErrorIs(t, err, core.ErrEmptyQuestion)

	report, err := f.svc.Insights(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.NotEmpty(t, report.Text)

	_, err = f.svc.ColumnAnalysis(context.Background(), res.SessionID, "Missing")
	assert.ErrorIs(t, err, core.ErrColumnNotFound)
}

func TestMutationsReindex(t *testing.T) {
	f := newFixture(t)
	res := f.upload(t)
	ctx := context.Background()

	_, err := f.svc.HandleMissing(ctx, res.SessionID, "bogus")
	assert.ErrorIs(t, err, core.ErrInvalidStrategy)

	report, err := f.svc.HandleMissing(ctx, res.SessionID, "mean")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Units": 1}, report.Filled)
	assert.Zero(t, report.Remaining)

	cleaned, err := f.svc.Clean(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "sale_amount", cleaned.Renamed["Sale Amount"])
	assert.Equal(t, []string{"region", "manager", "units", "sale_amount", "order_date"}, cleaned.Columns)

	overview, err := f.svc.Overview(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Zero(t, overview.Basic.MissingValues)

	chunks, err := f.store.Search(ctx, "session-"+res.SessionID.String(), make([]float32, 128), 1)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Contains(t, chunks[0].Text, "sale_amount")

	rec, err := f.repo.GetByID(ctx, res.DatasetID)
	require.NoError(t, err)
	assert.Zero(t, rec.MissingRate)
}

// switchableEmbedder fails every call once broken is set.
type switchableEmbedder struct {
	ports.Embedder
	broken bool
}

func (e *switchableEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if e.broken {
		return nil, stderrors.New("embedding backend down")
	}
	return e.Embedder.EmbedDocuments(ctx, texts)
}

func TestFailedReindexDropsStaleChunks(t *testing.T) {
	base, err := embeddings.NewEmbedder(embedding.NewHashClient(128))
	require.NoError(t, err)
	embedder := &switchableEmbedder{Embedder: base}
	f := newFixtureWithEmbedder(t, embedder)
	res := f.upload(t)
	ctx := context.Background()
	collection := "session-" + res.SessionID.String()

	count, err := f.store.Count(ctx, collection)
	require.NoError(t, err)
	require.Positive(t, count)

	embedder.broken = true
	report, err := f.svc.HandleMissing(ctx, res.SessionID, "drop")
	require.NoError(t, err)
	assert.Equal(t, 5, report.RowsAfter)
	assert.Equal(t, []string{indexUnavailable}, report.Warnings)

	count, err = f.store.Count(ctx, collection)
	require.NoError(t, err)
	assert.Zero(t, count)

	cleaned, err := f.svc.Clean(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{indexUnavailable}, cleaned.Warnings)

	answer, err := f.svc.Ask(ctx, res.SessionID, "count")
	require.NoError(t, err)
	assert.Equal(t, insight.SourceHeuristic, answer.Source)
	assert.Contains(t, answer.Text, "5")

	embedder.broken = false
	cleaned, err = f.svc.Clean(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Empty(t, cleaned.Warnings)
	count, err = f.store.Count(ctx, collection)
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestMutationOnClosedSession(t *testing.T) {
	f := newFixture(t)
	res := f.upload(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Close(ctx, res.SessionID))
	_, err := f.svc.Clean(ctx, res.SessionID)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	count, err := f.store.Count(ctx, "session-"+res.SessionID.String())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestExportAndClose(t *testing.T) {
	f := newFixture(t)
	res := f.upload(t)
	ctx := context.Background()

	out, err := f.svc.Export(ctx, res.SessionID, "md")
	require.NoError(t, err)
	assert.Equal(t, "sales_analysis.md", out.Filename)
	assert.Contains(t, out.ContentType, "text/markdown")
	assert.Contains(t, string(out.Data), "# Analysis of sales.csv")

	_, err = f.svc.Export(ctx, res.SessionID, "docx")
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)

	require.NoError(t, f.svc.Close(ctx, res.SessionID))
	_, err = f.svc.Overview(ctx, res.SessionID)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	count, err := f.store.Count(ctx, "session-"+res.SessionID.String())
	require.NoError(t, err)
	assert.Zero(t, count)
}
