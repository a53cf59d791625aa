package app

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"excelinsights/adapters/coercer"
	"excelinsights/adapters/excel"
	"excelinsights/domain/chart"
	"excelinsights/domain/core"
	"excelinsights/domain/dataset"
	"excelinsights/domain/insight"
	"excelinsights/internal/errors"
	"excelinsights/internal/export"
	"excelinsights/internal/metrics"
	"excelinsights/internal/preprocess"
	"excelinsights/internal/rag"
	"excelinsights/internal/session"
	"excelinsights/internal/visualization"
	"excelinsights/ports"

	"go.uber.org/zap"
)

const indexUnavailable = "text index unavailable: answers use the table only"

// InsightService is the application facade used by the HTTP API and the CLI.
type InsightService struct {
	sessions  *session.Manager
	engine    *rag.Engine
	repo      ports.DatasetRepository
	reader    excel.ReaderConfig
	maxUpload int64
	logger    *zap.Logger
}

// ServiceConfig bounds uploads.
type ServiceConfig struct {
	Reader         excel.ReaderConfig
	MaxUploadBytes int64
}

// NewInsightService wires the service. repo may be nil, in which case upload
// history is not kept.
func NewInsightService(sessions *session.Manager, engine *rag.Engine, repo ports.DatasetRepository, config ServiceConfig, logger *zap.Logger) *InsightService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Reader.CoercionConfig == (coercer.CoercionConfig{}) {
		config.Reader = excel.DefaultReaderConfig()
	}
	return &InsightService{
		sessions:  sessions,
		engine:    engine,
		repo:      repo,
		reader:    config.Reader,
		maxUpload: config.MaxUploadBytes,
		logger:    logger,
	}
}

// UploadResult is returned for a successful upload.
type UploadResult struct {
	SessionID core.SessionID        `json:"session_id"`
	DatasetID core.DatasetID        `json:"dataset_id"`
	Filename  string                `json:"filename"`
	Columns   []dataset.FieldInfo   `json:"columns"`
	Basic     preprocess.BasicStats `json:"basic_stats"`
	Chunks    int                   `json:"indexed_chunks"`
	Warnings  []string              `json:"warnings,omitempty"`
}

// Upload reads the file, opens a session for it, indexes its text and
// records the upload in the history.
func (s *InsightService) Upload(ctx context.Context, filename string, content []byte) (*UploadResult, error) {
	log := s.logger.With(zap.String("file", filename), zap.Int("bytes", len(content)))

	fileType := excel.FileType(filename)
	if fileType == "" {
		metrics.UploadsTotal.WithLabelValues("unknown", "rejected").Inc()
		return nil, errors.WithCode(errors.CodeUnsupported, fmt.Errorf("%w: %s (expected .xlsx, .xlsm or .csv)", core.ErrUnsupportedFormat, filename))
	}
	if len(content) == 0 {
		metrics.UploadsTotal.WithLabelValues(fileType, "rejected").Inc()
		return nil, errors.InvalidInput("uploaded file is empty")
	}
	if s.maxUpload > 0 && int64(len(content)) > s.maxUpload {
		metrics.UploadsTotal.WithLabelValues(fileType, "rejected").Inc()
		return nil, errors.TooLarge(int(s.maxUpload >> 20))
	}

	rec := dataset.NewRecord("", filename, int64(len(content)))
	s.persist(ctx, "create", func() error { return s.repo.Create(ctx, rec) })

	ds, err := excel.NewDataReader(filename, content, s.reader, s.logger).Load()
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(fileType, "failed").Inc()
		s.persist(ctx, "mark failed", func() error {
			return s.repo.UpdateStatus(ctx, rec.ID, dataset.StatusFailed, err.Error())
		})
		log.Warn("upload rejected", zap.Error(err))
		return nil, errors.Wrapf(err, "failed to read %s", filename)
	}
	ds.ID = rec.ID

	sess := s.sessions.Create(ds, filename, rec.ID)
	result := &UploadResult{SessionID: sess.ID, DatasetID: rec.ID, Filename: filename}

	err = sess.Read(func(ds *dataset.Dataset) error {
		result.Basic = preprocess.GetBasicStats(ds)
		rec.SessionID = sess.ID
		rec.Describe(ds)
		result.Columns = rec.Fields

		n, err := s.engine.Index(ctx, rag.Target{Collection: sess.Collection(), Dataset: ds})
		if err != nil {
			return err
		}
		result.Chunks = n
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			_ = s.sessions.Delete(context.Background(), sess.ID)
			return nil, ctx.Err()
		}
		// questions still work from the table without retrieved context
		log.Warn("indexing failed", zap.Error(err))
		result.Warnings = append(result.Warnings, indexUnavailable)
	}

	rec.Status = dataset.StatusReady
	rec.UpdatedAt = time.Now().UTC()
	s.persist(ctx, "update", func() error { return s.repo.Update(ctx, rec) })

	metrics.UploadsTotal.WithLabelValues(fileType, "success").Inc()
	log.Info("upload processed",
		zap.String("session_id", sess.ID.String()),
		zap.Int("rows", rec.RowCount),
		zap.Int("columns", rec.ColumnCount),
		zap.Int("chunks", result.Chunks))
	return result, nil
}

// persist runs a history write. History is best effort: failures are logged.
func (s *InsightService) persist(ctx context.Context, op string, fn func() error) {
	if s.repo == nil {
		return
	}
	if err := fn(); err != nil {
		s.logger.Warn("upload history write failed", zap.String("op", op), zap.Error(err))
	}
}

// Overview is the basic profile of a session's dataset.
type Overview struct {
	SessionID core.SessionID             `json:"session_id"`
	Filename  string                     `json:"filename"`
	Basic     preprocess.BasicStats      `json:"basic_stats"`
	Quality   []preprocess.ColumnQuality `json:"quality"`
	Warnings  []string                   `json:"warnings,omitempty"`
	CreatedAt time.Time                  `json:"created_at"`
}

func (s *InsightService) Overview(ctx context.Context, id core.SessionID) (*Overview, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	out := &Overview{SessionID: sess.ID, Filename: sess.Filename, CreatedAt: sess.CreatedAt}
	err = sess.Read(func(ds *dataset.Dataset) error {
		profile, err := preprocess.BuildProfile(ctx, ds)
		if err != nil {
			return err
		}
		out.Basic, out.Quality, out.Warnings = profile.Basic, profile.Quality, profile.Warnings
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DetailedAnalysis returns describe() statistics of every numeric column.
func (s *InsightService) DetailedAnalysis(ctx context.Context, id core.SessionID) ([]preprocess.NumericSummary, error) {
	var out []preprocess.NumericSummary
	err := s.read(id, func(_ *session.Session, ds *dataset.Dataset) error {
		var err error
		out, err = preprocess.GetDetailedStats(ds)
		return err
	})
	return out, err
}

// CorrelationResult is the correlation matrix with its strong pairs.
type CorrelationResult struct {
	*preprocess.CorrelationMatrix
	Strong []preprocess.CorrelationPair `json:"strong_correlations"`
}

// StrongCorrelation is the absolute coefficient above which a pair is
// reported as strong.
const StrongCorrelation = 0.5

func (s *InsightService) Correlations(ctx context.Context, id core.SessionID) (*CorrelationResult, error) {
	var out *CorrelationResult
	err := s.read(id, func(_ *session.Session, ds *dataset.Dataset) error {
		m, err := preprocess.GetCorrelations(ds)
		if err != nil {
			return err
		}
		out = &CorrelationResult{CorrelationMatrix: m, Strong: m.StrongestPairs(StrongCorrelation)}
		return nil
	})
	return out, err
}

// Chart builds a custom chart.
func (s *InsightService) Chart(ctx context.Context, id core.SessionID, req visualization.ChartRequest) (*chart.Spec, error) {
	var out *chart.Spec
	err := s.read(id, func(_ *session.Session, ds *dataset.Dataset) error {
		var err error
		out, err = visualization.NewBuilder(ds).Build(req)
		return err
	})
	return out, err
}

// AnalysisParams carries the optional columns of a named analysis.
type AnalysisParams struct {
	Column string
	Date   string
	Value  string
}

// Analysis builds a named single-chart analysis. "trend" defaults to the
// first date-like column against the detected sales column.
func (s *InsightService) Analysis(ctx context.Context, id core.SessionID, name string, p AnalysisParams) (*chart.Spec, error) {
	var out *chart.Spec
	err := s.read(id, func(_ *session.Session, ds *dataset.Dataset) error {
		b := visualization.NewBuilder(ds)
		if name != "trend" {
			var err error
			out, err = b.Analysis(name, p.Column)
			return err
		}

		date, value := p.Date, p.Value
		if date == "" {
			dates := b.DateColumns()
			if len(dates) == 0 {
				return core.ErrNoDateColumn
			}
			date = dates[0]
		}
		if value == "" {
			sales, ok := b.SalesColumn()
			if !ok {
				return core.ErrNoSalesColumn
			}
			value = sales
		}
		var err error
		out, err = b.Trend(date, value)
		return err
	})
	return out, err
}

// Dashboard builds a named dashboard: overview, sales or recommended.
func (s *InsightService) Dashboard(ctx context.Context, id core.SessionID, name string) (*chart.Dashboard, error) {
	var out *chart.Dashboard
	err := s.read(id, func(_ *session.Session, ds *dataset.Dataset) error {
		var err error
		out, err = visualization.NewBuilder(ds).Dashboard(name)
		return err
	})
	return out, err
}

// Ask answers a natural-language question about the session's dataset.
func (s *InsightService) Ask(ctx context.Context, id core.SessionID, question string) (*insight.Answer, error) {
	var out *insight.Answer
	err := s.read(id, func(sess *session.Session, ds *dataset.Dataset) error {
		var err error
		out, err = s.engine.Answer(ctx, rag.Target{Collection: sess.Collection(), Dataset: ds}, question)
		return err
	})
	return out, err
}

func (s *InsightService) Insights(ctx context.Context, id core.SessionID) (*insight.Report, error) {
	var out *insight.Report
	err := s.read(id, func(sess *session.Session, ds *dataset.Dataset) error {
		var err error
		out, err = s.engine.GenerateInsights(ctx, rag.Target{Collection: sess.Collection(), Dataset: ds})
		return err
	})
	return out, err
}

func (s *InsightService) ColumnAnalysis(ctx context.Context, id core.SessionID, column string) (*insight.ColumnAnalysis, error) {
	var out *insight.ColumnAnalysis
	err := s.read(id, func(sess *session.Session, ds *dataset.Dataset) error {
		var err error
		out, err = s.engine.ColumnAnalysis(ctx, rag.Target{Collection: sess.Collection(), Dataset: ds}, column)
		return err
	})
	return out, err
}

// CleanResult lists the renamed columns.
type CleanResult struct {
	Renamed  map[string]string `json:"renamed"`
	Columns  []string          `json:"columns"`
	Warnings []string          `json:"warnings,omitempty"`
}

// Clean normalizes the column names and re-indexes the dataset.
func (s *InsightService) Clean(ctx context.Context, id core.SessionID) (*CleanResult, error) {
	out := &CleanResult{}
	warnings, err := s.mutate(ctx, id, func(ds *dataset.Dataset) error {
		out.Renamed = preprocess.CleanColumnNames(ds)
		out.Columns = ds.ColumnNames()
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Warnings = warnings
	return out, nil
}

// MissingResult is the missing-value report plus index warnings.
type MissingResult struct {
	*preprocess.MissingReport
	Warnings []string `json:"warnings,omitempty"`
}

// HandleMissing applies a missing-value strategy and re-indexes the dataset.
func (s *InsightService) HandleMissing(ctx context.Context, id core.SessionID, strategy string) (*MissingResult, error) {
	st, err := preprocess.ParseStrategy(strategy)
	if err != nil {
		return nil, err
	}
	out := &MissingResult{}
	out.Warnings, err = s.mutate(ctx, id, func(ds *dataset.Dataset) error {
		var err error
		out.MissingReport, err = preprocess.HandleMissing(ds, st)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExportResult is a rendered report ready for download.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Export renders the session's analysis report.
func (s *InsightService) Export(ctx context.Context, id core.SessionID, format string) (*ExportResult, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	var filename string
	err = s.read(id, func(sess *session.Session, ds *dataset.Dataset) error {
		profile, err := preprocess.BuildProfile(ctx, ds)
		if err != nil {
			return err
		}
		report := &export.Report{Filename: sess.Filename, Dataset: ds, Profile: profile}
		if m, err := preprocess.GetCorrelations(ds); err == nil {
			report.Correlations = m
		}
		if in, err := s.engine.GenerateInsights(ctx, rag.Target{Collection: sess.Collection(), Dataset: ds}); err == nil {
			report.Insights = in
		} else {
			s.logger.Warn("export without insights", zap.Error(err))
		}
		filename = f.Filename(sess.Filename)
		return export.Write(&buf, f, report)
	})
	if err != nil {
		return nil, err
	}
	return &ExportResult{Filename: filename, ContentType: f.ContentType(), Data: buf.Bytes()}, nil
}

// Close ends a session and drops its index.
func (s *InsightService) Close(ctx context.Context, id core.SessionID) error {
	return s.sessions.Delete(ctx, id)
}

// History lists past uploads, newest first.
func (s *InsightService) History(ctx context.Context, limit, offset int) ([]*dataset.Record, error) {
	if s.repo == nil {
		return []*dataset.Record{}, nil
	}
	records, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, errors.DatabaseError("failed to list uploads", err)
	}
	return records, nil
}

// Record returns one past upload.
func (s *InsightService) Record(ctx context.Context, id core.DatasetID) (*dataset.Record, error) {
	if s.repo == nil {
		return nil, errors.NotFound("upload history")
	}
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load upload %s", id)
	}
	return rec, nil
}

// HasModel reports whether answers can come from a language model.
func (s *InsightService) HasModel() bool {
	return s.engine.HasModel()
}

func (s *InsightService) read(id core.SessionID, fn func(*session.Session, *dataset.Dataset) error) error {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return err
	}
	return sess.Read(func(ds *dataset.Dataset) error { return fn(sess, ds) })
}

// mutate changes the dataset under the session's write lock and rebuilds
// the index before releasing it. When the rebuild fails the old collection
// is dropped so retrieval never serves rows the dataset no longer has.
func (s *InsightService) mutate(ctx context.Context, id core.SessionID, fn func(*dataset.Dataset) error) ([]string, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	var warnings []string
	err = sess.Mutate(func(ds *dataset.Dataset) error {
		if err := fn(ds); err != nil {
			return err
		}
		if _, err := s.engine.Index(ctx, rag.Target{Collection: sess.Collection(), Dataset: ds}); err != nil {
			s.logger.Warn("re-indexing failed", zap.String("session_id", sess.ID.String()), zap.Error(err))
			if ferr := s.engine.Forget(context.WithoutCancel(ctx), sess.Collection()); ferr != nil {
				s.logger.Error("stale index not dropped", zap.String("session_id", sess.ID.String()), zap.Error(ferr))
			}
			warnings = append(warnings, indexUnavailable)
		}
		s.refreshRecord(ctx, sess.RecordID, ds)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return warnings, nil
}

func (s *InsightService) refreshRecord(ctx context.Context, id core.DatasetID, ds *dataset.Dataset) {
	if s.repo == nil || id == "" {
		return
	}
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Warn("upload record not refreshed", zap.String("dataset_id", id.String()), zap.Error(err))
		return
	}
	rec.Describe(ds)
	rec.UpdatedAt = time.Now().UTC()
	s.persist(ctx, "refresh", func() error { return s.repo.Update(ctx, rec) })
}
