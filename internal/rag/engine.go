// Package rag answers questions about a dataset: it indexes the dataset text
// in a vector store, retrieves the rows relevant to a question and stuffs
// them into a single prompt. Without a language model, or when the model
// fails, answers come from the table itself.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"excelinsights/domain/core"
	"excelinsights/domain/dataset"
	"excelinsights/domain/insight"
	apperrors "excelinsights/internal/errors"
	"excelinsights/internal/metrics"
	"excelinsights/internal/preprocess"
	"excelinsights/internal/visualization"
	"excelinsights/ports"

	"go.uber.org/zap"
)

// Target is the dataset a request runs against and the vector collection
// holding its chunks.
type Target struct {
	Collection string
	Dataset    *dataset.Dataset
}

// Options tunes model calls and caching.
type Options struct {
	TopK        int
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	CacheTTL    time.Duration
}

// Engine coordinates indexing, retrieval, prompting and the fallbacks.
type Engine struct {
	llm       ports.LLMClient
	indexer   *Indexer
	retriever *Retriever
	cache     ports.AnswerCache
	prompts   *PromptManager
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
}

// NewEngine creates an engine. llm and cache may be nil.
func NewEngine(llm ports.LLMClient, indexer *Indexer, retriever *Retriever, cache ports.AnswerCache, prompts *PromptManager, opts Options, logger *zap.Logger) *Engine {
	if prompts == nil {
		prompts = NewPromptManager("")
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		llm:       llm,
		indexer:   indexer,
		retriever: retriever,
		cache:     cache,
		prompts:   prompts,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// HasModel reports whether a language model is configured.
func (e *Engine) HasModel() bool {
	return e.llm != nil
}

// Index (re)builds the collection for the target dataset.
func (e *Engine) Index(ctx context.Context, t Target) (int, error) {
	if e.indexer == nil {
		return 0, nil
	}
	return e.indexer.Build(ctx, t.Collection, t.Dataset)
}

// Forget drops the collection.
func (e *Engine) Forget(ctx context.Context, collection string) error {
	if e.indexer == nil {
		return nil
	}
	return e.indexer.Drop(ctx, collection)
}

// Answer answers a question about the target dataset.
func (e *Engine) Answer(ctx context.Context, t Target, question string) (*insight.Answer, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return nil, core.ErrEmptyQuestion
	}
	log := e.logger.With(zap.String("collection", t.Collection))

	key := cacheKey(t.Dataset, q)
	if e.cache != nil {
		cached, ok, err := e.cache.Get(ctx, key)
		if err != nil {
			log.Warn("answer cache lookup failed", zap.Error(err))
		} else if ok {
			hit := *cached
			hit.Source = insight.SourceCache
			metrics.QueriesTotal.WithLabelValues(string(insight.SourceCache)).Inc()
			return &hit, nil
		}
	}

	answer := &insight.Answer{Question: q, CreatedAt: e.now()}
	if e.llm != nil {
		if err := e.answerWithModel(ctx, t, q, answer); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("model answer failed, using table heuristics", zap.Error(err))
			*answer = insight.Answer{Question: q, CreatedAt: answer.CreatedAt, Warning: "The language model is unavailable; answered from the table."}
		}
	}
	if answer.Text == "" {
		answer.Text = HeuristicAnswer(t.Dataset, q)
		answer.Source = insight.SourceHeuristic
	}
	metrics.QueriesTotal.WithLabelValues(string(answer.Source)).Inc()

	if e.cache != nil && answer.Warning == "" {
		if err := e.cache.Set(ctx, key, answer, e.opts.CacheTTL); err != nil {
			log.Warn("answer cache store failed", zap.Error(err))
		}
	}
	return answer, nil
}

func (e *Engine) answerWithModel(ctx context.Context, t Target, q string, answer *insight.Answer) error {
	chunks := e.retrieve(ctx, t.Collection, q)
	prompt, err := e.prompts.RenderPrompt(PromptAnswer, map[string]string{
		"SCHEMA":      preprocess.SchemaSummary(t.Dataset),
		"CONTEXT":     joinChunks(chunks),
		"QUESTION":    q,
		"CHART_TYPES": strings.Join(suggestableCharts, ", "),
		"COLUMNS":     strings.Join(t.Dataset.ColumnNames(), ", "),
	})
	if err != nil {
		return err
	}
	content, err := e.complete(ctx, "answer", prompt)
	if err != nil {
		return err
	}

	reply := parseModelReply(content)
	answer.Text = reply.Answer
	answer.Source = insight.SourceLLM
	answer.Model = e.llm.Model()
	answer.Context = chunks
	if reply.ChartError != "" {
		e.logger.Debug("discarding chart suggestion", zap.String("reason", reply.ChartError))
	}
	if reply.Chart != nil {
		spec, err := visualization.NewBuilder(t.Dataset).Build(visualization.ChartRequest{
			Type:        reply.Chart.Type,
			X:           reply.Chart.X,
			Y:           reply.Chart.Y,
			Aggregation: reply.Chart.Aggregation,
			Title:       reply.Chart.Title,
		})
		if err != nil {
			answer.Warning = fmt.Sprintf("The suggested chart could not be built: %v", err)
		} else {
			answer.Chart = spec
		}
	}
	return nil
}

// GenerateInsights produces the dataset-wide insights report.
func (e *Engine) GenerateInsights(ctx context.Context, t Target) (*insight.Report, error) {
	if t.Dataset.ColumnCount() == 0 {
		return nil, core.ErrNoColumns
	}
	highlights := heuristicInsights(t.Dataset)
	report := &insight.Report{Highlights: highlights, CreatedAt: e.now()}
	if d, err := visualization.NewBuilder(t.Dataset).RecommendedCharts(); err == nil {
		report.Recommended = d.Charts
	}

	if e.llm != nil {
		text, err := e.insightsWithModel(ctx, t)
		if err == nil {
			report.Text = text
			report.Source = insight.SourceLLM
			return report, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warn("model insights failed, using table heuristics", zap.Error(err))
	}

	var b strings.Builder
	b.WriteString("Key insights:\n")
	for _, h := range highlights {
		b.WriteString("- ")
		b.WriteString(h)
		b.WriteByte('\n')
	}
	report.Text = strings.TrimRight(b.String(), "\n")
	report.Source = insight.SourceHeuristic
	return report, nil
}

func (e *Engine) insightsWithModel(ctx context.Context, t Target) (string, error) {
	chunks := e.retrieve(ctx, t.Collection, "main patterns, trends, correlations and outliers")
	prompt, err := e.prompts.RenderPrompt(PromptInsights, map[string]string{
		"SCHEMA":  preprocess.SchemaSummary(t.Dataset),
		"CONTEXT": joinChunks(chunks),
	})
	if err != nil {
		return "", err
	}
	return e.complete(ctx, "insights", prompt)
}

// ColumnAnalysis analyses one column.
func (e *Engine) ColumnAnalysis(ctx context.Context, t Target, column string) (*insight.ColumnAnalysis, error) {
	c, ok := t.Dataset.Column(column)
	if !ok {
		return nil, core.NewColumnNotFoundError(column)
	}
	summary, statsText := columnSummary(c, t.Dataset.RowCount())
	analysis := &insight.ColumnAnalysis{Column: c.Name, Type: string(c.Type), Summary: summary}

	if e.llm != nil {
		chunks := e.retrieve(ctx, t.Collection, c.Name)
		prompt, err := e.prompts.RenderPrompt(PromptColumnAnalysis, map[string]string{
			"CONTEXT":    joinChunks(chunks),
			"COLUMN":     c.Name,
			"STATISTICS": statsText,
		})
		if err == nil {
			var text string
			if text, err = e.complete(ctx, "column_analysis", prompt); err == nil {
				analysis.Text = text
				analysis.Source = insight.SourceLLM
				return analysis, nil
			}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warn("model column analysis failed, using table heuristics", zap.String("column", c.Name), zap.Error(err))
	}

	analysis.Text = heuristicColumnAnalysis(c, t.Dataset.RowCount())
	analysis.Source = insight.SourceHeuristic
	return analysis, nil
}

// retrieve returns the context chunks for a query. Retrieval problems leave
// the prompt without rows rather than failing the request.
func (e *Engine) retrieve(ctx context.Context, collection, query string) []insight.Chunk {
	if e.retriever == nil || collection == "" {
		return nil
	}
	chunks, err := e.retriever.Retrieve(ctx, collection, query, e.opts.TopK)
	if err != nil {
		e.logger.Warn("retrieval failed", zap.String("collection", collection), zap.Error(err))
		return nil
	}
	return chunks
}

func (e *Engine) complete(ctx context.Context, operation, prompt string) (string, error) {
	system, err := e.prompts.LoadPrompt(PromptSystem)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := e.llm.ChatCompletion(ctx, ports.ChatRequest{
		System:      system,
		Prompt:      prompt,
		MaxTokens:   e.opts.MaxTokens,
		Temperature: e.opts.Temperature,
	})
	status := "ok"
	if err == nil && (resp == nil || strings.TrimSpace(resp.Content) == "") {
		err = core.ErrEmptyCompletion
	}
	if err != nil {
		status = "error"
	}
	metrics.LLMRequestDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, core.ErrEmptyCompletion) {
			return "", err
		}
		return "", apperrors.ExternalServiceError(e.llm.Model(), fmt.Errorf("%s completion: %w", operation, err))
	}

	fields := []zap.Field{zap.String("operation", operation), zap.String("model", e.llm.Model())}
	if resp.Usage != nil {
		fields = append(fields, zap.Int("prompt_tokens", resp.Usage.PromptTokens), zap.Int("completion_tokens", resp.Usage.CompletionTokens))
		if resp.Usage.PromptTokens >= 0 && resp.Usage.CompletionTokens >= 0 {
			metrics.LLMTokensTotal.WithLabelValues(resp.Usage.Provider, "prompt").Add(float64(resp.Usage.PromptTokens))
			metrics.LLMTokensTotal.WithLabelValues(resp.Usage.Provider, "completion").Add(float64(resp.Usage.CompletionTokens))
		}
	}
	e.logger.Debug("model call completed", fields...)
	return strings.TrimSpace(resp.Content), nil
}

func joinChunks(chunks []insight.Chunk) string {
	if len(chunks) == 0 {
		return "(no rows retrieved)"
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n\n")
}

func cacheKey(ds *dataset.Dataset, question string) string {
	return "answer:" + core.HashStrings(ds.Fingerprint().String(), strings.ToLower(question)).String()
}
