package container

import (
	"context"
	"fmt"
	"io"

	"excelinsights/adapters/cache"
	"excelinsights/adapters/embedding"
	"excelinsights/adapters/excel"
	"excelinsights/adapters/llm"
	"excelinsights/adapters/memory"
	"excelinsights/adapters/postgres"
	"excelinsights/adapters/vectorstore"
	"excelinsights/app"
	"excelinsights/internal/config"
	"excelinsights/internal/migration"
	"excelinsights/internal/rag"
	"excelinsights/internal/session"
	"excelinsights/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	// Infrastructure
	DB          *sqlx.DB
	VectorStore ports.VectorStore
	Cache       ports.AnswerCache

	// Repositories (data access layer)
	DatasetRepo ports.DatasetRepository

	// Question answering
	LLM    ports.LLMClient
	Engine *rag.Engine

	Sessions *session.Manager
	Service  *app.InsightService

	closers []io.Closer
}

// New creates a new dependency injection container. Optional backends
// (Postgres, Redis, a language model) are only connected when configured.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	if err := c.initRepositories(ctx); err != nil {
		c.closeAll()
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}
	if err := c.initCache(ctx); err != nil {
		c.closeAll()
		return nil, fmt.Errorf("failed to initialize answer cache: %w", err)
	}
	if err := c.initRAG(ctx); err != nil {
		c.closeAll()
		return nil, fmt.Errorf("failed to initialize question answering: %w", err)
	}

	c.Sessions = session.NewManager(cfg.Session.TTL, c.forgetSession, logger)
	c.Service = app.NewInsightService(c.Sessions, c.Engine, c.DatasetRepo, app.ServiceConfig{
		Reader:         excel.DefaultReaderConfig(),
		MaxUploadBytes: cfg.Server.MaxUploadBytes(),
	}, logger)

	logger.Info("container initialized",
		zap.Bool("database", c.DB != nil),
		zap.Bool("language_model", c.LLM != nil),
		zap.String("vector_store", cfg.Embedding.VectorStore))
	return c, nil
}

// initRepositories connects Postgres when DATABASE_URL is set and falls back
// to an in-memory upload history otherwise.
func (c *Container) initRepositories(ctx context.Context) error {
	if c.Config.Database.URL == "" {
		c.DatasetRepo = memory.NewDatasetRepository()
		return nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", c.Config.Database.URL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	c.DB = db
	c.closers = append(c.closers, db)

	if err := migration.NewRunner(c.Logger).Run(ctx, db); err != nil {
		return err
	}
	c.DatasetRepo = postgres.NewDatasetRepository(db)
	return nil
}

func (c *Container) initCache(ctx context.Context) error {
	if c.Config.Cache.RedisURL == "" {
		c.Cache = cache.NewMemory()
		return nil
	}
	rc, err := cache.NewRedis(c.Config.Cache.RedisURL)
	if err != nil {
		return err
	}
	c.closers = append(c.closers, rc)
	if err := rc.Ping(ctx); err != nil {
		return err
	}
	c.Cache = rc
	return nil
}

func (c *Container) initRAG(ctx context.Context) error {
	cfg := c.Config

	client, err := llm.New(ctx, llm.Config{
		Provider:          cfg.LLM.Provider,
		Model:             cfg.LLM.Model,
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Temperature:       cfg.LLM.Temperature,
		MaxTokens:         cfg.LLM.MaxTokens,
		Timeout:           cfg.LLM.Timeout,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
	}, c.Logger)
	if err != nil {
		return err
	}
	if client != nil {
		c.LLM = client
	}

	embedder, err := embedding.New(ctx, embedding.Config{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		URL:        cfg.Embedding.URL,
		APIKey:     cfg.Embedding.APIKey,
		Dimensions: cfg.Embedding.Dimensions,
	}, c.Logger)
	if err != nil {
		return err
	}

	store, err := vectorstore.New(cfg.Embedding.VectorStore, cfg.Embedding.VectorStorePath)
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		c.closers = append(c.closers, closer)
	}
	c.VectorStore = store

	chunker := rag.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	indexer := rag.NewIndexer(chunker, embedder, store, cfg.RAG.Workers, c.Logger)
	retriever := rag.NewRetriever(embedder, store, cfg.RAG.TopK)

	c.Engine = rag.NewEngine(c.LLM, indexer, retriever, c.Cache, rag.NewPromptManager(""), rag.Options{
		TopK:        cfg.RAG.TopK,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		CacheTTL:    cfg.Cache.TTL,
	}, c.Logger)
	return nil
}

func (c *Container) forgetSession(ctx context.Context, s *session.Session) {
	if err := c.Engine.Forget(ctx, s.Collection()); err != nil {
		c.Logger.Warn("failed to drop session index", zap.String("session_id", s.ID.String()), zap.Error(err))
	}
}

// Start launches background work. It returns immediately; the work stops
// when ctx is cancelled.
func (c *Container) Start(ctx context.Context) {
	go c.Sessions.Run(ctx)
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Sessions != nil {
		c.Sessions.Close(ctx)
	}
	return c.closeAll()
}

func (c *Container) closeAll() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}
