package migration

import (
	"context"

	"excelinsights/internal/errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

type step struct {
	version int
	name    string
	sql     string
}

// steps run in order; applied versions are recorded in schema_migrations.
var steps = []step{
	{
		version: 1,
		name:    "create dataset_uploads",
		sql: `
CREATE TABLE IF NOT EXISTS dataset_uploads (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	filename VARCHAR(255) NOT NULL,
	file_size BIGINT NOT NULL DEFAULT 0,
	fingerprint VARCHAR(64),
	row_count INTEGER,
	column_count INTEGER,
	missing_rate DECIMAL(5,4) DEFAULT 0.0,
	status VARCHAR(20) NOT NULL DEFAULT 'processing',
	error_message TEXT,
	fields JSONB,
	created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
)`,
	},
	{
		version: 2,
		name:    "index dataset_uploads",
		sql: `
CREATE INDEX IF NOT EXISTS idx_dataset_uploads_created_at ON dataset_uploads(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_dataset_uploads_session_id ON dataset_uploads(session_id);
CREATE INDEX IF NOT EXISTS idx_dataset_uploads_fingerprint ON dataset_uploads(fingerprint)`,
	},
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
	logger  *zap.Logger
}

// NewRunner creates a new migration runner
func NewRunner(logger *zap.Logger) *MigrationRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MigrationRunner{version: "2", logger: logger}
}

// Version returns the schema version after Run
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run applies every pending migration, each in its own transaction.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`); err != nil {
		return errors.DatabaseError("failed to create schema_migrations table", err)
	}

	var applied []int
	if err := db.SelectContext(ctx, &applied, `SELECT version FROM schema_migrations`); err != nil {
		return errors.DatabaseError("failed to read applied migrations", err)
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, s := range steps {
		if done[s.version] {
			continue
		}
		if err := r.apply(ctx, db, s); err != nil {
			return errors.Wrapf(err, "failed to run migration %03d (%s)", s.version, s.name)
		}
		r.logger.Info("migration applied", zap.Int("version", s.version), zap.String("name", s.name))
	}
	return nil
}

func (r *MigrationRunner) apply(ctx context.Context, db *sqlx.DB, s step) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.sql); err != nil {
		return errors.DatabaseError("execute migration", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, s.version, s.name); err != nil {
		return errors.DatabaseError("record migration", err)
	}
	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("commit migration", err)
	}
	return nil
}
