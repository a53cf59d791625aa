package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"excelinsights/domain/insight"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists chunks and their embeddings in a SQLite file.
// Embeddings are stored as JSON text and scored in Go.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single writer avoids "database is locked" on concurrent Replace calls
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{conn: conn, path: path}
	if err := s.setupTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to setup database tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) setupTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS text_chunks (
			id TEXT NOT NULL,
			collection TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			embedding TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (collection, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_collection ON text_chunks(collection, chunk_index)`,
	}

	for _, query := range queries {
		if _, err := s.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %s, error: %w", query, err)
		}
	}
	return nil
}

// Replace deletes the collection and inserts chunks in one transaction.
func (s *SQLiteStore) Replace(ctx context.Context, collection string, chunks []insight.Chunk) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM text_chunks WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("failed to clear collection %s: %w", collection, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO text_chunks (id, collection, chunk_index, text, embedding) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		embeddingJSON, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, chunk.ID, collection, chunk.Index, chunk.Text, string(embeddingJSON)); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Search(ctx context.Context, collection string, query []float32, k int) ([]insight.Chunk, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, chunk_index, text, embedding FROM text_chunks WHERE collection = ? ORDER BY chunk_index`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []insight.Chunk
	for rows.Next() {
		chunk := insight.Chunk{Collection: collection}
		var embeddingJSON string
		if err := rows.Scan(&chunk.ID, &chunk.Index, &chunk.Text, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(embeddingJSON), &chunk.Embedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding for chunk %s: %w", chunk.ID, err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return rank(chunks, query, k), nil
}

func (s *SQLiteStore) DeleteCollection(ctx context.Context, collection string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM text_chunks WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", collection, err)
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context, collection string) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM text_chunks WHERE collection = ?`, collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}
