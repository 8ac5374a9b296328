package vectordb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/0xcro3dile/starbot/internal/domain/entities"
)

// SQLiteStore persists the ingested chunk snapshot and user feedback.
// It is both the durable ChunkSource the store reloads from and the
// ChunkSink ingestion writes to.
type SQLiteStore struct {
	db       *sql.DB
	dataPath string
}

// NewSQLiteStore opens (or creates) starbot.db under dataPath.
func NewSQLiteStore(dataPath string) (*SQLiteStore, error) {
	if dataPath == "" {
		dataPath = "./data"
	}

	// Ensure data directory exists
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, "starbot.db")
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{
		db:       db,
		dataPath: dataPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return store, nil
}

// initSchema creates the necessary tables.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		ord INTEGER PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		text TEXT NOT NULL,
		source_key TEXT NOT NULL,
		metadata TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_key);
	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		verdict TEXT NOT NULL,
		sources TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Name implements ports.ChunkSource and ports.ChunkSink.
func (s *SQLiteStore) Name() string { return "sqlite" }

// SaveChunks replaces the stored snapshot in one transaction.
func (s *SQLiteStore) SaveChunks(ctx context.Context, chunks []entities.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (ord, id, text, source_key, metadata)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, chunk := range chunks {
		metaJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, i, chunk.ID, chunk.Text, chunk.Metadata.SourceKey(), string(metaJSON)); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", chunk.ID, err)
		}
	}

	return tx.Commit()
}

// Load implements ports.ChunkSource, returning chunks in ingestion order.
// Rows with unreadable metadata are skipped.
func (s *SQLiteStore) Load(ctx context.Context) ([]entities.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, text, metadata FROM chunks ORDER BY ord")
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []entities.Chunk
	for rows.Next() {
		var chunk entities.Chunk
		var metaJSON string
		if err := rows.Scan(&chunk.ID, &chunk.Text, &metaJSON); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &chunk.Metadata); err != nil {
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// SaveFeedback implements ports.FeedbackStore.
func (s *SQLiteStore) SaveFeedback(ctx context.Context, fb entities.Feedback) error {
	sources, err := json.Marshal(fb.Sources)
	if err != nil {
		return fmt.Errorf("encoding sources: %w", err)
	}
	createdAt := fb.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO feedback (question, answer, verdict, sources, created_at) VALUES (?, ?, ?, ?, ?)",
		fb.Question, fb.Answer, string(fb.Verdict), string(sources), createdAt,
	)
	if err != nil {
		return fmt.Errorf("inserting feedback: %w", err)
	}
	return nil
}

// FeedbackSummary counts feedback per verdict.
func (s *SQLiteStore) FeedbackSummary(ctx context.Context) (map[entities.Verdict]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT verdict, COUNT(*) FROM feedback GROUP BY verdict")
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	defer rows.Close()

	out := make(map[entities.Verdict]int)
	for rows.Next() {
		var verdict string
		var count int
		if err := rows.Scan(&verdict, &count); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out[entities.Verdict(verdict)] = count
	}
	return out, rows.Err()
}

// ChunkCount returns the number of stored chunks.
func (s *SQLiteStore) ChunkCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
