package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// SQLiteStorage implements HistoryStore using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS answers (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		answer TEXT NOT NULL,
		document_id TEXT,
		corpus_root TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_answers_created_at ON answers(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordAnswer inserts entry, assigning an ID and timestamp when they are unset.
func (s *SQLiteStorage) RecordAnswer(ctx context.Context, entry *models.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO answers (id, query, answer, document_id, corpus_root, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Query, entry.Answer, entry.DocumentID, entry.CorpusRoot, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record answer: %w", err)
	}
	return nil
}

// GetAnswer returns one entry by ID.
func (s *SQLiteStorage) GetAnswer(ctx context.Context, id string) (*models.HistoryEntry, error) {
	var e models.HistoryEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT id, query, answer, document_id, corpus_root, created_at
		 FROM answers WHERE id = ?`, id,
	).Scan(&e.ID, &e.Query, &e.Answer, &e.DocumentID, &e.CorpusRoot, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("answer not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListAnswers returns entries newest first.
func (s *SQLiteStorage) ListAnswers(ctx context.Context, offset, limit int) ([]*models.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, answer, document_id, corpus_root, created_at
		 FROM answers ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.Query, &e.Answer, &e.DocumentID, &e.CorpusRoot, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// CountAnswers returns the number of recorded answers.
func (s *SQLiteStorage) CountAnswers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM answers`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
