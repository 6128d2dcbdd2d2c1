package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/autopr/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// SQLite stores one row per record in a local database file. Unlike the file
// backend it rewrites only the affected row on Put, which keeps writes cheap
// when many tasks accumulate.
type SQLite struct {
	db     *sql.DB
	dbPath string
}

// NewSQLite opens (creating if necessary) the database at dbPath and applies
// the schema. The special path ":memory:" is supported for tests.
func NewSQLite(dbPath string) (*SQLite, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection, so the pool must be
	// pinned to a single one.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// busy_timeout must come first so later statements wait on locks instead
	// of failing with "database is locked".
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLite{db: db, dbPath: dbPath}, nil
}

// Put upserts the full record row.
func (s *SQLite) Put(ctx context.Context, rec models.TaskRecord) error {
	query := `INSERT INTO tasks (id, prompt, repo_url, branch, test_command, status, result, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			prompt = excluded.prompt,
			repo_url = excluded.repo_url,
			branch = excluded.branch,
			test_command = excluded.test_command,
			status = excluded.status,
			result = excluded.result,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Prompt, rec.RepoURL, rec.Branch, rec.TestCommand,
		string(rec.Status), rec.Result, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to persist task %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the record for id, or ErrNotFound.
func (s *SQLite) Get(ctx context.Context, id string) (models.TaskRecord, error) {
	query := `SELECT id, prompt, repo_url, branch, test_command, status, result, created_at, updated_at
		FROM tasks WHERE id = ?`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TaskRecord{}, ErrNotFound
		}
		return models.TaskRecord{}, fmt.Errorf("failed to read task %s: %w", id, err)
	}
	return rec, nil
}

// List returns all records.
func (s *SQLite) List(ctx context.Context) ([]models.TaskRecord, error) {
	query := `SELECT id, prompt, repo_url, branch, test_command, status, result, created_at, updated_at
		FROM tasks`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var out []models.TaskRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task rows: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// rowScanner matches both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (models.TaskRecord, error) {
	var rec models.TaskRecord
	var status string
	if err := row.Scan(&rec.ID, &rec.Prompt, &rec.RepoURL, &rec.Branch,
		&rec.TestCommand, &status, &rec.Result, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return models.TaskRecord{}, err
	}
	rec.Status = models.Status(status)
	return rec, nil
}

var _ Store = (*SQLite)(nil)
