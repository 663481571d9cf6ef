// Package sqlite provides SQLite-backed pipeline run audit persistence.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/paperco/orderdesk/internal/platform/storage/sqlitemigrate"
	"github.com/paperco/orderdesk/internal/services/pipeline/storage"
	"github.com/paperco/orderdesk/internal/services/pipeline/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed run audit persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a pipeline SQLite store and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordRun persists one pipeline run outcome.
func (s *Store) RecordRun(ctx context.Context, record storage.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	record.MessageID = strings.TrimSpace(record.MessageID)
	record.Terminal = strings.TrimSpace(record.Terminal)
	record.Outcome = strings.TrimSpace(record.Outcome)
	if record.MessageID == "" {
		return fmt.Errorf("message id is required")
	}
	if record.Outcome == "" {
		return fmt.Errorf("outcome is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO pipeline_runs (
	message_id,
	terminal,
	outcome,
	reason,
	created_at
) VALUES (?, ?, ?, ?, ?)
`,
		record.MessageID,
		record.Terminal,
		record.Outcome,
		record.Reason,
		record.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ListRuns lists newest-first run audit records.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]storage.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, message_id, terminal, outcome, reason, created_at
FROM pipeline_runs
ORDER BY id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []storage.RunRecord
	for rows.Next() {
		var record storage.RunRecord
		var createdAt int64
		if err := rows.Scan(
			&record.ID,
			&record.MessageID,
			&record.Terminal,
			&record.Outcome,
			&record.Reason,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		record.CreatedAt = time.UnixMilli(createdAt).UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run records: %w", err)
	}
	return records, nil
}
