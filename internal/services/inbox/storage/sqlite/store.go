// Package sqlite implements the message spool over SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/paperco/orderdesk/internal/platform/storage/sqlitemigrate"
	"github.com/paperco/orderdesk/internal/services/inbox/storage"
	"github.com/paperco/orderdesk/internal/services/inbox/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store implements spool persistence over SQLite.
type Store struct {
	sqlDB *sql.DB
	clock func() time.Time
}

// Open opens a spool SQLite store and applies bundled migrations.
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

	store := &Store{sqlDB: sqlDB, clock: time.Now}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// PutMessage spools one inbound message. Re-spooling an existing id
// leaves the stored message untouched so a redelivered email cannot
// reset its processed state.
func (s *Store) PutMessage(ctx context.Context, msg storage.Message) error {
	if strings.TrimSpace(msg.ID) == "" {
		return fmt.Errorf("message id is required")
	}
	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.clock()
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT OR IGNORE INTO messages (id, subject, sender, body, received_at, processed_at)
VALUES (?, ?, ?, ?, ?, NULL);
`, msg.ID, msg.Subject, msg.Sender, msg.Body, toMillis(receivedAt))
	if err != nil {
		return fmt.Errorf("put message %s: %w", msg.ID, err)
	}
	return nil
}

// GetMessage fetches one spooled message by id.
func (s *Store) GetMessage(ctx context.Context, id string) (storage.Message, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, subject, sender, body, received_at, processed_at FROM messages WHERE id = ?;
`, id)
	return scanMessage(row)
}

// ListUnread returns up to limit unprocessed messages, oldest first.
func (s *Store) ListUnread(ctx context.Context, limit int) ([]storage.Message, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, subject, sender, body, received_at, processed_at FROM messages
WHERE processed_at IS NULL
ORDER BY received_at, id
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unread: %w", err)
	}
	defer rows.Close()

	var messages []storage.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unread: %w", err)
	}
	return messages, nil
}

// MarkProcessed removes a message's unread marker. Marking an already
// processed message keeps its original timestamp; marking an unknown
// id reports ErrNotFound.
func (s *Store) MarkProcessed(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE messages SET processed_at = ? WHERE id = ? AND processed_at IS NULL;
`, toMillis(s.clock()), id)
	if err != nil {
		return fmt.Errorf("mark processed %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark processed %s: %w", id, err)
	}
	if affected == 0 {
		if _, err := s.GetMessage(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (storage.Message, error) {
	var msg storage.Message
	var receivedAt int64
	var processedAt sql.NullInt64
	err := row.Scan(&msg.ID, &msg.Subject, &msg.Sender, &msg.Body, &receivedAt, &processedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Message{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Message{}, fmt.Errorf("scan message: %w", err)
	}
	msg.ReceivedAt = fromMillis(receivedAt)
	if processedAt.Valid {
		t := fromMillis(processedAt.Int64)
		msg.ProcessedAt = &t
	}
	return msg, nil
}
