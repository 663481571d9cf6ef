// Package storage defines the pipeline run audit log records and the
// store contract for persisting them.
package storage

import (
	"context"
	"time"
)

// RunRecord is one durable pipeline run outcome.
type RunRecord struct {
	ID        int64
	MessageID string
	Terminal  string
	Outcome   string
	Reason    string
	CreatedAt time.Time
}

// Run outcomes recorded in the audit log.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// RunStore persists pipeline run audit records.
type RunStore interface {
	RecordRun(ctx context.Context, record RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
