// Package storage defines the persistence contract for the inbound
// message spool.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested message is missing.
var ErrNotFound = errors.New("message not found")

// Message is one spooled inbound email. A message is unread until the
// pipeline finishes its run and marks it processed; marking is
// idempotent and ends the message's lifecycle.
type Message struct {
	ID          string
	Subject     string
	Sender      string
	Body        string
	ReceivedAt  time.Time
	ProcessedAt *time.Time
}

// Store persists the message spool.
type Store interface {
	PutMessage(ctx context.Context, msg Message) error
	GetMessage(ctx context.Context, id string) (Message, error)
	ListUnread(ctx context.Context, limit int) ([]Message, error)
	MarkProcessed(ctx context.Context, id string) error
	Close() error
}
