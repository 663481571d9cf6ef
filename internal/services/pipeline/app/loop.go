package app

import (
	"context"
	"fmt"
	"log"
	"time"

	inboxstorage "github.com/paperco/orderdesk/internal/services/inbox/storage"
	"github.com/paperco/orderdesk/internal/services/pipeline/domain"
	pipelinestorage "github.com/paperco/orderdesk/internal/services/pipeline/storage"
)

// Spool is the inbox subset the drain loop reads and acknowledges.
type Spool interface {
	ListUnread(ctx context.Context, limit int) ([]inboxstorage.Message, error)
	MarkProcessed(ctx context.Context, id string) error
}

// Runner drives one inbound message through the pipeline.
type Runner interface {
	Run(ctx context.Context, msg domain.InboundMessage) (*domain.Artifact, error)
}

// RunAuditor records run outcomes for operator triage.
type RunAuditor interface {
	RecordRun(ctx context.Context, record pipelinestorage.RunRecord) error
}

// Loop drains the inbox spool through the pipeline graph. Messages are
// processed strictly one at a time; a failed run leaves its message
// unread so the next pass retries it, while quarantined and rejected
// runs still acknowledge the message.
type Loop struct {
	spool  Spool
	runner Runner
	audit  RunAuditor
	batch  int
	logf   func(format string, args ...any)
}

// NewLoop builds a drain loop over the spool and graph.
func NewLoop(spool Spool, runner Runner, batch int) *Loop {
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Loop{spool: spool, runner: runner, batch: batch, logf: log.Printf}
}

// SetAudit attaches a run auditor. Audit writes are best effort and
// never block or fail message processing.
func (l *Loop) SetAudit(audit RunAuditor) {
	l.audit = audit
}

// DrainOnce processes the current backlog until the spool reports no
// unread messages. It returns how many messages were acknowledged.
func (l *Loop) DrainOnce(ctx context.Context) (int, error) {
	if l == nil || l.spool == nil || l.runner == nil {
		return 0, fmt.Errorf("drain loop is not configured")
	}

	processed := 0
	for {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		backlog, err := l.spool.ListUnread(ctx, l.batch)
		if err != nil {
			return processed, fmt.Errorf("list unread messages: %w", err)
		}
		if len(backlog) == 0 {
			return processed, nil
		}

		acked := 0
		for _, msg := range backlog {
			if err := ctx.Err(); err != nil {
				return processed, err
			}
			art, err := l.runner.Run(ctx, domain.InboundMessage{
				ID:      msg.ID,
				Subject: msg.Subject,
				Sender:  msg.Sender,
				Body:    msg.Body,
			})
			if err != nil {
				l.logf("drain message=%s run failed, leaving unread: %v", msg.ID, err)
				l.recordRun(ctx, msg.ID, art, err)
				continue
			}
			l.recordRun(ctx, msg.ID, art, nil)
			if err := l.spool.MarkProcessed(ctx, msg.ID); err != nil {
				return processed, fmt.Errorf("mark message %s processed: %w", msg.ID, err)
			}
			processed++
			acked++
		}
		// Every message in this batch failed; stop instead of
		// re-listing the same backlog forever.
		if acked == 0 {
			return processed, nil
		}
	}
}

func (l *Loop) recordRun(ctx context.Context, messageID string, art *domain.Artifact, runErr error) {
	if l.audit == nil {
		return
	}
	record := pipelinestorage.RunRecord{
		MessageID: messageID,
		Outcome:   pipelinestorage.OutcomeCompleted,
		Reason:    terminalReason(art),
	}
	if art != nil {
		record.Terminal = art.Terminal
	}
	if runErr != nil {
		record.Outcome = pipelinestorage.OutcomeFailed
		record.Reason = runErr.Error()
	}
	if err := l.audit.RecordRun(ctx, record); err != nil {
		l.logf("audit message=%s record failed: %v", messageID, err)
	}
}

func terminalReason(art *domain.Artifact) string {
	switch {
	case art == nil:
		return ""
	case art.Rejection != nil:
		return art.Rejection.Reason
	case art.Grounding != nil && !art.Grounding.Grounded:
		return art.Grounding.Reason
	case art.Classification != nil && !art.Classification.IsPurchaseOrder:
		return art.Classification.Reason
	}
	return ""
}

// Run polls the spool until the context is canceled.
func (l *Loop) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := l.DrainOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.logf("drain pass failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
