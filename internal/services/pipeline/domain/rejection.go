package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// ErrMailerNotConfigured indicates the stage is missing its mailer.
var ErrMailerNotConfigured = errors.New("mailer is not configured")

// RejectionReceipt reports the terminal state of a rejection run.
type RejectionReceipt struct {
	OK     bool
	Reason string
}

// RejectionStage notifies the buyer that the order will not be
// fulfilled. The notice cites the business reason the decision stage
// produced; approval denials reuse that same reason so the buyer never
// sees internal review mechanics.
type RejectionStage struct {
	mailer Mailer
	logf   func(format string, args ...any)
}

// NewRejectionStage constructs a rejection stage.
func NewRejectionStage(mailer Mailer) *RejectionStage {
	return &RejectionStage{mailer: mailer, logf: log.Printf}
}

// Reject sends a rejection notice for the decided order.
func (s *RejectionStage) Reject(ctx context.Context, decision Decision) (RejectionReceipt, error) {
	if s == nil || s.mailer == nil {
		return RejectionReceipt{}, ErrMailerNotConfigured
	}
	order := decision.Order
	body := formatRejection(order, decision.Reason)
	if err := s.mailer.Reply(ctx, order.MessageID, body, ""); err != nil {
		s.logf("rejection message=%s failed: %v", order.MessageID, err)
		return RejectionReceipt{OK: false, Reason: decision.Reason}, fmt.Errorf("send rejection: %w", err)
	}
	s.logf("rejection message=%s reason=%q", order.MessageID, decision.Reason)
	return RejectionReceipt{OK: true, Reason: decision.Reason}, nil
}

func formatRejection(order EnrichedOrder, reason string) string {
	var b strings.Builder
	name := strings.TrimSpace(order.Customer.Name)
	if name == "" {
		name = "Valued Customer"
	}
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	fmt.Fprintf(&b, "Unfortunately we cannot fulfill your purchase order at this time.\n\nReason: %s\n\n", reason)
	fmt.Fprintf(&b, "Please reply to this message if you would like to adjust the order.\n\nBest regards,\nPaperCo Operations")
	return b.String()
}
