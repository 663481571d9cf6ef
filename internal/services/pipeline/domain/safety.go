package domain

import "context"

// SafetyScreen checks an inbound message for prompt-injection attempts
// and policy-violating content before it reaches any model call. A nil
// screen means screening is disabled and every message passes.
type SafetyScreen interface {
	Screen(ctx context.Context, msg InboundMessage) (SafetyVerdict, error)
}

// SafetyVerdict is the outcome of a content screen.
type SafetyVerdict struct {
	Safe   bool
	Reason string
}

// Quarantine builds the terminal classification for a message the
// screen flagged. Quarantined messages are marked processed so they
// never re-enter the loop, but nothing downstream runs for them.
func Quarantine(msg InboundMessage, reason string) Classification {
	return Classification{
		Message:         msg,
		IsPurchaseOrder: false,
		Reason:          reason,
		Quarantined:     true,
	}
}
