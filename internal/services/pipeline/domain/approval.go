package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/paperco/orderdesk/internal/platform/timeouts"
)

// ApprovalOutcome is the result of the human-approval gate. Denied and
// TimedOut are indistinguishable to routing: both block fulfillment.
type ApprovalOutcome string

const (
	// ApprovalApproved allows fulfillment to proceed.
	ApprovalApproved ApprovalOutcome = "approved"
	// ApprovalDenied blocks fulfillment on an explicit deny reply.
	ApprovalDenied ApprovalOutcome = "denied"
	// ApprovalTimedOut blocks fulfillment when no decisive reply arrived.
	ApprovalTimedOut ApprovalOutcome = "timeout"
	// ApprovalFailed marks a terminal gate error (e.g. the summary could
	// not be posted); it is an error condition, not a denial.
	ApprovalFailed ApprovalOutcome = "error"
)

// ErrChannelNotConfigured indicates the gate is missing its review channel.
var ErrChannelNotConfigured = errors.New("review channel is not configured")

// ReviewChannel posts approval requests and reads thread replies.
type ReviewChannel interface {
	Post(ctx context.Context, text string) (thread string, err error)
	Replies(ctx context.Context, thread string) ([]string, error)
}

// ApprovalPolicy configures the gate. Keyword sets must be disjoint;
// approve words are checked before deny words within each reply.
type ApprovalPolicy struct {
	Enabled      bool
	Timeout      time.Duration
	PollInterval time.Duration
	ApproveWords []string
	DenyWords    []string
}

// DefaultApproveWords are the stock approval synonyms.
var DefaultApproveWords = []string{"approve", "approved", "yes", "y", "yep", "ja", "confirm"}

// DefaultDenyWords are the stock denial synonyms.
var DefaultDenyWords = []string{"deny", "denied", "reject", "rejected", "no", "n", "nope"}

// ApprovalGate obtains human consent before any state-mutating action.
// It is the one genuine suspension point in the pipeline: the run
// blocks here until a decisive reply arrives or the timeout elapses,
// and silence fails closed to denied.
type ApprovalGate struct {
	channel ReviewChannel
	policy  ApprovalPolicy
	approve *regexp.Regexp
	deny    *regexp.Regexp
	clock   func() time.Time
	sleep   func(context.Context, time.Duration)
	logf    func(format string, args ...any)
}

// NewApprovalGate constructs an approval gate. Clock and sleep are
// injectable for tests; nil selects real time.
func NewApprovalGate(channel ReviewChannel, policy ApprovalPolicy, clock func() time.Time, sleep func(context.Context, time.Duration)) *ApprovalGate {
	if policy.Timeout <= 0 {
		policy.Timeout = timeouts.ApprovalWait
	}
	if policy.PollInterval <= 0 {
		policy.PollInterval = timeouts.ApprovalPoll
	}
	if len(policy.ApproveWords) == 0 {
		policy.ApproveWords = DefaultApproveWords
	}
	if len(policy.DenyWords) == 0 {
		policy.DenyWords = DefaultDenyWords
	}
	if clock == nil {
		clock = time.Now
	}
	if sleep == nil {
		sleep = sleepFor
	}
	return &ApprovalGate{
		channel: channel,
		policy:  policy,
		approve: keywordPattern(policy.ApproveWords),
		deny:    keywordPattern(policy.DenyWords),
		clock:   clock,
		sleep:   sleep,
		logf:    log.Printf,
	}
}

// Request posts the order summary to the review channel and polls the
// thread until a decisive reply arrives or the timeout elapses. When
// the gate is disabled by policy, the outcome is approved without
// contacting the channel.
func (g *ApprovalGate) Request(ctx context.Context, order EnrichedOrder, totals OrderTotals) (ApprovalOutcome, error) {
	if g == nil {
		return ApprovalFailed, ErrChannelNotConfigured
	}
	if !g.policy.Enabled {
		return ApprovalApproved, nil
	}
	if g.channel == nil {
		return ApprovalFailed, ErrChannelNotConfigured
	}

	thread, err := g.channel.Post(ctx, FormatApprovalSummary(order, totals))
	if err != nil {
		return ApprovalFailed, fmt.Errorf("post approval request: %w", err)
	}
	g.logf("approval requested for message %s (thread %s, timeout %s)", order.MessageID, thread, g.policy.Timeout)

	deadline := g.clock().Add(g.policy.Timeout)
	for {
		if err := ctx.Err(); err != nil {
			return ApprovalFailed, err
		}
		replies, err := g.channel.Replies(ctx, thread)
		if err != nil {
			// Transient channel errors do not end the wait; the deadline does.
			g.logf("poll approval thread %s: %v", thread, err)
		}
		for _, reply := range replies {
			switch g.classify(reply) {
			case ApprovalApproved:
				g.logf("approval granted for message %s", order.MessageID)
				return ApprovalApproved, nil
			case ApprovalDenied:
				g.logf("approval denied for message %s", order.MessageID)
				return ApprovalDenied, nil
			}
		}
		if !g.clock().Before(deadline) {
			g.logf("approval timed out for message %s after %s", order.MessageID, g.policy.Timeout)
			return ApprovalTimedOut, nil
		}
		g.sleep(ctx, g.policy.PollInterval)
	}
}

// classify matches one reply against the keyword sets. Approve words
// are evaluated first; a reply matching neither set is ignored.
func (g *ApprovalGate) classify(reply string) ApprovalOutcome {
	text := strings.ToLower(strings.TrimSpace(reply))
	if text == "" {
		return ""
	}
	if g.approve.MatchString(text) {
		return ApprovalApproved
	}
	if g.deny.MatchString(text) {
		return ApprovalDenied
	}
	return ""
}

// FormatApprovalSummary builds the review-channel message: customer,
// total, and the line list with localized amounts.
func FormatApprovalSummary(order EnrichedOrder, totals OrderTotals) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order awaiting approval\n\n")
	fmt.Fprintf(&b, "Customer: %s\n", order.Customer.Name)
	fmt.Fprintf(&b, "Total: %s\n", FormatEUR(totals.GrandTotal))
	fmt.Fprintf(&b, "Items: %d\n", len(order.Lines))
	for i, line := range order.Lines {
		fmt.Fprintf(&b, "- %dx %s @ %s -> %s\n", line.Requested, line.Name, FormatEUR(line.UnitPrice), FormatEUR(totals.Lines[i].Subtotal))
	}
	fmt.Fprintf(&b, "\nReply `approve` or `deny` to this message.")
	return b.String()
}

func keywordPattern(words []string) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(word))
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

func sleepFor(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
