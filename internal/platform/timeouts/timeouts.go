// Package timeouts defines shared timeout constants used across the
// pipeline runtime. Centralizing these values prevents drift between
// collaborator boundaries and makes the durations discoverable.
package timeouts

import "time"

// HTTPCall caps a single outbound HTTP call to a collaborator (review
// channel, mailer, extraction backend).
const HTTPCall = 30 * time.Second

// ApprovalPoll is the default interval between review-thread polls.
const ApprovalPoll = 2 * time.Second

// ApprovalWait is the default cap on waiting for a human approval reply.
const ApprovalWait = 180 * time.Second

// InboxPoll is the default interval between inbox drain passes when the
// runtime runs in serve mode.
const InboxPoll = 5 * time.Second

// Shutdown limits how long the runtime waits for in-flight work during
// graceful shutdown.
const Shutdown = 5 * time.Second
