// Package domain implements the purchase-order processing pipeline:
// its data contracts, the business rule engine, the grounding and
// approval gates, the fulfillment and rejection stages, and the router
// that drives one inbound message through them.
package domain

// InboundMessage is one email pulled from the inbox spool. It is
// immutable once fetched; its lifecycle ends when the spool marks it
// processed.
type InboundMessage struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Body    string `json:"body"`
}

// Classification wraps an inbound message with the triage verdict.
// Quarantined marks messages flagged by the safety screen; they are
// never parsed and route to a safe terminal path for audit.
type Classification struct {
	Message         InboundMessage `json:"message"`
	IsPurchaseOrder bool           `json:"is_po"`
	Reason          string         `json:"reason"`
	Quarantined     bool           `json:"-"`
}
