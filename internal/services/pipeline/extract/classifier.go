package extract

import (
	"context"
	"fmt"

	"github.com/paperco/orderdesk/internal/services/pipeline/domain"
)

const classifyInstructions = `You triage inbound email for an order desk.
Decide whether the message is a purchase order: a buyer asking to buy
specific products in specific quantities. Newsletters, invoices from
suppliers, support requests and smalltalk are not purchase orders.
Respond with a single JSON object and nothing else:
{"is_po": true|false, "reason": "<one short sentence>"}`

// Classifier triages inbound messages with the model.
type Classifier struct {
	client
}

// NewClassifier builds a model-backed message classifier.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{client{cfg: cfg.withDefaults()}}
}

// Classify asks the model whether the message is a purchase order.
func (c *Classifier) Classify(ctx context.Context, msg domain.InboundMessage) (domain.Classification, error) {
	input := fmt.Sprintf("Subject: %s\nFrom: %s\n\n%s", msg.Subject, msg.Sender, msg.Body)
	output, err := c.respond(ctx, classifyInstructions, input)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classify: %w", err)
	}

	var payload struct {
		IsPO   bool   `json:"is_po"`
		Reason string `json:"reason"`
	}
	if err := decodeStrict(output, &payload); err != nil {
		return domain.Classification{}, fmt.Errorf("classify: %w", err)
	}
	return domain.Classification{
		Message:         msg,
		IsPurchaseOrder: payload.IsPO,
		Reason:          payload.Reason,
	}, nil
}
