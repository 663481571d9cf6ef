package extract

import (
	"context"
	"fmt"

	"github.com/paperco/orderdesk/internal/services/pipeline/domain"
)

const parseInstructions = `You extract structured purchase orders from email.
Respond with a single JSON object and nothing else, exactly this shape:
{"buyer": {"name": "", "email": "", "billing_address": "", "shipping_address": ""},
 "lines": [{"product_text": "", "quantity": 0}]}
Copy the buyer identity from the message. One entry per ordered product,
product_text quoting the buyer's own wording, quantity as an integer.
Use empty strings for fields the message does not state. Do not invent
products or quantities.`

// Parser extracts structured orders with the model.
type Parser struct {
	client
}

// NewParser builds a model-backed order parser.
func NewParser(cfg Config) *Parser {
	return &Parser{client{cfg: cfg.withDefaults()}}
}

// Parse extracts a structured order from a purchase-order email. The
// model output is decoded strictly and validated before it may enter
// the pipeline.
func (p *Parser) Parse(ctx context.Context, msg domain.InboundMessage) (domain.ParsedOrder, error) {
	input := fmt.Sprintf("Subject: %s\nFrom: %s\n\n%s", msg.Subject, msg.Sender, msg.Body)
	output, err := p.respond(ctx, parseInstructions, input)
	if err != nil {
		return domain.ParsedOrder{}, fmt.Errorf("parse: %w", err)
	}

	var payload struct {
		Buyer domain.Buyer         `json:"buyer"`
		Lines []domain.LineRequest `json:"lines"`
	}
	if err := decodeStrict(output, &payload); err != nil {
		return domain.ParsedOrder{}, fmt.Errorf("parse: %w", err)
	}

	order := domain.ParsedOrder{
		MessageID: msg.ID,
		Buyer:     payload.Buyer,
		Lines:     payload.Lines,
	}
	if order.Buyer.Email == "" {
		order.Buyer.Email = msg.Sender
	}
	if err := order.Validate(); err != nil {
		return domain.ParsedOrder{}, fmt.Errorf("parse message %s: %w", msg.ID, err)
	}
	return order, nil
}
