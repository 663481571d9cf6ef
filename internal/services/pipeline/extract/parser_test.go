package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/paperco/orderdesk/internal/services/pipeline/domain"
)

func TestParserParse(t *testing.T) {
	t.Parallel()

	valid := `{"buyer": {"name": "Baumarkt Nord GmbH", "email": "orders@baumarkt-nord.example",
		"billing_address": "Hafenstr. 12, Hamburg", "shipping_address": ""},
		"lines": [{"product_text": "A4 copy paper", "quantity": 100},
		          {"product_text": "blue ballpoint pens", "quantity": 10}]}`

	t.Run("valid order", func(t *testing.T) {
		t.Parallel()
		p := NewParser(modelConfig(t, valid))
		got, err := p.Parse(context.Background(), testMessage())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.MessageID != "msg-1" {
			t.Errorf("expected message id stamped, got %q", got.MessageID)
		}
		if got.Buyer.Name != "Baumarkt Nord GmbH" {
			t.Errorf("unexpected buyer: %+v", got.Buyer)
		}
		if len(got.Lines) != 2 || got.Lines[0].Quantity != 100 {
			t.Errorf("unexpected lines: %+v", got.Lines)
		}
	})

	t.Run("fenced output is tolerated", func(t *testing.T) {
		t.Parallel()
		p := NewParser(modelConfig(t, "```json\n"+valid+"\n```"))
		if _, err := p.Parse(context.Background(), testMessage()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("missing buyer email falls back to sender", func(t *testing.T) {
		t.Parallel()
		payload := `{"buyer": {"name": "X", "email": "", "billing_address": "", "shipping_address": ""},
			"lines": [{"product_text": "paper", "quantity": 1}]}`
		p := NewParser(modelConfig(t, payload))
		got, err := p.Parse(context.Background(), testMessage())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Buyer.Email != "orders@baumarkt-nord.example" {
			t.Errorf("expected sender fallback, got %q", got.Buyer.Email)
		}
	})

	t.Run("zero quantity is rejected", func(t *testing.T) {
		t.Parallel()
		payload := `{"buyer": {"name": "X", "email": "x@example.com", "billing_address": "", "shipping_address": ""},
			"lines": [{"product_text": "paper", "quantity": 0}]}`
		p := NewParser(modelConfig(t, payload))
		if _, err := p.Parse(context.Background(), testMessage()); !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})

	t.Run("empty line list is rejected", func(t *testing.T) {
		t.Parallel()
		payload := `{"buyer": {"name": "X", "email": "x@example.com", "billing_address": "", "shipping_address": ""}, "lines": []}`
		p := NewParser(modelConfig(t, payload))
		if _, err := p.Parse(context.Background(), testMessage()); !errors.Is(err, domain.ErrNoLineItems) {
			t.Fatalf("expected ErrNoLineItems, got %v", err)
		}
	})

	t.Run("smuggled field is rejected", func(t *testing.T) {
		t.Parallel()
		payload := `{"buyer": {"name": "X", "email": "x@example.com", "billing_address": "", "shipping_address": ""},
			"lines": [{"product_text": "paper", "quantity": 1, "discount": 0.5}]}`
		p := NewParser(modelConfig(t, payload))
		if _, err := p.Parse(context.Background(), testMessage()); err == nil {
			t.Fatal("expected error for unknown line field")
		}
	})
}
