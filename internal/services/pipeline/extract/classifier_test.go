package extract

import (
	"context"
	"testing"

	"github.com/paperco/orderdesk/internal/services/pipeline/domain"
)

func testMessage() domain.InboundMessage {
	return domain.InboundMessage{
		ID:      "msg-1",
		Subject: "PO 4711",
		Sender:  "orders@baumarkt-nord.example",
		Body:    "Please send 100 reams of A4 copy paper.",
	}
}

func TestClassifierClassify(t *testing.T) {
	t.Parallel()

	t.Run("purchase order", func(t *testing.T) {
		t.Parallel()
		c := NewClassifier(modelConfig(t, `{"is_po": true, "reason": "buyer orders specific products"}`))
		got, err := c.Classify(context.Background(), testMessage())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.IsPurchaseOrder {
			t.Error("expected purchase order")
		}
		if got.Reason != "buyer orders specific products" {
			t.Errorf("unexpected reason: %q", got.Reason)
		}
		if got.Message.ID != "msg-1" {
			t.Errorf("expected message carried through, got %+v", got.Message)
		}
	})

	t.Run("not a purchase order", func(t *testing.T) {
		t.Parallel()
		c := NewClassifier(modelConfig(t, `{"is_po": false, "reason": "newsletter"}`))
		got, err := c.Classify(context.Background(), testMessage())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.IsPurchaseOrder {
			t.Error("expected non purchase order")
		}
	})

	t.Run("unexpected field fails the stage", func(t *testing.T) {
		t.Parallel()
		c := NewClassifier(modelConfig(t, `{"is_po": true, "reason": "r", "note": "extra"}`))
		if _, err := c.Classify(context.Background(), testMessage()); err == nil {
			t.Fatal("expected error for unexpected field")
		}
	})

	t.Run("non-json output fails the stage", func(t *testing.T) {
		t.Parallel()
		c := NewClassifier(modelConfig(t, `certainly! here is my analysis`))
		if _, err := c.Classify(context.Background(), testMessage()); err == nil {
			t.Fatal("expected error for non-json output")
		}
	})
}
