package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// fakeLedger implements RecordStore, InvoiceRenderer and Mailer in one
// value so a test can assert cross-collaborator call order.
type fakeLedger struct {
	calls []string

	createErr  error
	invoiceErr error
	mailErr    error
	stockErr   error
	arErr      error

	created     []CustomerDraft
	decrements  map[string]int
	receivables float64
	mailBodies  []string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{decrements: make(map[string]int)}
}

func (f *fakeLedger) CreateCustomer(_ context.Context, draft CustomerDraft) (Customer, error) {
	f.calls = append(f.calls, "create-customer")
	if f.createErr != nil {
		return Customer{}, f.createErr
	}
	f.created = append(f.created, draft)
	return Customer{
		ID:          fmt.Sprintf("C-%d", 5000+len(f.created)),
		Name:        draft.Name,
		Email:       draft.Email,
		Address:     draft.Address,
		CreditLimit: draft.CreditLimit,
	}, nil
}

func (f *fakeLedger) DecrementInventory(_ context.Context, sku string, quantity int) error {
	f.calls = append(f.calls, "decrement:"+sku)
	if f.stockErr != nil {
		return f.stockErr
	}
	f.decrements[sku] += quantity
	return nil
}

func (f *fakeLedger) IncreaseOpenReceivables(_ context.Context, customerID string, amount float64) error {
	f.calls = append(f.calls, "receivables:"+customerID)
	if f.arErr != nil {
		return f.arErr
	}
	f.receivables += amount
	return nil
}

func (f *fakeLedger) RenderInvoice(_ context.Context, order EnrichedOrder, _ OrderTotals) (InvoiceRef, error) {
	f.calls = append(f.calls, "render-invoice")
	if f.invoiceErr != nil {
		return InvoiceRef{}, f.invoiceErr
	}
	return InvoiceRef{Number: "INV-" + order.MessageID, Location: "/invoices/" + order.MessageID + ".html"}, nil
}

func (f *fakeLedger) Reply(_ context.Context, _ string, body string, _ string) error {
	f.calls = append(f.calls, "mail")
	if f.mailErr != nil {
		return f.mailErr
	}
	f.mailBodies = append(f.mailBodies, body)
	return nil
}

func testFulfillmentStage(ledger *fakeLedger) *FulfillmentStage {
	stage := NewFulfillmentStage(ledger, ledger, ledger, sequentialIDGenerator(), fixedClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)))
	stage.logf = func(string, ...any) {}
	return stage
}

func approvedDecision(order EnrichedOrder) Decision {
	return Decision{Status: StatusFulfillable, Reason: "all lines in stock and credit available", Order: order}
}

func TestFulfillmentStageFulfill(t *testing.T) {
	t.Run("existing customer happy path", func(t *testing.T) {
		ledger := newFakeLedger()
		stage := testFulfillmentStage(ledger)
		receipt, err := stage.Fulfill(context.Background(), approvedDecision(testEnrichedOrder()), ApprovalApproved)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !receipt.OK {
			t.Fatal("expected ok receipt")
		}
		if !strings.HasPrefix(receipt.OrderID, "PO-C-1001-") {
			t.Errorf("unexpected order id %q", receipt.OrderID)
		}
		if receipt.InvoiceRef != "INV-msg-1" {
			t.Errorf("unexpected invoice ref %q", receipt.InvoiceRef)
		}

		want := []string{"render-invoice", "mail", "decrement:SKU-100", "decrement:SKU-200", "receivables:C-1001"}
		if len(ledger.calls) != len(want) {
			t.Fatalf("expected calls %v, got %v", want, ledger.calls)
		}
		for i := range want {
			if ledger.calls[i] != want[i] {
				t.Fatalf("expected calls %v, got %v", want, ledger.calls)
			}
		}
		if ledger.decrements["SKU-100"] != 100 || ledger.decrements["SKU-200"] != 10 {
			t.Errorf("unexpected decrements: %v", ledger.decrements)
		}
		wantTotal := ComputeTotals(testEnrichedOrder()).GrandTotal
		if ledger.receivables != wantTotal {
			t.Errorf("expected receivables %.2f, got %.2f", wantTotal, ledger.receivables)
		}
	})

	t.Run("placeholder customer is created first with starter credit", func(t *testing.T) {
		ledger := newFakeLedger()
		stage := testFulfillmentStage(ledger)
		order := testEnrichedOrder()
		order.Customer.ID = PlaceholderCustomerID
		receipt, err := stage.Fulfill(context.Background(), approvedDecision(order), ApprovalApproved)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ledger.calls[0] != "create-customer" {
			t.Fatalf("expected customer created first, calls: %v", ledger.calls)
		}
		if len(ledger.created) != 1 || ledger.created[0].CreditLimit != StarterCreditLimit {
			t.Errorf("expected starter credit limit %.2f, got %+v", StarterCreditLimit, ledger.created)
		}
		if ledger.calls[len(ledger.calls)-1] != "receivables:C-5001" {
			t.Errorf("expected receivables against created customer, calls: %v", ledger.calls)
		}
		if !strings.HasPrefix(receipt.OrderID, "PO-C-5001-") {
			t.Errorf("expected order id against created customer, got %q", receipt.OrderID)
		}
	})

	t.Run("failed confirmation blocks inventory and credit mutations", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.mailErr = errors.New("smtp down")
		stage := testFulfillmentStage(ledger)
		receipt, err := stage.Fulfill(context.Background(), approvedDecision(testEnrichedOrder()), ApprovalApproved)
		if err == nil {
			t.Fatal("expected error")
		}
		if receipt.OK {
			t.Error("expected failed receipt")
		}
		for _, call := range ledger.calls {
			if strings.HasPrefix(call, "decrement:") || strings.HasPrefix(call, "receivables:") {
				t.Fatalf("store mutated after failed confirmation: %v", ledger.calls)
			}
		}
	})

	t.Run("failed invoice blocks the confirmation", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.invoiceErr = errors.New("template broken")
		stage := testFulfillmentStage(ledger)
		if _, err := stage.Fulfill(context.Background(), approvedDecision(testEnrichedOrder()), ApprovalApproved); err == nil {
			t.Fatal("expected error")
		}
		for _, call := range ledger.calls {
			if call == "mail" {
				t.Fatalf("confirmation sent despite invoice failure: %v", ledger.calls)
			}
		}
	})

	t.Run("requires a fulfillable decision", func(t *testing.T) {
		ledger := newFakeLedger()
		stage := testFulfillmentStage(ledger)
		decision := Decision{Status: StatusUnfulfillable, Reason: "insufficient credit", Order: testEnrichedOrder()}
		if _, err := stage.Fulfill(context.Background(), decision, ApprovalApproved); !errors.Is(err, ErrNotFulfillable) {
			t.Fatalf("expected ErrNotFulfillable, got %v", err)
		}
		if len(ledger.calls) != 0 {
			t.Errorf("expected no collaborator calls, got %v", ledger.calls)
		}
	})

	t.Run("requires an approved outcome", func(t *testing.T) {
		ledger := newFakeLedger()
		stage := testFulfillmentStage(ledger)
		for _, outcome := range []ApprovalOutcome{ApprovalDenied, ApprovalTimedOut, ApprovalFailed} {
			if _, err := stage.Fulfill(context.Background(), approvedDecision(testEnrichedOrder()), outcome); !errors.Is(err, ErrNotApproved) {
				t.Fatalf("outcome %s: expected ErrNotApproved, got %v", outcome, err)
			}
		}
		if len(ledger.calls) != 0 {
			t.Errorf("expected no collaborator calls, got %v", ledger.calls)
		}
	})

	t.Run("missing store", func(t *testing.T) {
		stage := NewFulfillmentStage(nil, nil, nil, nil, nil)
		if _, err := stage.Fulfill(context.Background(), approvedDecision(testEnrichedOrder()), ApprovalApproved); !errors.Is(err, ErrStoreNotConfigured) {
			t.Fatalf("expected ErrStoreNotConfigured, got %v", err)
		}
	})
}
