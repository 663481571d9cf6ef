package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/paperco/orderdesk/internal/platform/id"
)

var (
	// ErrNotFulfillable indicates fulfillment was invoked for an order the
	// decision stage did not clear.
	ErrNotFulfillable = errors.New("order is not fulfillable")
	// ErrNotApproved indicates fulfillment was invoked without an approved
	// outcome from the approval gate.
	ErrNotApproved = errors.New("order is not approved")
	// ErrStoreNotConfigured indicates the stage is missing its record store.
	ErrStoreNotConfigured = errors.New("record store is not configured")
)

// CustomerDraft carries the fields needed to create a directory record
// for a buyer the enrichment could not resolve.
type CustomerDraft struct {
	Name        string
	Email       string
	Address     string
	CreditLimit float64
}

// RecordStore is the fulfillment-side boundary to the customer and
// product directory. Mutations are applied directly, with no local
// caching; the pipeline's sequential loop is the concurrency control.
type RecordStore interface {
	CreateCustomer(ctx context.Context, draft CustomerDraft) (Customer, error)
	DecrementInventory(ctx context.Context, sku string, quantity int) error
	IncreaseOpenReceivables(ctx context.Context, customerID string, amount float64) error
}

// InvoiceRef identifies a rendered invoice artifact.
type InvoiceRef struct {
	Number   string
	Location string
	Grant    string
}

// InvoiceRenderer produces the invoice artifact for a fulfilled order.
type InvoiceRenderer interface {
	RenderInvoice(ctx context.Context, order EnrichedOrder, totals OrderTotals) (InvoiceRef, error)
}

// Mailer sends outbound notices in reply to the original message.
type Mailer interface {
	Reply(ctx context.Context, messageID string, body string, attachment string) error
}

// FulfillmentReceipt reports the terminal state of a fulfillment run.
// It is produced once per order and never retried automatically.
type FulfillmentReceipt struct {
	OK         bool
	OrderID    string
	InvoiceRef string
}

// FulfillmentStage commits the side effects of an approved order. Each
// step is its own idempotency unit: a failure stops the sequence and is
// logged with enough context for an operator to resume manually.
type FulfillmentStage struct {
	store    RecordStore
	invoices InvoiceRenderer
	mailer   Mailer
	newID    func() (string, error)
	clock    func() time.Time
	logf     func(format string, args ...any)
}

// NewFulfillmentStage constructs a fulfillment stage.
func NewFulfillmentStage(store RecordStore, invoices InvoiceRenderer, mailer Mailer, newID func() (string, error), clock func() time.Time) *FulfillmentStage {
	if newID == nil {
		newID = id.NewID
	}
	if clock == nil {
		clock = time.Now
	}
	return &FulfillmentStage{
		store:    store,
		invoices: invoices,
		mailer:   mailer,
		newID:    newID,
		clock:    clock,
		logf:     log.Printf,
	}
}

// Fulfill runs the side-effect sequence for one approved order:
// create the customer if needed, render the invoice, send the
// confirmation, then decrement inventory and raise open receivables.
// Inventory and credit are touched only after the confirmation went
// out, so a failed notice never leaves the store mutated.
func (s *FulfillmentStage) Fulfill(ctx context.Context, decision Decision, approval ApprovalOutcome) (FulfillmentReceipt, error) {
	if s == nil || s.store == nil {
		return FulfillmentReceipt{}, ErrStoreNotConfigured
	}
	if decision.Status != StatusFulfillable {
		return FulfillmentReceipt{}, ErrNotFulfillable
	}
	if approval != ApprovalApproved {
		return FulfillmentReceipt{}, ErrNotApproved
	}

	order := decision.Order
	totals := ComputeTotals(order)

	if order.Customer.New() {
		created, err := s.store.CreateCustomer(ctx, CustomerDraft{
			Name:        order.Customer.Name,
			Email:       order.Customer.Email,
			Address:     order.Customer.Address,
			CreditLimit: StarterCreditLimit,
		})
		if err != nil {
			return s.fail(order, "create customer", err)
		}
		created.OpenReceivables = 0
		order.Customer = created
		totals = ComputeTotals(order)
		s.logf("fulfillment message=%s step=create-customer customer=%s", order.MessageID, created.ID)
	}

	invoice, err := s.invoices.RenderInvoice(ctx, order, totals)
	if err != nil {
		return s.fail(order, "render invoice", err)
	}
	s.logf("fulfillment message=%s step=render-invoice invoice=%s", order.MessageID, invoice.Number)

	confirmation := formatConfirmation(order, totals, invoice)
	if err := s.mailer.Reply(ctx, order.MessageID, confirmation, invoice.Location); err != nil {
		return s.fail(order, "send confirmation", err)
	}
	s.logf("fulfillment message=%s step=send-confirmation", order.MessageID)

	for _, line := range order.Lines {
		if err := s.store.DecrementInventory(ctx, line.SKU, line.Requested); err != nil {
			return s.fail(order, fmt.Sprintf("decrement inventory %s", line.SKU), err)
		}
	}
	s.logf("fulfillment message=%s step=decrement-inventory lines=%d", order.MessageID, len(order.Lines))

	if err := s.store.IncreaseOpenReceivables(ctx, order.Customer.ID, totals.GrandTotal); err != nil {
		return s.fail(order, "increase receivables", err)
	}
	s.logf("fulfillment message=%s step=increase-receivables amount=%.2f", order.MessageID, totals.GrandTotal)

	orderID, err := s.orderID(order.Customer.ID)
	if err != nil {
		return s.fail(order, "generate order id", err)
	}
	return FulfillmentReceipt{OK: true, OrderID: orderID, InvoiceRef: invoice.Number}, nil
}

// fail logs the failed step with the message id so an operator can
// resume manually, and preserves the cause in the returned error.
func (s *FulfillmentStage) fail(order EnrichedOrder, step string, err error) (FulfillmentReceipt, error) {
	s.logf("fulfillment message=%s step=%s failed: %v", order.MessageID, step, err)
	return FulfillmentReceipt{OK: false}, fmt.Errorf("%s: %w", step, err)
}

func (s *FulfillmentStage) orderID(customerID string) (string, error) {
	suffix, err := s.newID()
	if err != nil {
		return "", err
	}
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("PO-%s-%s", customerID, suffix), nil
}

func formatConfirmation(order EnrichedOrder, totals OrderTotals, invoice InvoiceRef) string {
	var b strings.Builder
	name := strings.TrimSpace(order.Customer.Name)
	if name == "" {
		name = "Valued Customer"
	}
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	fmt.Fprintf(&b, "Your purchase order has been confirmed. We are processing %d item(s) with a total of %s.\n\n", len(order.Lines), FormatEUR(totals.GrandTotal))
	fmt.Fprintf(&b, "Invoice %s is attached.", invoice.Number)
	if invoice.Grant != "" {
		fmt.Fprintf(&b, " You can also download it with the access token included in this message.")
	}
	fmt.Fprintf(&b, "\n\nWe'll notify you once your order ships.\n\nBest regards,\nPaperCo Operations")
	return b.String()
}
