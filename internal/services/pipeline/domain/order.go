package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMessageIDRequired indicates a parsed order lost its message reference.
	ErrMessageIDRequired = errors.New("order message id is required")
	// ErrNoLineItems indicates a parsed order carries no line requests.
	ErrNoLineItems = errors.New("order has no line items")
	// ErrInvalidQuantity indicates a line request quantity is not positive.
	ErrInvalidQuantity = errors.New("line quantity must be greater than zero")
)

// Buyer captures the identity fields extracted from a purchase-order email.
type Buyer struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	BillingAddress  string `json:"billing_address"`
	ShippingAddress string `json:"shipping_address"`
}

// LineRequest is one ordered line as written by the buyer: free-form
// product wording plus a requested quantity.
type LineRequest struct {
	ProductText string `json:"product_text"`
	Quantity    int    `json:"quantity"`
}

// ParsedOrder is the structured extraction of a purchase-order email.
// Extraction decodes it strictly: unknown fields are rejected at the
// boundary so malformed model output cannot smuggle data downstream.
type ParsedOrder struct {
	MessageID string        `json:"message_id"`
	Buyer     Buyer         `json:"buyer"`
	Lines     []LineRequest `json:"lines"`
}

// Validate checks the structural invariants extraction must satisfy.
func (o ParsedOrder) Validate() error {
	if strings.TrimSpace(o.MessageID) == "" {
		return ErrMessageIDRequired
	}
	if len(o.Lines) == 0 {
		return ErrNoLineItems
	}
	for i, line := range o.Lines {
		if line.Quantity <= 0 {
			return fmt.Errorf("line %d (%q): %w", i, line.ProductText, ErrInvalidQuantity)
		}
	}
	return nil
}

// PlaceholderCustomerID marks an enriched order whose customer did not
// resolve against the directory; fulfillment creates the record later.
const PlaceholderCustomerID = "NEW"

// Customer is the resolved account an enriched order bills against.
type Customer struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Address         string  `json:"address"`
	CreditLimit     float64 `json:"credit_limit"`
	OpenReceivables float64 `json:"open_receivables"`
}

// New reports whether the customer is a placeholder pending creation.
func (c Customer) New() bool {
	return strings.TrimSpace(c.ID) == "" || c.ID == PlaceholderCustomerID
}

// ResolvedLine is one order line matched against the catalog.
type ResolvedLine struct {
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	VATRate   float64 `json:"vat_rate"`
	Available int     `json:"available"`
	Requested int     `json:"requested"`
}

// EnrichedOrder is a parsed order resolved against the catalog and the
// customer directory. Financial projections (line subtotals, totals,
// credit headroom) are not stored here; callers derive them through
// ComputeTotals so every stage sees consistent numbers.
type EnrichedOrder struct {
	MessageID string         `json:"message_id"`
	Customer  Customer       `json:"customer"`
	Lines     []ResolvedLine `json:"lines"`
}
