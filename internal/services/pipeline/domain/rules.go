package domain

// Pricing constants shared by every stage that derives money figures.
const (
	// ShippingFee is the flat shipping charge applied to non-empty orders.
	ShippingFee = 25.0
	// DefaultVATRate applies when the catalog carries no rate for a line.
	DefaultVATRate = 0.19
	// StarterCreditLimit is granted to customers created during fulfillment.
	StarterCreditLimit = 3000.0
)

// LineTotals is the derived view of one resolved line.
type LineTotals struct {
	SKU      string
	Subtotal float64
	InStock  bool
}

// OrderTotals is the derived financial view of an enriched order. It is
// a pure projection: recomputing it on unchanged input always yields
// identical values.
type OrderTotals struct {
	Lines           []LineTotals
	Subtotal        float64
	Tax             float64
	Shipping        float64
	GrandTotal      float64
	AvailableCredit float64
	CreditOK        bool
}

// AllInStock reports whether every line can be filled from stock.
func (t OrderTotals) AllInStock() bool {
	for _, line := range t.Lines {
		if !line.InStock {
			return false
		}
	}
	return true
}

// ComputeTotals derives all financial projections for an enriched
// order. VAT is applied per line, so a mixed-jurisdiction catalog taxes
// each line at its own rate. Shipping is charged only when the order is
// non-empty. An order with zero lines trivially satisfies the credit
// check.
func ComputeTotals(order EnrichedOrder) OrderTotals {
	totals := OrderTotals{
		AvailableCredit: order.Customer.CreditLimit - order.Customer.OpenReceivables,
	}
	for _, line := range order.Lines {
		vatRate := line.VATRate
		if vatRate == 0 {
			vatRate = DefaultVATRate
		}
		subtotal := float64(line.Requested) * line.UnitPrice
		totals.Lines = append(totals.Lines, LineTotals{
			SKU:      line.SKU,
			Subtotal: subtotal,
			InStock:  line.Available >= line.Requested,
		})
		totals.Subtotal += subtotal
		totals.Tax += subtotal * vatRate
	}
	if totals.Subtotal > 0 {
		totals.Shipping = ShippingFee
	}
	totals.GrandTotal = totals.Subtotal + totals.Tax + totals.Shipping
	totals.CreditOK = totals.AvailableCredit >= totals.GrandTotal
	return totals
}
