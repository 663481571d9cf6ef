package domain

import "fmt"

// DecisionStatus classifies whether an order can be fulfilled.
type DecisionStatus string

const (
	// StatusFulfillable marks orders that pass every business rule.
	StatusFulfillable DecisionStatus = "FULFILLABLE"
	// StatusUnfulfillable marks orders blocked by stock or credit.
	StatusUnfulfillable DecisionStatus = "UNFULFILLABLE"
)

// Decision is the outcome of the business-rule evaluation. The enriched
// order is carried forward unchanged so downstream stages work from the
// same payload the decision was made on.
type Decision struct {
	Status DecisionStatus
	Reason string
	Order  EnrichedOrder
}

// DecisionPolicy configures the one deliberately open rule: whether a
// placeholder customer blocks fulfillment or is created later during
// fulfillment. The default defers creation.
type DecisionPolicy struct {
	BlockNewCustomers bool
}

// Decide classifies an enriched order. Stock is checked before credit,
// in line order, and the reason names the first failing condition so
// the audit trail pinpoints what blocked the order.
func Decide(order EnrichedOrder, policy DecisionPolicy) Decision {
	totals := ComputeTotals(order)

	for i, line := range totals.Lines {
		if line.InStock {
			continue
		}
		requested := order.Lines[i].Requested
		available := order.Lines[i].Available
		return Decision{
			Status: StatusUnfulfillable,
			Reason: fmt.Sprintf("insufficient stock for %s: requested %d, available %d", line.SKU, requested, available),
			Order:  order,
		}
	}
	if !totals.CreditOK {
		return Decision{
			Status: StatusUnfulfillable,
			Reason: fmt.Sprintf("insufficient credit: available %.2f, order total %.2f", totals.AvailableCredit, totals.GrandTotal),
			Order:  order,
		}
	}
	if policy.BlockNewCustomers && order.Customer.New() {
		return Decision{
			Status: StatusUnfulfillable,
			Reason: "customer record does not exist yet",
			Order:  order,
		}
	}
	return Decision{
		Status: StatusFulfillable,
		Reason: "all lines in stock and credit available",
		Order:  order,
	}
}
