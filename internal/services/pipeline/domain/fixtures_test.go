package domain

import (
	"fmt"
	"time"
)

// testEnrichedOrder returns a two-line order for an established
// customer with comfortable credit headroom.
func testEnrichedOrder() EnrichedOrder {
	return EnrichedOrder{
		MessageID: "msg-1",
		Customer: Customer{
			ID:              "C-1001",
			Name:            "Baumarkt Nord GmbH",
			Email:           "orders@baumarkt-nord.example",
			Address:         "Hafenstr. 12, Hamburg",
			CreditLimit:     10000,
			OpenReceivables: 1000,
		},
		Lines: []ResolvedLine{
			{SKU: "SKU-100", Name: "Copy paper A4", UnitPrice: 4.5, VATRate: 0.19, Available: 200, Requested: 100},
			{SKU: "SKU-200", Name: "Ballpoint pens", UnitPrice: 1.2, VATRate: 0.07, Available: 50, Requested: 10},
		},
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequentialIDGenerator() func() (string, error) {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("id%08d", n), nil
	}
}
