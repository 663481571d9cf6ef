package domain

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// euroPrinter formats amounts with German digit grouping, matching the
// EUR-denominated catalog and customer directory.
var euroPrinter = message.NewPrinter(language.German)

// FormatEUR renders an amount as a localized EUR money string.
func FormatEUR(amount float64) string {
	return euroPrinter.Sprintf("EUR %.2f", amount)
}
