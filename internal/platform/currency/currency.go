// Package currency formats rand amounts for user-facing ledger descriptions.
package currency

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Rand formats a whole rand amount with the currency marker and digit
// grouping, e.g. 2500 -> "R2,500". Negative amounts keep the sign before
// the marker.
func Rand(amount int64) string {
	if amount < 0 {
		return printer.Sprintf("-R%d", -amount)
	}
	return printer.Sprintf("R%d", amount)
}
