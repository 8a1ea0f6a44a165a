// Package format renders amounts for display in summaries and notes.
package format

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	p := message.NewPrinter(language.English)
	if amount < 0 {
		return p.Sprintf("-$%.2f", -amount)
	}
	return p.Sprintf("$%.2f", amount)
}

// Percent returns a percentage with two decimals (e.g., "42.50%").
func Percent(value float64) string {
	return fmt.Sprintf("%.2f%%", value)
}
