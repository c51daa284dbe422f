package shared

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatMoney renders an amount as a dollar figure with grouping
// separators, e.g. "$1,234.56". Used in flash messages and summaries.
func FormatMoney(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return moneyPrinter.Sprintf("$%.2f", f)
}

// FormatAmount renders a bare two-decimal amount, e.g. "1234.56".
// CSV exports use this form.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
