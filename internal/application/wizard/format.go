package wizard

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Report display defaults
const (
	DefaultLocale   = "en-CA"
	DefaultCurrency = "CAD"
)

// MoneyFormatter renders whole-currency amounts for a locale, e.g. "$12,345"
type MoneyFormatter struct {
	printer *message.Printer
	symbol  string
}

// NewMoneyFormatter creates a formatter for a BCP 47 locale and an ISO 4217 currency code
func NewMoneyFormatter(locale, currencyCode string) (*MoneyFormatter, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	if currencyCode == "" {
		currencyCode = DefaultCurrency
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid report locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("invalid report currency %q: %w", currencyCode, err)
	}
	printer := message.NewPrinter(tag)
	return &MoneyFormatter{
		printer: printer,
		symbol:  printer.Sprint(currency.Symbol(unit)),
	}, nil
}

// Format rounds d to a whole amount and renders it with grouping and the currency symbol
func (f *MoneyFormatter) Format(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	return sign + f.symbol + f.printer.Sprint(number.Decimal(d.Round(0).IntPart()))
}
