// Package money renders integer minor-unit amounts for display.
package money

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const DefaultCurrency = "usd"

type FormatFunc func(amount int64) string

type Formatter struct {
	currency string
	symbol   string
	format   FormatFunc
	printer  *message.Printer
}

func GuessSymbol(cur string) (string, error) {
	switch strings.ToLower(cur) {
	case "usd", "aud", "cad":
		return "$", nil
	case "eur":
		return "€", nil
	case "gbp":
		return "£", nil
	}

	return "", fmt.Errorf("unable to guess symbol for currency %q, specify it explicitly", cur)
}

// NewFormatter builds a formatter for cur. An empty symbol is guessed from
// the currency code.
func NewFormatter(cur, symbol string) (*Formatter, error) {
	if cur == "" {
		cur = DefaultCurrency
	}
	cur = strings.ToLower(cur)

	if _, err := currency.ParseISO(strings.ToUpper(cur)); err != nil {
		return nil, fmt.Errorf("invalid currency %q: %s", cur, err)
	}

	if symbol == "" {
		var err error
		if symbol, err = GuessSymbol(cur); err != nil {
			return nil, err
		}
	}

	return &Formatter{
		currency: cur,
		symbol:   symbol,
		printer:  message.NewPrinter(language.English),
	}, nil
}

func (f Formatter) Currency() string {
	return f.currency
}

func (f Formatter) Symbol() string {
	return f.symbol
}

// WithFormatFunc returns a copy of f that renders amounts with ff.
func (f Formatter) WithFormatFunc(ff FormatFunc) *Formatter {
	f.format = ff
	return &f
}

// Format renders 123456 as "$1,234.56" and -500 as "-$5.00".
func (f Formatter) Format(amount int64) string {
	if f.format != nil {
		return f.format(amount)
	}

	s := f.printer.Sprint(number.Decimal(float64(amount)/100, number.Scale(2)))
	if strings.HasPrefix(s, "-") {
		return "-" + f.symbol + strings.TrimLeft(s, "-")
	}

	return f.symbol + s
}
