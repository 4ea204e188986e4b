// Package currency holds the static currency registry and the conversion
// rules used by the balance engine. All conversions run against a rates
// snapshot mapping a currency code to units of that currency per one unit of
// the base currency.
package currency

import (
	"sort"

	"github.com/Rhymond/go-money"
)

// Currency is immutable reference data, looked up by code from the registry.
type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// names lists the currencies the tracker supports. Symbols come from the
// go-money currency table at init time.
var names = map[string]string{
	"EUR": "Euro",
	"USD": "US Dollar",
	"GBP": "British Pound",
	"CHF": "Swiss Franc",
	"CZK": "Czech Koruna",
	"PLN": "Polish Zloty",
	"SEK": "Swedish Krona",
	"NOK": "Norwegian Krone",
	"JPY": "Japanese Yen",
	"CAD": "Canadian Dollar",
	"AUD": "Australian Dollar",
	"UAH": "Ukrainian Hryvnia",
}

var registry = buildRegistry()

func buildRegistry() map[string]Currency {
	reg := make(map[string]Currency, len(names))
	for code, name := range names {
		symbol := code
		if mc := money.GetCurrency(code); mc != nil {
			symbol = mc.Grapheme
		}
		reg[code] = Currency{Code: code, Symbol: symbol, Name: name}
	}
	return reg
}

// Lookup returns the currency for the given code.
func Lookup(code string) (Currency, bool) {
	c, ok := registry[code]
	return c, ok
}

// Registry returns all supported currencies sorted by code.
func Registry() []Currency {
	out := make([]Currency, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
