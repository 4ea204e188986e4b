package currency

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrUnknownCurrency means no rate is loaded for a currency code.
var ErrUnknownCurrency = errors.New("unknown currency")

// Rates maps a currency code to units of that currency per one unit of the
// base currency.
type Rates map[string]float64

// ToBase converts an original-currency amount into the base currency using
// the rate for that code. A zero rate means the rate was never loaded.
func ToBase(amount float64, code string, rate float64) (float64, error) {
	if rate == 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, code)
	}
	return amount / rate, nil
}

// Convert converts between two arbitrary currencies through the base
// currency. Rounding happens at display/aggregation edges, never here, so a
// chain of conversions does not compound rounding error.
//
// A missing rate falls back to 1. That keeps a half-loaded snapshot from
// zeroing amounts, but it is a data-quality problem, not a business rate.
func Convert(amount float64, from, to string, rates Rates, base string) float64 {
	if from == to {
		return amount
	}

	inBase := amount
	if from != base {
		if r, ok := rates[from]; ok && r != 0 {
			inBase = amount / r
		}
	}

	if to == base {
		return inBase
	}
	rate, ok := rates[to]
	if !ok || rate == 0 {
		rate = 1
	}
	return inBase * rate
}

// RoundTo rounds to two decimal places for display and aggregation.
func RoundTo(x float64) float64 {
	return math.Round(x*100) / 100
}

// RateSource supplies rate snapshots; the actual provider is an external
// collaborator.
type RateSource interface {
	Rates(ctx context.Context) (Rates, error)
}

// StaticSource is a RateSource backed by a fixed snapshot, typically fed
// from configuration.
type StaticSource Rates

// Rates implements RateSource.
func (s StaticSource) Rates(context.Context) (Rates, error) {
	return Rates(s), nil
}

// Converter binds a RateSource and a base currency into the async
// convert(from, to, amount) collaborator shape the UI consumes.
type Converter struct {
	Source RateSource
	Base   string
}

// Convert resolves a snapshot from the source and converts through the base
// currency.
func (c *Converter) Convert(ctx context.Context, from, to string, amount float64) (float64, error) {
	rates, err := c.Source.Rates(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading rates: %w", err)
	}
	return Convert(amount, from, to, rates, c.Base), nil
}
