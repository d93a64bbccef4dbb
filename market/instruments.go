package market

import (
	"math"
	"strings"
)

// InstrumentMeta describes the broker-declared trading constraints for one
// instrument. Live metadata comes from the broker's instrument endpoint;
// the built-in table below covers the majors for offline use and tests.
type InstrumentMeta struct {
	Name                string
	BaseCurrency        string
	QuoteCurrency       string
	PipLocation         int
	DisplayPrecision    int
	TradeUnitsPrecision int
	MinimumTradeSize    float64
	MaximumOrderUnits   float64
	MarginRate          float64
}

// PipSize returns the price increment of one pip for this instrument.
func (m InstrumentMeta) PipSize() float64 {
	return PipSize(m.PipLocation)
}

// PipSize returns the pip size for a given pip location, e.g. -4 -> 0.0001.
func PipSize(loc int) float64 {
	return math.Pow(10, float64(loc))
}

// BaseCurrency returns the currency code before the instrument separator
// ("EUR_USD" -> "EUR"). Instruments without a separator return the whole
// identifier, which keeps correlation grouping total.
func BaseCurrency(instrument string) string {
	if i := strings.IndexByte(instrument, '_'); i > 0 {
		return instrument[:i]
	}
	return instrument
}

var defaultMeta = func(name, base, quote string, pipLoc int) InstrumentMeta {
	return InstrumentMeta{
		Name:                name,
		BaseCurrency:        base,
		QuoteCurrency:       quote,
		PipLocation:         pipLoc,
		DisplayPrecision:    -pipLoc + 1,
		TradeUnitsPrecision: 0,
		MinimumTradeSize:    1,
		MaximumOrderUnits:   100_000_000,
		MarginRate:          0.0333,
	}
}

// Instruments is the built-in metadata table for the pairs the bot scans.
// The broker's own metadata, when reachable, takes precedence.
var Instruments = map[string]InstrumentMeta{
	"EUR_USD": defaultMeta("EUR_USD", "EUR", "USD", -4),
	"GBP_USD": defaultMeta("GBP_USD", "GBP", "USD", -4),
	"USD_JPY": defaultMeta("USD_JPY", "USD", "JPY", -2),
	"USD_CAD": defaultMeta("USD_CAD", "USD", "CAD", -4),
	"AUD_USD": defaultMeta("AUD_USD", "AUD", "USD", -4),
	"NZD_USD": defaultMeta("NZD_USD", "NZD", "USD", -4),
	"EUR_GBP": defaultMeta("EUR_GBP", "EUR", "GBP", -4),
	"USD_CHF": defaultMeta("USD_CHF", "USD", "CHF", -4),
}

// Lookup returns the built-in metadata for instrument, falling back to
// conservative EUR_USD-style defaults for unknown pairs so sizing still has
// sane constraints to work with.
func Lookup(instrument string) InstrumentMeta {
	if m, ok := Instruments[instrument]; ok {
		return m
	}
	parts := strings.SplitN(instrument, "_", 2)
	base, quote := instrument, ""
	if len(parts) == 2 {
		base, quote = parts[0], parts[1]
	}
	pipLoc := -4
	if quote == "JPY" {
		pipLoc = -2
	}
	return defaultMeta(instrument, base, quote, pipLoc)
}

// QuoteToAccountRate converts a quote-currency amount into the account
// currency. For a USD account trading EUR_USD this is 1.0; for USD_JPY it is
// 1/mid. Cross pairs fall back to 1.0, which overstates pip value by the
// cross rate; the sizing margin checks keep this conservative enough.
func QuoteToAccountRate(meta InstrumentMeta, accountCurrency string, mid float64) float64 {
	if meta.QuoteCurrency == accountCurrency {
		return 1.0
	}
	if meta.BaseCurrency == accountCurrency && mid > 0 {
		return 1.0 / mid
	}
	return 1.0
}
