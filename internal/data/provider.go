package data

import (
	"fmt"
	"time"

	"github.com/contactkeval/option-pricer/internal/pricing"
)

// Provider supplies market data used to fill in pricing scenarios: daily
// bars for an underlying symbol, from which the engine derives the spot
// price and a realized volatility estimate.
//
// Providers may chain: a provider that cannot serve a request delegates
// to its Secondary() when one is configured.
type Provider interface {
	Secondary() Provider
	GetBars(symbol string, fromDate, toDate time.Time) ([]Bar, error)
}

// Bar simplified OHLC
type Bar struct {
	Date  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
	Vol   float64
}

// Scenario is one batch pricing request. Either the option parameters
// are given in full, or Symbol names an underlying whose spot price (and
// volatility, when omitted) the engine resolves through a Provider
// before pricing.
type Scenario struct {
	Label  string `json:"label,omitempty"`  // human-readable row identifier
	Symbol string `json:"symbol,omitempty"` // underlying to resolve spot/vol from

	pricing.OptionParameters

	Steps int `json:"steps,omitempty"` // lattice resolution override, 0 = engine default
}

// --------------------------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------------------------

// LastClose returns the close of the most recent bar.
func LastClose(bars []Bar) (float64, error) {
	if len(bars) == 0 {
		return 0, fmt.Errorf("no bars available")
	}
	return bars[len(bars)-1].Close, nil
}

// Closes extracts the close prices of a bar series in order.
func Closes(bars []Bar) []float64 {
	out := make([]float64, 0, len(bars))
	for _, b := range bars {
		out = append(out, b.Close)
	}
	return out
}
