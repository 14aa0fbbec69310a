package data

import (
	"math"
	"math/rand"
	"time"
)

// syntheticQuoteProvider implements Provider generating synthetic data.
//
// Bars follow a seeded random walk so runs are reproducible: the same
// seed yields the same series.
type syntheticQuoteProvider struct {
	rng       *rand.Rand
	secondary Provider
}

// NewSyntheticProvider returns a Provider generating a random-walk bar
// series from the given seed.
func NewSyntheticProvider(seed int64) Provider {
	return &syntheticQuoteProvider{rng: rand.New(rand.NewSource(seed))}
}

func (synthQuoteProv *syntheticQuoteProvider) Secondary() Provider {
	return synthQuoteProv.secondary
}

func (synthQuoteProv *syntheticQuoteProvider) GetBars(symbol string, fromDate, toDate time.Time) ([]Bar, error) {
	rng := synthQuoteProv.rng
	cur := fromDate
	price := 100.0 + float64(rng.Intn(200))
	var out []Bar
	for !cur.After(toDate) {
		if cur.Weekday() != time.Saturday && cur.Weekday() != time.Sunday {
			delta := rng.NormFloat64() * 0.01 * price
			open := price
			close := price + delta
			high := math.Max(open, close) + math.Abs(rng.NormFloat64()*0.3)
			low := math.Min(open, close) - math.Abs(rng.NormFloat64()*0.3)
			out = append(out, Bar{Date: cur, Open: open, High: high, Low: low, Close: close, Vol: float64(1000 + rng.Intn(5000))})
			price = close
		}
		cur = cur.AddDate(0, 0, 1)
	}
	return out, nil
}
