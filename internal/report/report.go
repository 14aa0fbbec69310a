// Package report writes batch pricing results to disk as JSON and CSV.
package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/contactkeval/option-pricer/internal/engine"
)

// WriteJSON writes the full result, untruncated, to prices.json.
func WriteJSON(res *engine.Result, outdir string) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outdir, "prices.json"), b, 0644)
}

// WriteCSV writes one row per priced scenario to prices.csv. Money
// columns are rounded to cents; parameter columns keep full precision.
func WriteCSV(rows []engine.Row, outdir string) error {
	f, err := os.Create(filepath.Join(outdir, "prices.csv"))
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	headers := []string{"label", "symbol", "asset", "strike", "expiry", "rate", "volatility", "steps", "price", "reference", "parity_put", "error"}
	if err := w.Write(headers); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Label,
			r.Symbol,
			cents(r.Params.Asset),
			cents(r.Params.Strike),
			strconv.FormatFloat(r.Params.Expiry, 'g', -1, 64),
			strconv.FormatFloat(r.Params.Rate, 'g', -1, 64),
			strconv.FormatFloat(r.Params.Volatility, 'g', -1, 64),
			strconv.Itoa(r.Steps),
			cents(r.Price),
			cents(r.Reference),
			cents(r.ParityPut),
			r.Err,
		}
		_ = w.Write(rec)
	}
	return nil
}

// cents formats a money amount rounded to two decimal places.
func cents(v float64) string {
	return decimal.NewFromFloat(v).Round(2).StringFixed(2)
}
