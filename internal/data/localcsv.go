package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/contactkeval/option-pricer/internal/logger"
	"github.com/contactkeval/option-pricer/internal/pricing"
)

// csvQuoteProvider implements Provider from local CSV files.
//
// Bars for a symbol live in <dir>/<SYMBOL>.csv with a header row of
// date,open,high,low,close,volume and dates formatted 2006-01-02.
type csvQuoteProvider struct {
	dir       string
	secondary Provider
}

// NewCSVQuoteProvider convenience constructor.
func NewCSVQuoteProvider(dir string, secondary Provider) *csvQuoteProvider {
	return &csvQuoteProvider{dir: dir, secondary: secondary}
}

func (csvQuoteProv *csvQuoteProvider) Secondary() Provider {
	return csvQuoteProv.secondary
}

func (csvQuoteProv *csvQuoteProvider) GetBars(symbol string, fromDate, toDate time.Time) ([]Bar, error) {
	path := filepath.Join(csvQuoteProv.dir, strings.ToUpper(symbol)+".csv")

	f, err := os.Open(path)
	if err != nil {
		if csvQuoteProv.secondary != nil {
			logger.Debugf("no local bars for %s, delegating to secondary", symbol)
			return csvQuoteProv.secondary.GetBars(symbol, fromDate, toDate)
		}
		return nil, fmt.Errorf("opening bars file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading bars header: %w", err)
	}
	col := columnIndex(header)

	var out []Bar
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading bars row: %w", err)
		}

		date, err := time.Parse("2006-01-02", rec[col["date"]])
		if err != nil {
			logger.Debugf("skipping bar row with bad date %q: %v", rec[col["date"]], err)
			continue
		}
		if date.Before(fromDate) || date.After(toDate) {
			continue
		}

		b := Bar{Date: date}
		b.Open, _ = strconv.ParseFloat(rec[col["open"]], 64)
		b.High, _ = strconv.ParseFloat(rec[col["high"]], 64)
		b.Low, _ = strconv.ParseFloat(rec[col["low"]], 64)
		b.Close, _ = strconv.ParseFloat(rec[col["close"]], 64)
		if i, ok := col["volume"]; ok {
			b.Vol, _ = strconv.ParseFloat(rec[i], 64)
		}
		out = append(out, b)
	}

	logger.Tracef("loaded %d local bars for %s", len(out), symbol)
	return out, nil
}

// columnIndex maps lower-cased header names to column positions.
func columnIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return col
}

// LoadScenarioCSV reads batch pricing scenarios from a CSV file.
//
// Expected header: label,symbol,asset,strike,expiry,rate,volatility,steps.
// Columns may appear in any order; label, symbol and steps are optional.
// Expiry is in years and rate is a decimal: unit normalization
// (months, percent) is the caller's job, as with the pricing package.
//
// Returns:
//   - []Scenario: one scenario per data row
//   - error: if the file cannot be read or a numeric cell is malformed
func LoadScenarioCSV(path string) ([]Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening scenario file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading scenario header: %w", err)
	}
	col := columnIndex(header)

	parseFloat := func(rec []string, name string) (float64, error) {
		i, ok := col[name]
		if !ok || strings.TrimSpace(rec[i]) == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
		if err != nil {
			return 0, fmt.Errorf("column %s: %w", name, err)
		}
		return v, nil
	}

	var out []Scenario
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading scenario row: %w", err)
		}
		line++

		var sc Scenario
		if i, ok := col["label"]; ok {
			sc.Label = strings.TrimSpace(rec[i])
		}
		if i, ok := col["symbol"]; ok {
			sc.Symbol = strings.TrimSpace(rec[i])
		}

		var params pricing.OptionParameters
		fields := []struct {
			name string
			dst  *float64
		}{
			{"asset", &params.Asset},
			{"strike", &params.Strike},
			{"expiry", &params.Expiry},
			{"rate", &params.Rate},
			{"volatility", &params.Volatility},
		}
		for _, fld := range fields {
			v, err := parseFloat(rec, fld.name)
			if err != nil {
				return nil, fmt.Errorf("scenario line %d: %w", line, err)
			}
			*fld.dst = v
		}
		sc.OptionParameters = params

		if i, ok := col["steps"]; ok && strings.TrimSpace(rec[i]) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(rec[i]))
			if err != nil {
				return nil, fmt.Errorf("scenario line %d: column steps: %w", line, err)
			}
			sc.Steps = n
		}

		out = append(out, sc)
	}

	logger.Debugf("loaded %d scenarios from %s", len(out), path)
	return out, nil
}
