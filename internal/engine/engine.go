// Package engine runs batch option pricing: it resolves a set of
// scenarios into fully-specified option parameters and prices each one
// on the binomial lattice, with the Black-Scholes closed form as a
// reference column.
package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/contactkeval/option-pricer/internal/data"
	"github.com/contactkeval/option-pricer/internal/logger"
	"github.com/contactkeval/option-pricer/internal/pricing"
)

type Engine struct {
	cfg  *Config
	prov data.Provider
}

// Config struct
type Config struct {
	Scenarios    []data.Scenario `json:"scenarios,omitempty"`     // inline pricing scenarios
	ScenarioCSV  string          `json:"scenario_csv,omitempty"`  // optional CSV with more scenarios
	Steps        int             `json:"steps,omitempty"`         // default lattice resolution, 0 = pricing.DefaultSteps
	Payoff       string          `json:"payoff,omitempty"`        // payoff expression, empty = call intrinsic
	LookbackDays int             `json:"lookback_days,omitempty"` // bar history window for spot/vol resolution
	ReportDir    string          `json:"report_dir,omitempty"`    // report directory
	Seed         int64           `json:"seed,omitempty"`          // seed for the synthetic provider
	Verbosity    int             `json:"verbosity,omitempty"`     // 0=errors,1=info,2=debug,3=trace
}

const (
	VerbosityError = iota // 0
	VerbosityInfo         // 1
	VerbosityDebug        // 2
	VerbosityTrace        // 3
)

// defaultLookbackDays is the trailing bar window used to resolve a
// symbol's spot price and realized volatility.
const defaultLookbackDays = 365

// Row is the outcome of pricing one scenario.
//
// Reference and ParityPut are filled only for the default call payoff:
// Reference is the Black-Scholes call value for the same parameters and
// ParityPut the put implied by put-call parity from the lattice price.
type Row struct {
	Label     string                   `json:"label,omitempty"`
	Symbol    string                   `json:"symbol,omitempty"`
	Params    pricing.OptionParameters `json:"params"`
	Steps     int                      `json:"steps"`
	Price     float64                  `json:"price"`
	Reference float64                  `json:"reference,omitempty"`
	ParityPut float64                  `json:"parity_put,omitempty"`
	Err       string                   `json:"error,omitempty"`
}

// Result of a batch run.
type Result struct {
	RunID string `json:"run_id"`
	Rows  []Row  `json:"rows"`
}

func NewEngine(cfg *Config, prov data.Provider) *Engine {
	return &Engine{cfg: cfg, prov: prov}
}

// Run executes the batch pricing run.
//
// Scenarios are processed sequentially and independently: a scenario
// that fails to resolve or price is recorded with its error and does not
// abort the run. Run itself fails only on configuration problems (bad
// payoff expression, unreadable scenario CSV, no scenarios at all).
func (e *Engine) Run() (*Result, error) {
	cfg := e.cfg
	// fill defaults
	if cfg.ReportDir == "" {
		cfg.ReportDir = "./out"
	}
	if cfg.Steps <= 0 {
		cfg.Steps = pricing.DefaultSteps
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = defaultLookbackDays
	}
	if cfg.Verbosity < VerbosityError || cfg.Verbosity > VerbosityTrace {
		cfg.Verbosity = VerbosityInfo
	}
	logger.SetVerbosity(cfg.Verbosity)

	// resolve payoff
	payoff := pricing.PayoffFunc(pricing.CallPayoff)
	isCall := cfg.Payoff == ""
	if !isCall {
		var err error
		payoff, err = pricing.NewExpressionPayoff(cfg.Payoff)
		if err != nil {
			return nil, fmt.Errorf("resolving payoff: %w", err)
		}
		logger.Infof("event=payoff_compiled expr=%q", cfg.Payoff)
	}

	// gather scenarios
	scenarios := append([]data.Scenario(nil), cfg.Scenarios...)
	if cfg.ScenarioCSV != "" {
		loaded, err := data.LoadScenarioCSV(cfg.ScenarioCSV)
		if err != nil {
			return nil, fmt.Errorf("loading scenario csv: %w", err)
		}
		scenarios = append(scenarios, loaded...)
	}
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios configured")
	}

	runID := uuid.NewString()
	logger.Infof("event=run_start run_id=%s scenarios=%d steps=%d", runID, len(scenarios), cfg.Steps)

	rows := make([]Row, 0, len(scenarios))
	for i, sc := range scenarios {
		row := Row{Label: sc.Label, Symbol: sc.Symbol, Steps: cfg.Steps}
		if sc.Steps > 0 {
			row.Steps = sc.Steps
		}

		params, err := e.resolveScenario(sc)
		if err != nil {
			logger.Errorf("event=scenario_resolve_failed index=%d label=%s err=%v", i+1, sc.Label, err)
			row.Params = sc.OptionParameters
			row.Err = err.Error()
			rows = append(rows, row)
			continue
		}
		row.Params = params

		price, err := pricing.BinomialPriceWithPayoff(params, row.Steps, payoff)
		if err != nil {
			logger.Errorf("event=pricing_failed index=%d label=%s err=%v", i+1, sc.Label, err)
			row.Err = err.Error()
			rows = append(rows, row)
			continue
		}
		row.Price = price

		if isCall {
			row.Reference = pricing.BlackScholesPrice(
				true,
				params.Asset,
				params.Strike,
				params.Expiry,
				params.Rate,
				params.Volatility,
			)
			row.ParityPut = price - params.Asset + params.Strike*math.Exp(-params.Rate*params.Expiry)
		}

		logger.Infof(
			"event=scenario_priced index=%d label=%s asset=%.2f strike=%.2f price=%.4f",
			i+1, sc.Label, params.Asset, params.Strike, price,
		)
		rows = append(rows, row)
	}

	return &Result{RunID: runID, Rows: rows}, nil
}

// resolveScenario turns a scenario into concrete option parameters,
// filling spot price and volatility from the data provider when the
// scenario names a symbol instead of supplying them.
func (e *Engine) resolveScenario(sc data.Scenario) (pricing.OptionParameters, error) {
	params := sc.OptionParameters

	needSpot := sc.Symbol != "" && params.Asset == 0
	needVol := sc.Symbol != "" && params.Volatility == 0
	if !needSpot && !needVol {
		return params, nil
	}

	if e.prov == nil {
		return params, fmt.Errorf("scenario %q needs market data for %s but no provider is configured", sc.Label, sc.Symbol)
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -e.cfg.LookbackDays)
	bars, err := e.prov.GetBars(sc.Symbol, start, end)
	if err != nil {
		return params, fmt.Errorf("fetching bars for %s: %w", sc.Symbol, err)
	}
	if len(bars) == 0 {
		return params, fmt.Errorf("no bars for %s", sc.Symbol)
	}

	if needSpot {
		spot, err := data.LastClose(bars)
		if err != nil {
			return params, err
		}
		params.Asset = spot
		logger.Debugf("event=spot_resolved symbol=%s spot=%.2f", sc.Symbol, spot)
	}

	if needVol {
		hv := AnnualizedVolatility(data.Closes(bars))
		params.Volatility = hv
		logger.Debugf("event=vol_resolved symbol=%s hist_vol=%.2f%%", sc.Symbol, hv*100)
	}

	return params, nil
}

// AnnualizedVolatility estimates annualized volatility from a close
// series as the sample standard deviation of daily log-returns scaled by
// sqrt(252). Falls back to 30% when the series is too short to estimate.
func AnnualizedVolatility(closes []float64) float64 {
	if len(closes) < 2 {
		return 0.30
	}
	var rets []float64
	for i := 1; i < len(closes); i++ {
		rets = append(rets, math.Log(closes[i]/closes[i-1]))
	}
	mean := 0.0
	for _, v := range rets {
		mean += v
	}
	mean /= float64(len(rets))
	sd := 0.0
	for _, v := range rets {
		sd += (v - mean) * (v - mean)
	}
	sd = math.Sqrt(sd / float64(len(rets)-1))
	return sd * math.Sqrt(252.0)
}
