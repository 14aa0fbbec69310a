package engine

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/contactkeval/option-pricer/internal/data"
	"github.com/contactkeval/option-pricer/internal/pricing"
	"github.com/contactkeval/option-pricer/internal/testutil"
)

// stubProvider returns a canned bar series.
type stubProvider struct {
	bars []data.Bar
	err  error
}

func (s *stubProvider) Secondary() data.Provider { return nil }
func (s *stubProvider) GetBars(symbol string, from, to time.Time) ([]data.Bar, error) {
	return s.bars, s.err
}

func atmScenario() data.Scenario {
	return data.Scenario{
		Label: "atm-1y",
		OptionParameters: pricing.OptionParameters{
			Asset:      100,
			Strike:     100,
			Expiry:     1.0,
			Rate:       0.05,
			Volatility: 0.2,
		},
	}
}

func TestEngineRun_InlineScenarios(t *testing.T) {
	cfg := &Config{
		Scenarios: []data.Scenario{
			atmScenario(),
			{
				Label: "deep-otm",
				OptionParameters: pricing.OptionParameters{
					Asset: 50, Strike: 100, Expiry: 0.5, Rate: 0.03, Volatility: 0.3,
				},
			},
		},
		Steps: 500,
	}

	res, err := NewEngine(cfg, nil).Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.RunID) == 0 {
		t.Fatal("expected a run id")
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}

	atm := res.Rows[0]
	if atm.Err != "" {
		t.Fatalf("unexpected row error: %s", atm.Err)
	}
	if atm.Steps != 500 {
		t.Fatalf("expected steps 500, got %d", atm.Steps)
	}
	testutil.AssertClose(t, "atm price vs reference", atm.Price, atm.Reference, 0.05)

	wantParity := atm.Price - 100 + 100*math.Exp(-0.05*1.0)
	testutil.AssertClose(t, "parity put", atm.ParityPut, wantParity, 1e-12)

	otm := res.Rows[1]
	if otm.Err != "" {
		t.Fatalf("unexpected row error: %s", otm.Err)
	}
	if otm.Price < 0 || otm.Price > 0.05 {
		t.Fatalf("deep OTM price should be near zero, got %f", otm.Price)
	}
}

func TestEngineRun_ScenarioCSV(t *testing.T) {
	csv := "label,asset,strike,expiry,rate,volatility,steps\n" +
		"from-csv,100,100,1.0,0.05,0.2,400\n"
	cfg := &Config{
		ScenarioCSV: testutil.WriteTempCSV(t, "scenarios.csv", csv),
		Scenarios:   []data.Scenario{atmScenario()},
		Steps:       500,
	}

	res, err := NewEngine(cfg, nil).Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected inline + csv rows, got %d", len(res.Rows))
	}

	csvRow := res.Rows[1]
	if csvRow.Label != "from-csv" {
		t.Fatalf("expected csv row last, got %+v", csvRow)
	}
	if csvRow.Steps != 400 {
		t.Fatalf("per-scenario steps override lost, got %d", csvRow.Steps)
	}
}

func TestEngineRun_SymbolResolution(t *testing.T) {
	bars := make([]data.Bar, 0, 40)
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < 40; i++ {
		if i%2 == 0 {
			price += 1.0
		} else {
			price -= 0.5
		}
		bars = append(bars, data.Bar{Date: day, Close: price, High: price + 1, Low: price - 1})
		day = day.AddDate(0, 0, 1)
	}

	cfg := &Config{
		Scenarios: []data.Scenario{{
			Label:  "resolved",
			Symbol: "TEST",
			OptionParameters: pricing.OptionParameters{
				Strike: 100, Expiry: 0.5, Rate: 0.04,
			},
		}},
		Steps: 300,
	}

	res, err := NewEngine(cfg, &stubProvider{bars: bars}).Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	row := res.Rows[0]
	if row.Err != "" {
		t.Fatalf("unexpected row error: %s", row.Err)
	}
	if row.Params.Asset != bars[len(bars)-1].Close {
		t.Fatalf("spot should be last close %f, got %f", bars[len(bars)-1].Close, row.Params.Asset)
	}
	if row.Params.Volatility <= 0 {
		t.Fatalf("expected estimated volatility > 0, got %f", row.Params.Volatility)
	}
	if row.Price <= 0 {
		t.Fatalf("expected positive price, got %f", row.Price)
	}
}

func TestEngineRun_SymbolWithoutProvider(t *testing.T) {
	cfg := &Config{
		Scenarios: []data.Scenario{{
			Label:  "needs-data",
			Symbol: "SPY",
			OptionParameters: pricing.OptionParameters{
				Strike: 580, Expiry: 0.25, Rate: 0.04,
			},
		}},
	}

	res, err := NewEngine(cfg, nil).Run()
	if err != nil {
		t.Fatalf("run should not abort on a row failure: %v", err)
	}
	if res.Rows[0].Err == "" {
		t.Fatal("expected row error when no provider is configured")
	}
}

func TestEngineRun_ExpressionPayoff(t *testing.T) {
	sc := atmScenario()
	cfg := &Config{
		Scenarios: []data.Scenario{sc},
		Steps:     500,
		Payoff:    "max(STRIKE - PRICE, 0)",
	}

	res, err := NewEngine(cfg, nil).Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	row := res.Rows[0]
	if row.Err != "" {
		t.Fatalf("unexpected row error: %s", row.Err)
	}
	want := pricing.BlackScholesPrice(false, sc.Asset, sc.Strike, sc.Expiry, sc.Rate, sc.Volatility)
	testutil.AssertClose(t, "expression put", row.Price, want, 0.05)

	// reference columns only apply to the default call payoff
	if row.Reference != 0 || row.ParityPut != 0 {
		t.Fatalf("reference columns should be empty for custom payoffs: %+v", row)
	}
}

func TestEngineRun_InvalidScenarioRecorded(t *testing.T) {
	cfg := &Config{
		Scenarios: []data.Scenario{
			{
				Label: "bad-strike",
				OptionParameters: pricing.OptionParameters{
					Asset: 100, Strike: -5, Expiry: 1, Volatility: 0.2,
				},
			},
			atmScenario(),
		},
		Steps: 300,
	}

	res, err := NewEngine(cfg, nil).Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
	if !strings.Contains(res.Rows[0].Err, "strike") {
		t.Fatalf("expected strike validation error, got %q", res.Rows[0].Err)
	}
	if res.Rows[1].Err != "" {
		t.Fatalf("valid scenario should still price: %q", res.Rows[1].Err)
	}
}

func TestEngineRun_NoScenarios(t *testing.T) {
	if _, err := NewEngine(&Config{}, nil).Run(); err == nil {
		t.Fatal("expected error when nothing is configured")
	}
}

func TestEngineRun_BadPayoffExpression(t *testing.T) {
	cfg := &Config{
		Scenarios: []data.Scenario{atmScenario()},
		Payoff:    "max(",
	}
	if _, err := NewEngine(cfg, nil).Run(); err == nil {
		t.Fatal("expected error for unparseable payoff")
	}
}

func TestAnnualizedVolatility(t *testing.T) {
	if got := AnnualizedVolatility([]float64{100}); got != 0.30 {
		t.Fatalf("short series should fall back to 0.30, got %f", got)
	}

	flat := []float64{100, 100, 100, 100}
	if got := AnnualizedVolatility(flat); got != 0 {
		t.Fatalf("constant series should have zero volatility, got %f", got)
	}

	noisy := []float64{100, 102, 99, 103, 98, 104}
	if got := AnnualizedVolatility(noisy); got <= 0 {
		t.Fatalf("noisy series should have positive volatility, got %f", got)
	}
}
