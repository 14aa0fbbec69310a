package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/contactkeval/option-pricer/internal/data"
	"github.com/contactkeval/option-pricer/internal/engine"
	"github.com/contactkeval/option-pricer/internal/logger"
	"github.com/contactkeval/option-pricer/internal/pricing"
	"github.com/contactkeval/option-pricer/internal/report"
)

func main() {
	configPath := flag.String("config", "", "path to JSON batch config (omit for interactive mode)")
	rest := flag.Bool("rest", false, "run as REST server (accept pricing requests)")
	port := flag.String("port", ":8080", "REST server listen address")
	steps := flag.Int("steps", pricing.DefaultSteps, "lattice steps for interactive and REST pricing")
	verbosity := flag.Int("verbosity", engine.VerbosityInfo, "0=errors,1=info,2=debug,3=trace")
	flag.Parse()

	logger.SetVerbosity(*verbosity)

	if *rest {
		runREST(*port, *steps)
		return
	}

	if *configPath == "" {
		if err := runInteractive(os.Stdin, os.Stdout, *steps); err != nil {
			log.Fatalf("interactive pricing failed: %v", err)
		}
		return
	}

	if err := runBatch(*configPath); err != nil {
		log.Fatalf("batch pricing failed: %v", err)
	}
}

// runInteractive prompts for the five option parameters, normalizes
// units (expiry arrives in months, rate as a percent) and prints the
// binomial price rounded to two decimals.
func runInteractive(in io.Reader, out io.Writer, steps int) error {
	reader := bufio.NewReader(in)
	ask := func(prompt string) (float64, error) {
		fmt.Fprint(out, prompt)
		var v float64
		if _, err := fmt.Fscan(reader, &v); err != nil {
			return 0, fmt.Errorf("reading %q: %w", prompt, err)
		}
		return v, nil
	}

	asset, err := ask("Enter the asset price: ")
	if err != nil {
		return err
	}
	strike, err := ask("Enter the strike price: ")
	if err != nil {
		return err
	}
	expiryMonths, err := ask("Enter the expiry in months: ")
	if err != nil {
		return err
	}
	ratePct, err := ask("Enter the interest rate as a percent: ")
	if err != nil {
		return err
	}
	volatility, err := ask("Enter the volatility: ")
	if err != nil {
		return err
	}
	fmt.Fprint(out, "\n\n")

	params := pricing.OptionParameters{
		Asset:      asset,
		Strike:     strike,
		Expiry:     expiryMonths / 12.0,
		Rate:       ratePct / 100.0,
		Volatility: volatility,
	}

	price, err := pricing.BinomialPrice(params, steps)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "The value of your option is: %.2f\n", price)
	return nil
}

// runBatch prices every scenario in the JSON config and writes the
// report files into the configured report directory.
func runBatch(configPath string) error {
	cfgData, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	var cfg engine.Config
	if err := json.Unmarshal(cfgData, &cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	// choose provider
	var prov data.Provider
	apiKey := os.Getenv("MASSIVE_API_KEY")
	if apiKey != "" {
		prov = data.NewMassiveQuoteProvider(apiKey)
		logger.Infof("massive provider enabled")
	} else {
		prov = data.NewSyntheticProvider(cfg.Seed)
		logger.Infof("synthetic provider enabled seed=%d", cfg.Seed)
	}

	eng := engine.NewEngine(&cfg, prov)

	start := time.Now()
	res, err := eng.Run()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.ReportDir, 0755); err != nil {
		logger.Errorf("could not create report dir %s: %v", cfg.ReportDir, err)
		return err
	}
	if err := report.WriteJSON(res, cfg.ReportDir); err != nil {
		return err
	}
	if err := report.WriteCSV(res.Rows, cfg.ReportDir); err != nil {
		return err
	}

	logger.Infof("finished in %v, wrote %d rows to %s", time.Since(start), len(res.Rows), cfg.ReportDir)
	return nil
}

// priceRequest is the REST pricing payload. Parameters arrive already
// normalized: expiry in years, rate as a decimal.
type priceRequest struct {
	pricing.OptionParameters
	Steps int `json:"steps,omitempty"`
}

type priceResponse struct {
	RequestID string  `json:"request_id"`
	Price     float64 `json:"price"`
	Steps     int     `json:"steps"`
}

// runREST serves one-off pricing requests over HTTP.
func runREST(port string, defaultSteps int) {
	logger.Infof("starting REST server on %s", port)
	log.Fatal(http.ListenAndServe(port, newMux(defaultSteps)))
}

// newMux builds the REST routing table.
func newMux(defaultSteps int) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/price", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}

		var req priceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		steps := req.Steps
		if steps == 0 {
			steps = defaultSteps
		}

		reqID := uuid.NewString()
		logger.Infof("event=price_request id=%s asset=%.2f strike=%.2f", reqID, req.Asset, req.Strike)

		price, err := pricing.BinomialPrice(req.OptionParameters, steps)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, pricing.ErrInvalidParameters) || errors.Is(err, pricing.ErrNumericDomain) {
				status = http.StatusBadRequest
			}
			http.Error(w, err.Error(), status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(priceResponse{RequestID: reqID, Price: price, Steps: steps})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })

	return mux
}
