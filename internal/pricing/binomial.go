// Package pricing implements option valuation models.
//
// The primary entry point is BinomialPrice, a Cox-Ross-Rubinstein
// binomial lattice pricer for European calls. BlackScholesPrice provides
// the closed-form reference used for cross-checking lattice output.
package pricing

import (
	"errors"
	"fmt"
	"math"
)

//
// ==========================
// Error taxonomy
// ==========================
//

// Typed errors allow callers and tests to detect failure categories
// without string matching.
var (
	// ErrInvalidParameters reports option parameters or a step count
	// outside the pricer's domain. Detected before any computation.
	ErrInvalidParameters = errors.New("invalid option parameters")

	// ErrNumericDomain reports a parameter regime the lattice cannot
	// represent: the up-factor derivation would take the square root of
	// a negative number, or up and down factors coincide and the
	// risk-neutral probability is undefined.
	ErrNumericDomain = errors.New("lattice parameters out of numeric domain")
)

// DefaultSteps is the lattice resolution used when the caller does not
// supply one. Accuracy improves with more steps at O(steps²) cost.
const DefaultSteps = 1000

//
// ==========================
// Domain Types
// ==========================
//

// OptionParameters describes a single European option to be priced.
//
// The pricer assumes normalized units: Expiry in years and Rate as a
// decimal (0.05 for 5%). Callers working in months or percent normalize
// before constructing the value. Immutable once constructed.
type OptionParameters struct {
	Asset      float64 `json:"asset"`      // current spot price of the underlying
	Strike     float64 `json:"strike"`     // exercise price
	Expiry     float64 `json:"expiry"`     // time to expiry, in years
	Rate       float64 `json:"rate"`       // annualized risk-free rate, as a decimal
	Volatility float64 `json:"volatility"` // annualized stddev of log-returns
}

// Validate checks the pricing invariants: asset, strike and expiry must
// be positive, volatility non-negative.
//
// Returns an error wrapping ErrInvalidParameters naming the first
// offending field, or nil.
func (params OptionParameters) Validate() error {
	switch {
	case params.Asset <= 0:
		return fmt.Errorf("%w: asset must be positive, got %g", ErrInvalidParameters, params.Asset)
	case params.Strike <= 0:
		return fmt.Errorf("%w: strike must be positive, got %g", ErrInvalidParameters, params.Strike)
	case params.Expiry <= 0:
		return fmt.Errorf("%w: expiry must be positive, got %g", ErrInvalidParameters, params.Expiry)
	case params.Volatility < 0:
		return fmt.Errorf("%w: volatility must be non-negative, got %g", ErrInvalidParameters, params.Volatility)
	}
	return nil
}

//
// ==========================
// Binomial lattice pricer
// ==========================
//

// BinomialPrice values a European call option on a Cox-Ross-Rubinstein
// binomial lattice with the given number of time steps.
//
// Parameters:
//   - params: normalized option parameters (see OptionParameters)
//   - steps: lattice resolution, >= 1 (DefaultSteps for the reference
//     resolution)
//
// Returns:
//   - float64: present value of the option
//   - error: ErrInvalidParameters or ErrNumericDomain; the price is
//     never NaN on a nil error
//
// The function is pure: no I/O, no logging, no shared state. Concurrent
// calls are safe.
func BinomialPrice(params OptionParameters, steps int) (float64, error) {
	return BinomialPriceWithPayoff(params, steps, CallPayoff)
}

// BinomialPriceWithPayoff is BinomialPrice with a substituted terminal
// payoff. The lattice machinery is payoff-agnostic; this is the designed
// extension point for puts, digitals, spreads and configured expression
// payoffs.
//
// The risk-neutral up-probability is intentionally not clamped to [0,1]:
// values outside that range indicate a parameter regime unsuited to this
// discretization and are passed through unchanged.
func BinomialPriceWithPayoff(params OptionParameters, steps int, payoff PayoffFunc) (float64, error) {
	if steps < 1 {
		return 0, fmt.Errorf("%w: steps must be >= 1, got %d", ErrInvalidParameters, steps)
	}
	if payoff == nil {
		return 0, fmt.Errorf("%w: nil payoff", ErrInvalidParameters)
	}
	if err := params.Validate(); err != nil {
		return 0, err
	}

	// Lattice constants. The intermediate ufactor matches the first two
	// moments of the lognormal return distribution over one step.
	dt := params.Expiry / float64(steps)
	discount := math.Exp(-params.Rate * dt)
	ufactor := 0.5 * (discount + math.Exp((params.Rate+params.Volatility*params.Volatility)*dt))

	if ufactor*ufactor < 1 {
		return 0, fmt.Errorf(
			"%w: up-factor radicand negative (ufactor=%g)",
			ErrNumericDomain, ufactor,
		)
	}

	u := ufactor + math.Sqrt(ufactor*ufactor-1)
	v := 1.0 / u
	if u == v {
		// volatility 0 with rate 0 collapses the tree to a single path
		return 0, fmt.Errorf("%w: degenerate lattice (u == v == %g)", ErrNumericDomain, u)
	}
	p := (math.Exp(params.Rate*dt) - v) / (u - v)

	// Forward pass: grow the terminal asset-price column in place.
	// After step idx the first idx+1 slots hold that column of the
	// recombining tree, so only O(steps) memory is ever held.
	assetPrices := make([]float64, steps+1)
	assetPrices[0] = params.Asset
	for idx := 1; idx <= steps; idx++ {
		for jdx := idx; jdx >= 1; jdx-- {
			assetPrices[jdx] = u * assetPrices[jdx-1]
		}
		assetPrices[0] = v * assetPrices[0]
	}

	// Exercise value at expiry.
	values := make([]float64, steps+1)
	for jdx := 0; jdx <= steps; jdx++ {
		values[jdx] = payoff(assetPrices[jdx], params.Strike)
	}

	// Backward induction: discounted risk-neutral expectation, one
	// column at a time, until the root holds the present value. A
	// per-level recurrence, not a closed form: early-exercise policies
	// need a hook at every level.
	for idx := steps; idx >= 1; idx-- {
		for jdx := 0; jdx < idx; jdx++ {
			values[jdx] = discount * (p*values[jdx+1] + (1-p)*values[jdx])
		}
	}

	return values[0], nil
}
