package pricing

import (
	"fmt"
	"math"
	"strings"

	"github.com/Knetic/govaluate"
)

// PayoffFunc computes the exercise value of an option for a terminal
// asset price and a strike. Implementations must be pure and total.
type PayoffFunc func(price, strike float64) float64

// CallPayoff is the call intrinsic value max(price - strike, 0).
func CallPayoff(price, strike float64) float64 {
	if price > strike {
		return price - strike
	}
	return 0
}

// PutPayoff is the put intrinsic value max(strike - price, 0).
func PutPayoff(price, strike float64) float64 {
	if strike > price {
		return strike - price
	}
	return 0
}

// exprFunctions are the helpers available inside payoff expressions.
var exprFunctions = map[string]govaluate.ExpressionFunction{
	"max": func(args ...interface{}) (interface{}, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("max requires at least one argument")
		}
		out := math.Inf(-1)
		for _, a := range args {
			f, ok := a.(float64)
			if !ok {
				return nil, fmt.Errorf("max: non-numeric argument %v", a)
			}
			out = math.Max(out, f)
		}
		return out, nil
	},
	"min": func(args ...interface{}) (interface{}, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("min requires at least one argument")
		}
		out := math.Inf(1)
		for _, a := range args {
			f, ok := a.(float64)
			if !ok {
				return nil, fmt.Errorf("min: non-numeric argument %v", a)
			}
			out = math.Min(out, f)
		}
		return out, nil
	},
	"abs": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("abs requires exactly one argument")
		}
		f, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("abs: non-numeric argument %v", args[0])
		}
		return math.Abs(f), nil
	},
}

// NewExpressionPayoff compiles a payoff expression into a PayoffFunc.
//
// The expression may reference PRICE (terminal asset price) and STRIKE,
// and may call max, min and abs. Examples:
//
//	max(PRICE - STRIKE, 0)            // call
//	max(STRIKE - PRICE, 0)            // put
//	PRICE > STRIKE ? 1.0 : 0.0        // digital call
//
// Compilation errors surface immediately. Evaluation errors at pricing
// time (e.g. an expression producing a non-numeric result) make the
// payoff return NaN, which the caller observes in the final price; this
// keeps PayoffFunc total as the lattice requires.
//
// Returns:
//   - PayoffFunc: the compiled payoff
//   - error: if the expression does not parse
func NewExpressionPayoff(expr string) (PayoffFunc, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: empty payoff expression", ErrInvalidParameters)
	}

	compiled, err := govaluate.NewEvaluableExpressionWithFunctions(expr, exprFunctions)
	if err != nil {
		return nil, fmt.Errorf("%w: payoff expression %q: %v", ErrInvalidParameters, expr, err)
	}

	return func(price, strike float64) float64 {
		result, err := compiled.Evaluate(map[string]interface{}{
			"PRICE":  price,
			"STRIKE": strike,
		})
		if err != nil {
			return math.NaN()
		}
		f, ok := result.(float64)
		if !ok {
			return math.NaN()
		}
		return f
	}, nil
}
