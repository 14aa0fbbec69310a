package pricing

import (
	"errors"
	"math"
	"testing"
)

func TestCallPayoff(t *testing.T) {
	if got := CallPayoff(110, 100); got != 10 {
		t.Fatalf("CallPayoff(110,100)=%f, want 10", got)
	}
	if got := CallPayoff(90, 100); got != 0 {
		t.Fatalf("CallPayoff(90,100)=%f, want 0", got)
	}
	if got := CallPayoff(100, 100); got != 0 {
		t.Fatalf("CallPayoff(100,100)=%f, want 0", got)
	}
}

func TestPutPayoff(t *testing.T) {
	if got := PutPayoff(90, 100); got != 10 {
		t.Fatalf("PutPayoff(90,100)=%f, want 10", got)
	}
	if got := PutPayoff(110, 100); got != 0 {
		t.Fatalf("PutPayoff(110,100)=%f, want 0", got)
	}
}

// A call expressed as an expression must behave exactly like the
// built-in call payoff, all the way through the lattice.
func TestExpressionPayoffCallEquivalence(t *testing.T) {
	payoff, err := NewExpressionPayoff("max(PRICE - STRIKE, 0)")
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	for _, price := range []float64{50, 99.99, 100, 100.01, 250} {
		if got, want := payoff(price, 100), CallPayoff(price, 100); got != want {
			t.Fatalf("expression payoff(%f)=%f, want %f", price, got, want)
		}
	}

	builtin, err := BinomialPrice(atmParams, 500)
	if err != nil {
		t.Fatalf("unexpected pricing error: %v", err)
	}
	viaExpr, err := BinomialPriceWithPayoff(atmParams, 500, payoff)
	if err != nil {
		t.Fatalf("unexpected pricing error: %v", err)
	}
	if builtin != viaExpr {
		t.Fatalf("expression call priced %v, builtin call priced %v", viaExpr, builtin)
	}
}

func TestExpressionPayoffDigital(t *testing.T) {
	payoff, err := NewExpressionPayoff("PRICE > STRIKE ? 1.0 : 0.0")
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	price, err := BinomialPriceWithPayoff(atmParams, 500, payoff)
	if err != nil {
		t.Fatalf("unexpected pricing error: %v", err)
	}

	// A cash-or-nothing call is worth between 0 and the discounted unit.
	upper := math.Exp(-atmParams.Rate * atmParams.Expiry)
	if price <= 0 || price >= upper {
		t.Fatalf("digital price %f outside (0, %f)", price, upper)
	}
}

func TestExpressionPayoffHelpers(t *testing.T) {
	payoff, err := NewExpressionPayoff("abs(min(PRICE - STRIKE, 0))")
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	// abs(min(x,0)) is the put intrinsic
	if got := payoff(90, 100); got != 10 {
		t.Fatalf("payoff(90,100)=%f, want 10", got)
	}
	if got := payoff(110, 100); got != 0 {
		t.Fatalf("payoff(110,100)=%f, want 0", got)
	}
}

func TestExpressionPayoffInvalid(t *testing.T) {
	for _, expr := range []string{"", "max(", "PRICE +* STRIKE"} {
		if _, err := NewExpressionPayoff(expr); !errors.Is(err, ErrInvalidParameters) {
			t.Fatalf("expected ErrInvalidParameters for %q, got %v", expr, err)
		}
	}
}
