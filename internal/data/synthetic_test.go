package data

import (
	"testing"
	"time"
)

func TestSyntheticProviderDeterministic(t *testing.T) {
	from := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	a, err := NewSyntheticProvider(7).GetBars("SPY", from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewSyntheticProvider(7).GetBars("SPY", from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(a) == 0 || len(a) != len(b) {
		t.Fatalf("expected matching non-empty series, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("seeded series diverged at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestSyntheticProviderSkipsWeekends(t *testing.T) {
	from := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC) // Monday
	to := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)   // Sunday

	bars, err := NewSyntheticProvider(1).GetBars("SPY", from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 5 {
		t.Fatalf("expected 5 weekday bars, got %d", len(bars))
	}
	for _, b := range bars {
		if wd := b.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Fatalf("weekend bar generated: %s", b.Date)
		}
	}
}
