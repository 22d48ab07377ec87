package quality

import (
	"math"
	"testing"

	"intrinsic_valuation/pkg/core/record"
)

func TestCoverage(t *testing.T) {
	rec := record.Record{
		"metric": map[string]any{"beta": 1.2},
		"quote":  map[string]any{"c": 50.0},
	}

	if got := Coverage(rec, nil); got != 1.0 {
		t.Errorf("empty field set must count as full coverage, got %g", got)
	}
	if got := Coverage(rec, []string{"metric.beta", "quote.c"}); got != 1.0 {
		t.Errorf("expected full coverage, got %g", got)
	}
	got := Coverage(rec, []string{"metric.beta", "metric.debtToEquity", "quote.c", "candle.c"})
	if math.Abs(got-0.5) > 1e-12 {
		t.Errorf("expected coverage 0.5, got %g", got)
	}
}

func TestScore(t *testing.T) {
	// 1.0 * 0.85 + 0.5 * 0.15 = 0.925
	got := Score(1.0, 0.5, Weights{Required: 0.85, Optional: 0.15})
	if got != 0.925 {
		t.Errorf("expected 0.925, got %g", got)
	}
	// Rounding to 4 places: 1/3 * 0.70 = 0.2333...
	got = Score(1.0/3.0, 0, Weights{Required: 0.70})
	if got != 0.2333 {
		t.Errorf("expected rounded 0.2333, got %g", got)
	}
}

func TestRelativeWidth(t *testing.T) {
	// (90 - 30) / 60 = 1.0
	if got := RelativeWidth(30, 90); math.Abs(got-1.0) > 1e-12 {
		t.Errorf("expected 1.0, got %g", got)
	}
	// Midpoint below 1 is floored: (0.6 - 0.2) / max(0.4, 1.0) = 0.4
	if got := RelativeWidth(0.2, 0.6); math.Abs(got-0.4) > 1e-12 {
		t.Errorf("midpoint floor failed, got %g", got)
	}
}

func TestSpreadPenalty(t *testing.T) {
	cases := []struct {
		width, want float64
	}{
		{0.5, 0.0},
		{1.0, 0.0},
		{1.5, -0.05},
		{2.0, -0.05},
		{2.5, -0.15},
	}
	for _, c := range cases {
		if got := SpreadPenalty(c.width); got != c.want {
			t.Errorf("SpreadPenalty(%g) = %g, want %g", c.width, got, c.want)
		}
	}
}

func TestClamp01(t *testing.T) {
	if Clamp01(-0.1) != 0 || Clamp01(1.1) != 1 || Clamp01(0.42) != 0.42 {
		t.Error("Clamp01 bounds wrong")
	}
}
