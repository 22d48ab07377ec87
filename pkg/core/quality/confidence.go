// Package quality converts input-field coverage into the confidence scalar
// reported by every valuator. Coverage never suppresses a hard failure; it
// only communicates degraded-but-valid input completeness.
package quality

import (
	"math"

	"intrinsic_valuation/pkg/core/record"
)

// Weights blends required and optional coverage ratios. Each valuator keeps
// its own fixed weights.
type Weights struct {
	Required float64
	Optional float64
}

// Coverage returns the present/total ratio for a set of dotted field paths.
// An empty set counts as full coverage: nothing was needed from the record.
func Coverage(rec record.Record, fields []string) float64 {
	if len(fields) == 0 {
		return 1.0
	}
	present := 0
	for _, f := range fields {
		if _, ok := rec.Lookup(f); ok {
			present++
		}
	}
	return float64(present) / float64(len(fields))
}

// Score blends coverage ratios into a confidence scalar, rounded to 4 places.
func Score(requiredRatio, optionalRatio float64, w Weights) float64 {
	return Round4(requiredRatio*w.Required + optionalRatio*w.Optional)
}

// RelativeWidth measures a distribution's P10-P90 spread against its
// midpoint. The midpoint is floored at 1.0 so near-zero valuations do not
// explode the ratio.
func RelativeWidth(p10, p90 float64) float64 {
	mid := (p90 + p10) / 2.0
	return (p90 - p10) / math.Max(mid, 1.0)
}

// SpreadPenalty maps a relative distribution width onto a confidence
// adjustment: wide fair-value distributions signal poor simulation
// credibility regardless of input coverage.
func SpreadPenalty(relativeWidth float64) float64 {
	switch {
	case relativeWidth > 2.0:
		return -0.15
	case relativeWidth > 1.0:
		return -0.05
	}
	return 0.0
}

// Clamp01 bounds a confidence scalar to [0,1].
func Clamp01(x float64) float64 {
	return math.Max(0.0, math.Min(1.0, x))
}

// Round4 rounds to four decimal places, the precision of reported ratios.
func Round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
