package simulation

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"intrinsic_valuation/pkg/core/fault"
)

// annualizedVolatility derives sigma from a daily close-price window as the
// sample standard deviation of log returns scaled by sqrt(trading days).
// Requires at least 30 observations.
func annualizedVolatility(symbol string, closes []float64, tradingDays int) (float64, error) {
	if len(closes) < 30 {
		return 0, fault.Seriesf(symbol, "too few close prices for volatility (min 30, got %d)", len(closes))
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			return 0, fault.Domainf(symbol, "close prices must be > 0")
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}
	vol := stat.StdDev(returns, nil) * math.Sqrt(float64(tradingDays))
	if math.IsNaN(vol) || math.IsInf(vol, 0) || vol <= 0 {
		return 0, fault.Domainf(symbol, "invalid volatility computed: %g", vol)
	}
	return vol, nil
}

// quantile returns the p-quantile (p in [0,1]) of xs with linear
// interpolation between order statistics: h = p*(n-1), interpolating
// between s[floor(h)] and s[ceil(h)]. The median of {1..4} is 2.5.
func quantile(p float64, xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	h := p * float64(len(sorted)-1)
	i := int(math.Floor(h))
	if i < 0 {
		return sorted[0]
	}
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-float64(i))*(sorted[i+1]-sorted[i])
}

// closesFrom converts a raw candle.c value into a []float64. Accepts a typed
// slice or the JSON shape []any.
func closesFrom(v any) []float64 {
	switch xs := v.(type) {
	case []float64:
		out := make([]float64, len(xs))
		copy(out, xs)
		return out
	case []any:
		out := make([]float64, 0, len(xs))
		for _, x := range xs {
			f, ok := x.(float64)
			if !ok {
				if n, isInt := x.(int); isInt {
					f, ok = float64(n), true
				}
			}
			if ok {
				out = append(out, f)
			}
		}
		return out
	}
	return nil
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
