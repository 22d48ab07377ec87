package record

import (
	"math"
	"sort"

	"intrinsic_valuation/pkg/core/fault"
)

// SeriesPoint is one annual observation in a series.annual.* list.
type SeriesPoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"v"`
}

// Points converts a raw series value into a typed slice. It accepts both a
// typed []SeriesPoint and the JSON shape []any of {"period","v"} maps
// (the "value" key is accepted as an alias). Malformed entries are skipped.
func Points(v any) []SeriesPoint {
	switch pts := v.(type) {
	case []SeriesPoint:
		out := make([]SeriesPoint, len(pts))
		copy(out, pts)
		return out
	case []any:
		out := make([]SeriesPoint, 0, len(pts))
		for _, p := range pts {
			m, ok := p.(map[string]any)
			if !ok {
				continue
			}
			period, _ := m["period"].(string)
			val, ok := toFloat(m["v"])
			if !ok {
				val, ok = toFloat(m["value"])
			}
			if !ok {
				continue
			}
			out = append(out, SeriesPoint{Period: period, Value: val})
		}
		return out
	}
	return nil
}

// SeriesFrom resolves a dotted path to a typed series. Absent paths yield nil.
func SeriesFrom(r Record, path string) []SeriesPoint {
	v, ok := r.Lookup(path)
	if !ok {
		return nil
	}
	return Points(v)
}

// SortPoints orders observations ascending by period string, oldest first.
func SortPoints(pts []SeriesPoint) []SeriesPoint {
	out := make([]SeriesPoint, len(pts))
	copy(out, pts)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// Latest returns the newest observation value of a series.
func Latest(pts []SeriesPoint, symbol, field string) (float64, error) {
	if len(pts) == 0 {
		return 0, fault.Seriesf(symbol, "critical time series empty: %s", field)
	}
	sorted := SortPoints(pts)
	return sorted[len(sorted)-1].Value, nil
}

// CAGR computes the compound annual growth rate between two observations.
// Both endpoints must be strictly positive and the year count > 0.
func CAGR(end, start, years float64, symbol, context string) (float64, error) {
	if years <= 0 {
		return 0, fault.Domainf(symbol, "CAGR years must be > 0 (%s)", context)
	}
	if start <= 0 || end <= 0 {
		return 0, fault.Domainf(symbol, "CAGR requires positive values (%s); start=%g, end=%g", context, start, end)
	}
	return math.Pow(end/start, 1.0/years) - 1.0, nil
}
