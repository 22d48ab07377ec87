package record

import (
	"math"
	"testing"

	"intrinsic_valuation/pkg/core/fault"
)

func TestPointsFromJSONShape(t *testing.T) {
	// The 2021 entry uses the "value" alias key; the last three entries
	// (valueless map, non-map, non-numeric value) must be skipped.
	raw := []any{
		map[string]any{"period": "2022", "v": 92.0},
		map[string]any{"period": "2021", "value": 85.0},
		map[string]any{"period": "2023", "v": 100.0},
		map[string]any{"period": "2020"},
		"garbage",
		map[string]any{"period": "x", "v": "NaN"},
	}
	pts := Points(raw)
	if len(pts) != 3 {
		t.Fatalf("expected 3 parsed points, got %d", len(pts))
	}
}

func TestSortAndLatest(t *testing.T) {
	pts := []SeriesPoint{
		{Period: "2023", Value: 100},
		{Period: "2021", Value: 85},
		{Period: "2022", Value: 92},
	}
	sorted := SortPoints(pts)
	if sorted[0].Period != "2021" || sorted[2].Period != "2023" {
		t.Errorf("sort order wrong: %v", sorted)
	}
	// Input untouched
	if pts[0].Period != "2023" {
		t.Error("SortPoints must not mutate its input")
	}

	latest, err := Latest(pts, "NESN", "series.annual.revenue")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest != 100 {
		t.Errorf("expected latest 100, got %g", latest)
	}

	_, err = Latest(nil, "NESN", "series.annual.revenue")
	if !fault.IsKind(err, fault.InsufficientSeries) {
		t.Errorf("empty series: expected InsufficientSeries, got %v", err)
	}
}

func TestCAGR(t *testing.T) {
	// 85 -> 100 over 2 years: (100/85)^(1/2) - 1 = 0.08465
	g, err := CAGR(100, 85, 2, "NESN", "revenue")
	if err != nil {
		t.Fatalf("CAGR: %v", err)
	}
	if math.Abs(g-0.084652) > 0.0001 {
		t.Errorf("expected CAGR 0.0847, got %g", g)
	}

	if _, err := CAGR(100, 85, 0, "NESN", "revenue"); !fault.IsKind(err, fault.InvalidDomainValue) {
		t.Errorf("zero years: expected InvalidDomainValue, got %v", err)
	}
	if _, err := CAGR(100, -5, 2, "NESN", "revenue"); !fault.IsKind(err, fault.InvalidDomainValue) {
		t.Errorf("negative start: expected InvalidDomainValue, got %v", err)
	}
}

func TestSeriesFrom(t *testing.T) {
	rec := Record{
		"series": map[string]any{
			"annual": map[string]any{
				"revenue": []any{map[string]any{"period": "2023", "v": 100.0}},
			},
		},
	}
	if pts := SeriesFrom(rec, "series.annual.revenue"); len(pts) != 1 {
		t.Errorf("expected 1 point, got %d", len(pts))
	}
	if pts := SeriesFrom(rec, "series.annual.netIncome"); pts != nil {
		t.Errorf("absent path must yield nil, got %v", pts)
	}
}
