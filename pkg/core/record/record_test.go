package record

import (
	"math"
	"testing"

	"intrinsic_valuation/pkg/core/fault"
)

func sampleRecord() Record {
	return Record{
		"metric": map[string]any{
			"beta":        1.2,
			"roe":         31.4,
			"nilMetric":   nil,
			"intEncoded":  42,
			"textEncoded": "n/a",
		},
		"quote": map[string]any{"c": 50.0},
		"series": map[string]any{
			"annual": map[string]any{
				"revenue": []any{
					map[string]any{"period": "2023", "v": 100.0},
				},
			},
		},
	}
}

func TestLookup(t *testing.T) {
	rec := sampleRecord()

	if v, ok := rec.Lookup("metric.beta"); !ok || v.(float64) != 1.2 {
		t.Errorf("metric.beta lookup failed: %v, %v", v, ok)
	}
	if _, ok := rec.Lookup("metric.missing"); ok {
		t.Error("absent leaf must report !ok")
	}
	if _, ok := rec.Lookup("nosection.beta"); ok {
		t.Error("absent section must report !ok")
	}
	if _, ok := rec.Lookup("metric.nilMetric"); ok {
		t.Error("nil leaf must report !ok")
	}
	if _, ok := rec.Lookup("quote.c.deeper"); ok {
		t.Error("traversing through a scalar must report !ok")
	}
	if _, ok := Record(nil).Lookup("metric.beta"); ok {
		t.Error("nil record must report !ok")
	}
	if v, ok := rec.Lookup("series.annual.revenue"); !ok || v == nil {
		t.Errorf("nested series lookup failed: %v, %v", v, ok)
	}
}

func TestFloatCoercion(t *testing.T) {
	rec := sampleRecord()

	if v, ok := rec.Float("quote.c"); !ok || v != 50.0 {
		t.Errorf("expected 50.0, got %v (%v)", v, ok)
	}
	if v, ok := rec.Float("metric.intEncoded"); !ok || v != 42.0 {
		t.Errorf("int leaf should coerce to float: %v (%v)", v, ok)
	}
	if _, ok := rec.Float("metric.textEncoded"); ok {
		t.Error("string leaf must not coerce to float")
	}
}

func TestRequireFloat(t *testing.T) {
	rec := sampleRecord()

	if _, err := RequireFloat(rec, "NESN", "metric.beta"); err != nil {
		t.Errorf("unexpected error on present field: %v", err)
	}
	_, err := RequireFloat(rec, "NESN", "metric.debtToEquity")
	if err == nil {
		t.Fatal("expected error on absent field")
	}
	if !fault.IsKind(err, fault.MissingCriticalField) {
		t.Errorf("expected MissingCriticalField, got %v", err)
	}
}

func TestNormalizePercent(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{31.4, 0.314}, // percent-encoded
		{0.314, 0.314},
		{1.5, 1.5}, // threshold itself stays
		{1.51, 0.0151},
		{-25.0, -25.0}, // negative magnitudes are never rescaled
	}
	for _, c := range cases {
		got, err := NormalizePercent(c.in, "NESN", "metric.roe")
		if err != nil {
			t.Fatalf("NormalizePercent(%g): %v", c.in, err)
		}
		if math.Abs(got-c.want) > 1e-12 {
			t.Errorf("NormalizePercent(%g) = %g, want %g", c.in, got, c.want)
		}
	}

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := NormalizePercent(bad, "NESN", "metric.roe")
		if !fault.IsKind(err, fault.InvalidDomainValue) {
			t.Errorf("NormalizePercent(%v): expected InvalidDomainValue, got %v", bad, err)
		}
	}
}
