// Package record implements the loosely structured fundamental-data record
// consumed by every valuator, along with the safe field accessor and the
// percent-vs-decimal normalization heuristic.
//
// A Record is JSON-shaped: nested string-keyed maps with sections such as
// metric.*, series.annual.*, quote.c and profile.shareOutstanding. The core
// treats it as read-only; it is owned by the data-fetch collaborator.
package record

import (
	"math"

	"github.com/PaesslerAG/jsonpath"

	"intrinsic_valuation/pkg/core/fault"
)

// Record is the single input to all valuators.
type Record map[string]any

// Lookup traverses the record along a dotted path ("metric.beta"). It never
// panics: a missing segment, a non-map segment, or a nil leaf all report
// absence via the second return value.
func (r Record) Lookup(path string) (any, bool) {
	if r == nil || path == "" {
		return nil, false
	}
	v, err := jsonpath.Get("$."+path, map[string]any(r))
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// Float resolves a dotted path to a numeric value.
func (r Record) Float(path string) (float64, bool) {
	v, ok := r.Lookup(path)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// RequireFloat is the validation primitive for required numeric fields.
// No silent numeric default is ever substituted for a required value.
func RequireFloat(r Record, symbol, path string) (float64, error) {
	v, ok := r.Float(path)
	if !ok {
		return 0, fault.Missing(symbol, path)
	}
	return v, nil
}

// Require asserts that a looked-up value is present.
func Require(v any, ok bool, symbol, field string) (any, error) {
	if !ok || v == nil {
		return nil, fault.Missing(symbol, field)
	}
	return v, nil
}

// NormalizePercent converts percent-encoded ratios to decimals. Providers mix
// both encodings (31.4 for 31.4% next to 0.314), so any magnitude above 1.5
// is treated as a percentage and divided by 100. The threshold is 1.5 and the
// conversion is applied exactly once per field, never recursively.
func NormalizePercent(x float64, symbol, field string) (float64, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fault.Domainf(symbol, "invalid value for %s: %v", field, x)
	}
	if x > 1.5 {
		return x / 100.0, nil
	}
	return x, nil
}
