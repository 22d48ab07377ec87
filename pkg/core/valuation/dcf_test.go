package valuation

import (
	"context"
	"math"
	"testing"

	"intrinsic_valuation/pkg/core/fault"
	"intrinsic_valuation/pkg/core/record"
)

func nestleRecord() record.Record {
	return record.Record{
		"metric":  map[string]any{"roe": 31.4}, // percent-encoded
		"profile": map[string]any{"shareOutstanding": 2621.3},
		"series": map[string]any{
			"annual": map[string]any{
				"freeCashFlow": []any{
					map[string]any{"period": "2022", "v": 8800.0},
					map[string]any{"period": "2023", "v": 9606.3},
				},
				"netIncome": []any{
					map[string]any{"period": "2023", "v": 11061.7},
				},
			},
		},
	}
}

func nestleConfig() DCFConfig {
	return DCFConfig{
		StableGrowthRate:            fptr(0.01),
		StableROE:                   fptr(0.15),
		CostOfEquityHighGrowth:      fptr(0.0464),
		CostOfEquityStable:          fptr(0.0538),
		CashAndMarketableSecurities: fptr(5851),
	}
}

func TestTwoStageDCFNestle(t *testing.T) {
	// b = 1 - 9606.3/11061.7 = 0.131571, g = 0.314*b = 0.041313
	// PV(FCFE, 5y @ 4.64%) = 47335.6
	// b_stable = 0.01/0.15, FCFE_6 = NI_5*1.01*(1-b_stable) = 12768
	// TV = 12768/0.0438 = 291483, PV(TV) = 232340
	// Equity = 47336 + 232340 + 5851 = 285527; / 2621.3 = 108.93
	res, err := TwoStageDCF("NESN", nestleRecord(), nestleConfig())
	if err != nil {
		t.Fatalf("TwoStageDCF: %v", err)
	}

	if math.Abs(res.Value-108.93) > 0.05 {
		t.Errorf("expected intrinsic value 108.93/share, got %g", res.Value)
	}
	if res.Confidence <= 0.80 {
		t.Errorf("expected high confidence, got %g", res.Confidence)
	}
	if res.DataQuality["model_path"] != string(GrowthPathNetIncome) {
		t.Errorf("expected net income model path, got %v", res.DataQuality["model_path"])
	}
	if len(res.Assumptions) == 0 {
		t.Error("assumption log must not be empty")
	}

	g := res.Components["g_high"].(float64)
	if math.Abs(g-0.041313) > 0.0001 {
		t.Errorf("g_high: got %g", g)
	}
	sr := res.Components["stable_reinvestment_rate"].(float64)
	if math.Abs(sr-0.0666667) > 0.0001 {
		t.Errorf("stable reinvestment rate: got %g", sr)
	}
	projected := res.Components["fcfe_projected_high_growth"].([]float64)
	if len(projected) != 5 {
		t.Errorf("expected 5 projected cash flows, got %d", len(projected))
	}
	if res.Components["cash_and_marketable_securities_added"].(float64) != 5851 {
		t.Error("cash add-back not reported")
	}
}

func TestTwoStageDCFCAGRPath(t *testing.T) {
	rec := record.Record{
		"metric":  map[string]any{"beta": 1.0},
		"profile": map[string]any{"shareOutstanding": 100.0},
		"series": map[string]any{
			"annual": map[string]any{
				"freeCashFlow": []any{
					map[string]any{"period": "2021", "v": 850.0},
					map[string]any{"period": "2022", "v": 920.0},
					map[string]any{"period": "2023", "v": 1000.0},
				},
			},
		},
	}
	res, err := TwoStageDCF("X", rec, DCFConfig{StableGrowthRate: fptr(0.02)})
	if err != nil {
		t.Fatalf("TwoStageDCF: %v", err)
	}
	if res.DataQuality["model_path"] != string(GrowthPathFCFECAGR) {
		t.Errorf("expected CAGR path, got %v", res.DataQuality["model_path"])
	}
	if res.Value <= 0 {
		t.Errorf("expected positive value, got %g", res.Value)
	}
}

func TestTwoStageDCFTerminalCondition(t *testing.T) {
	cfg := nestleConfig()
	cfg.StableGrowthRate = fptr(0.06) // above the 5.38% stable cost of equity
	_, err := TwoStageDCF("NESN", nestleRecord(), cfg)
	if !fault.IsKind(err, fault.InvalidDomainValue) {
		t.Errorf("expected InvalidDomainValue for r_stable <= g_stable, got %v", err)
	}
}

func TestTwoStageDCFTerminalCashFlowZero(t *testing.T) {
	// g_stable == ROE_stable forces b_stable = 1 and a zero terminal flow.
	cfg := nestleConfig()
	cfg.StableGrowthRate = fptr(0.15)
	cfg.CostOfEquityStable = fptr(0.20)
	_, err := TwoStageDCF("NESN", nestleRecord(), cfg)
	if !fault.IsKind(err, fault.InvalidDomainValue) {
		t.Errorf("expected InvalidDomainValue for zero terminal cash flow, got %v", err)
	}
}

func TestTwoStageDCFMissingInputs(t *testing.T) {
	// No shares outstanding and no override.
	rec := nestleRecord()
	delete(rec, "profile")
	_, err := TwoStageDCF("NESN", rec, nestleConfig())
	if !fault.IsKind(err, fault.MissingCriticalField) {
		t.Errorf("expected MissingCriticalField for shares, got %v", err)
	}

	// Shares override substitutes for the profile section.
	cfg := nestleConfig()
	cfg.SharesOutstandingOverride = fptr(2621.3)
	if _, err := TwoStageDCF("NESN", rec, cfg); err != nil {
		t.Errorf("override should substitute for profile: %v", err)
	}

	// No free-cash-flow series at all.
	rec = nestleRecord()
	delete(rec, "series")
	_, err = TwoStageDCF("NESN", rec, nestleConfig())
	if !fault.IsKind(err, fault.MissingCriticalField) {
		t.Errorf("expected MissingCriticalField for fcf series, got %v", err)
	}
}

func TestTwoStageDCFConfigValidation(t *testing.T) {
	cfg := nestleConfig()
	cfg.HighGrowthYears = -1
	_, err := TwoStageDCF("NESN", nestleRecord(), cfg)
	if !fault.IsKind(err, fault.InvalidDomainValue) {
		t.Errorf("expected InvalidDomainValue for negative horizon, got %v", err)
	}
}

func TestTwoStageDCFForFetchesOnce(t *testing.T) {
	p := &countingProvider{rec: nestleRecord()}
	res, err := TwoStageDCFFor(context.Background(), p, "NESN", nestleConfig())
	if err != nil {
		t.Fatalf("TwoStageDCFFor: %v", err)
	}
	if p.calls != 1 {
		t.Errorf("provider must be invoked exactly once, got %d", p.calls)
	}
	if math.Abs(res.Value-108.93) > 0.05 {
		t.Errorf("value drifted through the fetch wrapper: %g", res.Value)
	}
}
