package valuation

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"intrinsic_valuation/pkg/config"
	"intrinsic_valuation/pkg/core/assumption"
	"intrinsic_valuation/pkg/core/fault"
	"intrinsic_valuation/pkg/core/fetch"
	"intrinsic_valuation/pkg/core/quality"
	"intrinsic_valuation/pkg/core/record"
)

// DCFConfig lists every recognized option of the two-stage DCF valuator.
// Zero-valued fields fall back to documented defaults; overrides are
// pointers so an explicit zero stays distinguishable from "unset".
type DCFConfig struct {
	HighGrowthYears   int // forecast horizon, default 5
	LookbackYears     int // CAGR lookback for the fallback growth path, default 5
	RiskFreeRate      float64
	MarketRiskPremium float64

	StableGrowthRate *float64 // default = risk-free rate
	StableBeta       *float64 // stable-period CAPM beta, default 1.0
	StableROE        *float64 // enables the reinvestment-based terminal policy

	CostOfEquityHighGrowth      *float64
	CostOfEquityStable          *float64
	CashAndMarketableSecurities *float64 // added to equity value when set
	SharesOutstandingOverride   *float64
}

func (c DCFConfig) withDefaults() DCFConfig {
	d := config.Standard()
	if c.HighGrowthYears == 0 {
		c.HighGrowthYears = 5
	}
	if c.LookbackYears == 0 {
		c.LookbackYears = 5
	}
	if c.RiskFreeRate == 0 {
		c.RiskFreeRate = d.RiskFreeRate
	}
	if c.MarketRiskPremium == 0 {
		c.MarketRiskPremium = d.MarketRiskPremium
	}
	return c
}

func (c DCFConfig) validate(symbol string) error {
	if c.HighGrowthYears <= 0 {
		return fault.Domainf(symbol, "HighGrowthYears must be > 0 (got %d)", c.HighGrowthYears)
	}
	if c.LookbackYears <= 0 {
		return fault.Domainf(symbol, "LookbackYears must be > 0 (got %d)", c.LookbackYears)
	}
	return nil
}

// TwoStageDCF estimates intrinsic value per share via a two-stage FCFE DCF:
//
//	Value0 = sum_{t=1..n} FCFE_t/(1+r_hg)^t + [FCFE_{n+1}/(r_stable - g_stable)] / (1+r_hg)^n
//
// High-growth cash flows come from the reinvestment identity when a
// net-income series and ROE are available, else from the FCFE trend. The
// terminal cash flow uses a stable reinvestment rate g_stable/ROE_stable
// when a stable ROE is configured, else grows the final cash flow at
// g_stable. Every branch taken is appended to the assumption log.
func TwoStageDCF(symbol string, rec record.Record, cfg DCFConfig) (*Result, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(symbol); err != nil {
		return nil, err
	}

	log := assumption.NewLog()
	components := map[string]any{}

	stableGrowth := cfg.RiskFreeRate
	if cfg.StableGrowthRate != nil {
		stableGrowth = *cfg.StableGrowthRate
		log.Addf("Stable growth rate g_stable=%.6f (configured).", stableGrowth)
	} else {
		log.Addf("Stable growth rate g_stable=%.6f (default = risk-free rate).", stableGrowth)
	}

	// Shares outstanding
	shares, ok := rec.Float("profile.shareOutstanding")
	if !ok {
		if cfg.SharesOutstandingOverride == nil {
			return nil, fault.Missing(symbol, "profile.shareOutstanding")
		}
		shares = *cfg.SharesOutstandingOverride
		log.Add("Shares outstanding via SharesOutstandingOverride (profile section missing).")
	}
	if shares <= 0 {
		return nil, fault.Domainf(symbol, "shares outstanding must be > 0 (got %g)", shares)
	}

	// Free-cash-flow series
	rawFCF, ok := rec.Lookup("series.annual.freeCashFlow")
	if !ok {
		return nil, fault.Missing(symbol, "series.annual.freeCashFlow")
	}
	fcfPoints := record.Points(rawFCF)
	if len(fcfPoints) < 2 {
		return nil, fault.Seriesf(symbol, "too few points in series.annual.freeCashFlow (min 2, got %d)", len(fcfPoints))
	}

	netIncomePoints := record.SeriesFrom(rec, "series.annual.netIncome")
	var roePtr *float64
	if roe, ok := rec.Float("metric.roe"); ok {
		roePtr = &roe
	}

	growth, err := DeriveHighGrowth(symbol, fcfPoints, netIncomePoints, roePtr, cfg.LookbackYears, log)
	if err != nil {
		return nil, err
	}
	components["fcfe0"] = growth.FCFE0
	components["g_high"] = growth.HighGrowthRate
	if growth.Path == GrowthPathNetIncome {
		components["net_income0"] = growth.NetIncome0
		components["equity_reinvestment_rate_high"] = growth.EquityReinvestmentRate
	}

	// Discount rates
	var costOfEquityHigh float64
	if cfg.CostOfEquityHighGrowth != nil {
		costOfEquityHigh = *cfg.CostOfEquityHighGrowth
		log.Add("Cost of equity (high growth) via CostOfEquityHighGrowth override.")
	} else {
		beta, err := record.RequireFloat(rec, symbol, "metric.beta")
		if err != nil {
			return nil, err
		}
		costOfEquityHigh = CostOfEquity(cfg.RiskFreeRate, beta, cfg.MarketRiskPremium)
		log.Add("Cost of equity (high growth) via CAPM: rf + beta * MRP.")
		components["beta"] = beta
	}

	var costOfEquityStable float64
	if cfg.CostOfEquityStable != nil {
		costOfEquityStable = *cfg.CostOfEquityStable
		log.Add("Cost of equity (stable) via CostOfEquityStable override.")
	} else {
		stableBeta := 1.0
		if cfg.StableBeta != nil {
			stableBeta = *cfg.StableBeta
		}
		costOfEquityStable = CostOfEquity(cfg.RiskFreeRate, stableBeta, cfg.MarketRiskPremium)
		log.Add("Cost of equity (stable) via CAPM with stable beta (default 1.0).")
	}
	if costOfEquityStable <= stableGrowth {
		return nil, fault.Domainf(symbol, "terminal condition violated: stable cost of equity (%g) <= stable growth (%g)", costOfEquityStable, stableGrowth)
	}

	components["re_high_growth"] = costOfEquityHigh
	components["re_stable"] = costOfEquityStable
	components["stable_growth_rate"] = stableGrowth
	components["high_growth_years"] = cfg.HighGrowthYears

	// High-growth projection and terminal cash flow
	n := cfg.HighGrowthYears
	projected := make([]float64, 0, n)
	var presentValueFCFE float64
	var terminalCashFlow float64

	if growth.Path == GrowthPathNetIncome {
		for t := 1; t <= n; t++ {
			netIncomeT := growth.NetIncome0 * math.Pow(1.0+growth.HighGrowthRate, float64(t))
			fcfeT := netIncomeT * (1.0 - growth.EquityReinvestmentRate)
			projected = append(projected, fcfeT)
			presentValueFCFE += fcfeT / math.Pow(1.0+costOfEquityHigh, float64(t))
		}

		if cfg.StableROE != nil {
			stableROE, err := record.NormalizePercent(*cfg.StableROE, symbol, "StableROE")
			if err != nil {
				return nil, err
			}
			if stableROE <= 0 {
				return nil, fault.Domainf(symbol, "StableROE must be > 0 (got %g)", stableROE)
			}
			stableReinvestment := stableGrowth / stableROE
			if stableReinvestment < 0 || stableReinvestment > 1 {
				return nil, fault.Domainf(symbol, "invalid stable reinvestment rate g_stable/ROE_stable = %g", stableReinvestment)
			}
			netIncomeN := growth.NetIncome0 * math.Pow(1.0+growth.HighGrowthRate, float64(n))
			terminalCashFlow = netIncomeN * (1.0 + stableGrowth) * (1.0 - stableReinvestment)
			log.Add("Terminal cash flow via stable reinvestment rate g_stable/ROE_stable.")
			components["stable_reinvestment_rate"] = stableReinvestment
		} else {
			terminalCashFlow = projected[n-1] * (1.0 + stableGrowth)
			log.Add("Terminal cash flow via FCFE_n*(1+g_stable) (no stable ROE configured).")
		}
	} else {
		for t := 1; t <= n; t++ {
			fcfeT := growth.FCFE0 * math.Pow(1.0+growth.HighGrowthRate, float64(t))
			projected = append(projected, fcfeT)
			presentValueFCFE += fcfeT / math.Pow(1.0+costOfEquityHigh, float64(t))
		}
		terminalCashFlow = projected[n-1] * (1.0 + stableGrowth)
		log.Add("Terminal cash flow via FCFE_n*(1+g_stable).")
	}

	if terminalCashFlow <= 0 {
		return nil, fault.Domainf(symbol, "terminal cash flow must be > 0 (got %g)", terminalCashFlow)
	}

	terminalValue := terminalCashFlow / (costOfEquityStable - stableGrowth)
	presentValueTerminal := terminalValue / math.Pow(1.0+costOfEquityHigh, float64(n))

	equityValue := presentValueFCFE + presentValueTerminal
	if cfg.CashAndMarketableSecurities != nil {
		equityValue += *cfg.CashAndMarketableSecurities
		components["cash_and_marketable_securities_added"] = *cfg.CashAndMarketableSecurities
		log.Add("Cash & marketable securities added to equity value (configured add-back).")
	}

	intrinsicPerShare := equityValue / shares

	components["pv_fcfe_high_growth"] = presentValueFCFE
	components["fcfe_projected_high_growth"] = projected
	components["fcfe_n_plus_1"] = terminalCashFlow
	components["terminal_value"] = terminalValue
	components["pv_terminal_value"] = presentValueTerminal
	components["equity_value_total"] = equityValue
	components["shares_outstanding"] = shares

	required := []string{"series.annual.freeCashFlow", "profile.shareOutstanding"}
	if cfg.CostOfEquityHighGrowth == nil {
		required = append(required, "metric.beta")
	}
	optional := []string{"metric.roe", "series.annual.netIncome", "quote.c"}
	requiredRatio := quality.Coverage(rec, required)
	optionalRatio := quality.Coverage(rec, optional)

	return &Result{
		RunID:       uuid.NewString(),
		Value:       intrinsicPerShare,
		Components:  components,
		Assumptions: log.Entries(),
		DataQuality: map[string]any{
			"required_fields_present_ratio": quality.Round4(requiredRatio),
			"optional_fields_present_ratio": quality.Round4(optionalRatio),
			"model_path":                    string(growth.Path),
		},
		Confidence: quality.Score(requiredRatio, optionalRatio, quality.Weights{Required: 0.85, Optional: 0.15}),
	}, nil
}

// TwoStageDCFFor obtains the record from the data-fetch collaborator,
// invoked exactly once, then runs the two-stage DCF.
func TwoStageDCFFor(ctx context.Context, provider fetch.Provider, symbol string, cfg DCFConfig) (*Result, error) {
	rec, err := provider.Fetch(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	return TwoStageDCF(symbol, rec, cfg)
}
