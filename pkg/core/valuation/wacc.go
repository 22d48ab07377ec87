package valuation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"intrinsic_valuation/pkg/config"
	"intrinsic_valuation/pkg/core/assumption"
	"intrinsic_valuation/pkg/core/fault"
	"intrinsic_valuation/pkg/core/fetch"
	"intrinsic_valuation/pkg/core/quality"
	"intrinsic_valuation/pkg/core/record"
)

// WACCConfig lists every recognized option of the cost-of-capital estimator.
// Zero-valued rates fall back to the model defaults in pkg/config; overrides
// are pointers so that an explicit zero stays distinguishable from "unset".
type WACCConfig struct {
	RiskFreeRate      float64
	MarketRiskPremium float64
	CorporateTaxRate  float64 // applied when the record carries no tax field

	CostOfEquityOverride     *float64
	PreTaxCostOfDebtOverride *float64
	TaxRateOverride          *float64
	MarketValueEquity        *float64
	MarketValueDebt          *float64
}

func (c WACCConfig) withDefaults() WACCConfig {
	d := config.Standard()
	if c.RiskFreeRate == 0 {
		c.RiskFreeRate = d.RiskFreeRate
	}
	if c.MarketRiskPremium == 0 {
		c.MarketRiskPremium = d.MarketRiskPremium
	}
	if c.CorporateTaxRate == 0 {
		c.CorporateTaxRate = d.CorporateTaxRate
	}
	return c
}

// CreditSpread maps a debt/equity ratio onto a deterministic credit spread.
// Seven monotonic bands from 1.0% to 8.0%, ceiling band at ratio >= 5.0.
func CreditSpread(symbol string, debtToEquity float64) (float64, error) {
	if debtToEquity < 0 {
		return 0, fault.Domainf(symbol, "debtToEquity must be >= 0 (got %g)", debtToEquity)
	}
	switch {
	case debtToEquity < 0.10:
		return 0.010, nil
	case debtToEquity < 0.50:
		return 0.015, nil
	case debtToEquity < 1.00:
		return 0.020, nil
	case debtToEquity < 2.00:
		return 0.030, nil
	case debtToEquity < 3.00:
		return 0.040, nil
	case debtToEquity < 5.00:
		return 0.060, nil
	}
	return 0.080, nil
}

// WACC computes the weighted average cost of capital:
//
//	WACC = E/(D+E) * r_e + D/(D+E) * r_d * (1 - t)
//
// Cost of equity comes from CAPM unless overridden. Capital weights use the
// market-value overrides when both are supplied, else the debt/equity-ratio
// proxy. Pre-tax cost of debt is overridden or estimated as risk-free +
// spread(D/E).
func WACC(symbol string, rec record.Record, cfg WACCConfig) (*Result, error) {
	cfg = cfg.withDefaults()

	log := assumption.NewLog()
	components := map[string]any{}

	// Cost of equity
	var costOfEquity float64
	if cfg.CostOfEquityOverride != nil {
		costOfEquity = *cfg.CostOfEquityOverride
		log.Add("Cost of equity via CostOfEquityOverride.")
	} else {
		beta, err := record.RequireFloat(rec, symbol, "metric.beta")
		if err != nil {
			return nil, err
		}
		costOfEquity = CostOfEquity(cfg.RiskFreeRate, beta, cfg.MarketRiskPremium)
		log.Add("Cost of equity via CAPM (beta from record).")
		components["beta"] = beta
	}

	// Tax rate
	var taxRate float64
	if cfg.TaxRateOverride != nil {
		taxRate = *cfg.TaxRateOverride
		log.Add("Tax rate via TaxRateOverride.")
	} else {
		raw, ok := rec.Float("metric.taxRateForCalcs")
		if !ok {
			raw, ok = rec.Float("metric.effectiveTaxRate")
		}
		if !ok {
			taxRate = cfg.CorporateTaxRate
			log.Addf("Tax rate defaulted to %.2f (domestic corporate), record carries no tax field.", taxRate)
		} else {
			var err error
			taxRate, err = record.NormalizePercent(raw, symbol, "metric.effectiveTaxRate")
			if err != nil {
				return nil, err
			}
			log.Add("Tax rate from record metric.* (percent-normalized when encoded as percent).")
		}
	}
	if taxRate < 0 || taxRate > 0.80 {
		return nil, fault.Domainf(symbol, "tax rate outside plausible range [0, 0.8]: %g", taxRate)
	}

	// Capital weights
	var equityWeight, debtWeight float64
	if cfg.MarketValueEquity != nil && cfg.MarketValueDebt != nil {
		mvEquity, mvDebt := *cfg.MarketValueEquity, *cfg.MarketValueDebt
		if mvEquity <= 0 || mvDebt < 0 {
			return nil, fault.Domainf(symbol, "market values need equity > 0 and debt >= 0 (equity=%g, debt=%g)", mvEquity, mvDebt)
		}
		equityWeight = mvEquity / (mvEquity + mvDebt)
		debtWeight = mvDebt / (mvEquity + mvDebt)
		log.Add("Capital weights via market value overrides.")
		components["market_value_equity"] = mvEquity
		components["market_value_debt"] = mvDebt
	} else {
		debtToEquity, err := record.RequireFloat(rec, symbol, "metric.debtToEquity")
		if err != nil {
			return nil, err
		}
		if debtToEquity < 0 {
			return nil, fault.Domainf(symbol, "debtToEquity must be >= 0 (got %g)", debtToEquity)
		}
		equityWeight = 1.0 / (1.0 + debtToEquity)
		debtWeight = debtToEquity / (1.0 + debtToEquity)
		log.Add("Capital weights via debtToEquity proxy: E/V=1/(1+D/E), D/V=(D/E)/(1+D/E).")
		components["debt_to_equity"] = debtToEquity
	}

	// Pre-tax cost of debt
	var preTaxCostOfDebt float64
	if cfg.PreTaxCostOfDebtOverride != nil {
		preTaxCostOfDebt = *cfg.PreTaxCostOfDebtOverride
		log.Add("Pre-tax cost of debt via PreTaxCostOfDebtOverride.")
	} else {
		debtToEquity, err := record.RequireFloat(rec, symbol, "metric.debtToEquity")
		if err != nil {
			return nil, err
		}
		spread, err := CreditSpread(symbol, debtToEquity)
		if err != nil {
			return nil, err
		}
		preTaxCostOfDebt = cfg.RiskFreeRate + spread
		log.Add("Pre-tax cost of debt estimated as risk-free + spread(D/E).")
		components["estimated_credit_spread"] = spread
	}
	if preTaxCostOfDebt <= 0 {
		return nil, fault.Domainf(symbol, "pre-tax cost of debt must be > 0 (got %g)", preTaxCostOfDebt)
	}

	afterTaxCostOfDebt := preTaxCostOfDebt * (1.0 - taxRate)
	wacc := equityWeight*costOfEquity + debtWeight*afterTaxCostOfDebt

	components["risk_free_rate"] = cfg.RiskFreeRate
	components["market_risk_premium"] = cfg.MarketRiskPremium
	components["cost_of_equity"] = costOfEquity
	components["pre_tax_cost_of_debt"] = preTaxCostOfDebt
	components["after_tax_cost_of_debt"] = afterTaxCostOfDebt
	components["tax_rate"] = taxRate
	components["equity_weight"] = equityWeight
	components["debt_weight"] = debtWeight
	components["wacc"] = wacc

	var required []string
	if cfg.CostOfEquityOverride == nil {
		required = append(required, "metric.beta")
	}
	if cfg.MarketValueEquity == nil || cfg.MarketValueDebt == nil {
		required = append(required, "metric.debtToEquity")
	}
	if cfg.PreTaxCostOfDebtOverride == nil {
		required = append(required, "metric.debtToEquity")
	}
	requiredRatio := quality.Coverage(rec, required)

	return &Result{
		RunID:       uuid.NewString(),
		Value:       wacc,
		Components:  components,
		Assumptions: log.Entries(),
		DataQuality: map[string]any{
			"required_fields_present_ratio": quality.Round4(requiredRatio),
		},
		Confidence: quality.Score(requiredRatio, 0, quality.Weights{Required: 1.0}),
	}, nil
}

// WACCFor obtains the record from the data-fetch collaborator, invoked
// exactly once, then computes the WACC.
func WACCFor(ctx context.Context, provider fetch.Provider, symbol string, cfg WACCConfig) (*Result, error) {
	rec, err := provider.Fetch(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	return WACC(symbol, rec, cfg)
}
