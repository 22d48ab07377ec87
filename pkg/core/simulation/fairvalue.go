package simulation

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
	"intrinsic_valuation/pkg/core/valuation"
)

// FairValueConfig lists every recognized option of the stochastic fair-value
// simulator. Zero-valued fields fall back to documented defaults; overrides
// are pointers so an explicit zero stays distinguishable from "unset".
type FairValueConfig struct {
	Iterations        int     // default 1000, minimum 100, must be even
	RiskFreeRate      float64 // CAPM risk-free rate
	MarketRiskPremium float64 // CAPM market risk premium

	ProjectionYears     int     // default 5
	TerminalGrowth      float64 // default 0.025
	TerminalFCFMultiple float64 // default 15, used when r <= terminal growth
	TaxRate             float64 // default 0.21, flat EBIT tax in the FCF proxy

	GrowthStdDev         float64 // default 0.30, absolute
	MarginStdDevFraction float64 // default 0.20, fraction of the base margin
	DiscountStdDev       float64 // default 0.02, absolute

	RevenueOverride           *float64
	MarginOverride            *float64
	BetaOverride              *float64
	SharesOutstandingOverride *float64
	CurrentPriceOverride      *float64
	Seed                      *uint64 // reproduces the draw sequence when set
}

func (c FairValueConfig) withDefaults() FairValueConfig {
	d := config.Standard()
	if c.Iterations == 0 {
		c.Iterations = 1000
	}
	if c.RiskFreeRate == 0 {
		c.RiskFreeRate = d.RiskFreeRate
	}
	if c.MarketRiskPremium == 0 {
		c.MarketRiskPremium = d.MarketRiskPremium
	}
	if c.ProjectionYears == 0 {
		c.ProjectionYears = 5
	}
	if c.TerminalGrowth == 0 {
		c.TerminalGrowth = 0.025
	}
	if c.TerminalFCFMultiple == 0 {
		c.TerminalFCFMultiple = 15.0
	}
	if c.TaxRate == 0 {
		c.TaxRate = d.CorporateTaxRate
	}
	if c.GrowthStdDev == 0 {
		c.GrowthStdDev = 0.30
	}
	if c.MarginStdDevFraction == 0 {
		c.MarginStdDevFraction = 0.20
	}
	if c.DiscountStdDev == 0 {
		c.DiscountStdDev = 0.02
	}
	return c
}

func (c FairValueConfig) validate(symbol string) error {
	if c.Iterations < 100 {
		return fault.Domainf(symbol, "iterations must be >= 100, got %d", c.Iterations)
	}
	if c.Iterations%2 != 0 {
		return fault.Domainf(symbol, "iterations must be even for antithetic variates, got %d", c.Iterations)
	}
	if c.ProjectionYears <= 0 {
		return fault.Domainf(symbol, "projection years must be > 0, got %d", c.ProjectionYears)
	}
	return nil
}

// InputDistribution documents one stochastic input of the fair-value run.
type InputDistribution struct {
	Base         float64 `json:"base"`
	StdDev       float64 `json:"std_dev"`
	Distribution string  `json:"distribution"`
	Source       string  `json:"source"`
}

// FairValueResult is the distributional output of the stochastic fair-value
// simulation.
type FairValueResult struct {
	RunID string `json:"run_id"`

	ValueP10 float64 `json:"value_p10"`
	ValueP50 float64 `json:"value_p50"`
	ValueP90 float64 `json:"value_p90"`

	// ProbValueGTPrice is the fraction of simulated per-share values strictly
	// above the current price; MoS15Prob the fraction at or above 1.15x.
	ProbValueGTPrice float64 `json:"prob_value_gt_price"`
	MoS15Prob        float64 `json:"mos_15_prob"`

	IterationsRun    int                          `json:"iterations_run"`
	InputAssumptions map[string]InputDistribution `json:"input_assumptions"`
	Components       map[string]any               `json:"components"`
	Assumptions      []string                     `json:"assumptions"`
	DataQuality      map[string]any               `json:"data_quality"`
	Confidence       float64                      `json:"confidence"`
}

// pathParams holds the deterministic per-run inputs of simulatePath so the
// antithetic pair shares everything but the sign of the draws.
type pathParams struct {
	Revenue0     float64
	GrowthBase   float64
	GrowthStd    float64
	MarginBase   float64
	MarginStd    float64
	DiscountBase float64
	DiscountStd  float64

	ProjectionYears     int
	TerminalGrowth      float64
	TerminalFCFMultiple float64
	AfterTaxFactor      float64
}

// simulatePath runs one stochastic DCF path and returns the present value of
// the projected cash flows plus the terminal value. Shocked inputs are
// clamped: growth to [-0.50, 1.00], margin to [0.01, 0.95], discount rate to
// [0.02, 0.30]. When the shocked rate falls at or below the terminal growth
// the perpetuity is replaced by an FCF multiple.
func simulatePath(p pathParams, zGrowth, zMargin, zDiscount float64) float64 {
	growth := clamp(p.GrowthBase+p.GrowthStd*zGrowth, -0.50, 1.00)
	margin := clamp(p.MarginBase+p.MarginStd*zMargin, 0.01, 0.95)
	rate := clamp(p.DiscountBase+p.DiscountStd*zDiscount, 0.02, 0.30)

	pvFCF := 0.0
	revenue := p.Revenue0
	discount := 1.0
	for t := 1; t <= p.ProjectionYears; t++ {
		revenue *= 1.0 + growth
		discount *= 1.0 + rate
		fcf := revenue * margin * p.AfterTaxFactor
		pvFCF += fcf / discount
	}

	fcfTerminal := revenue * margin * p.AfterTaxFactor * (1.0 + p.TerminalGrowth)
	var terminalValue float64
	if rate <= p.TerminalGrowth {
		terminalValue = fcfTerminal * p.TerminalFCFMultiple
	} else {
		terminalValue = fcfTerminal / (rate - p.TerminalGrowth)
	}

	return pvFCF + terminalValue/discount
}

// FairValue estimates a per-share fair-value distribution by running a short
// stochastic DCF many times. Revenue growth, operating margin and the CAPM
// discount rate are drawn from normal distributions around their observed
// bases; draws come in antithetic pairs (z, -z) for variance reduction, which
// is why the iteration count must be even.
func FairValue(symbol string, rec record.Record, cfg FairValueConfig) (*FairValueResult, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(symbol); err != nil {
		return nil, err
	}

	log := assumption.NewLog()
	components := map[string]any{}

	// Current price
	var price float64
	if cfg.CurrentPriceOverride != nil {
		price = *cfg.CurrentPriceOverride
		log.Add("Current price via CurrentPriceOverride.")
	} else {
		var err error
		price, err = record.RequireFloat(rec, symbol, "quote.c")
		if err != nil {
			return nil, err
		}
		log.Add("Current price from quote.c.")
	}
	if price <= 0 {
		return nil, fault.Domainf(symbol, "current price must be > 0, got %g", price)
	}

	// Shares outstanding
	var shares float64
	if cfg.SharesOutstandingOverride != nil {
		shares = *cfg.SharesOutstandingOverride
		log.Add("Shares outstanding via SharesOutstandingOverride.")
	} else {
		var err error
		shares, err = record.RequireFloat(rec, symbol, "profile.shareOutstanding")
		if err != nil {
			return nil, err
		}
		log.Add("Shares outstanding from profile.shareOutstanding.")
	}
	if shares <= 0 {
		return nil, fault.Domainf(symbol, "shares outstanding must be > 0, got %g", shares)
	}

	// Base revenue: TTM metric first, annual series second.
	var revenue0 float64
	if cfg.RevenueOverride != nil {
		revenue0 = *cfg.RevenueOverride
		log.Add("Revenue via RevenueOverride.")
	} else if v, ok := rec.Float("metric.revenueTTM"); ok {
		revenue0 = v
		log.Add("Revenue from metric.revenueTTM.")
	} else if raw, ok := rec.Lookup("series.annual.revenue"); ok {
		latest, err := record.Latest(record.Points(raw), symbol, "series.annual.revenue")
		if err != nil {
			return nil, err
		}
		revenue0 = latest
		log.Add("Revenue from series.annual.revenue (latest).")
	} else {
		return nil, fault.Missing(symbol, "metric.revenueTTM")
	}
	if revenue0 <= 0 {
		return nil, fault.Domainf(symbol, "revenue must be > 0, got %g", revenue0)
	}

	// Base operating margin: direct metric first, operating income ratio second.
	var margin0 float64
	if cfg.MarginOverride != nil {
		margin0 = *cfg.MarginOverride
		log.Add("Operating margin via MarginOverride.")
	} else if raw, ok := rec.Float("metric.operatingMargin"); ok {
		var err error
		margin0, err = record.NormalizePercent(raw, symbol, "metric.operatingMargin")
		if err != nil {
			return nil, err
		}
		log.Add("Operating margin from metric.operatingMargin.")
	} else if oi, ok := rec.Float("metric.operatingIncomeTTM"); ok {
		margin0 = oi / revenue0
		log.Add("Operating margin from operatingIncomeTTM / revenue.")
	} else {
		return nil, fault.Missing(symbol, "metric.operatingMargin")
	}
	if margin0 <= 0 || margin0 > 1 {
		return nil, fault.Domainf(symbol, "operating margin must lie in (0, 1], got %g", margin0)
	}

	// Base growth: revenue CAGR over up to 3 years, else a flat 5% default.
	growthBase := 0.05
	growthSource := "default 5%"
	if raw, ok := rec.Lookup("series.annual.revenue"); ok {
		pts := record.SortPoints(record.Points(raw))
		years := len(pts) - 1
		if years > 3 {
			years = 3
		}
		if years >= 1 {
			start := pts[len(pts)-1-years].Value
			end := pts[len(pts)-1].Value
			if start > 0 && end > 0 {
				if g, err := record.CAGR(end, start, float64(years), symbol, "revenue CAGR"); err == nil {
					growthBase = g
					growthSource = fmt.Sprintf("%d-year historical revenue CAGR", years)
				}
			}
		}
	}
	log.Addf("Revenue growth base %.4f (%s).", growthBase, growthSource)

	// Discount rate base via CAPM.
	var beta float64
	if cfg.BetaOverride != nil {
		beta = *cfg.BetaOverride
		log.Add("Beta via BetaOverride.")
	} else {
		var err error
		beta, err = record.RequireFloat(rec, symbol, "metric.beta")
		if err != nil {
			return nil, err
		}
		log.Add("Beta from metric.beta.")
	}
	discountBase := valuation.CostOfEquity(cfg.RiskFreeRate, beta, cfg.MarketRiskPremium)

	params := pathParams{
		Revenue0:            revenue0,
		GrowthBase:          growthBase,
		GrowthStd:           cfg.GrowthStdDev,
		MarginBase:          margin0,
		MarginStd:           margin0 * cfg.MarginStdDevFraction,
		DiscountBase:        discountBase,
		DiscountStd:         cfg.DiscountStdDev,
		ProjectionYears:     cfg.ProjectionYears,
		TerminalGrowth:      cfg.TerminalGrowth,
		TerminalFCFMultiple: cfg.TerminalFCFMultiple,
		AfterTaxFactor:      1.0 - cfg.TaxRate,
	}

	components["revenue_0"] = revenue0
	components["margin_0"] = margin0
	components["growth_base"] = growthBase
	components["discount_rate_base"] = discountBase
	components["beta"] = beta
	components["current_price"] = price
	components["shares_outstanding"] = shares

	normal := newStandardNormal(cfg.Seed)
	fairValues := make([]float64, cfg.Iterations)
	var shockSum float64
	for i := 0; i < cfg.Iterations/2; i++ {
		zGrowth := normal.Rand()
		zMargin := normal.Rand()
		zDiscount := normal.Rand()

		fairValues[2*i] = simulatePath(params, zGrowth, zMargin, zDiscount) / shares
		fairValues[2*i+1] = simulatePath(params, -zGrowth, -zMargin, -zDiscount) / shares
		shockSum += zGrowth + zMargin + zDiscount
		shockSum += -zGrowth - zMargin - zDiscount
	}
	components["applied_shock_sum"] = shockSum

	p10 := quantile(0.10, fairValues)
	p50 := quantile(0.50, fairValues)
	p90 := quantile(0.90, fairValues)

	above, aboveMoS := 0, 0
	mosThreshold := price * 1.15
	for _, v := range fairValues {
		if v > price {
			above++
		}
		if v >= mosThreshold {
			aboveMoS++
		}
	}

	inputAssumptions := map[string]InputDistribution{
		"revenue_growth": {
			Base:         growthBase,
			StdDev:       cfg.GrowthStdDev,
			Distribution: "normal",
			Source:       growthSource,
		},
		"operating_margin": {
			Base:         margin0,
			StdDev:       params.MarginStd,
			Distribution: "normal",
			Source:       "metric.operatingMargin or operating income ratio",
		},
		"discount_rate": {
			Base:         discountBase,
			StdDev:       cfg.DiscountStdDev,
			Distribution: "normal",
			Source:       "CAPM (rf + beta * MRP)",
		},
	}

	required := []string{"profile.shareOutstanding", "quote.c", "metric.beta"}
	optional := []string{"metric.revenueTTM", "series.annual.revenue", "metric.operatingMargin"}
	requiredRatio := quality.Coverage(rec, required)
	optionalRatio := quality.Coverage(rec, optional)

	relWidth := quality.RelativeWidth(p10, p90)
	confidence := quality.Clamp01(
		quality.Score(requiredRatio, optionalRatio, quality.Weights{Required: 0.70, Optional: 0.30}) +
			quality.SpreadPenalty(relWidth))

	log.Addf("Monte Carlo simulation with %d iterations using antithetic variates.", cfg.Iterations)
	log.Addf("%d-year projection with terminal value (perpetuity growth %.1f%% or %.0fx FCF fallback).",
		cfg.ProjectionYears, cfg.TerminalGrowth*100, cfg.TerminalFCFMultiple)

	return &FairValueResult{
		RunID:            uuid.NewString(),
		ValueP10:         p10,
		ValueP50:         p50,
		ValueP90:         p90,
		ProbValueGTPrice: float64(above) / float64(cfg.Iterations),
		MoS15Prob:        float64(aboveMoS) / float64(cfg.Iterations),
		IterationsRun:    cfg.Iterations,
		InputAssumptions: inputAssumptions,
		Components:       components,
		Assumptions:      log.Entries(),
		DataQuality: map[string]any{
			"required_fields_present_ratio": quality.Round4(requiredRatio),
			"optional_fields_present_ratio": quality.Round4(optionalRatio),
			"relative_distribution_width":   quality.Round4(relWidth),
		},
		Confidence: confidence,
	}, nil
}

// FairValueFor obtains the record from the data-fetch collaborator, invoked
// exactly once, then runs the fair-value simulation.
func FairValueFor(ctx context.Context, provider fetch.Provider, symbol string, cfg FairValueConfig) (*FairValueResult, error) {
	rec, err := provider.Fetch(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	return FairValue(symbol, rec, cfg)
}
