package valuation

import (
	"math"

	"intrinsic_valuation/pkg/core/assumption"
	"intrinsic_valuation/pkg/core/fault"
	"intrinsic_valuation/pkg/core/record"
)

// GrowthPath identifies the strategy that produced a growth assumption.
type GrowthPath string

const (
	// GrowthPathNetIncome derives growth from the reinvestment identity
	// g = ROE * (1 - FCFE/NetIncome).
	GrowthPathNetIncome GrowthPath = "net_income_path"
	// GrowthPathFCFECAGR falls back to the compound annual growth rate of
	// the free-cash-flow series.
	GrowthPathFCFECAGR GrowthPath = "fcfe_cagr_path"
)

// GrowthAssumption is the derived high-growth assumption. The path is chosen
// once by data availability, never by caller configuration; each variant
// carries its own validated parameters.
type GrowthAssumption struct {
	Path           GrowthPath
	HighGrowthRate float64
	FCFE0          float64

	// Net-income path only.
	EquityReinvestmentRate float64
	NetIncome0             float64

	// CAGR path only: the lookback actually used after clamping to the
	// available history.
	LookbackYears int
}

// DeriveHighGrowth selects and runs the growth strategy. The net-income path
// applies when at least one net-income observation and an ROE are present;
// otherwise the free-cash-flow CAGR path runs over min(lookbackYears,
// available) periods. The chosen strategy is recorded in the assumption log.
func DeriveHighGrowth(symbol string, fcfPoints, netIncomePoints []record.SeriesPoint, roeRaw *float64, lookbackYears int, log *assumption.Log) (GrowthAssumption, error) {
	if len(fcfPoints) < 2 {
		return GrowthAssumption{}, fault.Seriesf(symbol, "too few points in series.annual.freeCashFlow (min 2, got %d)", len(fcfPoints))
	}
	fcfe0, err := record.Latest(fcfPoints, symbol, "series.annual.freeCashFlow")
	if err != nil {
		return GrowthAssumption{}, err
	}

	if len(netIncomePoints) >= 1 && roeRaw != nil {
		netIncome0, err := record.Latest(netIncomePoints, symbol, "series.annual.netIncome")
		if err != nil {
			return GrowthAssumption{}, err
		}
		if netIncome0 <= 0 {
			return GrowthAssumption{}, fault.Domainf(symbol, "NetIncome_0 must be > 0 for the reinvestment path (got %g)", netIncome0)
		}

		reinvestment := 1.0 - fcfe0/netIncome0
		if math.IsNaN(reinvestment) || math.IsInf(reinvestment, 0) || reinvestment < 0 || reinvestment > 1 {
			return GrowthAssumption{}, fault.Domainf(symbol,
				"invalid equity reinvestment rate (1 - FCFE/NI)=%g (FCFE0=%g, NI0=%g)", reinvestment, fcfe0, netIncome0)
		}

		roe, err := record.NormalizePercent(*roeRaw, symbol, "metric.roe")
		if err != nil {
			return GrowthAssumption{}, err
		}
		if roe <= 0 {
			return GrowthAssumption{}, fault.Domainf(symbol, "ROE must be > 0 (got %g)", roe)
		}

		log.Add("High-growth rate via reinvestment identity: g_high = ROE * equity reinvestment rate.")
		return GrowthAssumption{
			Path:                   GrowthPathNetIncome,
			HighGrowthRate:         roe * reinvestment,
			FCFE0:                  fcfe0,
			EquityReinvestmentRate: reinvestment,
			NetIncome0:             netIncome0,
		}, nil
	}

	pts := record.SortPoints(fcfPoints)
	years := lookbackYears
	if n := len(pts) - 1; n < years {
		years = n
	}
	if years < 1 {
		return GrowthAssumption{}, fault.Seriesf(symbol, "lookback too small or too few free-cash-flow points (have %d)", len(pts))
	}
	start := pts[len(pts)-1-years].Value
	end := pts[len(pts)-1].Value
	g, err := record.CAGR(end, start, float64(years), symbol, "FCFE CAGR")
	if err != nil {
		return GrowthAssumption{}, err
	}

	log.Add("High-growth rate via FCFE CAGR from series.annual.freeCashFlow (net-income series or ROE missing).")
	return GrowthAssumption{
		Path:           GrowthPathFCFECAGR,
		HighGrowthRate: g,
		FCFE0:          fcfe0,
		LookbackYears:  years,
	}, nil
}
