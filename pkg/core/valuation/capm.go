package valuation

// CostOfEquity applies CAPM: r_e = r_f + beta * MRP.
func CostOfEquity(riskFreeRate, beta, marketRiskPremium float64) float64 {
	return riskFreeRate + beta*marketRiskPremium
}
