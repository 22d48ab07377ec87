// Package valuation implements the deterministic equity valuation models:
// CAPM cost of equity, the weighted average cost of capital, and the
// two-stage FCFE discounted cash-flow valuator.
//
// Every entry point is a pure function over a record.Record plus an explicit
// config struct. Results carry the full assumption log and a confidence
// scalar; downstream consumers should depend only on Value, Confidence and
// Assumptions; Components is diagnostic and may grow.
package valuation

// Result is the uniform output contract of the DCF valuator and the WACC
// estimator.
type Result struct {
	RunID       string         `json:"run_id"`
	Value       float64        `json:"value"`
	Components  map[string]any `json:"components"`
	Assumptions []string       `json:"assumptions"`
	DataQuality map[string]any `json:"data_quality"`
	Confidence  float64        `json:"confidence"`
}
