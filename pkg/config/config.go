// Package config carries the model-wide default parameters shared by the
// valuators. Per-call configuration lives in each valuator's config struct;
// this package only supplies the baseline rates and can load them from a
// YAML file or environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v2"
)

// Defaults holds the baseline model parameters.
type Defaults struct {
	RiskFreeRate       float64 `yaml:"risk_free_rate"`
	MarketRiskPremium  float64 `yaml:"market_risk_premium"`
	CorporateTaxRate   float64 `yaml:"corporate_tax_rate"`
	TradingDaysPerYear int     `yaml:"trading_days_per_year"`
}

// Standard returns the built-in defaults: 4% risk-free, 5.5% market risk
// premium, 21% domestic corporate tax, 252 trading days.
func Standard() Defaults {
	return Defaults{
		RiskFreeRate:       0.04,
		MarketRiskPremium:  0.055,
		CorporateTaxRate:   0.21,
		TradingDaysPerYear: 252,
	}
}

// Load reads defaults from a YAML file layered over the built-in values.
// Unknown keys are ignored, not errors.
func Load(path string) (Defaults, error) {
	d := Standard()
	raw, err := os.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return d, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := d.Validate(); err != nil {
		return d, err
	}
	return d, nil
}

// FromEnv loads a .env file when present, then applies environment
// overrides (IV_RISK_FREE_RATE, IV_MARKET_RISK_PREMIUM,
// IV_CORPORATE_TAX_RATE, IV_TRADING_DAYS_PER_YEAR) over the built-ins.
func FromEnv() (Defaults, error) {
	_ = godotenv.Load()
	d := Standard()

	for key, dst := range map[string]*float64{
		"IV_RISK_FREE_RATE":      &d.RiskFreeRate,
		"IV_MARKET_RISK_PREMIUM": &d.MarketRiskPremium,
		"IV_CORPORATE_TAX_RATE":  &d.CorporateTaxRate,
	} {
		raw := os.Getenv(key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return d, fmt.Errorf("parse %s: %w", key, err)
		}
		*dst = v
	}
	if raw := os.Getenv("IV_TRADING_DAYS_PER_YEAR"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return d, fmt.Errorf("parse IV_TRADING_DAYS_PER_YEAR: %w", err)
		}
		d.TradingDaysPerYear = v
	}
	if err := d.Validate(); err != nil {
		return d, err
	}
	return d, nil
}

// Validate rejects defaults outside their plausible ranges.
func (d Defaults) Validate() error {
	if d.RiskFreeRate < 0 {
		return fmt.Errorf("risk_free_rate must be >= 0 (got %g)", d.RiskFreeRate)
	}
	if d.MarketRiskPremium < 0 {
		return fmt.Errorf("market_risk_premium must be >= 0 (got %g)", d.MarketRiskPremium)
	}
	if d.CorporateTaxRate < 0 || d.CorporateTaxRate > 0.80 {
		return fmt.Errorf("corporate_tax_rate outside [0, 0.8] (got %g)", d.CorporateTaxRate)
	}
	if d.TradingDaysPerYear <= 0 {
		return fmt.Errorf("trading_days_per_year must be > 0 (got %d)", d.TradingDaysPerYear)
	}
	return nil
}
