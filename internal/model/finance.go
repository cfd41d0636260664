package model

import (
	"math"

	"github.com/shopspring/decimal"
)

// CapitalRecoveryFactor converts an overnight cost into a uniform annual
// payment over years at rate wacc.
func CapitalRecoveryFactor(wacc float64, years int) float64 {
	if years <= 0 {
		return 0
	}
	if wacc == 0 {
		return 1 / float64(years)
	}
	return wacc / (1 - math.Pow(1+wacc, -float64(years)))
}

// InvestmentCost is the levelized annual cost of capex.
func InvestmentCost(capex, wacc float64, years int) float64 {
	return capex * CapitalRecoveryFactor(wacc, years)
}

func nansum(vals ...float64) float64 {
	total := 0.0
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		total += v
	}
	return total
}

// NaNSum sums vals, skipping NaN.
func NaNSum(vals ...float64) float64 { return nansum(vals...) }

// WholeDollars truncates a currency amount toward zero. NaN and infinities
// count as no data.
func WholeDollars(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Truncate(0).IntPart()
}
