package analytics

import "math"

// Assumption is an annualized expected return and volatility
type Assumption struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// DefaultAssumption is the generic market assumption used when a series
// is too short to estimate from
var DefaultAssumption = Assumption{Mean: 0.08, Std: 0.15}

// ReturnStats are annualized log-return statistics of a price series.
// Defaulted reports that the fallback assumption was used.
type ReturnStats struct {
	Mean      float64 `json:"mean"`
	Std       float64 `json:"std"`
	Pairs     int     `json:"pairs"`
	Defaulted bool    `json:"defaulted"`
}

// Assumption returns the stats as a simulation assumption
func (s ReturnStats) Assumption() Assumption {
	return Assumption{Mean: s.Mean, Std: s.Std}
}

// LogReturns returns ln(p[i]/p[i-1]) for each consecutive pair of positive prices
func LogReturns(prices []float64) []float64 {
	var out []float64
	for i := 1; i < len(prices); i++ {
		p0, p1 := prices[i-1], prices[i]
		if p0 > 0 && p1 > 0 {
			out = append(out, math.Log(p1/p0))
		}
	}
	return out
}

// LogReturnStats computes monthly log-return statistics annualized by 12.
// With fewer than 2 valid pairs it returns fallback with Defaulted set.
func LogReturnStats(prices []float64, fallback Assumption) ReturnStats {
	returns := LogReturns(prices)
	n := len(returns)
	if n < 2 {
		return ReturnStats{Mean: fallback.Mean, Std: fallback.Std, Pairs: n, Defaulted: true}
	}

	avg := mean(returns)
	ss := 0.0
	for _, r := range returns {
		ss += (r - avg) * (r - avg)
	}
	denom := float64(n - 1)
	if denom == 0 {
		denom = 1
	}

	return ReturnStats{
		Mean:  avg * monthsPerYear,
		Std:   math.Sqrt(ss/denom) * math.Sqrt(monthsPerYear),
		Pairs: n,
	}
}
