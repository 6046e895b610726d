package backtest

import (
	"math"
	"time"
)

// Summary holds the performance metrics of a completed run.
type Summary struct {
	Bars           int           `json:"bars"`
	WarmupBars     int           `json:"warmup_bars"`
	Fills          int           `json:"fills"`
	InitialCapital float64       `json:"initial_capital"`
	FinalEquity    float64       `json:"final_equity"`
	ReturnPct      float64       `json:"return_pct"`
	MaxDrawdownPct float64       `json:"max_drawdown_pct"`
	SharpeRatio    float64       `json:"sharpe_ratio"`
	Duration       time.Duration `json:"duration_ns"`
}

// summarize computes run metrics from the equity curve.
func summarize(initialCapital float64, curve []float64, fills, warmup int, dur time.Duration) Summary {
	s := Summary{
		Bars:           len(curve),
		WarmupBars:     warmup,
		Fills:          fills,
		InitialCapital: initialCapital,
		FinalEquity:    initialCapital,
		Duration:       dur,
	}
	if len(curve) == 0 {
		return s
	}

	s.FinalEquity = curve[len(curve)-1]
	s.ReturnPct = (s.FinalEquity - initialCapital) / initialCapital * 100
	s.MaxDrawdownPct = maxDrawdownPct(curve)
	s.SharpeRatio = sharpe(curve)
	return s
}

// maxDrawdownPct returns the largest peak-to-trough equity decline, as a
// percentage of the peak. 0 for monotonically non-decreasing curves.
func maxDrawdownPct(curve []float64) float64 {
	peak := curve[0]
	var maxDD float64
	for _, eq := range curve[1:] {
		if eq > peak {
			peak = eq
			continue
		}
		if peak > 0 {
			dd := (peak - eq) / peak * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpe returns the per-bar Sharpe ratio of the equity curve: mean bar
// return over its standard deviation, zero risk-free rate, no
// annualization (the engine has no notion of bar duration). Returns 0 when
// the ratio is undefined (fewer than two bars or zero variance).
func sharpe(curve []float64) float64 {
	if len(curve) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1] == 0 {
			return 0
		}
		returns = append(returns, curve[i]/curve[i-1]-1)
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance)
}
