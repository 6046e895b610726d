package backtest

import (
	"math"
	"testing"
	"time"
)

func TestSummarize_EmptyCurve(t *testing.T) {
	s := summarize(1000, nil, 0, 0, time.Millisecond)
	if s.Bars != 0 {
		t.Errorf("bars = %d, want 0", s.Bars)
	}
	if s.FinalEquity != 1000 {
		t.Errorf("final equity = %v, want initial capital", s.FinalEquity)
	}
	if s.ReturnPct != 0 || s.MaxDrawdownPct != 0 {
		t.Errorf("empty curve must report zero return and drawdown, got %v / %v", s.ReturnPct, s.MaxDrawdownPct)
	}
}

func TestSummarize_ReturnPct(t *testing.T) {
	curve := []float64{1000, 1000, 1100, 1200}
	s := summarize(1000, curve, 1, 2, time.Second)

	if s.FinalEquity != 1200 {
		t.Errorf("final equity = %v, want 1200", s.FinalEquity)
	}
	if math.Abs(s.ReturnPct-20) > 1e-9 {
		t.Errorf("return = %v%%, want 20%%", s.ReturnPct)
	}
	if s.Bars != 4 || s.Fills != 1 || s.WarmupBars != 2 {
		t.Errorf("unexpected counts: %+v", s)
	}
}

func TestMaxDrawdown_Flat(t *testing.T) {
	if dd := maxDrawdownPct([]float64{100, 100, 100}); dd != 0 {
		t.Errorf("flat curve drawdown = %v, want 0", dd)
	}
}

func TestMaxDrawdown_SingleDip(t *testing.T) {
	// Peak 200, trough 150: drawdown 25%.
	curve := []float64{100, 200, 150, 180}
	if dd := maxDrawdownPct(curve); math.Abs(dd-25) > 1e-9 {
		t.Errorf("drawdown = %v, want 25", dd)
	}
}

func TestMaxDrawdown_UsesWorstPeak(t *testing.T) {
	// Two dips: 10% from 100, then 50% from 300. Worst is 50%.
	curve := []float64{100, 90, 300, 150, 200}
	if dd := maxDrawdownPct(curve); math.Abs(dd-50) > 1e-9 {
		t.Errorf("drawdown = %v, want 50", dd)
	}
}

func TestSharpe_ZeroVariance(t *testing.T) {
	if s := sharpe([]float64{100, 100, 100}); s != 0 {
		t.Errorf("constant curve sharpe = %v, want 0", s)
	}
	if s := sharpe([]float64{100}); s != 0 {
		t.Errorf("single-bar sharpe = %v, want 0", s)
	}
}

func TestSharpe_PositiveForSteadyGains(t *testing.T) {
	curve := []float64{100, 101, 102.5, 103, 105}
	if s := sharpe(curve); s <= 0 {
		t.Errorf("steadily rising curve sharpe = %v, want > 0", s)
	}
}
