package backtest

import (
	"errors"
	"math"
	"testing"

	"github.com/overcomerlin/hybrid-backtest/internal/strategy"
)

func newEngine(t *testing.T, capital float64) *Engine {
	t.Helper()
	e, err := New(capital)
	if err != nil {
		t.Fatalf("New(%v) failed: %v", capital, err)
	}
	return e
}

func loadAndRun(t *testing.T, prices []float64, fast, slow int, capital float64) *Result {
	t.Helper()
	e := newEngine(t, capital)
	if err := e.Load(prices); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	res, err := e.Run(fast, slow)
	if err != nil {
		t.Fatalf("Run(%d, %d) failed: %v", fast, slow, err)
	}
	return res
}

// ────────────────────────────────────────────────────────────
// Construction and error taxonomy
// ────────────────────────────────────────────────────────────

func TestNew_RejectsBadCapital(t *testing.T) {
	for _, capital := range []float64{0, -100, math.NaN(), math.Inf(1)} {
		_, err := New(capital)
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("New(%v): expected ConfigError, got %v", capital, err)
		}
	}
}

func TestRun_RejectsBadWindows(t *testing.T) {
	e := newEngine(t, 1000)
	if err := e.Load([]float64{1, 2, 3}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for _, w := range [][2]int{{0, 5}, {5, 0}, {-1, 5}, {5, -1}} {
		_, err := e.Run(w[0], w[1])
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("Run(%d, %d): expected ConfigError, got %v", w[0], w[1], err)
		}
	}
}

func TestRun_BeforeLoadIsStateError(t *testing.T) {
	e := newEngine(t, 1000)
	_, err := e.Run(2, 5)
	var stateErr *StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected StateError, got %v", err)
	}
}

func TestLoad_RejectsNonFinite(t *testing.T) {
	e := newEngine(t, 1000)
	err := e.Load([]float64{100, math.NaN(), 101})
	var dataErr *DataError
	if !errors.As(err, &dataErr) {
		t.Fatalf("expected DataError, got %v", err)
	}
}

func TestLoad_FailureKeepsPreviousSeries(t *testing.T) {
	e := newEngine(t, 1000)
	if err := e.Load([]float64{10, 10, 10}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := e.Load([]float64{math.Inf(1)}); err == nil {
		t.Fatal("expected DataError")
	}

	// Engine must still run against the previously loaded series.
	curve, err := e.RunStrategy(1, 2)
	if err != nil {
		t.Fatalf("Run after failed Load: %v", err)
	}
	if len(curve) != 3 {
		t.Fatalf("expected curve over the original 3 bars, got %d", len(curve))
	}
}

// ────────────────────────────────────────────────────────────
// Spec scenarios
// ────────────────────────────────────────────────────────────

func TestRun_EmptySeries(t *testing.T) {
	e := newEngine(t, 1000)
	if err := e.Load(nil); err != nil {
		t.Fatalf("Load(nil) failed: %v", err)
	}
	curve, err := e.RunStrategy(2, 5)
	if err != nil {
		t.Fatalf("expected success on empty series, got %v", err)
	}
	if len(curve) != 0 {
		t.Fatalf("expected empty curve, got %d entries", len(curve))
	}
}

func TestRun_ConstantSeriesNeverTrades(t *testing.T) {
	prices := make([]float64, 1000)
	for i := range prices {
		prices[i] = 77.5
	}

	for _, w := range [][2]int{{2, 5}, {50, 200}, {10, 10}, {200, 50}} {
		res := loadAndRun(t, prices, w[0], w[1], 1000)
		if len(res.Fills) != 0 {
			t.Errorf("windows %v: constant series must not trade, got %d fills", w, len(res.Fills))
		}
		if got := res.EquityCurve[len(res.EquityCurve)-1]; got != 1000 {
			t.Errorf("windows %v: final equity = %v, want 1000", w, got)
		}
	}
}

func TestRun_StepSeriesGoldenCross(t *testing.T) {
	// 10 bars: flat at 10, then a step to 12. Slow window 5 means bars 0..3
	// are warm-up; the step at bar 5 pulls the fast average above the slow
	// one and opens the position there.
	prices := []float64{10, 10, 10, 10, 10, 12, 12, 12, 12, 12}
	res := loadAndRun(t, prices, 2, 5, 1000)

	if len(res.EquityCurve) != len(prices) {
		t.Fatalf("curve length %d != series length %d", len(res.EquityCurve), len(prices))
	}
	for i := 0; i <= 3; i++ {
		if res.EquityCurve[i] != 1000 {
			t.Errorf("warm-up bar %d: equity = %v, want exactly 1000", i, res.EquityCurve[i])
		}
	}
	if len(res.Fills) != 1 {
		t.Fatalf("expected exactly 1 fill, got %d", len(res.Fills))
	}
	fill := res.Fills[0]
	if fill.Signal.Action != strategy.ActionBuy || fill.Signal.Index != 5 {
		t.Errorf("expected BUY at bar 5, got %s at bar %d", fill.Signal.Action, fill.Signal.Index)
	}
	// Position opened at the crossover bar's price (12); the price never
	// moves afterwards, so equity holds at the entry value.
	if got := res.EquityCurve[len(res.EquityCurve)-1]; math.Abs(got-1000) > 1e-9 {
		t.Errorf("final equity = %v, want 1000", got)
	}
}

func TestRun_EMAIndicator(t *testing.T) {
	// Same step series with SetIndicator("EMA"): the slow EMA seeds at
	// bar 4 with value 10, the jump at bar 5 pulls the fast EMA above it,
	// and the position opens there just like the SMA pair.
	prices := []float64{10, 10, 10, 10, 10, 12, 12, 12, 12, 12}
	e := newEngine(t, 1000)
	if err := e.Load(prices); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	e.SetIndicator("EMA")

	res, err := e.Run(2, 5)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Fills) != 1 {
		t.Fatalf("expected exactly 1 fill, got %d", len(res.Fills))
	}
	fill := res.Fills[0]
	if fill.Signal.Action != strategy.ActionBuy || fill.Signal.Index != 5 {
		t.Errorf("expected BUY at bar 5, got %s at bar %d", fill.Signal.Action, fill.Signal.Index)
	}
	// Entry at 12, price never moves afterwards.
	if got := res.EquityCurve[len(res.EquityCurve)-1]; math.Abs(got-1000) > 1e-9 {
		t.Errorf("final equity = %v, want 1000", got)
	}
}

func TestSetIndicator_UnknownType(t *testing.T) {
	e := newEngine(t, 1000)
	if err := e.Load([]float64{1, 2, 3}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	e.SetIndicator("WMA")

	_, err := e.Run(2, 3)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError for unknown indicator type, got %v", err)
	}
}

func TestRun_ProfitsWhenPriceKeepsRising(t *testing.T) {
	// The position opens at the crossover bar; every bar of further rise is
	// captured by the open position.
	prices := []float64{10, 10, 10, 10, 10, 12, 13, 14, 15, 16}
	res := loadAndRun(t, prices, 2, 5, 1000)

	final := res.EquityCurve[len(res.EquityCurve)-1]
	if final <= 1000 {
		t.Fatalf("final equity = %v, want > 1000", final)
	}
	// Entry at 12, exit mark at 16: equity should scale by 16/12.
	want := 1000 * 16.0 / 12.0
	if math.Abs(final-want) > 1e-9 {
		t.Errorf("final equity = %v, want %v", final, want)
	}
}

// ────────────────────────────────────────────────────────────
// Invariants
// ────────────────────────────────────────────────────────────

func TestRun_LengthInvariant(t *testing.T) {
	for _, n := range []int{1, 2, 7, 100, 1000} {
		prices := make([]float64, n)
		for i := range prices {
			prices[i] = 100 + math.Sin(float64(i)*0.1)*5
		}
		res := loadAndRun(t, prices, 3, 10, 500)
		if len(res.EquityCurve) != n {
			t.Errorf("n=%d: curve length %d", n, len(res.EquityCurve))
		}
	}
}

func TestRun_WarmupEquityInvariant(t *testing.T) {
	prices := make([]float64, 50)
	for i := range prices {
		prices[i] = 100 + float64(i%7)
	}
	const slow = 20
	res := loadAndRun(t, prices, 5, slow, 2500)

	for i := 0; i < slow-1; i++ {
		if res.EquityCurve[i] != 2500 {
			t.Errorf("bar %d (warm-up): equity = %v, want exactly 2500", i, res.EquityCurve[i])
		}
	}
	if res.Summary.WarmupBars != slow-1 {
		t.Errorf("summary warm-up bars = %d, want %d", res.Summary.WarmupBars, slow-1)
	}
}

func TestRun_FastWindowLongerThanSeries(t *testing.T) {
	prices := []float64{10, 20, 5, 30, 15}
	res := loadAndRun(t, prices, 10, 20, 1000)

	if len(res.Fills) != 0 {
		t.Fatalf("window longer than series must not trade, got %d fills", len(res.Fills))
	}
	for i, eq := range res.EquityCurve {
		if eq != 1000 {
			t.Errorf("bar %d: equity = %v, want 1000", i, eq)
		}
	}
}

// TestRun_Conservation replays the fills independently and checks that the
// reported equity at every bar equals cash + shares*price recomputed from
// scratch — position transitions neither leak nor fabricate value.
func TestRun_Conservation(t *testing.T) {
	prices := make([]float64, 400)
	for i := range prices {
		prices[i] = 100 + 10*math.Sin(float64(i)*0.05) + 3*math.Cos(float64(i)*0.17)
	}
	res := loadAndRun(t, prices, 4, 12, 10000)

	cash := 10000.0
	shares := 0.0
	fillIdx := 0
	for i, price := range prices {
		for fillIdx < len(res.Fills) && res.Fills[fillIdx].Signal.Index == i {
			f := res.Fills[fillIdx]
			switch f.Signal.Action {
			case strategy.ActionBuy:
				shares = cash / f.Price
				cash = 0
			case strategy.ActionSell:
				cash = shares * f.Price
				shares = 0
			}
			fillIdx++
		}
		want := cash + shares*price
		if math.Abs(res.EquityCurve[i]-want) > 1e-9 {
			t.Fatalf("bar %d: reported equity %v, recomputed %v", i, res.EquityCurve[i], want)
		}
	}
	if fillIdx != len(res.Fills) {
		t.Errorf("replayed %d of %d fills", fillIdx, len(res.Fills))
	}
}

// TestRun_MonotoneWindows: growing the slow window while holding the series
// fixed cannot shrink the warm-up region where equity equals the initial
// capital.
func TestRun_MonotoneWindows(t *testing.T) {
	prices := make([]float64, 200)
	for i := range prices {
		prices[i] = 50 + 5*math.Sin(float64(i)*0.3)
	}

	countAtCapital := func(slow int) int {
		res := loadAndRun(t, prices, 3, slow, 1000)
		count := 0
		for _, eq := range res.EquityCurve {
			if eq == 1000 {
				count++
			} else {
				break
			}
		}
		return count
	}

	prev := -1
	for _, slow := range []int{5, 10, 20, 50, 100} {
		n := countAtCapital(slow)
		if n < prev {
			t.Errorf("slow=%d: warm-up prefix %d shrank below %d", slow, n, prev)
		}
		prev = n
	}
}

func TestRun_Determinism(t *testing.T) {
	prices := make([]float64, 5000)
	x := 100.0
	for i := range prices {
		// Fixed pseudo-random walk; same every test run.
		x *= 1 + 0.002*math.Sin(float64(i)*1.7)
		prices[i] = x
	}

	first := loadAndRun(t, prices, 7, 31, 10000)
	second := loadAndRun(t, prices, 7, 31, 10000)

	if len(first.EquityCurve) != len(second.EquityCurve) {
		t.Fatal("curve lengths differ between identical runs")
	}
	for i := range first.EquityCurve {
		a := math.Float64bits(first.EquityCurve[i])
		b := math.Float64bits(second.EquityCurve[i])
		if a != b {
			t.Fatalf("bar %d: runs differ bit-for-bit: %x vs %x", i, a, b)
		}
	}
}

func TestRun_ProgressCallback(t *testing.T) {
	prices := []float64{10, 11, 12}
	e := newEngine(t, 1000)
	if err := e.Load(prices); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var indices []int
	e.SetProgress(func(index int, price, equity float64) {
		indices = append(indices, index)
		if price != prices[index] {
			t.Errorf("bar %d: callback price %v, want %v", index, price, prices[index])
		}
		if equity != 1000 {
			t.Errorf("bar %d: callback equity %v, want 1000 (no trades possible)", index, equity)
		}
	})

	if _, err := e.Run(5, 10); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(indices) != len(prices) {
		t.Fatalf("callback fired %d times, want %d", len(indices), len(prices))
	}
	for i, idx := range indices {
		if idx != i {
			t.Errorf("callback %d reported index %d", i, idx)
		}
	}
}
