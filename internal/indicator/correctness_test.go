package indicator

import (
	"math"
	"testing"
)

// ────────────────────────────────────────────────────────────
// Helper
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

// ────────────────────────────────────────────────────────────
// SMA Correctness
// ────────────────────────────────────────────────────────────

func TestSMA_Correctness_Period3(t *testing.T) {
	// Hand-calculated SMA(3) for a known price series:
	// Prices: 100, 102, 104, 103, 105
	// SMA after bar 3: (100+102+104)/3 = 102.0000
	// SMA after bar 4: (102+104+103)/3 = 103.0000
	// SMA after bar 5: (104+103+105)/3 = 104.0000

	sma := NewSMA(3)
	prices := []float64{100, 102, 104, 103, 105}
	expected := []float64{0, 0, 102.0, 103.0, 104.0}
	ready := []bool{false, false, true, true, true}

	for i, p := range prices {
		sma.Update(p)
		if sma.Ready() != ready[i] {
			t.Errorf("bar %d: Ready()=%v, want %v", i, sma.Ready(), ready[i])
		}
		if ready[i] {
			assertClose(t, "SMA(3)", sma.Value(), expected[i], 1e-9)
		}
	}
}

func TestSMA_Correctness_Period5(t *testing.T) {
	// Prices: 10, 11, 12, 13, 14, 15, 16
	// SMA(5) after bar 5: (10+11+12+13+14)/5 = 12.0
	// SMA(5) after bar 6: (11+12+13+14+15)/5 = 13.0
	// SMA(5) after bar 7: (12+13+14+15+16)/5 = 14.0

	sma := NewSMA(5)
	prices := []float64{10, 11, 12, 13, 14, 15, 16}
	expected := []float64{0, 0, 0, 0, 12.0, 13.0, 14.0}
	ready := []bool{false, false, false, false, true, true, true}

	for i, p := range prices {
		sma.Update(p)
		if sma.Ready() != ready[i] {
			t.Errorf("bar %d: Ready()=%v, want %v", i, sma.Ready(), ready[i])
		}
		if ready[i] {
			assertClose(t, "SMA(5)", sma.Value(), expected[i], 1e-9)
		}
	}
}

func TestSMA_Period1_TracksPrice(t *testing.T) {
	sma := NewSMA(1)
	for _, p := range []float64{5, 42.5, 17} {
		sma.Update(p)
		if !sma.Ready() {
			t.Fatal("SMA(1) should be ready after one price")
		}
		assertClose(t, "SMA(1)", sma.Value(), p, 1e-12)
	}
}

func TestSMA_Reset(t *testing.T) {
	sma := NewSMA(3)
	for _, p := range []float64{100, 102, 104} {
		sma.Update(p)
	}
	sma.Reset()

	if sma.Ready() {
		t.Fatal("SMA should not be ready after Reset")
	}
	for _, p := range []float64{1, 2, 3} {
		sma.Update(p)
	}
	assertClose(t, "SMA after reset", sma.Value(), 2.0, 1e-9)
}

// TestSMA_ResyncKeepsValue exercises the periodic drift-correcting rebuild of
// the running sum: millions of add/subtract cycles must stay in lockstep with
// the true window mean.
func TestSMA_ResyncKeepsValue(t *testing.T) {
	const period = 3
	sma := NewSMA(period)

	// Run well past several resync points (period*1024 updates each).
	n := period * resyncEvery * 3
	last := make([]float64, 0, period)
	for i := 0; i < n+2; i++ {
		p := 100 + math.Sin(float64(i))*0.01
		sma.Update(p)
		last = append(last, p)
		if len(last) > period {
			last = last[1:]
		}
	}

	var want float64
	for _, v := range last {
		want += v
	}
	want /= period

	assertClose(t, "SMA after resyncs", sma.Value(), want, 1e-9)
}

// ────────────────────────────────────────────────────────────
// EMA Correctness
// ────────────────────────────────────────────────────────────

func TestEMA_Correctness_Period3(t *testing.T) {
	// EMA(3): multiplier = 2/(3+1) = 0.5
	// Prices: 100, 102, 104, 103, 105
	//
	// Bar 1: sum=100
	// Bar 2: sum=202
	// Bar 3: sum=306 → initial EMA = 306/3 = 102.0 (SMA seed)
	// Bar 4: EMA = 103*0.5 + 102.0*0.5 = 102.5
	// Bar 5: EMA = 105*0.5 + 102.5*0.5 = 103.75

	ema := NewEMA(3)
	prices := []float64{100, 102, 104, 103, 105}
	expected := []float64{0, 0, 102.0, 102.5, 103.75}
	ready := []bool{false, false, true, true, true}

	for i, p := range prices {
		ema.Update(p)
		if ema.Ready() != ready[i] {
			t.Errorf("bar %d: Ready()=%v, want %v", i, ema.Ready(), ready[i])
		}
		if ready[i] {
			assertClose(t, "EMA(3)", ema.Value(), expected[i], 1e-9)
		}
	}
}

func TestEMA_Correctness_Period5(t *testing.T) {
	// EMA(5): multiplier = 2/(5+1) = 1/3
	// Seed = SMA of the first five prices, then standard smoothing.
	mult := 2.0 / 6.0
	prices := []float64{44.00, 44.25, 44.50, 43.75, 44.50, 44.25, 44.00}
	seed := (44.00 + 44.25 + 44.50 + 43.75 + 44.50) / 5.0

	ema := NewEMA(5)
	for _, p := range prices[:5] {
		ema.Update(p)
	}
	assertClose(t, "EMA(5) seed", ema.Value(), seed, 1e-9)

	ema.Update(prices[5])
	expected6 := prices[5]*mult + seed*(1-mult)
	assertClose(t, "EMA(5) bar 6", ema.Value(), expected6, 1e-9)

	ema.Update(prices[6])
	expected7 := prices[6]*mult + expected6*(1-mult)
	assertClose(t, "EMA(5) bar 7", ema.Value(), expected7, 1e-9)
}

func TestNew_ByType(t *testing.T) {
	for _, typ := range []string{"SMA", "sma", "EMA", "ema"} {
		ind, err := New(typ, 3)
		if err != nil {
			t.Errorf("New(%q, 3): %v", typ, err)
			continue
		}
		if ind == nil {
			t.Errorf("New(%q, 3): nil indicator", typ)
		}
	}

	if _, err := New("WMA", 3); err == nil {
		t.Error("New(\"WMA\", 3): expected error for unknown type")
	}
}

func TestEMA_Reset(t *testing.T) {
	ema := NewEMA(3)
	for _, p := range []float64{100, 102, 104} {
		ema.Update(p)
	}
	ema.Reset()
	if ema.Ready() {
		t.Fatal("EMA should not be ready after Reset")
	}
}
