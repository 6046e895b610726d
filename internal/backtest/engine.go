// Package backtest implements the moving-average crossover backtesting engine.
//
// The engine ingests a univariate price series, simulates the crossover
// strategy bar-by-bar in a single forward pass, and produces one equity value
// per input price. Signal generation uses only the previous bar's averages,
// so there is no look-ahead bias, and the whole run is pure CPU-bound
// computation: O(1) amortized work per bar, O(window) extra memory in the
// indicators, no I/O, no goroutines.
//
// An Engine instance assumes exclusive ownership of its state for the
// duration of each call. Concurrent Load/Run calls on the same instance are
// not supported; callers wanting parallel backtests should use one Engine
// per goroutine.
package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/overcomerlin/hybrid-backtest/internal/indicator"
	"github.com/overcomerlin/hybrid-backtest/internal/ledger"
	"github.com/overcomerlin/hybrid-backtest/internal/series"
	"github.com/overcomerlin/hybrid-backtest/internal/strategy"
)

// ProgressFunc receives one callback per processed bar. Used by the serving
// layer to stream equity points; nil means no per-bar overhead.
type ProgressFunc func(index int, price, equity float64)

// Engine runs crossover backtests over a loaded price series.
type Engine struct {
	initialCapital float64
	prices         *series.Series
	progress       ProgressFunc
	indicatorType  string // "" means SMA
}

// New creates an engine with the given starting capital.
// Capital must be positive and finite.
func New(initialCapital float64) (*Engine, error) {
	if math.IsNaN(initialCapital) || math.IsInf(initialCapital, 0) {
		return nil, &ConfigError{Msg: fmt.Sprintf("initial capital must be finite, got %v", initialCapital)}
	}
	if initialCapital <= 0 {
		return nil, &ConfigError{Msg: fmt.Sprintf("initial capital must be positive, got %v", initialCapital)}
	}
	return &Engine{
		initialCapital: initialCapital,
		prices:         series.New(),
	}, nil
}

// SetProgress installs a per-bar progress callback for subsequent runs.
// Pass nil to disable.
func (e *Engine) SetProgress(fn ProgressFunc) {
	e.progress = fn
}

// SetIndicator selects the moving-average type for subsequent runs ("SMA" or
// "EMA", case-insensitive). The default is SMA. An unknown type surfaces as a
// ConfigError from the next Run.
func (e *Engine) SetIndicator(typ string) {
	e.indicatorType = typ
}

// Load validates and stores a price series, replacing any previously loaded
// one. Non-finite values are rejected with a DataError; on failure the
// previously loaded series remains valid and unchanged. An empty slice is a
// valid series.
func (e *Engine) Load(prices []float64) error {
	if err := e.prices.Load(prices); err != nil {
		return &DataError{Msg: err.Error()}
	}
	return nil
}

// RunStrategy executes the SMA crossover strategy with the given window
// lengths and returns the equity curve: exactly one value per input price.
// Bars before both averages are defined carry the initial capital.
//
// Fails with ConfigError if either window is <= 0 and with StateError if no
// series has been loaded. An empty loaded series yields an empty curve and
// no error. Output is bit-for-bit deterministic for identical inputs.
func (e *Engine) RunStrategy(fastWindow, slowWindow int) ([]float64, error) {
	res, err := e.Run(fastWindow, slowWindow)
	if err != nil {
		return nil, err
	}
	return res.EquityCurve, nil
}

// Result bundles everything a single run produced.
type Result struct {
	EquityCurve []float64
	Fills       []ledger.Fill
	Summary     Summary
}

// Run is RunStrategy plus fills and summary statistics.
func (e *Engine) Run(fastWindow, slowWindow int) (*Result, error) {
	if fastWindow <= 0 {
		return nil, &ConfigError{Msg: fmt.Sprintf("fast window must be positive, got %d", fastWindow)}
	}
	if slowWindow <= 0 {
		return nil, &ConfigError{Msg: fmt.Sprintf("slow window must be positive, got %d", slowWindow)}
	}
	if !e.prices.Loaded() {
		return nil, &StateError{Msg: "no price series loaded"}
	}

	indType := e.indicatorType
	if indType == "" {
		indType = "SMA"
	}
	fastInd, err := indicator.New(indType, fastWindow)
	if err != nil {
		return nil, &ConfigError{Msg: err.Error()}
	}
	slowInd, err := indicator.New(indType, slowWindow)
	if err != nil {
		return nil, &ConfigError{Msg: err.Error()}
	}

	start := time.Now()
	n := e.prices.Len()

	strat := strategy.NewCrossoverWith(fastInd, slowInd)
	led := ledger.New(e.initialCapital)
	policy := ledger.NewAllIn()

	curve := make([]float64, 0, n)
	var fills []ledger.Fill

	for i := 0; i < n; i++ {
		price := e.prices.At(i)

		if sig := strat.OnPrice(i, price); sig != nil {
			if fill, ok := policy.Execute(*sig, led); ok {
				fills = append(fills, fill)
			}
		}

		equity := led.Equity(price)
		curve = append(curve, equity)

		if e.progress != nil {
			e.progress(i, price, equity)
		}
	}

	// Bars before the longer window has seen enough prices carry the
	// initial capital: no average is defined, no position can be open.
	warmup := fastWindow
	if slowWindow > fastWindow {
		warmup = slowWindow
	}
	warmup--
	if warmup > n {
		warmup = n
	}

	return &Result{
		EquityCurve: curve,
		Fills:       fills,
		Summary:     summarize(e.initialCapital, curve, len(fills), warmup, time.Since(start)),
	}, nil
}

// InitialCapital returns the capital the engine was constructed with.
func (e *Engine) InitialCapital() float64 {
	return e.initialCapital
}

// Loaded reports whether a price series is currently loaded.
func (e *Engine) Loaded() bool {
	return e.prices.Loaded()
}

// Len returns the number of bars in the loaded series (0 if none).
func (e *Engine) Len() int {
	return e.prices.Len()
}
