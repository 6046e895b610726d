package strategy

import (
	"github.com/overcomerlin/hybrid-backtest/internal/indicator"
)

// Crossover implements a dual moving average crossover strategy.
//
// Buy signal: fast average crosses above slow average (golden cross)
// Sell signal: fast average crosses below slow average (death cross)
//
// A crossover is detected against the previous bar's averages, so no signal
// fires on the first bar where both averages become defined; that bar only
// seeds the comparison. Until both windows are warm the strategy stays silent.
//
// fast >= slow is structurally allowed; it simply yields whatever degenerate
// crossovers arise.
type Crossover struct {
	name string
	fast indicator.Indicator
	slow indicator.Indicator

	// Previous average values for crossover detection
	prevFast float64
	prevSlow float64
	ready    bool
}

// NewCrossover creates a new SMA crossover strategy.
// Both periods must be >= 1 (e.g., 50 and 200).
func NewCrossover(fastPeriod, slowPeriod int) *Crossover {
	return NewCrossoverWith(indicator.NewSMA(fastPeriod), indicator.NewSMA(slowPeriod))
}

// NewCrossoverWith creates a crossover strategy over a caller-supplied
// indicator pair, e.g. two EMAs. Both indicators must be fresh (no prices
// fed yet).
func NewCrossoverWith(fast, slow indicator.Indicator) *Crossover {
	return &Crossover{
		name: fast.Name() + "_Crossover",
		fast: fast,
		slow: slow,
	}
}

func (s *Crossover) Name() string {
	return s.name
}

func (s *Crossover) OnPrice(index int, price float64) *Signal {
	s.fast.Update(price)
	s.slow.Update(price)

	// Need both averages defined before any comparison
	if !s.fast.Ready() || !s.slow.Ready() {
		return nil
	}

	fastVal := s.fast.Value()
	slowVal := s.slow.Value()

	defer func() {
		s.prevFast = fastVal
		s.prevSlow = slowVal
		s.ready = true
	}()

	if !s.ready {
		// First bar with both averages defined: seed only
		return nil
	}

	// Golden cross: fast crosses above slow
	if s.prevFast <= s.prevSlow && fastVal > slowVal {
		return &Signal{
			StrategyName: s.name,
			Action:       ActionBuy,
			Index:        index,
			Price:        price,
			Reason:       s.fast.Name() + " golden cross (fast > slow)",
		}
	}

	// Death cross: fast crosses below slow
	if s.prevFast >= s.prevSlow && fastVal < slowVal {
		return &Signal{
			StrategyName: s.name,
			Action:       ActionSell,
			Index:        index,
			Price:        price,
			Reason:       s.fast.Name() + " death cross (fast < slow)",
		}
	}

	return nil
}

// Reset clears indicator and crossover state for a fresh run.
func (s *Crossover) Reset() {
	s.fast.Reset()
	s.slow.Reset()
	s.prevFast = 0
	s.prevSlow = 0
	s.ready = false
}
