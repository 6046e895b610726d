// Package synth generates deterministic synthetic price series for offline
// backtests, benchmarks, and tests — a drop-in substitute for real market
// data when none is loaded in the store.
package synth

import "math/rand"

// Config holds parameters for the random-walk generator.
type Config struct {
	// Bars is the number of prices to generate.
	Bars int

	// Seed drives the generator; identical seeds produce identical series.
	Seed int64

	// Start is the initial price. Defaults to 100.
	Start float64

	// Drift is the per-bar mean return. Defaults to 0.0001.
	Drift float64

	// Vol is the per-bar return standard deviation. Defaults to 0.01.
	Vol float64
}

func (c *Config) defaults() {
	if c.Start == 0 {
		c.Start = 100
	}
	if c.Drift == 0 {
		c.Drift = 0.0001
	}
	if c.Vol == 0 {
		c.Vol = 0.01
	}
}

// RandomWalk generates a geometric random-walk price series:
// price[i] = price[i-1] * (1 + r) with r ~ N(drift, vol).
// Returns are clamped at -99% so prices stay positive.
func RandomWalk(cfg Config) []float64 {
	cfg.defaults()
	if cfg.Bars <= 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	prices := make([]float64, cfg.Bars)

	price := cfg.Start
	for i := range prices {
		r := cfg.Drift + cfg.Vol*rng.NormFloat64()
		if r < -0.99 {
			r = -0.99
		}
		price *= 1 + r
		prices[i] = price
	}
	return prices
}
