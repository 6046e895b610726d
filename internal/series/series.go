// Package series owns the validated price series a backtest runs over.
//
// A Series is loaded once from a caller-provided slice, validated eagerly,
// and is read-only afterwards. Random access by index is O(1).
package series

import (
	"fmt"
	"math"
)

// Series is an ordered, immutable-after-load sequence of positive finite prices.
type Series struct {
	prices []float64
}

// New returns an empty Series. Load must be called before any read.
func New() *Series {
	return &Series{}
}

// Load validates and stores the given prices, replacing any previous series.
// Every value must be finite; the first non-finite value fails the whole load
// and leaves the previously loaded series untouched.
// The input is copied exactly once; the caller keeps ownership of its slice.
func (s *Series) Load(prices []float64) error {
	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("price at index %d is not finite: %v", i, p)
		}
	}
	buf := make([]float64, len(prices))
	copy(buf, prices)
	s.prices = buf
	return nil
}

// Loaded reports whether Load has been called successfully at least once.
// An empty loaded series is valid and distinct from a never-loaded one.
func (s *Series) Loaded() bool {
	return s.prices != nil
}

// Len returns the number of bars in the series.
func (s *Series) Len() int {
	return len(s.prices)
}

// At returns the price at bar index i.
func (s *Series) At(i int) float64 {
	return s.prices[i]
}

// Values returns the underlying slice. Callers must not mutate it.
func (s *Series) Values() []float64 {
	return s.prices
}
