// Package indicator provides rolling technical indicators over a price stream.
//
// All indicators implement the Indicator interface, receiving one price per
// bar and producing float64 values. Updates are O(1) with O(period) memory;
// nothing here allocates on the hot path.
package indicator

import (
	"fmt"
	"strings"
)

// Indicator is the interface for all rolling indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA", "EMA").
	Name() string

	// Update feeds the next bar's price and recalculates.
	Update(price float64)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true once enough prices have been accumulated for the
	// value to be defined.
	Ready() bool

	// Reset clears all state for reuse.
	Reset()
}

// New constructs an indicator by type name ("SMA" or "EMA", case-insensitive).
func New(typ string, period int) (Indicator, error) {
	switch strings.ToUpper(typ) {
	case "SMA":
		return NewSMA(period), nil
	case "EMA":
		return NewEMA(period), nil
	default:
		return nil, fmt.Errorf("unknown indicator type %q", typ)
	}
}
