package indicator

// EMA calculates Exponential Moving Average over a price stream.
//
// The first value is seeded with the SMA of the first period prices; every
// later bar applies the standard recurrence with multiplier 2/(period+1).
// O(1) per update with no window storage, so unlike SMA it needs no
// periodic resynchronization.
type EMA struct {
	period     int
	multiplier float64
	current    float64
	count      int
	seedSum    float64 // accumulates the first period prices for the seed
}

// NewEMA creates a new EMA indicator with the given period. period must be >= 1.
func NewEMA(period int) *EMA {
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string { return "EMA" }

func (e *EMA) Update(price float64) {
	e.count++

	// Warm-up: collect prices until the SMA seed is ready
	if e.count <= e.period {
		e.seedSum += price
		if e.count == e.period {
			e.current = e.seedSum / float64(e.period)
		}
		return
	}

	e.current = price*e.multiplier + e.current*(1-e.multiplier)
}

func (e *EMA) Value() float64 { return e.current }
func (e *EMA) Ready() bool    { return e.count >= e.period }

// Reset clears the EMA state for reuse.
func (e *EMA) Reset() {
	e.current = 0
	e.count = 0
	e.seedSum = 0
}
