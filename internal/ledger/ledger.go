// Package ledger tracks cash, position, and equity for a backtest run.
//
// The ledger enforces an all-in/all-out capital policy: it is either FLAT
// (all capital in cash) or LONG (all capital in shares). Total equity
// cash + shares*price is recomputable at every bar; position transitions
// never create or destroy value.
package ledger

// Position is the discrete position state of the ledger.
type Position string

const (
	Flat Position = "FLAT"
	Long Position = "LONG"
)

// Ledger holds the cash/share balances for one run.
type Ledger struct {
	cash      float64
	shares    float64
	position  Position
	lastPrice float64
}

// New creates a ledger holding initialCash and no position.
func New(initialCash float64) *Ledger {
	return &Ledger{
		cash:     initialCash,
		position: Flat,
	}
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 { return l.cash }

// Shares returns the current share position (zero when FLAT).
func (l *Ledger) Shares() float64 { return l.shares }

// Position returns the current discrete position state.
func (l *Ledger) Position() Position { return l.position }

// LastPrice returns the most recent price passed to Equity.
func (l *Ledger) LastPrice() float64 { return l.lastPrice }

// Equity marks the ledger to the given price and returns total equity:
// cash + shares*price.
func (l *Ledger) Equity(price float64) float64 {
	l.lastPrice = price
	return l.cash + l.shares*price
}

// enterLong converts the full cash balance to shares at the given price.
// Returns the number of shares bought, or 0 if the transition is invalid.
func (l *Ledger) enterLong(price float64) float64 {
	if l.position != Flat || l.cash <= 0 || price <= 0 {
		return 0
	}
	shares := l.cash / price
	l.shares = shares
	l.cash = 0
	l.position = Long
	l.lastPrice = price
	return shares
}

// exitLong converts the full share position back to cash at the given price.
// Returns the number of shares sold, or 0 if the transition is invalid.
func (l *Ledger) exitLong(price float64) float64 {
	if l.position != Long || l.shares <= 0 {
		return 0
	}
	shares := l.shares
	l.cash = shares * price
	l.shares = 0
	l.position = Flat
	l.lastPrice = price
	return shares
}
