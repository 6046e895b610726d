package ledger

import (
	"fmt"

	"github.com/overcomerlin/hybrid-backtest/internal/strategy"
)

// Fill records a simulated order fill.
type Fill struct {
	OrderID string          `json:"order_id"`
	Signal  strategy.Signal `json:"signal"`
	Price   float64         `json:"price"`
	Shares  float64         `json:"shares"`
}

// ExecutionPolicy translates a strategy signal into ledger mutations.
// Implementations own the fill model (sizing, fees, slippage); the engine
// and the crossover logic never touch ledger internals directly, so cost
// models can be swapped without changing either.
type ExecutionPolicy interface {
	// Execute applies the signal to the ledger at the signal's price.
	// Returns the fill and true if the signal resulted in a transition,
	// or false if it was a no-op (e.g. BUY while already LONG).
	Execute(sig strategy.Signal, l *Ledger) (Fill, bool)
}

// AllIn is the default zero-cost execution policy: BUY converts the entire
// cash balance to shares at the signal price, SELL liquidates the entire
// position back to cash. No partial positions, no fees, no slippage.
type AllIn struct {
	orderSeq int64
}

// NewAllIn creates the default all-in/all-out policy.
func NewAllIn() *AllIn {
	return &AllIn{}
}

// Execute applies the signal against the ledger.
func (a *AllIn) Execute(sig strategy.Signal, l *Ledger) (Fill, bool) {
	var shares float64
	switch sig.Action {
	case strategy.ActionBuy:
		shares = l.enterLong(sig.Price)
	case strategy.ActionSell:
		shares = l.exitLong(sig.Price)
	}
	if shares == 0 {
		return Fill{}, false
	}

	a.orderSeq++
	return Fill{
		OrderID: fmt.Sprintf("PAPER-%d", a.orderSeq),
		Signal:  sig,
		Price:   sig.Price,
		Shares:  shares,
	}, true
}
