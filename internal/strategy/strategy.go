// Package strategy provides signal generation for the backtest engine.
//
// A Strategy receives one price per bar in index order and emits trading
// signals (BUY/SELL). Strategies are single-goroutine and deterministic:
// identical price sequences produce identical signal sequences.
package strategy

// Signal represents a trading signal emitted by a strategy.
type Signal struct {
	StrategyName string  `json:"strategy_name"`
	Action       Action  `json:"action"` // BUY or SELL
	Index        int     `json:"index"`  // bar index that produced the signal
	Price        float64 `json:"price"`  // close price at that bar
	Reason       string  `json:"reason"`
}

// Action represents a trading action.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Strategy is the interface that all trading strategies must implement.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// OnPrice is called once per bar in increasing index order.
	// Return a Signal if the strategy wants to act, or nil to skip.
	OnPrice(index int, price float64) *Signal

	// Reset clears all state so the strategy can be reused for another run.
	Reset()
}
