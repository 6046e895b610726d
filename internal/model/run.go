// Package model defines the shared data types exchanged between the backtest
// engine, the stores, and the serving layer.
package model

import (
	"encoding/json"
	"time"
)

// RunParams describes a single backtest request.
type RunParams struct {
	Series         string  `json:"series,omitempty"` // named series in a store; "" = inline prices
	FastWindow     int     `json:"fast_window"`
	SlowWindow     int     `json:"slow_window"`
	InitialCapital float64 `json:"initial_capital"`
}

// EquityPoint is one bar of an equity curve, tagged with the run it belongs to.
type EquityPoint struct {
	RunID  string  `json:"run_id"`
	Index  int     `json:"index"`
	Price  float64 `json:"price"`
	Equity float64 `json:"equity"`
}

// JSON returns the JSON-encoded point (ignoring errors for hot-path usage).
func (p *EquityPoint) JSON() []byte {
	b, _ := json.Marshal(p)
	return b
}

// PubSubChannel returns the Redis PubSub channel for live equity points:
// "pub:equity:{run_id}".
func (p *EquityPoint) PubSubChannel() string {
	return "pub:equity:" + p.RunID
}

// RunRecord is the persisted summary of a completed backtest run.
type RunRecord struct {
	RunID          string        `json:"run_id"`
	Params         RunParams     `json:"params"`
	Bars           int           `json:"bars"`
	WarmupBars     int           `json:"warmup_bars"`
	Fills          int           `json:"fills"`
	FinalEquity    float64       `json:"final_equity"`
	ReturnPct      float64       `json:"return_pct"`
	MaxDrawdownPct float64       `json:"max_drawdown_pct"`
	Duration       time.Duration `json:"duration_ns"`
	StartedAt      time.Time     `json:"started_at"`
}

// StreamKey returns the Redis stream key for completed run records.
func (r *RunRecord) StreamKey() string {
	return "bt:runs"
}

// JSON returns the JSON-encoded run record.
func (r *RunRecord) JSON() []byte {
	b, _ := json.Marshal(r)
	return b
}
