package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the single open holding of a run. At most one position per
// symbol exists at any time; it is created on entry and destroyed when the
// matching exit trade is recorded.
type Position struct {
	Symbol       string    `csv:"symbol" json:"symbol"`
	Quantity     int64     `csv:"quantity" json:"quantity"`
	EntryPrice   float64   `csv:"entry_price" json:"entry_price"`
	EntryTime    time.Time `csv:"entry_time" json:"entry_time"`
	EntryCost    float64   `csv:"entry_cost" json:"entry_cost"`
	StrategyName string    `csv:"strategy_name" json:"strategy_name"`
}

// MarketValue returns the position marked to the given price.
func (p *Position) MarketValue(price float64) float64 {
	value, _ := decimal.NewFromInt(p.Quantity).Mul(decimal.NewFromFloat(price)).Float64()

	return value
}

// Trade is the immutable record of a closed position. It is created once by
// the engine when a position closes and never mutated afterwards.
type Trade struct {
	ID           string    `csv:"id" json:"id"`
	Symbol       string    `csv:"symbol" json:"symbol"`
	Side         string    `csv:"side" json:"side"`
	EntryTime    time.Time `csv:"entry_time" json:"entry_time"`
	ExitTime     time.Time `csv:"exit_time" json:"exit_time"`
	EntryPrice   float64   `csv:"entry_price" json:"entry_price"`
	ExitPrice    float64   `csv:"exit_price" json:"exit_price"`
	Quantity     int64     `csv:"quantity" json:"quantity"`
	// PnL is proceeds minus entry cost, both commission-adjusted.
	PnL float64 `csv:"pnl" json:"pnl"`
	// PnLPct is the raw price return (exit-entry)/entry, commission excluded.
	PnLPct float64 `csv:"pnl_pct" json:"pnl_pct"`
	// HoldingPeriodHours is the elapsed time between entry and exit.
	HoldingPeriodHours float64 `csv:"holding_period_hours" json:"holding_period_hours"`
	StrategyName       string  `csv:"strategy_name" json:"strategy_name"`
}

// SideLong is the only side current policies produce; short stays
// representable in the signal domain but never reaches the ledger.
const SideLong = "long"

// ComputePnL returns proceeds - entryCost using decimal arithmetic so the
// ledger identities hold exactly.
func ComputePnL(proceeds, entryCost float64) float64 {
	pnl, _ := decimal.NewFromFloat(proceeds).Sub(decimal.NewFromFloat(entryCost)).Float64()

	return pnl
}

// ComputePnLPct returns (exitPrice-entryPrice)/entryPrice, or 0 for a zero
// entry price.
func ComputePnLPct(entryPrice, exitPrice float64) float64 {
	if entryPrice == 0 {
		return 0
	}

	pct, _ := decimal.NewFromFloat(exitPrice).
		Sub(decimal.NewFromFloat(entryPrice)).
		Div(decimal.NewFromFloat(entryPrice)).
		Float64()

	return pct
}
