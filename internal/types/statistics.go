package types

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProfitFactorNoLosses is the JSON flag value used for the "no losing
// trades" profit factor, since JSON cannot encode +Inf. Internally the
// sentinel stays +Inf.
const ProfitFactorNoLosses = -1

// PerformanceMetrics holds the summary statistics derived from one run's
// equity curve and trade ledger.
type PerformanceMetrics struct {
	// TotalReturn is (final equity - initial equity) / initial equity.
	TotalReturn float64 `yaml:"total_return" json:"total_return"`
	// AnnualizedReturn uses the 365-day calendar convention; zero when the
	// run spans zero calendar days.
	AnnualizedReturn float64 `yaml:"annualized_return" json:"annualized_return"`
	// AnnualizedVolatility is stdev of per-bar returns scaled by sqrt(252).
	AnnualizedVolatility float64 `yaml:"annualized_volatility" json:"annualized_volatility"`
	// SharpeRatio is zero when volatility is zero, never infinite.
	SharpeRatio float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	// MaxDrawdown is the most negative peak-to-trough equity decline; always <= 0.
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
	// WinRate is in [0,1]; zero when there are no trades.
	WinRate float64 `yaml:"win_rate" json:"win_rate"`
	// ProfitFactor is gross wins over gross loss magnitude; +Inf when there
	// are winning trades and no losing ones.
	ProfitFactor float64 `yaml:"profit_factor" json:"profit_factor"`
	// AvgTradeReturn is the mean per-trade percentage P&L.
	AvgTradeReturn float64 `yaml:"avg_trade_return" json:"avg_trade_return"`
	TotalTrades    int     `yaml:"total_trades" json:"total_trades"`
}

// BacktestResult is the immutable aggregate produced at the end of a run.
type BacktestResult struct {
	// ID is the unique identifier of the run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when the run was executed.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	Symbol    string    `yaml:"symbol" json:"symbol"`
	Strategy  string    `yaml:"strategy" json:"strategy"`
	// EngineVersion is the semver of the engine that produced this result.
	EngineVersion string  `yaml:"engine_version" json:"engine_version"`
	InitialCash   float64 `yaml:"initial_cash" json:"initial_cash"`
	FinalEquity   float64 `yaml:"final_equity" json:"final_equity"`
	// StartTime and EndTime are the first and last bar timestamps.
	StartTime time.Time `yaml:"start_time" json:"start_time"`
	EndTime   time.Time `yaml:"end_time" json:"end_time"`

	Metrics PerformanceMetrics `yaml:"metrics" json:"metrics"`

	// Trades is the full ledger in exit order; read-only for consumers.
	Trades []Trade `yaml:"trades" json:"trades"`
}

// MarshalJSON flags the infinite profit-factor sentinel as
// ProfitFactorNoLosses; everything else marshals as-is.
func (r BacktestResult) MarshalJSON() ([]byte, error) {
	type alias BacktestResult

	out := alias(r)
	if math.IsInf(out.Metrics.ProfitFactor, 1) {
		out.Metrics.ProfitFactor = ProfitFactorNoLosses
	}

	return json.Marshal(out)
}

// WriteResult writes a result to a YAML file.
func WriteResult(path string, result BacktestResult) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest result to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest result to file: %w", err)
	}

	return nil
}
