package engine

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/strategy-backtest/internal/strategy"
	"github.com/rxtech-lab/strategy-backtest/internal/types"
)

// OnProcessDataCallback reports simulation progress after each processed bar.
type OnProcessDataCallback func(current int, total int)

// Engine runs a strategy over a bar series and produces a backtest result.
type Engine interface {
	// Run simulates the strategy over the bars for a single symbol.
	// A run with no tradable bars is valid and yields zeroed metrics.
	Run(strat strategy.Strategy, bars []types.PriceBar, symbol string, onProgress optional.Option[OnProcessDataCallback]) (types.BacktestResult, error)
}
