package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/strategy-backtest/internal/analysis"
	"github.com/rxtech-lab/strategy-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/strategy-backtest/internal/backtest/engine/engine_v1/commission"
	"github.com/rxtech-lab/strategy-backtest/internal/logger"
	"github.com/rxtech-lab/strategy-backtest/internal/strategy"
	"github.com/rxtech-lab/strategy-backtest/internal/types"
	"github.com/rxtech-lab/strategy-backtest/internal/version"
	"go.uber.org/zap"
)

// BacktestEngineV1 replays a bar series through a strategy under strict
// next-signal-only execution: one open position at most, entries sized as a
// fraction of current cash, commission charged on both legs, and any open
// position force-closed at the final bar.
type BacktestEngineV1 struct {
	config     Config
	log        *logger.Logger
	state      *BacktestState
	commission commission.Model
}

// NewBacktestEngineV1 creates an engine with its own ledger. Engines are not
// safe for concurrent use; run one engine per goroutine.
func NewBacktestEngineV1(config Config, log *logger.Logger) (*BacktestEngineV1, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	state := NewBacktestState(log)
	if state == nil {
		return nil, fmt.Errorf("failed to create backtest state")
	}

	if err := state.Initialize(); err != nil {
		return nil, err
	}

	return &BacktestEngineV1{
		config:     config,
		log:        log,
		state:      state,
		commission: commission.NewFlatRate(config.CommissionRate),
	}, nil
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(strat strategy.Strategy, bars []types.PriceBar, symbol string, onProgress optional.Option[engine.OnProcessDataCallback]) (types.BacktestResult, error) {
	if err := types.ValidateBars(bars); err != nil {
		return types.BacktestResult{}, err
	}

	bars = b.filterWindow(bars)

	if err := b.state.Cleanup(); err != nil {
		return types.BacktestResult{}, err
	}

	runID := uuid.New().String()

	signals, err := b.generateSignals(strat, bars)
	if err != nil {
		return types.BacktestResult{}, err
	}

	cash := b.config.InitialCash

	var (
		position *types.Position
		trades   []types.Trade
		equity   = make([]types.EquityPoint, 0, len(bars))
	)

	for i, bar := range bars {
		price := bar.Close

		if position == nil {
			if signals != nil && strat.ShouldEnter(signals, i) {
				position = b.tryEnter(cash, signals, i, bar, symbol, strat.Name())
				if position != nil {
					cash -= position.EntryCost
				}
			}
		} else if signals != nil && strat.ShouldExit(signals, i, *position) {
			proceeds := b.commission.ExitProceeds(position.Quantity, price)
			trades = append(trades, b.buildTrade(position, bar.Time, price, proceeds))
			cash += proceeds
			position = nil
		}

		// Equity is marked to market after this bar's fills.
		value := cash
		if position != nil {
			value += position.MarketValue(price)
		}

		equity = append(equity, types.EquityPoint{Time: bar.Time, Value: value})

		if callback, err := onProgress.Take(); err == nil {
			callback(i+1, len(bars))
		}
	}

	// Any position still open settles at the last close so every entry has
	// a matching exit in the ledger.
	if position != nil {
		last := bars[len(bars)-1]
		proceeds := b.commission.ExitProceeds(position.Quantity, last.Close)
		trades = append(trades, b.buildTrade(position, last.Time, last.Close, proceeds))
		cash += proceeds

		b.log.Debug("Force-closed open position at final bar",
			zap.String("symbol", symbol),
			zap.Float64("price", last.Close),
			zap.Float64("cash", cash),
		)
	}

	if err := b.flush(trades, equity); err != nil {
		return types.BacktestResult{}, err
	}

	result := types.BacktestResult{
		ID:            runID,
		Timestamp:     time.Now().UTC(),
		Symbol:        symbol,
		Strategy:      strat.Name(),
		EngineVersion: version.GetVersion(),
		InitialCash:   b.config.InitialCash,
		FinalEquity:   b.config.InitialCash,
		Metrics:       analysis.Analyze(b.config.InitialCash, equity, trades, b.config.RiskFreeRate),
		Trades:        trades,
	}

	if len(equity) > 0 {
		result.FinalEquity = equity[len(equity)-1].Value
		result.StartTime = bars[0].Time
		result.EndTime = bars[len(bars)-1].Time
	}

	return result, nil
}

// WriteResults persists a finished run: a YAML stats file plus Parquet and
// CSV exports of the ledger.
func (b *BacktestEngineV1) WriteResults(dir string, result types.BacktestResult) error {
	if err := b.state.Write(dir); err != nil {
		return err
	}

	if err := b.state.ExportTradesCSV(fmt.Sprintf("%s/trades.csv", dir)); err != nil {
		return err
	}

	return types.WriteResult(fmt.Sprintf("%s/stats.yaml", dir), result)
}

// Close releases the engine's ledger.
func (b *BacktestEngineV1) Close() error {
	return b.state.Close()
}

// filterWindow drops bars outside the configured start and end times.
func (b *BacktestEngineV1) filterWindow(bars []types.PriceBar) []types.PriceBar {
	if b.config.StartTime.IsNone() && b.config.EndTime.IsNone() {
		return bars
	}

	filtered := make([]types.PriceBar, 0, len(bars))

	for _, bar := range bars {
		if start, err := b.config.StartTime.Take(); err == nil && bar.Time.Before(start) {
			continue
		}

		if end, err := b.config.EndTime.Take(); err == nil && bar.Time.After(end) {
			continue
		}

		filtered = append(filtered, bar)
	}

	return filtered
}

// generateSignals returns nil signals for series shorter than the strategy's
// minimum lookback; such runs are valid and simply never trade.
func (b *BacktestEngineV1) generateSignals(strat strategy.Strategy, bars []types.PriceBar) (*types.SignalSeries, error) {
	if len(bars) < strat.MinLookback() {
		b.log.Debug("Bar series shorter than strategy lookback, no signals generated",
			zap.String("strategy", strat.Name()),
			zap.Int("bars", len(bars)),
			zap.Int("min_lookback", strat.MinLookback()),
		)

		return nil, nil
	}

	signals, err := strat.GenerateSignals(bars)
	if err != nil {
		return nil, fmt.Errorf("strategy %s failed to generate signals: %w", strat.Name(), err)
	}

	if signals.Len() != len(bars) {
		return nil, fmt.Errorf("strategy %s produced %d signals for %d bars", strat.Name(), signals.Len(), len(bars))
	}

	return signals, nil
}

// tryEnter sizes and opens a position, or returns nil when the order cannot
// be afforded. Sizing commits a fixed fraction of current cash scaled by
// signal strength, rounded down to whole shares.
func (b *BacktestEngineV1) tryEnter(cash float64, signals *types.SignalSeries, index int, bar types.PriceBar, symbol, strategyName string) *types.Position {
	price := bar.Close
	if price <= 0 {
		return nil
	}

	strength := math.Abs(float64(signals.Signals[index]))

	quantity := int64(math.Floor(cash * b.config.PositionFraction * strength / price))
	if quantity <= 0 {
		return nil
	}

	cost := b.commission.EntryCost(quantity, price)
	if cost > cash {
		b.log.Debug("Skipping entry, insufficient cash for commission-adjusted cost",
			zap.String("symbol", symbol),
			zap.Float64("cost", cost),
			zap.Float64("cash", cash),
		)

		return nil
	}

	return &types.Position{
		Symbol:       symbol,
		Quantity:     quantity,
		EntryPrice:   price,
		EntryTime:    bar.Time,
		EntryCost:    cost,
		StrategyName: strategyName,
	}
}

// buildTrade builds the round-trip trade record for an exit at the given
// time and price.
func (b *BacktestEngineV1) buildTrade(position *types.Position, exitTime time.Time, exitPrice float64, proceeds float64) types.Trade {
	return types.Trade{
		ID:                 uuid.New().String(),
		Symbol:             position.Symbol,
		Side:               types.SideLong,
		EntryTime:          position.EntryTime,
		ExitTime:           exitTime,
		EntryPrice:         position.EntryPrice,
		ExitPrice:          exitPrice,
		Quantity:           position.Quantity,
		PnL:                types.ComputePnL(proceeds, position.EntryCost),
		PnLPct:             types.ComputePnLPct(position.EntryPrice, exitPrice),
		HoldingPeriodHours: exitTime.Sub(position.EntryTime).Hours(),
		StrategyName:       position.StrategyName,
	}
}

func (b *BacktestEngineV1) flush(trades []types.Trade, equity []types.EquityPoint) error {
	for _, trade := range trades {
		if err := b.state.RecordTrade(trade); err != nil {
			return err
		}
	}

	for _, point := range equity {
		if err := b.state.RecordEquity(point); err != nil {
			return err
		}
	}

	return nil
}
