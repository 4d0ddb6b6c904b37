// Package backtest fans one strategy out over many symbols, one engine per
// worker, and gathers the per-symbol results.
package backtest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/strategy-backtest/internal/backtest/engine"
	enginev1 "github.com/rxtech-lab/strategy-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/strategy-backtest/internal/logger"
	"github.com/rxtech-lab/strategy-backtest/internal/strategy"
	"github.com/rxtech-lab/strategy-backtest/internal/types"
	"go.uber.org/zap"
)

// Runner executes one strategy across a set of symbols concurrently. Every
// symbol gets its own engine and its own strategy instance, so workers share
// nothing but the immutable input bars.
type Runner struct {
	config   enginev1.Config
	registry *strategy.Registry
	log      *logger.Logger
}

func NewRunner(config enginev1.Config, registry *strategy.Registry, log *logger.Logger) *Runner {
	return &Runner{
		config:   config,
		registry: registry,
		log:      log,
	}
}

// RunAll backtests the named strategy over every symbol in data and returns
// the results keyed by symbol. The first worker error aborts the batch
// result; already-running workers still finish.
func (r *Runner) RunAll(ctx context.Context, strategyName string, params []byte, data map[string][]types.PriceBar) (map[string]types.BacktestResult, error) {
	// Fail fast on an unknown strategy before spawning workers.
	if _, err := r.registry.New(strategyName, params); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(data))
	for symbol := range data {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]types.BacktestResult, len(symbols))
		errs    []error
	)

	for _, symbol := range symbols {
		wg.Add(1)

		go func(symbol string, bars []types.PriceBar) {
			defer wg.Done()

			result, err := r.runOne(ctx, strategyName, params, symbol, bars)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				errs = append(errs, fmt.Errorf("backtest for %s failed: %w", symbol, err))
				return
			}

			results[symbol] = result
		}(symbol, data[symbol])
	}

	wg.Wait()

	if len(errs) > 0 {
		return nil, errs[0]
	}

	return results, nil
}

func (r *Runner) runOne(ctx context.Context, strategyName string, params []byte, symbol string, bars []types.PriceBar) (types.BacktestResult, error) {
	if err := ctx.Err(); err != nil {
		return types.BacktestResult{}, err
	}

	strat, err := r.registry.New(strategyName, params)
	if err != nil {
		return types.BacktestResult{}, err
	}

	eng, err := enginev1.NewBacktestEngineV1(r.config, r.log)
	if err != nil {
		return types.BacktestResult{}, err
	}
	defer eng.Close()

	r.log.Debug("Running backtest",
		zap.String("symbol", symbol),
		zap.String("strategy", strategyName),
		zap.Int("bars", len(bars)),
	)

	return eng.Run(strat, bars, symbol, optional.None[engine.OnProcessDataCallback]())
}
