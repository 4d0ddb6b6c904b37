package strategy

import (
	"github.com/rxtech-lab/strategy-backtest/internal/types"
)

// Strategy is the contract the simulation engine drives. Any type
// implementing it is a valid strategy; no base type is required.
//
// GenerateSignals must be a pure function of its input: deterministic, no
// hidden state, and the signal at index i may only depend on bars[0..i].
// ShouldEnter and ShouldExit are side-effect-free and must return false for
// any index inside the strategy's warmup window, where indicator values are
// undefined.
type Strategy interface {
	// Name returns the registry name of the strategy variant.
	Name() string
	// MinLookback is the number of leading bars the strategy needs before
	// its decision predicates can fire.
	MinLookback() int
	// GenerateSignals transforms a bar series into an aligned signal series.
	GenerateSignals(bars []types.PriceBar) (*types.SignalSeries, error)
	// ShouldEnter reports whether a new position should be opened at index.
	ShouldEnter(signals *types.SignalSeries, index int) bool
	// ShouldExit reports whether the open position should be closed at index.
	ShouldExit(signals *types.SignalSeries, index int, position types.Position) bool
}
