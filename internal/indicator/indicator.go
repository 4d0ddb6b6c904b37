package indicator

import (
	"github.com/rxtech-lab/strategy-backtest/internal/types"
)

// Indicator computes a derived series over a bar slice. Implementations are
// pure: the value at index i depends only on bars[0..i], never on later
// bars, and indices inside the warmup window are NaN.
type Indicator interface {
	// Name returns the column name the indicator publishes under.
	Name() string
	// Compute returns a series the same length as bars.
	Compute(bars []types.PriceBar) []float64
	// Lookback is the number of leading bars required before the first
	// defined value.
	Lookback() int
}
