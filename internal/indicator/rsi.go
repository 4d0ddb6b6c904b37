package indicator

import (
	"fmt"
	"math"

	"github.com/rxtech-lab/strategy-backtest/internal/types"
)

// Sentinel RSI values for degenerate windows. A window with no losses would
// otherwise divide by zero; a window with no movement at all has no
// directional information and resolves to the neutral midpoint.
const (
	RSIMax     = 100.0
	RSINeutral = 50.0
)

// RSI computes the relative strength index over a rolling window of average
// gains and losses.
type RSI struct {
	period int
}

// NewRSI creates an RSI indicator with the given period.
func NewRSI(period int) (*RSI, error) {
	if period <= 0 {
		return nil, fmt.Errorf("rsi period must be a positive integer, got %d", period)
	}

	return &RSI{period: period}, nil
}

// Name returns the name of the indicator.
func (r *RSI) Name() string {
	return "rsi"
}

// Lookback returns the warmup window length. The first delta needs one
// prior bar, so the first defined value sits at index period.
func (r *RSI) Lookback() int {
	return r.period + 1
}

// Compute returns the RSI series. Indices before period are NaN.
func (r *RSI) Compute(bars []types.PriceBar) []float64 {
	values := make([]float64, len(bars))

	var gainSum, lossSum float64

	for i := range bars {
		if i == 0 {
			values[i] = math.NaN()

			continue
		}

		change := bars[i].Close - bars[i-1].Close
		if change > 0 {
			gainSum += change
		} else {
			lossSum += -change
		}

		// Slide the window once it holds period deltas.
		if i > r.period {
			old := bars[i-r.period].Close - bars[i-r.period-1].Close
			if old > 0 {
				gainSum -= old
			} else {
				lossSum -= -old
			}
		}

		if i < r.period {
			values[i] = math.NaN()

			continue
		}

		avgGain := gainSum / float64(r.period)
		avgLoss := lossSum / float64(r.period)

		switch {
		case avgGain == 0 && avgLoss == 0:
			values[i] = RSINeutral
		case avgLoss == 0:
			values[i] = RSIMax
		default:
			rs := avgGain / avgLoss
			values[i] = 100 - (100 / (1 + rs))
		}
	}

	return values
}
