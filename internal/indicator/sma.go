package indicator

import (
	"fmt"
	"math"

	"github.com/rxtech-lab/strategy-backtest/internal/types"
)

// SMA computes a simple moving average of closing prices.
type SMA struct {
	period int
}

// NewSMA creates an SMA indicator with the given period.
func NewSMA(period int) (*SMA, error) {
	if period <= 0 {
		return nil, fmt.Errorf("sma period must be a positive integer, got %d", period)
	}

	return &SMA{period: period}, nil
}

// Name returns the name of the indicator.
func (s *SMA) Name() string {
	return fmt.Sprintf("sma_%d", s.period)
}

// Lookback returns the warmup window length.
func (s *SMA) Lookback() int {
	return s.period
}

// Compute returns the rolling mean of closes. Indices before period-1 are
// NaN; index i averages closes over [i-period+1, i], so no value ever looks
// past the current bar.
func (s *SMA) Compute(bars []types.PriceBar) []float64 {
	values := make([]float64, len(bars))

	var windowSum float64

	for i := range bars {
		windowSum += bars[i].Close
		if i >= s.period {
			windowSum -= bars[i-s.period].Close
		}

		if i >= s.period-1 {
			values[i] = windowSum / float64(s.period)
		} else {
			values[i] = math.NaN()
		}
	}

	return values
}
