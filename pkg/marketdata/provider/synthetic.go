package provider

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/strategy-backtest/internal/types"
)

// SyntheticConfig parameterizes the random-walk generator.
type SyntheticConfig struct {
	// Seed fixes the random source so generated series are reproducible.
	Seed       int64   `yaml:"seed" json:"seed"`
	StartPrice float64 `yaml:"start_price" json:"start_price"`
	// Drift is the mean daily return, Volatility its standard deviation.
	Drift      float64 `yaml:"drift" json:"drift"`
	Volatility float64 `yaml:"volatility" json:"volatility"`
}

func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Seed:       42,
		StartPrice: 100,
		Drift:      0.0005,
		Volatility: 0.02,
	}
}

// Synthetic generates a geometric random walk of daily bars. The same seed
// and range always produce the same series.
type Synthetic struct {
	config SyntheticConfig
}

func NewSynthetic(config SyntheticConfig) Provider {
	return &Synthetic{config: config}
}

// FetchBars generates one bar per calendar day in [start, end].
func (s *Synthetic) FetchBars(_ context.Context, symbol string, start time.Time, end time.Time) ([]types.PriceBar, error) {
	if end.Before(start) {
		return nil, ErrNoData
	}

	rng := rand.New(rand.NewSource(s.config.Seed))
	days := int(end.Sub(start).Hours()/24) + 1

	bars := make([]types.PriceBar, 0, days)
	price := s.config.StartPrice

	for i := 0; i < days; i++ {
		ret := s.config.Drift + s.config.Volatility*rng.NormFloat64()
		closePrice := price * (1 + ret)

		open := price * (1 + 0.005*rng.NormFloat64())
		high := math.Max(open, closePrice) * (1 + math.Abs(0.003*rng.NormFloat64()))
		low := math.Min(open, closePrice) * (1 - math.Abs(0.003*rng.NormFloat64()))
		volume := math.Floor(1e6 * math.Exp(0.5*rng.NormFloat64()))

		bars = append(bars, types.PriceBar{
			Time:   start.Add(time.Duration(i) * 24 * time.Hour),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})

		price = closePrice
	}

	return bars, nil
}
