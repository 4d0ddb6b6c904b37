package strategy

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/strategy-backtest/internal/indicator"
	"github.com/rxtech-lab/strategy-backtest/internal/types"
)

// MACrossoverParams are the tunable parameters of the moving-average
// crossover strategy.
type MACrossoverParams struct {
	ShortWindow int `yaml:"short_window" json:"short_window" validate:"gt=0"`
	LongWindow  int `yaml:"long_window" json:"long_window" validate:"gt=0,gtfield=ShortWindow"`
}

// DefaultMACrossoverParams returns the conventional 20/50 window pair.
func DefaultMACrossoverParams() MACrossoverParams {
	return MACrossoverParams{ShortWindow: 20, LongWindow: 50}
}

// MACrossover goes long while the short moving average sits above the long
// one. Entry fires on the upward crossover, exit on the downward one.
type MACrossover struct {
	params   MACrossoverParams
	shortSMA *indicator.SMA
	longSMA  *indicator.SMA
}

// NewMACrossover creates a moving-average crossover strategy from params
// YAML (JSON is accepted too). Empty params select the defaults.
func NewMACrossover(paramsData []byte) (*MACrossover, error) {
	params := DefaultMACrossoverParams()

	if len(paramsData) > 0 {
		if err := yaml.Unmarshal(paramsData, &params); err != nil {
			return nil, fmt.Errorf("failed to parse ma_crossover params: %w", err)
		}
	}

	if err := validator.New().Struct(params); err != nil {
		return nil, fmt.Errorf("invalid ma_crossover params: %w", err)
	}

	shortSMA, err := indicator.NewSMA(params.ShortWindow)
	if err != nil {
		return nil, err
	}

	longSMA, err := indicator.NewSMA(params.LongWindow)
	if err != nil {
		return nil, err
	}

	return &MACrossover{
		params:   params,
		shortSMA: shortSMA,
		longSMA:  longSMA,
	}, nil
}

// Name returns the registry name of the strategy.
func (s *MACrossover) Name() string {
	return "ma_crossover"
}

// MinLookback returns the long window length; both averages are defined
// from there on.
func (s *MACrossover) MinLookback() int {
	return s.params.LongWindow
}

// GenerateSignals computes both moving averages and the discrete signal:
// 1 while the short MA is above the long MA, 0 otherwise. Comparisons
// against NaN warmup values are false, so the signal stays flat until both
// averages exist.
func (s *MACrossover) GenerateSignals(bars []types.PriceBar) (*types.SignalSeries, error) {
	series := types.NewSignalSeries(len(bars))
	// The long average exists from index LongWindow-1 on; that is the first
	// decidable index. The previous signal there is flat by construction.
	series.MinIndex = s.params.LongWindow - 1

	shortValues := s.shortSMA.Compute(bars)
	longValues := s.longSMA.Compute(bars)

	series.Indicators["sma_short"] = shortValues
	series.Indicators["sma_long"] = longValues

	for i := range bars {
		series.Times[i] = bars[i].Time

		if shortValues[i] > longValues[i] {
			series.Signals[i] = types.SignalLong
		} else {
			series.Signals[i] = types.SignalFlat
		}
	}

	return series, nil
}

// ShouldEnter fires on the bar where the signal flips from flat to long.
func (s *MACrossover) ShouldEnter(signals *types.SignalSeries, index int) bool {
	if index < signals.MinIndex || index >= signals.Len() {
		return false
	}

	return signals.Signals[index] == types.SignalLong && signals.Signals[index-1] == types.SignalFlat
}

// ShouldExit fires on the bar where the signal flips from long back to flat.
func (s *MACrossover) ShouldExit(signals *types.SignalSeries, index int, _ types.Position) bool {
	if index < signals.MinIndex || index >= signals.Len() {
		return false
	}

	return signals.Signals[index] == types.SignalFlat && signals.Signals[index-1] == types.SignalLong
}
