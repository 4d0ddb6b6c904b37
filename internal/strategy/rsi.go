package strategy

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/strategy-backtest/internal/indicator"
	"github.com/rxtech-lab/strategy-backtest/internal/types"
)

// RSIParams are the tunable parameters of the RSI threshold strategy.
type RSIParams struct {
	Period     int     `yaml:"period" json:"period" validate:"gt=0"`
	Oversold   float64 `yaml:"oversold" json:"oversold" validate:"gte=0,ltfield=Overbought"`
	Overbought float64 `yaml:"overbought" json:"overbought" validate:"lte=100"`
}

// DefaultRSIParams returns the conventional 14/30/70 configuration.
func DefaultRSIParams() RSIParams {
	return RSIParams{Period: 14, Oversold: 30, Overbought: 70}
}

// RSIThreshold enters when the market drops into the oversold zone and
// exits when it reaches the overbought zone. The discrete signal marks zone
// membership: 1 below the oversold bound, -1 above the overbought bound,
// 0 in between.
type RSIThreshold struct {
	params RSIParams
	rsi    *indicator.RSI
}

// NewRSIThreshold creates an RSI threshold strategy from params YAML
// (JSON is accepted too). Empty params select the defaults.
func NewRSIThreshold(paramsData []byte) (*RSIThreshold, error) {
	params := DefaultRSIParams()

	if len(paramsData) > 0 {
		if err := yaml.Unmarshal(paramsData, &params); err != nil {
			return nil, fmt.Errorf("failed to parse rsi params: %w", err)
		}
	}

	if err := validator.New().Struct(params); err != nil {
		return nil, fmt.Errorf("invalid rsi params: %w", err)
	}

	rsi, err := indicator.NewRSI(params.Period)
	if err != nil {
		return nil, err
	}

	return &RSIThreshold{
		params: params,
		rsi:    rsi,
	}, nil
}

// Name returns the registry name of the strategy.
func (s *RSIThreshold) Name() string {
	return "rsi"
}

// MinLookback returns the first index with both a defined RSI value and a
// defined previous value to detect transitions against.
func (s *RSIThreshold) MinLookback() int {
	return s.params.Period + 1
}

// GenerateSignals computes the RSI column and the zone-membership signal.
// Warmup NaN values compare false on both bounds and stay flat.
func (s *RSIThreshold) GenerateSignals(bars []types.PriceBar) (*types.SignalSeries, error) {
	series := types.NewSignalSeries(len(bars))
	// First defined RSI value sits at index Period.
	series.MinIndex = s.params.Period

	values := s.rsi.Compute(bars)
	series.Indicators["rsi"] = values

	for i := range bars {
		series.Times[i] = bars[i].Time

		switch {
		case values[i] < s.params.Oversold:
			series.Signals[i] = types.SignalLong
		case values[i] > s.params.Overbought:
			series.Signals[i] = types.SignalShort
		default:
			series.Signals[i] = types.SignalFlat
		}
	}

	return series, nil
}

// ShouldEnter fires on the transition into the oversold zone.
func (s *RSIThreshold) ShouldEnter(signals *types.SignalSeries, index int) bool {
	if index < signals.MinIndex || index >= signals.Len() {
		return false
	}

	return signals.Signals[index] == types.SignalLong && signals.Signals[index-1] != types.SignalLong
}

// ShouldExit fires on the transition into the overbought zone.
func (s *RSIThreshold) ShouldExit(signals *types.SignalSeries, index int, _ types.Position) bool {
	if index < signals.MinIndex || index >= signals.Len() {
		return false
	}

	return signals.Signals[index] == types.SignalShort && signals.Signals[index-1] != types.SignalShort
}
