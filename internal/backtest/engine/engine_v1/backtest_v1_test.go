package engine

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	baseengine "github.com/rxtech-lab/strategy-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/strategy-backtest/internal/logger"
	"github.com/rxtech-lab/strategy-backtest/internal/strategy"
	"github.com/rxtech-lab/strategy-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

// scriptedStrategy fires entries and exits at fixed bar indices so tests can
// pin down the engine's accounting exactly.
type scriptedStrategy struct {
	entries map[int]bool
	exits   map[int]bool
}

func (s *scriptedStrategy) Name() string { return "scripted" }

func (s *scriptedStrategy) MinLookback() int { return 0 }

func (s *scriptedStrategy) GenerateSignals(bars []types.PriceBar) (*types.SignalSeries, error) {
	series := types.NewSignalSeries(len(bars))

	for i := range bars {
		series.Times[i] = bars[i].Time

		switch {
		case s.entries[i]:
			series.Signals[i] = types.SignalLong
		case s.exits[i]:
			series.Signals[i] = types.SignalShort
		}
	}

	return series, nil
}

func (s *scriptedStrategy) ShouldEnter(signals *types.SignalSeries, index int) bool {
	return s.entries[index]
}

func (s *scriptedStrategy) ShouldExit(signals *types.SignalSeries, index int, position types.Position) bool {
	return s.exits[index]
}

var _ strategy.Strategy = (*scriptedStrategy)(nil)

type BacktestV1TestSuite struct {
	suite.Suite
	log *logger.Logger
}

func TestBacktestV1Suite(t *testing.T) {
	suite.Run(t, new(BacktestV1TestSuite))
}

func (s *BacktestV1TestSuite) SetupSuite() {
	s.log = logger.NewNopLogger()
}

func (s *BacktestV1TestSuite) newEngine(config Config) *BacktestEngineV1 {
	eng, err := NewBacktestEngineV1(config, s.log)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = eng.Close() })

	return eng
}

func dailyBars(closes ...float64) []types.PriceBar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.PriceBar, 0, len(closes))

	for i, c := range closes {
		bars = append(bars, types.PriceBar{
			Time:   start.Add(time.Duration(i) * 24 * time.Hour),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		})
	}

	return bars
}

func (s *BacktestV1TestSuite) TestRoundTripAccounting() {
	config := DefaultConfig()
	config.InitialCash = 50000

	eng := s.newEngine(config)

	// Entry at 50 commits 10% of 50000 = 100 shares; exit at 60.
	bars := dailyBars(50, 55, 60, 60)
	strat := &scriptedStrategy{
		entries: map[int]bool{0: true},
		exits:   map[int]bool{2: true},
	}

	result, err := eng.Run(strat, bars, "AAPL", optional.None[baseengine.OnProcessDataCallback]())
	s.Require().NoError(err)

	s.Require().Len(result.Trades, 1)
	trade := result.Trades[0]

	s.Equal(int64(100), trade.Quantity)
	s.InDelta(50.0, trade.EntryPrice, 1e-9)
	s.InDelta(60.0, trade.ExitPrice, 1e-9)
	// 100*60*0.999 - 100*50*1.001 = 5994 - 5005 = 989 exactly.
	s.InDelta(989.0, trade.PnL, 1e-9)
	s.InDelta(0.2, trade.PnLPct, 1e-9)
	s.InDelta(48.0, trade.HoldingPeriodHours, 1e-9)
	s.Equal(types.SideLong, trade.Side)
	s.Equal("AAPL", trade.Symbol)

	s.InDelta(50989.0, result.FinalEquity, 1e-9)
	s.InDelta(989.0/50000.0, result.Metrics.TotalReturn, 1e-9)
	s.Equal(1, result.Metrics.TotalTrades)
}

func (s *BacktestV1TestSuite) TestEquityCurveSampledEveryBar() {
	eng := s.newEngine(DefaultConfig())

	bars := dailyBars(50, 55, 60, 58, 62)
	strat := &scriptedStrategy{
		entries: map[int]bool{1: true},
		exits:   map[int]bool{3: true},
	}

	_, err := eng.Run(strat, bars, "AAPL", optional.None[baseengine.OnProcessDataCallback]())
	s.Require().NoError(err)

	curve, err := eng.state.GetEquityCurve()
	s.Require().NoError(err)
	s.Len(curve, len(bars))

	for i := 1; i < len(curve); i++ {
		s.True(curve[i-1].Time.Before(curve[i].Time))
	}
}

func (s *BacktestV1TestSuite) TestFlatStrategyHoldsCash() {
	config := DefaultConfig()
	eng := s.newEngine(config)

	bars := dailyBars(50, 51, 52, 53)
	strat := &scriptedStrategy{entries: map[int]bool{}, exits: map[int]bool{}}

	result, err := eng.Run(strat, bars, "AAPL", optional.None[baseengine.OnProcessDataCallback]())
	s.Require().NoError(err)

	s.Empty(result.Trades)
	s.InDelta(config.InitialCash, result.FinalEquity, 1e-9)
	s.Zero(result.Metrics.TotalReturn)

	curve, err := eng.state.GetEquityCurve()
	s.Require().NoError(err)

	for _, point := range curve {
		s.InDelta(config.InitialCash, point.Value, 1e-9)
	}
}

func (s *BacktestV1TestSuite) TestForcedExitAtFinalBar() {
	eng := s.newEngine(DefaultConfig())

	bars := dailyBars(50, 55, 60)
	strat := &scriptedStrategy{entries: map[int]bool{0: true}, exits: map[int]bool{}}

	result, err := eng.Run(strat, bars, "AAPL", optional.None[baseengine.OnProcessDataCallback]())
	s.Require().NoError(err)

	s.Require().Len(result.Trades, 1)
	s.Equal(bars[len(bars)-1].Time, result.Trades[0].ExitTime)
	s.InDelta(60.0, result.Trades[0].ExitPrice, 1e-9)
}

func (s *BacktestV1TestSuite) TestAtMostOnePosition() {
	eng := s.newEngine(DefaultConfig())

	// Entry signal on every bar still yields a single open position that is
	// force-closed once at the end.
	entries := map[int]bool{}
	for i := 0; i < 5; i++ {
		entries[i] = true
	}

	bars := dailyBars(50, 51, 52, 53, 54)
	strat := &scriptedStrategy{entries: entries, exits: map[int]bool{}}

	result, err := eng.Run(strat, bars, "AAPL", optional.None[baseengine.OnProcessDataCallback]())
	s.Require().NoError(err)

	s.Len(result.Trades, 1)
}

func (s *BacktestV1TestSuite) TestInsufficientCashSkipsEntry() {
	config := DefaultConfig()
	config.InitialCash = 100

	eng := s.newEngine(config)

	// 10% of 100 cannot buy a single 500-priced share.
	bars := dailyBars(500, 500, 500)
	strat := &scriptedStrategy{entries: map[int]bool{0: true}, exits: map[int]bool{}}

	result, err := eng.Run(strat, bars, "AAPL", optional.None[baseengine.OnProcessDataCallback]())
	s.Require().NoError(err)

	s.Empty(result.Trades)
	s.InDelta(100.0, result.FinalEquity, 1e-9)
}

func (s *BacktestV1TestSuite) TestEmptySeriesIsValid() {
	eng := s.newEngine(DefaultConfig())

	strat := &scriptedStrategy{entries: map[int]bool{}, exits: map[int]bool{}}

	result, err := eng.Run(strat, nil, "AAPL", optional.None[baseengine.OnProcessDataCallback]())
	s.Require().NoError(err)

	s.Empty(result.Trades)
	s.InDelta(DefaultConfig().InitialCash, result.FinalEquity, 1e-9)
	s.Zero(result.Metrics.TotalTrades)
}

func (s *BacktestV1TestSuite) TestUndersizedSeriesNeverTrades() {
	eng := s.newEngine(DefaultConfig())

	strat, err := strategy.NewMACrossover(nil)
	s.Require().NoError(err)

	// 10 bars against a default 50-bar long window.
	bars := dailyBars(50, 51, 52, 53, 54, 55, 56, 57, 58, 59)

	result, err := eng.Run(strat, bars, "AAPL", optional.None[baseengine.OnProcessDataCallback]())
	s.Require().NoError(err)

	s.Empty(result.Trades)
	s.InDelta(DefaultConfig().InitialCash, result.FinalEquity, 1e-9)
}

func (s *BacktestV1TestSuite) TestDeterministicAcrossRuns() {
	strat := &scriptedStrategy{
		entries: map[int]bool{0: true, 3: true},
		exits:   map[int]bool{2: true},
	}
	bars := dailyBars(50, 55, 60, 58, 62, 61)

	first, err := s.newEngine(DefaultConfig()).Run(strat, bars, "AAPL", optional.None[baseengine.OnProcessDataCallback]())
	s.Require().NoError(err)

	second, err := s.newEngine(DefaultConfig()).Run(strat, bars, "AAPL", optional.None[baseengine.OnProcessDataCallback]())
	s.Require().NoError(err)

	s.Equal(first.Metrics, second.Metrics)
	s.Equal(first.FinalEquity, second.FinalEquity)
	s.Require().Len(second.Trades, len(first.Trades))

	for i := range first.Trades {
		s.Equal(first.Trades[i].PnL, second.Trades[i].PnL)
		s.Equal(first.Trades[i].Quantity, second.Trades[i].Quantity)
		s.Equal(first.Trades[i].EntryTime, second.Trades[i].EntryTime)
		s.Equal(first.Trades[i].ExitTime, second.Trades[i].ExitTime)
	}
}

func (s *BacktestV1TestSuite) TestTimeWindowFiltersBars() {
	config := DefaultConfig()
	config.StartTime = optional.Some(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	config.EndTime = optional.Some(time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC))

	eng := s.newEngine(config)

	bars := dailyBars(50, 51, 52, 53, 54, 55)
	strat := &scriptedStrategy{entries: map[int]bool{}, exits: map[int]bool{}}

	result, err := eng.Run(strat, bars, "AAPL", optional.None[baseengine.OnProcessDataCallback]())
	s.Require().NoError(err)

	s.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), result.StartTime)
	s.Equal(time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), result.EndTime)
}

func (s *BacktestV1TestSuite) TestProgressCallback() {
	eng := s.newEngine(DefaultConfig())

	bars := dailyBars(50, 51, 52)
	strat := &scriptedStrategy{entries: map[int]bool{}, exits: map[int]bool{}}

	var calls []int

	callback := baseengine.OnProcessDataCallback(func(current, total int) {
		s.Equal(len(bars), total)
		calls = append(calls, current)
	})

	_, err := eng.Run(strat, bars, "AAPL", optional.Some(callback))
	s.Require().NoError(err)

	s.Equal([]int{1, 2, 3}, calls)
}

func (s *BacktestV1TestSuite) TestRejectsUnsortedBars() {
	eng := s.newEngine(DefaultConfig())

	bars := dailyBars(50, 51, 52)
	bars[0], bars[2] = bars[2], bars[0]

	strat := &scriptedStrategy{entries: map[int]bool{}, exits: map[int]bool{}}

	_, err := eng.Run(strat, bars, "AAPL", optional.None[baseengine.OnProcessDataCallback]())
	s.Error(err)
}

func (s *BacktestV1TestSuite) TestMACrossoverEndToEnd() {
	eng := s.newEngine(DefaultConfig())

	strat, err := strategy.NewMACrossover([]byte("short_window: 3\nlong_window: 5"))
	s.Require().NoError(err)

	// Decline long enough to pin the short MA below the long MA, then a
	// sharp rally to force a bullish crossover.
	closes := []float64{100, 98, 96, 94, 92, 90, 88, 86, 84, 82, 95, 105, 115, 125, 135, 145}
	bars := dailyBars(closes...)

	result, err := eng.Run(strat, bars, "AAPL", optional.None[baseengine.OnProcessDataCallback]())
	s.Require().NoError(err)

	s.Require().NotEmpty(result.Trades)
	s.Greater(result.FinalEquity, DefaultConfig().InitialCash)
}
