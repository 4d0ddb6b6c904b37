package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxtech-lab/strategy-backtest/internal/types"
)

func barsFromCloses(closes []float64) []types.PriceBar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.PriceBar, len(closes))

	for i, c := range closes {
		bars[i] = types.PriceBar{
			Time:   base.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}

	return bars
}

// risingCloses returns n closes rising linearly from start to end.
func risingCloses(start, end float64, n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + (end-start)*float64(i)/float64(n-1)
	}

	return closes
}

func TestNewMACrossoverDefaults(t *testing.T) {
	strat, err := NewMACrossover(nil)
	require.NoError(t, err)

	assert.Equal(t, "ma_crossover", strat.Name())
	assert.Equal(t, 50, strat.MinLookback())
}

func TestNewMACrossoverParams(t *testing.T) {
	strat, err := NewMACrossover([]byte("short_window: 5\nlong_window: 10\n"))
	require.NoError(t, err)
	assert.Equal(t, 10, strat.MinLookback())
}

func TestNewMACrossoverRejectsInvertedWindows(t *testing.T) {
	_, err := NewMACrossover([]byte("short_window: 50\nlong_window: 20\n"))
	assert.Error(t, err)

	_, err = NewMACrossover([]byte("short_window: 0\nlong_window: 20\n"))
	assert.Error(t, err)
}

func TestMACrossoverSignalsAlignToBars(t *testing.T) {
	strat, err := NewMACrossover([]byte("short_window: 3\nlong_window: 5\n"))
	require.NoError(t, err)

	bars := barsFromCloses(risingCloses(100, 120, 30))
	signals, err := strat.GenerateSignals(bars)
	require.NoError(t, err)

	assert.Equal(t, len(bars), signals.Len())
	assert.Len(t, signals.Indicators["sma_short"], len(bars))
	assert.Len(t, signals.Indicators["sma_long"], len(bars))
}

func TestMACrossoverMonotonicRiseSingleEntryNoExit(t *testing.T) {
	// A series rising monotonically from 100 to 200 over 100 bars with
	// 20/50 windows: exactly one entry at the first bar where both averages
	// are defined and the short one leads, and no exit before the end.
	strat, err := NewMACrossover([]byte("short_window: 20\nlong_window: 50\n"))
	require.NoError(t, err)

	bars := barsFromCloses(risingCloses(100, 200, 100))
	signals, err := strat.GenerateSignals(bars)
	require.NoError(t, err)

	entries := 0
	exits := 0

	for i := range bars {
		if strat.ShouldEnter(signals, i) {
			entries++
			assert.Equal(t, 49, i, "entry should fire at the first bar with a defined long average")
		}

		if strat.ShouldExit(signals, i, types.Position{}) {
			exits++
		}
	}

	assert.Equal(t, 1, entries)
	assert.Zero(t, exits)
}

func TestMACrossoverFlatSeriesNeverTrades(t *testing.T) {
	strat, err := NewMACrossover([]byte("short_window: 20\nlong_window: 50\n"))
	require.NoError(t, err)

	closes := make([]float64, 200)
	for i := range closes {
		closes[i] = 100
	}

	signals, err := strat.GenerateSignals(barsFromCloses(closes))
	require.NoError(t, err)

	for i := range closes {
		assert.False(t, strat.ShouldEnter(signals, i))
		assert.False(t, strat.ShouldExit(signals, i, types.Position{}))
	}
}

func TestMACrossoverNeverFiresInsideWarmup(t *testing.T) {
	strat, err := NewMACrossover([]byte("short_window: 3\nlong_window: 5\n"))
	require.NoError(t, err)

	bars := barsFromCloses(risingCloses(100, 110, 20))
	signals, err := strat.GenerateSignals(bars)
	require.NoError(t, err)

	for i := 0; i < signals.MinIndex; i++ {
		assert.False(t, strat.ShouldEnter(signals, i))
		assert.False(t, strat.ShouldExit(signals, i, types.Position{}))
	}
}

func TestMACrossoverDetectsDownwardCross(t *testing.T) {
	strat, err := NewMACrossover([]byte("short_window: 2\nlong_window: 4\n"))
	require.NoError(t, err)

	// Rise long enough to cross up, then fall to force the cross down.
	closes := append(risingCloses(100, 120, 12), risingCloses(118, 80, 12)...)
	signals, err := strat.GenerateSignals(barsFromCloses(closes))
	require.NoError(t, err)

	sawEntry := false
	sawExit := false

	for i := range closes {
		if strat.ShouldEnter(signals, i) {
			sawEntry = true
		}

		if strat.ShouldExit(signals, i, types.Position{}) {
			sawExit = true
		}
	}

	assert.True(t, sawEntry)
	assert.True(t, sawExit)
}
