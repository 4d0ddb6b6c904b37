package types

import "time"

// Discrete signal values carried by a SignalSeries.
const (
	SignalLong  = 1
	SignalFlat  = 0
	SignalShort = -1
)

// SignalSeries is a derived series aligned index-for-index with the price
// bars it was computed from. Indicator columns hold NaN for indices inside
// an indicator's warmup window; the discrete signal is zero there and must
// not be acted on before MinIndex.
type SignalSeries struct {
	// Times mirrors the bar timestamps.
	Times []time.Time
	// Signals holds the discrete signal per bar: long=1, flat=0, short=-1.
	Signals []int
	// Indicators holds named indicator columns (e.g. "sma_short", "rsi"),
	// each the same length as Signals.
	Indicators map[string][]float64
	// MinIndex is the first index at which the signal is defined. Decision
	// predicates return false for any index below it.
	MinIndex int
}

// NewSignalSeries allocates a zeroed series of length n.
func NewSignalSeries(n int) *SignalSeries {
	return &SignalSeries{
		Times:      make([]time.Time, n),
		Signals:    make([]int, n),
		Indicators: make(map[string][]float64),
		MinIndex:   0,
	}
}

// Len returns the number of entries in the series.
func (s *SignalSeries) Len() int {
	return len(s.Signals)
}

// Indicator returns a named indicator column.
func (s *SignalSeries) Indicator(name string) ([]float64, bool) {
	col, ok := s.Indicators[name]

	return col, ok
}
