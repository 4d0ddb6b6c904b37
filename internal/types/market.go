package types

import (
	"fmt"
	"time"
)

// PriceBar is a single OHLCV observation in a time-ordered series.
type PriceBar struct {
	Time   time.Time `csv:"time" json:"time" yaml:"time"`
	Open   float64   `csv:"open" json:"open" yaml:"open"`
	High   float64   `csv:"high" json:"high" yaml:"high"`
	Low    float64   `csv:"low" json:"low" yaml:"low"`
	Close  float64   `csv:"close" json:"close" yaml:"close"`
	Volume float64   `csv:"volume" json:"volume" yaml:"volume"`
}

// EquityPoint is the total account value (cash plus marked-to-market open
// position) observed after processing one bar.
type EquityPoint struct {
	Time  time.Time `csv:"time" json:"time" yaml:"time"`
	Value float64   `csv:"value" json:"value" yaml:"value"`
}

// ValidateBars rejects structurally defective series before a simulation
// starts: timestamps must be strictly increasing and every bar must satisfy
// high >= close >= low >= 0. An empty series is valid; the engine treats it
// as a no-trades-possible run.
func ValidateBars(bars []PriceBar) error {
	for i, bar := range bars {
		if bar.Low < 0 {
			return fmt.Errorf("bar %d (%s): negative low price %f", i, bar.Time.Format(time.RFC3339), bar.Low)
		}

		if bar.High < bar.Close || bar.Close < bar.Low {
			return fmt.Errorf("bar %d (%s): OHLC invariant violated (high=%f close=%f low=%f)",
				i, bar.Time.Format(time.RFC3339), bar.High, bar.Close, bar.Low)
		}

		if bar.Volume < 0 {
			return fmt.Errorf("bar %d (%s): negative volume %f", i, bar.Time.Format(time.RFC3339), bar.Volume)
		}

		if i > 0 && !bars[i-1].Time.Before(bar.Time) {
			return fmt.Errorf("bar %d (%s): timestamp not strictly increasing (previous %s)",
				i, bar.Time.Format(time.RFC3339), bars[i-1].Time.Format(time.RFC3339))
		}
	}

	return nil
}
