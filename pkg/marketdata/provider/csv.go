package provider

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/rxtech-lab/strategy-backtest/internal/types"
)

// CSVProvider reads bars from a local CSV file with a
// time,open,high,low,close,volume header. Timestamps are RFC 3339.
type CSVProvider struct {
	path string
}

func NewCSVProvider(path string) Provider {
	return &CSVProvider{path: path}
}

// FetchBars loads the file, keeps rows inside [start, end] and returns them
// sorted by time. The symbol argument is ignored; one file holds one series.
func (c *CSVProvider) FetchBars(_ context.Context, _ string, start time.Time, end time.Time) ([]types.PriceBar, error) {
	file, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer file.Close()

	var rows []*types.PriceBar
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse csv file %s: %w", c.path, err)
	}

	bars := make([]types.PriceBar, 0, len(rows))

	for _, row := range rows {
		if row.Time.Before(start) || row.Time.After(end) {
			continue
		}

		bars = append(bars, *row)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	if len(bars) == 0 {
		return nil, ErrNoData
	}

	if err := types.ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("csv file %s contains invalid bars: %w", c.path, err)
	}

	return bars, nil
}
