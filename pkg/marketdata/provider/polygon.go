package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/rxtech-lab/strategy-backtest/internal/types"
)

const (
	polygonMaxAttempts  = 3
	polygonRetryBackoff = 2 * time.Second
)

type PolygonClient struct {
	client *polygon.Client
}

func NewPolygonClient(apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}

	return &PolygonClient{client: polygon.New(apiKey)}, nil
}

// FetchBars downloads daily aggregates for the symbol. Transient API
// failures are retried with a fixed backoff before giving up.
func (c *PolygonClient) FetchBars(ctx context.Context, symbol string, start time.Time, end time.Time) ([]types.PriceBar, error) {
	var lastErr error

	for attempt := 1; attempt <= polygonMaxAttempts; attempt++ {
		bars, err := c.fetchOnce(ctx, symbol, start, end)
		if err == nil {
			return bars, nil
		}

		// An empty result is a definitive answer, not a transient failure.
		if errors.Is(err, ErrNoData) {
			return nil, err
		}

		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(polygonRetryBackoff):
		}
	}

	return nil, fmt.Errorf("polygon fetch for %s failed after %d attempts: %w", symbol, polygonMaxAttempts, lastErr)
}

func (c *PolygonClient) fetchOnce(ctx context.Context, symbol string, start time.Time, end time.Time) ([]types.PriceBar, error) {
	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(50000)

	iter := c.client.ListAggs(ctx, params)

	var bars []types.PriceBar

	for iter.Next() {
		agg := iter.Item()
		bars = append(bars, types.PriceBar{
			Time:   time.Time(agg.Timestamp),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})
	}

	if iter.Err() != nil {
		return nil, fmt.Errorf("error iterating polygon aggregates: %w", iter.Err())
	}

	if len(bars) == 0 {
		return nil, ErrNoData
	}

	return bars, nil
}
