package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/rxtech-lab/strategy-backtest/internal/types"
)

// binancePageSize is the Binance API cap on klines per request.
const binancePageSize = 500

type BinanceClient struct {
	client *binance.Client
}

// NewBinanceClient creates an unauthenticated client; historical klines do
// not require API credentials.
func NewBinanceClient() Provider {
	return &BinanceClient{client: binance.NewClient("", "")}
}

// FetchBars downloads daily klines for the symbol, paging through the API
// until the requested end time is covered.
func (c *BinanceClient) FetchBars(ctx context.Context, symbol string, start time.Time, end time.Time) ([]types.PriceBar, error) {
	endMillis := end.UnixMilli()
	currentStart := start.UnixMilli()

	var bars []types.PriceBar

	for {
		klines, err := c.client.NewKlinesService().
			Symbol(symbol).
			Interval("1d").
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(binancePageSize).
			Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch klines from Binance: %w", err)
		}

		for _, k := range klines {
			bar, err := klineToBar(k)
			if err != nil {
				return nil, err
			}

			bars = append(bars, bar)
		}

		if len(klines) < binancePageSize {
			break
		}

		// Next page starts one interval past the last open time.
		currentStart = klines[len(klines)-1].OpenTime + 1
	}

	if len(bars) == 0 {
		return nil, ErrNoData
	}

	return bars, nil
}

// klineToBar converts Binance's string-encoded kline fields.
func klineToBar(k *binance.Kline) (types.PriceBar, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return types.PriceBar{}, fmt.Errorf("failed to parse kline open %q: %w", k.Open, err)
	}

	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return types.PriceBar{}, fmt.Errorf("failed to parse kline high %q: %w", k.High, err)
	}

	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return types.PriceBar{}, fmt.Errorf("failed to parse kline low %q: %w", k.Low, err)
	}

	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return types.PriceBar{}, fmt.Errorf("failed to parse kline close %q: %w", k.Close, err)
	}

	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return types.PriceBar{}, fmt.Errorf("failed to parse kline volume %q: %w", k.Volume, err)
	}

	return types.PriceBar{
		Time:   time.UnixMilli(k.OpenTime).UTC(),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}
