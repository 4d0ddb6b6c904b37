// Package provider fetches daily OHLCV bars from external market data
// sources, or generates them locally for offline runs.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rxtech-lab/strategy-backtest/internal/types"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderPolygon   ProviderType = "polygon"
	ProviderBinance   ProviderType = "binance"
	ProviderSynthetic ProviderType = "synthetic"
	ProviderCSV       ProviderType = "csv"
)

// ErrNoData is returned when a provider yields zero bars for the requested
// range.
var ErrNoData = errors.New("no market data returned for requested range")

// Provider fetches daily bars for one symbol over a closed time range.
// Returned bars are sorted by time and satisfy types.ValidateBars.
type Provider interface {
	FetchBars(ctx context.Context, symbol string, start time.Time, end time.Time) ([]types.PriceBar, error)
}

// NewMarketDataProvider creates a provider by type. The config argument is
// provider-specific: polygon needs an API key string, csv needs a file path
// string, synthetic accepts an optional SyntheticConfig, binance ignores it.
func NewMarketDataProvider(providerType ProviderType, config any) (Provider, error) {
	switch providerType {
	case ProviderBinance:
		return NewBinanceClient(), nil
	case ProviderPolygon:
		apiKey, ok := config.(string)
		if !ok {
			return nil, fmt.Errorf("polygon provider requires API key string config")
		}

		return NewPolygonClient(apiKey)
	case ProviderSynthetic:
		if cfg, ok := config.(SyntheticConfig); ok {
			return NewSynthetic(cfg), nil
		}

		return NewSynthetic(DefaultSyntheticConfig()), nil
	case ProviderCSV:
		path, ok := config.(string)
		if !ok {
			return nil, fmt.Errorf("csv provider requires file path string config")
		}

		return NewCSVProvider(path), nil
	default:
		return nil, fmt.Errorf("unsupported market data provider: %s", providerType)
	}
}
