package provider

import (
	"testing"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKlineToBar(t *testing.T) {
	openTime := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	bar, err := klineToBar(&binance.Kline{
		OpenTime: openTime.UnixMilli(),
		Open:     "42000.5",
		High:     "43100.25",
		Low:      "41800.0",
		Close:    "42950.75",
		Volume:   "1234.56",
	})
	require.NoError(t, err)

	assert.Equal(t, openTime, bar.Time)
	assert.Equal(t, 42000.5, bar.Open)
	assert.Equal(t, 43100.25, bar.High)
	assert.Equal(t, 41800.0, bar.Low)
	assert.Equal(t, 42950.75, bar.Close)
	assert.Equal(t, 1234.56, bar.Volume)
}

func TestKlineToBarMalformed(t *testing.T) {
	_, err := klineToBar(&binance.Kline{
		OpenTime: time.Now().UnixMilli(),
		Open:     "not-a-number",
		High:     "1",
		Low:      "1",
		Close:    "1",
		Volume:   "1",
	})
	assert.Error(t, err)
}
