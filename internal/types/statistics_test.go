package types

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type StatisticsTestSuite struct {
	suite.Suite
	result BacktestResult
}

func TestStatisticsSuite(t *testing.T) {
	suite.Run(t, new(StatisticsTestSuite))
}

func (suite *StatisticsTestSuite) SetupTest() {
	suite.result = BacktestResult{
		ID:            "run-1",
		Timestamp:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Symbol:        "AAPL",
		Strategy:      "ma_crossover",
		EngineVersion: "1.0.0",
		InitialCash:   100000,
		FinalEquity:   110000,
		StartTime:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndTime:       time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
		Metrics: PerformanceMetrics{
			TotalReturn:  0.1,
			WinRate:      1.0,
			ProfitFactor: math.Inf(1),
			TotalTrades:  2,
		},
	}
}

func (suite *StatisticsTestSuite) TestMarshalJSONFlagsInfiniteProfitFactor() {
	data, err := json.Marshal(suite.result)
	suite.Require().NoError(err)

	var decoded map[string]any
	suite.Require().NoError(json.Unmarshal(data, &decoded))

	metrics, ok := decoded["metrics"].(map[string]any)
	suite.Require().True(ok)
	suite.InDelta(float64(ProfitFactorNoLosses), metrics["profit_factor"], 1e-12)

	// Timestamps serialize as ISO-8601.
	suite.Equal("2024-01-01T00:00:00Z", decoded["start_time"])
}

func (suite *StatisticsTestSuite) TestMarshalJSONKeepsFiniteProfitFactor() {
	suite.result.Metrics.ProfitFactor = 2.5

	data, err := json.Marshal(suite.result)
	suite.Require().NoError(err)

	var decoded BacktestResult
	suite.Require().NoError(json.Unmarshal(data, &decoded))
	suite.InDelta(2.5, decoded.Metrics.ProfitFactor, 1e-12)
}

func (suite *StatisticsTestSuite) TestWriteResult() {
	dir := suite.T().TempDir()
	path := filepath.Join(dir, "result.yaml")

	require.NoError(suite.T(), WriteResult(path, suite.result))

	data, err := os.ReadFile(path)
	suite.Require().NoError(err)

	var decoded BacktestResult
	suite.Require().NoError(yaml.Unmarshal(data, &decoded))
	suite.Equal("AAPL", decoded.Symbol)
	suite.InDelta(0.1, decoded.Metrics.TotalReturn, 1e-12)
	suite.True(math.IsInf(decoded.Metrics.ProfitFactor, 1))
}
