// Package analysis computes summary performance statistics from a completed
// simulation: the equity curve and the closed-trade ledger go in, a metrics
// block goes out.
package analysis

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/rxtech-lab/strategy-backtest/internal/types"
)

const (
	// tradingDaysPerYear scales per-bar return volatility to annual terms.
	tradingDaysPerYear = 252
	// calendarDaysPerYear annualizes the total return over the elapsed
	// calendar period.
	calendarDaysPerYear = 365
)

// Analyze derives performance metrics from the equity curve and the trade
// ledger. An empty equity curve yields all-zero metrics; profit factor is
// +Inf when there are winning trades and no losing ones.
func Analyze(initialCash float64, equity []types.EquityPoint, trades []types.Trade, riskFreeRate float64) types.PerformanceMetrics {
	metrics := types.PerformanceMetrics{TotalTrades: len(trades)}

	if len(equity) == 0 || initialCash <= 0 {
		return metrics
	}

	finalEquity := equity[len(equity)-1].Value
	metrics.TotalReturn = finalEquity/initialCash - 1
	metrics.AnnualizedReturn = annualizeReturn(metrics.TotalReturn, equity)
	metrics.AnnualizedVolatility = annualizeVolatility(equity)

	if metrics.AnnualizedVolatility > 0 {
		metrics.SharpeRatio = (metrics.AnnualizedReturn - riskFreeRate) / metrics.AnnualizedVolatility
	}

	metrics.MaxDrawdown = maxDrawdown(equity)

	if len(trades) > 0 {
		metrics.WinRate = winRate(trades)
		metrics.ProfitFactor = profitFactor(trades)
		metrics.AvgTradeReturn = avgTradeReturn(trades)
	}

	return metrics
}

// annualizeReturn compounds the total return over the elapsed calendar days.
// A non-positive elapsed period yields 0; a total loss beyond -100% clamps
// to -1 since a fractional power of a negative base is undefined.
func annualizeReturn(totalReturn float64, equity []types.EquityPoint) float64 {
	days := equity[len(equity)-1].Time.Sub(equity[0].Time).Hours() / 24
	if days <= 0 {
		return 0
	}

	base := 1 + totalReturn
	if base <= 0 {
		return -1
	}

	return math.Pow(base, calendarDaysPerYear/days) - 1
}

// annualizeVolatility computes the population standard deviation of per-bar
// equity returns scaled by sqrt(252).
func annualizeVolatility(equity []types.EquityPoint) float64 {
	if len(equity) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(equity)-1)

	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Value
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}

		returns = append(returns, equity[i].Value/prev-1)
	}

	std, err := stats.StandardDeviationPopulation(returns)
	if err != nil {
		return 0
	}

	return std * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown returns the largest peak-to-trough decline as a negative
// fraction of the running maximum.
func maxDrawdown(equity []types.EquityPoint) float64 {
	var (
		peak     float64
		drawdown float64
	)

	for _, point := range equity {
		if point.Value > peak {
			peak = point.Value
		}

		if peak > 0 {
			dd := point.Value/peak - 1
			if dd < drawdown {
				drawdown = dd
			}
		}
	}

	return drawdown
}

func winRate(trades []types.Trade) float64 {
	wins := 0

	for _, trade := range trades {
		if trade.PnL > 0 {
			wins++
		}
	}

	return float64(wins) / float64(len(trades))
}

// profitFactor divides gross profits by gross losses. With no losing trades
// the factor is +Inf when any trade won and 0 otherwise.
func profitFactor(trades []types.Trade) float64 {
	var grossProfit, grossLoss float64

	for _, trade := range trades {
		if trade.PnL > 0 {
			grossProfit += trade.PnL
		} else {
			grossLoss += -trade.PnL
		}
	}

	if grossLoss == 0 {
		if grossProfit > 0 {
			return math.Inf(1)
		}

		return 0
	}

	return grossProfit / grossLoss
}

func avgTradeReturn(trades []types.Trade) float64 {
	returns := make([]float64, 0, len(trades))
	for _, trade := range trades {
		returns = append(returns, trade.PnLPct)
	}

	mean, err := stats.Mean(returns)
	if err != nil {
		return 0
	}

	return mean
}
