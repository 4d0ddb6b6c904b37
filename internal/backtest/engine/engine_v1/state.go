package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	"github.com/gocarina/gocsv"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/strategy-backtest/internal/logger"
	"github.com/rxtech-lab/strategy-backtest/internal/types"
	"go.uber.org/zap"
)

// BacktestState is the run ledger. Closed trades and the per-bar equity
// curve are written into an in-memory DuckDB instance so results can be
// queried and exported without touching the simulation hot path.
type BacktestState struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewBacktestState(logger *logger.Logger) *BacktestState {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))
		return nil
	}

	return &BacktestState{
		logger: logger,
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

// Initialize creates the trades and equity tables.
func (b *BacktestState) Initialize() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			trade_id TEXT,
			symbol TEXT,
			side TEXT,
			entry_time TIMESTAMP,
			exit_time TIMESTAMP,
			entry_price DOUBLE,
			exit_price DOUBLE,
			quantity BIGINT,
			pnl DOUBLE,
			pnl_pct DOUBLE,
			holding_period_hours DOUBLE,
			strategy_name TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create trades table: %w", err)
	}

	_, err = b.db.Exec(`
		CREATE TABLE IF NOT EXISTS equity (
			timestamp TIMESTAMP,
			value DOUBLE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create equity table: %w", err)
	}

	return nil
}

// RecordTrade appends a closed round-trip trade to the ledger.
func (b *BacktestState) RecordTrade(trade types.Trade) error {
	_, err := b.sq.
		Insert("trades").
		Columns(
			"trade_id", "symbol", "side", "entry_time", "exit_time",
			"entry_price", "exit_price", "quantity", "pnl", "pnl_pct",
			"holding_period_hours", "strategy_name",
		).
		Values(
			trade.ID, trade.Symbol, trade.Side, trade.EntryTime, trade.ExitTime,
			trade.EntryPrice, trade.ExitPrice, trade.Quantity, trade.PnL, trade.PnLPct,
			trade.HoldingPeriodHours, trade.StrategyName,
		).
		RunWith(b.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to record trade: %w", err)
	}

	return nil
}

// RecordEquity appends one equity curve sample.
func (b *BacktestState) RecordEquity(point types.EquityPoint) error {
	_, err := b.sq.
		Insert("equity").
		Columns("timestamp", "value").
		Values(point.Time, point.Value).
		RunWith(b.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to record equity point: %w", err)
	}

	return nil
}

// GetAllTrades returns all recorded trades ordered by exit time.
func (b *BacktestState) GetAllTrades() ([]types.Trade, error) {
	selectQuery := b.sq.
		Select(
			"trade_id", "symbol", "side", "entry_time", "exit_time",
			"entry_price", "exit_price", "quantity", "pnl", "pnl_pct",
			"holding_period_hours", "strategy_name",
		).
		From("trades").
		OrderBy("exit_time ASC").
		RunWith(b.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []types.Trade

	for rows.Next() {
		var trade types.Trade

		err := rows.Scan(
			&trade.ID,
			&trade.Symbol,
			&trade.Side,
			&trade.EntryTime,
			&trade.ExitTime,
			&trade.EntryPrice,
			&trade.ExitPrice,
			&trade.Quantity,
			&trade.PnL,
			&trade.PnLPct,
			&trade.HoldingPeriodHours,
			&trade.StrategyName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// GetEquityCurve returns the recorded equity samples in time order.
func (b *BacktestState) GetEquityCurve() ([]types.EquityPoint, error) {
	selectQuery := b.sq.
		Select("timestamp", "value").
		From("equity").
		OrderBy("timestamp ASC").
		RunWith(b.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query equity curve: %w", err)
	}
	defer rows.Close()

	var curve []types.EquityPoint

	for rows.Next() {
		var point types.EquityPoint

		if err := rows.Scan(&point.Time, &point.Value); err != nil {
			return nil, fmt.Errorf("failed to scan equity point: %w", err)
		}

		curve = append(curve, point)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating equity curve: %w", err)
	}

	return curve, nil
}

// Cleanup resets the ledger for the next run.
func (b *BacktestState) Cleanup() error {
	// Raw SQL since squirrel has no DROP syntax.
	_, err := b.db.Exec(`
		DROP TABLE IF EXISTS trades;
		DROP TABLE IF EXISTS equity;
	`)
	if err != nil {
		return fmt.Errorf("failed to cleanup tables: %w", err)
	}

	return b.Initialize()
}

// Write exports the ledger to Parquet files in the given directory.
func (b *BacktestState) Write(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Raw SQL since squirrel has no COPY syntax.
	tradesPath := filepath.Join(path, "trades.parquet")
	if _, err := b.db.Exec(fmt.Sprintf(`COPY trades TO '%s' (FORMAT PARQUET)`, tradesPath)); err != nil {
		return fmt.Errorf("failed to export trades to Parquet: %w", err)
	}

	equityPath := filepath.Join(path, "equity.parquet")
	if _, err := b.db.Exec(fmt.Sprintf(`COPY equity TO '%s' (FORMAT PARQUET)`, equityPath)); err != nil {
		return fmt.Errorf("failed to export equity curve to Parquet: %w", err)
	}

	b.logger.Info("Exported backtest ledger to Parquet files",
		zap.String("trades", tradesPath),
		zap.String("equity", equityPath),
	)

	return nil
}

// ExportTradesCSV writes all recorded trades to a CSV file.
func (b *BacktestState) ExportTradesCSV(path string) error {
	trades, err := b.GetAllTrades()
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&trades, file); err != nil {
		return fmt.Errorf("failed to write trades csv: %w", err)
	}

	return nil
}

// Close releases the underlying database.
func (b *BacktestState) Close() error {
	return b.db.Close()
}
