package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/strategy-backtest/internal/api"
	"github.com/rxtech-lab/strategy-backtest/internal/backtest/engine"
	enginev1 "github.com/rxtech-lab/strategy-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/strategy-backtest/internal/logger"
	"github.com/rxtech-lab/strategy-backtest/internal/strategy"
	"github.com/rxtech-lab/strategy-backtest/internal/version"
	"github.com/rxtech-lab/strategy-backtest/pkg/marketdata/provider"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func main() {
	cmd := &cli.Command{
		Name:    "backtest",
		Usage:   "Run rule-based trading strategy backtests",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			runCommand(),
			downloadCommand(),
			serveCommand(),
			schemaCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadEngineConfig(path string) (enginev1.Config, error) {
	if path == "" {
		return enginev1.DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return enginev1.Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	return enginev1.ParseConfig(data)
}

func loadStrategyParams(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy params file: %w", err)
	}

	return data, nil
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Backtest a strategy over local CSV bar files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the engine config YAML file",
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Glob of CSV bar files, one symbol per file",
				Value:   "data/*.csv",
			},
			&cli.StringFlag{
				Name:    "strategy",
				Aliases: []string{"s"},
				Usage:   "Strategy name (see the strategies API or registry)",
				Value:   "ma_crossover",
			},
			&cli.StringFlag{
				Name:    "params",
				Aliases: []string{"p"},
				Usage:   "Path to the strategy params YAML file",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory for per-symbol result folders",
				Value:   "results",
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	lg, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer lg.Sync()

	config, err := loadEngineConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	params, err := loadStrategyParams(cmd.String("params"))
	if err != nil {
		return err
	}

	files, err := filepath.Glob(cmd.String("data"))
	if err != nil {
		return fmt.Errorf("failed to expand data glob: %w", err)
	}

	if len(files) == 0 {
		return fmt.Errorf("no CSV files match %s", cmd.String("data"))
	}

	registry := strategy.NewRegistry()
	strategyName := cmd.String("strategy")

	for _, file := range files {
		symbol := strings.ToUpper(strings.TrimSuffix(filepath.Base(file), ".csv"))

		strat, err := registry.New(strategyName, params)
		if err != nil {
			return err
		}

		source := provider.NewCSVProvider(file)

		bars, err := source.FetchBars(ctx, symbol, time.Time{}, time.Now().Add(24*time.Hour))
		if err != nil {
			return fmt.Errorf("failed to load bars from %s: %w", file, err)
		}

		eng, err := enginev1.NewBacktestEngineV1(config, lg)
		if err != nil {
			return err
		}

		bar := progressbar.NewOptions(len(bars),
			progressbar.OptionSetDescription(fmt.Sprintf("Backtesting %s", symbol)),
			progressbar.OptionShowCount(),
		)

		onProgress := engine.OnProcessDataCallback(func(current, _ int) {
			_ = bar.Set(current)
		})

		result, err := eng.Run(strat, bars, symbol, optional.Some(onProgress))
		if err != nil {
			_ = eng.Close()
			return fmt.Errorf("backtest for %s failed: %w", symbol, err)
		}

		_ = bar.Finish()

		outDir := filepath.Join(cmd.String("output"), symbol)
		if err := eng.WriteResults(outDir, result); err != nil {
			_ = eng.Close()
			return err
		}

		_ = eng.Close()

		lg.Info("Backtest finished",
			zap.String("symbol", symbol),
			zap.String("strategy", strategyName),
			zap.Float64("final_equity", result.FinalEquity),
			zap.Float64("total_return", result.Metrics.TotalReturn),
			zap.Int("trades", result.Metrics.TotalTrades),
			zap.String("output", outDir),
		)
	}

	return nil
}

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download daily bars to a CSV file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "symbol",
				Aliases:  []string{"t"},
				Usage:    "Ticker symbol",
				Required: true,
			},
			&cli.TimestampFlag{
				Name:     "start",
				Aliases:  []string{"s"},
				Usage:    "Start date in `YYYY-MM-DD` format",
				Required: true,
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End date in `YYYY-MM-DD` format. Defaults to today.",
				Value:   time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   fmt.Sprintf("Data provider (%s, %s, %s)", provider.ProviderPolygon, provider.ProviderBinance, provider.ProviderSynthetic),
				Value:   string(provider.ProviderPolygon),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output CSV path. Defaults to data/<symbol>.csv",
			},
		},
		Action: downloadAction,
	}
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	symbol := cmd.String("symbol")
	providerType := provider.ProviderType(cmd.String("provider"))

	var config any
	if providerType == provider.ProviderPolygon {
		config = os.Getenv("POLYGON_API_KEY")
	}

	source, err := provider.NewMarketDataProvider(providerType, config)
	if err != nil {
		return err
	}

	log.Printf("Downloading %s bars from %s...", symbol, providerType)

	bars, err := source.FetchBars(ctx, symbol, cmd.Timestamp("start"), cmd.Timestamp("end"))
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	output := cmd.String("output")
	if output == "" {
		output = filepath.Join("data", fmt.Sprintf("%s.csv", strings.ToLower(symbol)))
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&bars, file); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}

	log.Printf("Wrote %d bars to %s.", len(bars), output)

	return nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the backtest HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "Listen address",
				Value:   ":8080",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the engine config YAML file",
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   "Market data provider backing the API",
				Value:   string(provider.ProviderSynthetic),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Wall-clock limit per backtest request",
				Value: api.DefaultRunTimeout,
			},
		},
		Action: serveAction,
	}
}

func serveAction(_ context.Context, cmd *cli.Command) error {
	lg, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer lg.Sync()

	config, err := loadEngineConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	providerType := provider.ProviderType(cmd.String("provider"))

	var providerConfig any
	if providerType == provider.ProviderPolygon {
		providerConfig = os.Getenv("POLYGON_API_KEY")
	}

	source, err := provider.NewMarketDataProvider(providerType, providerConfig)
	if err != nil {
		return err
	}

	server := api.NewServer(config, strategy.NewRegistry(), source, lg, cmd.Duration("timeout"))

	addr := cmd.String("addr")
	lg.Info("Serving backtest API",
		zap.String("addr", addr),
		zap.String("provider", string(providerType)),
		zap.String("version", version.GetVersion()),
	)

	return http.ListenAndServe(addr, server.Handler())
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:   "schema",
		Usage:  "Print the engine config JSON schema",
		Action: schemaAction,
	}
}

func schemaAction(_ context.Context, _ *cli.Command) error {
	schema, err := enginev1.DefaultConfig().GenerateSchemaJSON()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}
