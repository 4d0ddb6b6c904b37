// Package api exposes the backtest engine over HTTP: submit a run, list the
// available strategies, check liveness.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/strategy-backtest/internal/backtest/engine"
	enginev1 "github.com/rxtech-lab/strategy-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/strategy-backtest/internal/logger"
	"github.com/rxtech-lab/strategy-backtest/internal/strategy"
	"github.com/rxtech-lab/strategy-backtest/internal/types"
	"github.com/rxtech-lab/strategy-backtest/internal/version"
	"github.com/rxtech-lab/strategy-backtest/pkg/marketdata/provider"
	"go.uber.org/zap"
)

// DefaultRunTimeout bounds the wall-clock time of one API-triggered run.
const DefaultRunTimeout = 60 * time.Second

type Server struct {
	router     *mux.Router
	config     enginev1.Config
	registry   *strategy.Registry
	provider   provider.Provider
	log        *logger.Logger
	runTimeout time.Duration
	validate   *validator.Validate
}

// NewServer wires the routes. The provider supplies bars for requested
// symbols; runTimeout <= 0 selects DefaultRunTimeout.
func NewServer(config enginev1.Config, registry *strategy.Registry, dataProvider provider.Provider, log *logger.Logger, runTimeout time.Duration) *Server {
	if runTimeout <= 0 {
		runTimeout = DefaultRunTimeout
	}

	s := &Server{
		router:     mux.NewRouter(),
		config:     config,
		registry:   registry,
		provider:   dataProvider,
		log:        log,
		runTimeout: runTimeout,
		validate:   validator.New(),
	}

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/strategies", s.handleListStrategies).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/backtest", s.handleBacktest).Methods(http.MethodPost)

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// BacktestRequest is the POST /api/v1/backtest body. Params is passed to the
// strategy factory as-is; JSON is a YAML subset, so raw JSON params parse
// directly.
type BacktestRequest struct {
	Symbol   string          `json:"symbol" validate:"required"`
	Strategy string          `json:"strategy" validate:"required"`
	Params   json.RawMessage `json:"params"`
	Start    time.Time       `json:"start" validate:"required"`
	End      time.Time       `json:"end" validate:"required,gtfield=Start"`
}

type errorResponse struct {
	Type string `json:"type"`
	Msg  string `json:"message"`
}

func (s *Server) setResponse(w http.ResponseWriter, statusCode int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.log.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) setErrorResponse(w http.ResponseWriter, statusCode int, errType string, err error) {
	s.setResponse(w, statusCode, errorResponse{Type: errType, Msg: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.setResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.GetVersion(),
	})
}

func (s *Server) handleListStrategies(w http.ResponseWriter, _ *http.Request) {
	s.setResponse(w, http.StatusOK, map[string][]string{
		"strategies": s.registry.Names(),
	})
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.setErrorResponse(w, http.StatusBadRequest, "invalid_request", fmt.Errorf("failed to decode request body: %w", err))
		return
	}

	if err := s.validate.Struct(req); err != nil {
		s.setErrorResponse(w, http.StatusBadRequest, "invalid_request", err)
		return
	}

	strat, err := s.registry.New(req.Strategy, req.Params)
	if err != nil {
		s.setErrorResponse(w, http.StatusBadRequest, "invalid_strategy", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.runTimeout)
	defer cancel()

	bars, err := s.provider.FetchBars(ctx, req.Symbol, req.Start, req.End)
	if err != nil {
		s.setErrorResponse(w, http.StatusBadGateway, "market_data_error", err)
		return
	}

	result, err := s.runWithTimeout(ctx, strat, bars, req.Symbol)
	if err != nil {
		if ctx.Err() != nil {
			s.setErrorResponse(w, http.StatusGatewayTimeout, "timeout", fmt.Errorf("backtest exceeded %s", s.runTimeout))
			return
		}

		s.setErrorResponse(w, http.StatusInternalServerError, "backtest_error", err)

		return
	}

	s.log.Info("Backtest completed",
		zap.String("symbol", req.Symbol),
		zap.String("strategy", req.Strategy),
		zap.Int("trades", result.Metrics.TotalTrades),
	)

	s.setResponse(w, http.StatusOK, result)
}

// runWithTimeout executes the simulation on its own goroutine so a stuck or
// oversized run cannot hold the handler past the configured deadline.
func (s *Server) runWithTimeout(ctx context.Context, strat strategy.Strategy, bars []types.PriceBar, symbol string) (types.BacktestResult, error) {
	type runOutcome struct {
		result types.BacktestResult
		err    error
	}

	done := make(chan runOutcome, 1)

	go func() {
		eng, err := enginev1.NewBacktestEngineV1(s.config, s.log)
		if err != nil {
			done <- runOutcome{err: err}
			return
		}
		defer eng.Close()

		result, err := eng.Run(strat, bars, symbol, optional.None[engine.OnProcessDataCallback]())
		done <- runOutcome{result: result, err: err}
	}()

	select {
	case outcome := <-done:
		return outcome.result, outcome.err
	case <-ctx.Done():
		return types.BacktestResult{}, ctx.Err()
	}
}
