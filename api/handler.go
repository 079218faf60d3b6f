// Package api serves backtests over HTTP.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pedropmedina/backtester/backtest"
	"github.com/pedropmedina/backtester/marketdata"
	"github.com/pedropmedina/backtester/strategies"
)

const (
	// maxSampleDays caps generated series so a request can't pin the server.
	maxSampleDays = 10_000
	maxVariants   = 100
	sweepLimit    = 4
)

// RunRequest is the body of POST /api/backtest. Bars take precedence over
// Sample when both are given.
type RunRequest struct {
	Symbol         string              `json:"symbol"`
	InitialCapital float64             `json:"initialCapital"`
	RiskParams     backtest.RiskConfig `json:"riskParams"`
	Strategy       strategies.Params   `json:"strategy"`
	Bars           []backtest.Bar      `json:"bars"`
	Sample         *SampleRequest      `json:"sample"`
}

type SampleRequest struct {
	Days      int       `json:"days"`
	Seed      uint64    `json:"seed"`
	BasePrice float64   `json:"basePrice"`
	Start     time.Time `json:"start"`
}

// SweepRequest runs the same bars and strategy once per risk variant.
type SweepRequest struct {
	RunRequest
	Variants []backtest.RiskConfig `json:"variants"`
}

type SweepResponse struct {
	Backtests []backtest.BacktestPayload `json:"backtests"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler runs backtests on request. Each request gets its own engine.
type Handler struct {
	log *slog.Logger
}

func NewHandler(log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log}
}

// RegisterRoutes binds the handler to router.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/healthz", h.Health)
	api := router.Group("/api")
	{
		api.POST("/backtest", h.RunBacktest)
		api.POST("/sweep", h.RunSweep)
		api.GET("/strategies", h.ListStrategies)
	}
}

// NewRouter returns a gin engine with recovery and the handler's routes.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())
	h.RegisterRoutes(router)
	return router
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ListStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"strategies": strategies.Names()})
}

// RunBacktest runs one backtest and responds with its payload.
func (h *Handler) RunBacktest(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	opts, bars, strategy, err := h.prepare(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	res, err := backtest.New(bars, opts).Strategy(strategy).Run()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, backtest.ErrNoData) {
			status = http.StatusBadRequest
		}
		h.log.Error("backtest failed", "symbol", req.Symbol, "error", err)
		c.JSON(status, errorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, res.Payload())
}

// RunSweep runs one backtest per variant in parallel. Responses keep the
// order of variants.
func (h *Handler) RunSweep(c *gin.Context) {
	var req SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if len(req.Variants) == 0 || len(req.Variants) > maxVariants {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("variants must hold 1 to %d risk configs", maxVariants)})
		return
	}

	var (
		bars backtest.Bars
		opts = make([]backtest.Opts, len(req.Variants))
	)
	for i, v := range req.Variants {
		run := req.RunRequest
		run.RiskParams = v
		if bars != nil {
			run.Bars = bars
		}
		o, b, _, err := h.prepare(run)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("variant %d: %v", i, err)})
			return
		}
		opts[i], bars = o, b
	}

	results, err := backtest.Sweep(c.Request.Context(), bars, func() backtest.Strategy {
		// Params were checked by prepare.
		s, _ := strategies.New(req.Strategy)
		return s
	}, opts, sweepLimit)
	if err != nil {
		h.log.Error("sweep failed", "symbol", req.Symbol, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	resp := SweepResponse{Backtests: make([]backtest.BacktestPayload, len(results))}
	for i, res := range results {
		resp.Backtests[i] = res.Payload().Backtest
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) prepare(req RunRequest) (backtest.Opts, backtest.Bars, backtest.Strategy, error) {
	if req.InitialCapital < 0 {
		return backtest.Opts{}, nil, nil, errors.New("initialCapital must be >= 0")
	}

	risk := req.RiskParams
	if risk.PositionSize == 0 {
		risk.PositionSize = 100
	}
	if risk.MaxPositions == 0 {
		risk.MaxPositions = 1
	}
	if err := risk.Validate(); err != nil {
		return backtest.Opts{}, nil, nil, err
	}

	strategy, err := strategies.New(req.Strategy)
	if err != nil {
		return backtest.Opts{}, nil, nil, err
	}

	bars := backtest.Bars(req.Bars)
	if len(bars) == 0 && req.Sample != nil {
		if req.Sample.Days > maxSampleDays {
			return backtest.Opts{}, nil, nil, errors.New("sample.days is too large")
		}
		bars = marketdata.Sample(marketdata.NewRand(req.Sample.Seed), marketdata.SampleOpts{
			Days:      req.Sample.Days,
			BasePrice: req.Sample.BasePrice,
			Start:     req.Sample.Start,
		})
	}
	if len(bars) == 0 {
		return backtest.Opts{}, nil, nil, errors.New("bars or sample is required")
	}

	return backtest.Opts{
		Capital: req.InitialCapital,
		Risk:    risk,
		Symbol:  req.Symbol,
		Logger:  h.log,
	}, bars, strategy, nil
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
