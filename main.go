// Design:
// cfg := config.Load("backtest.yaml")
// backtest.New(bars, cfg.Opts()).Strategy(strategies.New(cfg.Strategy)).Run()
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pedropmedina/backtester/api"
	"github.com/pedropmedina/backtester/backtest"
	"github.com/pedropmedina/backtester/config"
	"github.com/pedropmedina/backtester/logger"
	"github.com/pedropmedina/backtester/marketdata"
	"github.com/pedropmedina/backtester/strategies"
)

func main() {
	var (
		configPath string
		outPath    string
		serve      bool
	)
	flag.StringVar(&configPath, "config", "", "optional config file (yaml, toml or json)")
	flag.StringVar(&outPath, "out", "", "optional: write the results payload as JSON")
	flag.BoolVar(&serve, "serve", false, "serve the HTTP API instead of running once")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	log, err := logger.Init(cfg.Logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if serve {
		err = runServer(cfg, log)
	} else {
		err = runOnce(cfg, log, outPath)
	}
	if err != nil {
		log.Error("backtest exited", "error", err)
		os.Exit(1)
	}
}

func runOnce(cfg *config.Config, log *slog.Logger, outPath string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	bars, err := loadBars(cfg)
	if err != nil {
		return err
	}

	strategy, err := strategies.New(cfg.Strategy)
	if err != nil {
		return err
	}

	opts := cfg.Opts()
	opts.Logger = log
	res, err := backtest.New(bars, opts).Strategy(strategy).Run()
	if err != nil {
		return err
	}

	if err := res.Summary(os.Stdout); err != nil {
		return err
	}

	if outPath == "" {
		return nil
	}
	b, err := json.MarshalIndent(res.Payload(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, b, 0o644)
}

func loadBars(cfg *config.Config) (backtest.Bars, error) {
	switch cfg.Data.Source {
	case config.SourceCSV:
		return marketdata.LoadCSV(cfg.Data.CSVPath)
	case config.SourceAlpaca:
		start, end, err := cfg.Data.Range()
		if err != nil {
			return nil, err
		}
		client := marketdata.NewAlpaca(marketdata.AlpacaOpts{
			BaseURL:   cfg.Alpaca.BaseURL,
			APIKey:    cfg.Alpaca.KeyID,
			APISecret: cfg.Alpaca.SecretKey,
		})
		return client.Bars(cfg.Symbol, cfg.Data.TimeframeMinutes, start, end)
	default:
		r := marketdata.NewRand(cfg.Data.Seed)
		return marketdata.Sample(r, marketdata.SampleOpts{Days: cfg.Data.Days}), nil
	}
}

func runServer(cfg *config.Config, log *slog.Logger) error {
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(api.NewHandler(log)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
