package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/stocklens/internal/client"
	"github.com/newthinker/stocklens/internal/config"
	"github.com/newthinker/stocklens/internal/logger"
	"github.com/newthinker/stocklens/internal/metrics"
	"github.com/newthinker/stocklens/internal/trace"
)

// env is the wired runtime shared by the subcommands.
type env struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Registry
	client  *client.Client

	metricsServer *http.Server
}

// bootstrap loads config and wires logging, metrics, tracing and the
// service client. The caller must call close.
func bootstrap() (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	log, err := logger.New(debug || cfg.Log.Development, level)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	if err := trace.Init(trace.Config{
		Enabled:     cfg.Trace.Enabled,
		ServiceName: cfg.Trace.ServiceName,
		Version:     Version,
		Writer:      os.Stderr,
	}); err != nil {
		log.Warn("failed to initialize tracer", zap.Error(err))
	}

	reg := metrics.NewRegistry()
	e := &env{
		cfg:     cfg,
		log:     log,
		metrics: reg,
		client: client.New(client.Config{
			BaseURL: cfg.Service.BaseURL,
			Timeout: cfg.Service.Timeout,
		}, log, reg),
	}

	if cfg.Metrics.Enabled {
		e.serveMetrics()
	}

	log.Debug("bootstrap complete",
		zap.String("base_url", cfg.Service.BaseURL),
		zap.Duration("timeout", cfg.Service.Timeout),
		zap.Bool("metrics", cfg.Metrics.Enabled),
		zap.Bool("trace", cfg.Trace.Enabled),
	)
	return e, nil
}

func (e *env) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle(e.cfg.Metrics.Path, e.metrics.Handler())
	e.metricsServer = &http.Server{
		Addr:              e.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		e.log.Info("serving metrics",
			zap.String("addr", e.cfg.Metrics.Addr),
			zap.String("path", e.cfg.Metrics.Path),
		)
		if err := e.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Error("metrics server error", zap.Error(err))
		}
	}()
}

func (e *env) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if e.metricsServer != nil {
		if err := e.metricsServer.Shutdown(ctx); err != nil {
			e.log.Warn("metrics server shutdown", zap.Error(err))
		}
	}
	if err := trace.Shutdown(ctx); err != nil {
		e.log.Warn("tracer shutdown", zap.Error(err))
	}
	_ = e.log.Sync()
}
