// Command server runs the geosm HTTP API and the expiry sweeper.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"geosm/internal/bootstrap"
	"geosm/internal/config"
	"geosm/internal/logger"
	"geosm/internal/observability"
	"geosm/internal/server"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Env); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	lg := logger.Get()

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "geosm-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.TracingEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.InitRuntime(ctx, cfg, lg)
	if err != nil {
		return err
	}

	app := server.NewServer(rt, lg).App()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("server starting", zap.String("port", cfg.Port))
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		return rt.Sweep.RunSweeper(gctx, cfg.SweepInterval())
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	runErr := g.Wait()
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rt.Close(closeCtx); err != nil {
		lg.Error("runtime shutdown error", zap.Error(err))
	}
	if err := shutdownTracing(closeCtx); err != nil {
		lg.Error("tracing shutdown error", zap.Error(err))
	}
	return runErr
}
