// Command sweep runs one expiry pass and exits. It suits cron deployments
// that do not run the in-process sweeper.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"geosm/internal/bootstrap"
	"geosm/internal/config"
	"geosm/internal/logger"

	"go.uber.org/zap"
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	rt, err := bootstrap.InitRuntime(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	report, err := rt.Sweep.Sweep(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	lg.Info("sweep finished",
		zap.Int("registrations", report.Registrations),
		zap.Int("bans", report.Bans),
		zap.Int("locks", report.Locks),
		zap.Int("auth_codes", report.AuthCodes),
		zap.Int("failed", report.Failed),
	)
	if report.Failed > 0 {
		return fmt.Errorf("%d expired events could not be processed", report.Failed)
	}
	return nil
}
