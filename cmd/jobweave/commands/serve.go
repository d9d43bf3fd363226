package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jholhewres/jobweave/internal/config"
	"github.com/jholhewres/jobweave/pkg/jobweave/dashboard"
	"github.com/jholhewres/jobweave/pkg/jobweave/engine"
	"github.com/jholhewres/jobweave/pkg/jobweave/eventbus"
	"github.com/jholhewres/jobweave/pkg/jobweave/registry"
	"github.com/jholhewres/jobweave/pkg/jobweave/worker"
)

// newServeCmd creates the `jobweave serve` command that starts the
// Worker, its Dashboard Adapter, and the optional health endpoint.
// Job discovery and registration are out of scope (spec.md §1): this
// binary starts with an empty Registry, ready for an external loader
// to call worker.Add before or after Start.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the worker, dashboard, and health endpoint",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	bus := eventbus.New()
	reg := registry.New()
	eng := engine.New(bus, logger)
	w := worker.New(reg, eng, bus, logger, cfg.DefaultTimezone)
	w.Start()

	dash := dashboard.New(reg, w, bus, logger)
	defer dash.Close()

	dashServer := &http.Server{Addr: cfg.Dashboard.Address, Handler: dash.Handler()}
	go func() {
		logger.Info("dashboard listening", "address", cfg.Dashboard.Address)
		if err := dashServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("dashboard server stopped", "error", err)
		}
	}()

	var healthServer *http.Server
	if cfg.Health.Enabled {
		healthServer = &http.Server{Addr: cfg.Health.Address, Handler: worker.HealthHandler(reg)}
		go func() {
			logger.Info("health endpoint listening", "address", cfg.Health.Address)
			if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server stopped", "error", err)
			}
		}()
	}

	logger.Info("jobweave running, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = dashServer.Shutdown(shutdownCtx)
	if healthServer != nil {
		_ = healthServer.Shutdown(shutdownCtx)
	}

	report := w.Shutdown(cfg.ShutdownTimeoutDuration())
	logger.Info("worker shutdown complete",
		"completed", len(report.Completed), "interrupted", len(report.Interrupted))

	return nil
}
