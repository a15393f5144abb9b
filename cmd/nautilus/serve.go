// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/holomush/nautilus/internal/app"
	"github.com/holomush/nautilus/internal/hook"
	"github.com/holomush/nautilus/internal/observability"
)

const defaultMetricsAddr = "127.0.0.1:9100"

// NewServeCmd creates the serve subcommand.
func NewServeCmd(g *globalConfig) *cobra.Command {
	var base string

	cmd := &cobra.Command{
		Use:   "serve <target>...",
		Short: "Load hooks and stay up, exposing metrics and health probes",
		Long: `Load each target, then serve /metrics, /healthz/liveness and
/healthz/readiness until interrupted. Readiness turns green once every
target has loaded.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cmd, g, base, args)
		},
	}

	cmd.Flags().String("metrics-addr", defaultMetricsAddr, "metrics/health HTTP address")
	cmd.Flags().StringVar(&base, "base", "", "load from this root instead of the configured one")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, g *globalConfig, base string, targets []string) error {
	cfg, settings, logger, err := setup(cmd, g)
	if err != nil {
		return err
	}

	addr := settings.MetricsAddr
	if addr == "" {
		addr = defaultMetricsAddr
	}

	var ready atomic.Bool
	obsServer := observability.NewServer(addr, ready.Load)

	a, err := assemble(cfg, logger, app.WithObserver(obsServer.Metrics()))
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	obsErrChan, err := obsServer.Start()
	if err != nil {
		return fmt.Errorf("failed to start observability server: %w", err)
	}
	go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	logger.Info("observability server started", "addr", obsServer.Addr())

	for _, report := range a.LoadAll(ctx, targets, hook.WithBase(base)) {
		printReport(cmd.OutOrStdout(), report)
	}
	ready.Store(true)
	logger.Info("ready", "context", a.Context().Names())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := obsServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels ctx when a server reports an error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
