package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhruvsoni1802/dailydm/internal/api"
	"github.com/dhruvsoni1802/dailydm/internal/jobs"
	"github.com/dhruvsoni1802/dailydm/internal/metrics"
)

const (
	httpShutdownTimeout = 10 * time.Second
	runShutdownTimeout  = 30 * time.Second
)

func newServeCommand(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run on the daily schedule and serve the control API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := startup(*envFile, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.cfg.ValidateSchedule(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, release := a.cookieStore(ctx)
			defer release()

			recorder := metrics.NewRecorder()
			coordinator := jobs.NewCoordinator(a.runner(store), recorder, a.logger)

			scheduler, err := jobs.NewScheduler(a.cfg.Schedule, coordinator, a.logger)
			if err != nil {
				return err
			}

			deps := api.Deps{
				Coordinator:  coordinator,
				Metrics:      recorder,
				MessagesFile: a.cfg.MessagesFile,
				NextRun:      scheduler.Next,
			}
			if pinger, ok := store.(api.Pinger); ok {
				deps.CookieStore = pinger
			}
			server := api.NewServer(a.cfg.ServerPort, deps, a.logger)

			serverErr := make(chan error, 1)
			go func() {
				serverErr <- server.Start()
			}()
			scheduler.Start()

			a.logger.Info("Service ready", "port", a.cfg.ServerPort, "schedule", a.cfg.Schedule)

			select {
			case <-ctx.Done():
				a.logger.Info("shutdown initiated")
			case err = <-serverErr:
				a.logger.Error("HTTP server stopped unexpectedly", "error", err)
			}

			scheduler.Stop()

			httpCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
			defer cancel()
			if shutdownErr := server.Shutdown(httpCtx); shutdownErr != nil {
				a.logger.Warn("HTTP server shutdown", "error", shutdownErr)
			}

			runCtx, cancelRuns := context.WithTimeout(context.Background(), runShutdownTimeout)
			defer cancelRuns()
			if shutdownErr := coordinator.Shutdown(runCtx); shutdownErr != nil {
				a.logger.Warn("runs did not finish before shutdown", "error", shutdownErr)
			}

			a.logger.Info("shutdown complete")
			return err
		},
	}
}
