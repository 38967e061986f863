package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ToniPaltus/airflow-intro/internal/web"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP trigger API",
	Long: `Serve exposes POST /api/runs to trigger an ingest, GET /api/runs for recent
results and GET /healthz. With --watch it also ingests new files as they
appear.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		runner, backend, err := newRunner(ctx)
		if err != nil {
			return err
		}
		defer closeBackend(backend)

		server := web.NewServer(runner, cfg.Server)
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		if serveWatch {
			g.Go(func() error {
				err := watch(gctx, runner)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		}

		g.Go(func() error {
			<-gctx.Done()
			slog.Info("shutting down...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			if status := runner.Limiter().Status(); status.Active > 0 {
				slog.Info("waiting for runs to complete", "active", status.Active)
				if err := runner.Limiter().WaitForDrain(shutdownCtx); err != nil {
					slog.Warn("runs did not complete in time", "error", err)
				}
			}
			return server.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Also ingest new files matching FILE_PATH")
}
