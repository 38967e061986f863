package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ToniPaltus/airflow-intro/internal/app"
	"github.com/ToniPaltus/airflow-intro/internal/config"
	"github.com/ToniPaltus/airflow-intro/internal/load"
	"github.com/ToniPaltus/airflow-intro/internal/logging"
)

var (
	envFiles []string
	verbose  bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load a cleaned CSV export into a document collection",
	Long: `ingest reads a CSV file, removes duplicate and empty rows, fills missing
values, sorts by time, strips unwanted characters from the text column and
replaces the destination collection with the result.

Configuration comes from environment variables, optionally loaded from .env.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadEnvFiles(envFiles...)
		if err != nil {
			return err
		}

		c, err := config.Load()
		if err != nil {
			return err
		}
		if verbose {
			c.Logging.Level = "debug"
		}
		logging.Setup(c.Logging.Level, c.Logging.Format)
		slog.Debug("configuration loaded", "env_file", loaded, "config", c.String())

		cfg = c
		return nil
	},
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "KEY=VALUE files to load before reading the environment (default .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// newRunner opens the destination backend and builds a runner over it.
// The caller must close the backend.
func newRunner(ctx context.Context) (*app.Runner, load.Backend, error) {
	opts, err := app.OptionsFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	backend, err := app.OpenBackend(ctx, cfg.Dest)
	if err != nil {
		return nil, nil, err
	}
	return app.NewRunner(backend, opts), backend, nil
}

func closeBackend(backend load.Backend) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := backend.Close(ctx); err != nil {
		slog.Warn("closing destination", "error", err)
	}
}
