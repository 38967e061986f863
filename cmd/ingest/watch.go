package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/ToniPaltus/airflow-intro/internal/app"
	"github.com/ToniPaltus/airflow-intro/internal/logging"
	"github.com/ToniPaltus/airflow-intro/internal/sensor"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Ingest every new or changed file matching FILE_PATH",
	Long: `Watch waits for files matching FILE_PATH and runs an ingest for each new
or modified one until interrupted. A failed run is logged and watching
continues.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		runner, backend, err := newRunner(ctx)
		if err != nil {
			return err
		}
		defer closeBackend(backend)

		err = watch(ctx, runner)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// watch runs the sensor loop for runner's pattern until ctx is done.
func watch(ctx context.Context, runner *app.Runner) error {
	s := sensor.New(sensor.Config{
		PokeInterval: cfg.Sensor.PokeInterval,
		Timeout:      cfg.Sensor.Timeout,
	})
	return s.Each(ctx, runner.Pattern(), func(ctx context.Context, path string) error {
		if _, err := runner.Run(ctx, path); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.FromContext(ctx).Warn("watched run failed, waiting for the next file",
				"file", path,
				"reason", app.FormatUserError(err),
			)
		}
		return nil
	})
}
