package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ToniPaltus/airflow-intro/internal/app"
	"github.com/ToniPaltus/airflow-intro/internal/sensor"
)

var (
	runFile string
	runWait bool
	runJSON bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest the source file once",
	Long: `Run reads FILE_PATH (or --file), cleans it and replaces the destination
collection. With --wait it first waits for the file to appear, polling every
SENSOR_POKE_INTERVAL until SENSOR_TIMEOUT.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		file := runFile
		if runWait {
			pattern := file
			if pattern == "" {
				pattern = cfg.Source.FilePath
			}
			s := sensor.New(sensor.Config{
				PokeInterval: cfg.Sensor.PokeInterval,
				Timeout:      cfg.Sensor.Timeout,
			})
			found, err := s.Wait(ctx, pattern)
			if err != nil {
				return fmt.Errorf("%s: %w", app.FormatUserError(err), err)
			}
			file = found
		}

		runner, backend, err := newRunner(ctx)
		if err != nil {
			return err
		}
		defer closeBackend(backend)

		res, runErr := runner.Run(ctx, file)
		if runJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
		} else if runErr == nil {
			fmt.Printf("run %s: loaded %d of %d rows from %s into %s in %s\n",
				res.ID, res.RowsLoaded, res.RowsRead, res.File, runner.Destination(), res.Duration.Round(time.Millisecond))
		}
		if runErr != nil {
			return fmt.Errorf("%s: %w", app.FormatUserError(runErr), runErr)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "CSV file to ingest instead of FILE_PATH")
	runCmd.Flags().BoolVarP(&runWait, "wait", "w", false, "Wait for the file to appear before running")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the run result as JSON")
}
