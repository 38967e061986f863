// Package app wires the source reader, cleaning pipeline and loader into a
// single run, and keeps track of recent runs.
package app

import (
	"context"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ToniPaltus/airflow-intro/internal/clean"
	"github.com/ToniPaltus/airflow-intro/internal/config"
	"github.com/ToniPaltus/airflow-intro/internal/load"
	"github.com/ToniPaltus/airflow-intro/internal/logging"
	"github.com/ToniPaltus/airflow-intro/internal/sensor"
	"github.com/ToniPaltus/airflow-intro/internal/source"
)

// Options configures a Runner.
type Options struct {
	// Source.Path is the default file; it may be a glob.
	Source      source.Config
	Clean       clean.Options
	Load        load.Config
	Destination load.Destination

	// LoadTimeout bounds the load step; zero means no limit.
	LoadTimeout time.Duration

	// MaxWait is how long Run waits for a concurrent run to finish.
	MaxWait time.Duration

	// HistorySize is how many results History keeps.
	HistorySize int
}

// OptionsFromConfig builds Options from loaded configuration, reading the
// schema file if one is configured.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	strategy, err := load.ParseStrategy(cfg.Dest.Strategy)
	if err != nil {
		return Options{}, err
	}

	var schema *source.Schema
	if cfg.Source.SchemaFile != "" {
		if schema, err = source.LoadSchema(cfg.Source.SchemaFile); err != nil {
			return Options{}, err
		}
	}

	return Options{
		Source: source.Config{
			Path:            cfg.Source.FilePath,
			Delimiter:       cfg.Source.DelimiterRune(),
			Schema:          schema,
			ExtraNullValues: cfg.Source.NullValues,
			ParseDates:      cfg.Source.ParseDates,
		},
		Clean: clean.Options{
			SortField: cfg.Clean.SortField,
			TextField: cfg.Clean.TextField,
		},
		Load: load.Config{
			Strategy:  strategy,
			BatchSize: cfg.Dest.BatchSize,
		},
		Destination: load.Destination{
			Database:   cfg.Dest.Database,
			Collection: cfg.Dest.Collection,
		},
		LoadTimeout: cfg.Dest.Timeout,
		MaxWait:     cfg.Run.MaxWait,
		HistorySize: cfg.Run.HistorySize,
	}, nil
}

// RunResult describes one run, successful or not.
type RunResult struct {
	ID         string              `json:"id"`
	File       string              `json:"file"`
	StartedAt  time.Time           `json:"started_at"`
	RowsRead   int                 `json:"rows_read"`
	RowsLoaded int                 `json:"rows_loaded"`
	Stages     []clean.StageReport `json:"stages,omitempty"`
	Duration   time.Duration       `json:"duration"`
	Error      string              `json:"error,omitempty"`
	Code       string              `json:"code,omitempty"`
}

// OK reports whether the run succeeded.
func (r RunResult) OK() bool { return r.Error == "" }

// Runner executes read, clean and load for one destination.
type Runner struct {
	opts     Options
	pipeline *clean.Pipeline
	loader   *load.Loader
	limiter  *RunLimiter
	history  *History
	newID    func() string
}

// NewRunner returns a Runner writing through backend.
func NewRunner(backend load.Backend, opts Options) *Runner {
	return &Runner{
		opts:     opts,
		pipeline: clean.Default(opts.Clean),
		loader:   load.NewLoader(backend, opts.Load),
		limiter:  NewRunLimiter(1, opts.MaxWait),
		history:  NewHistory(opts.HistorySize),
		newID:    uuid.NewString,
	}
}

// Pattern returns the configured source path or glob.
func (r *Runner) Pattern() string { return r.opts.Source.Path }

// Destination returns where runs are loaded.
func (r *Runner) Destination() load.Destination { return r.opts.Destination }

// History returns recent run results.
func (r *Runner) History() *History { return r.history }

// Limiter returns the limiter guarding the destination.
func (r *Runner) Limiter() *RunLimiter { return r.limiter }

// Run ingests file, or the configured source when file is empty. The
// destination is only written after the whole pipeline succeeded.
// Every run that started is recorded in History.
func (r *Runner) Run(ctx context.Context, file string) (RunResult, error) {
	if err := r.limiter.Acquire(ctx); err != nil {
		return RunResult{}, err
	}
	defer r.limiter.Release()

	res := RunResult{ID: r.newID(), StartedAt: time.Now().UTC()}
	ctx = logging.ContextWithRunID(ctx, res.ID)
	logger := logging.FromContext(ctx)

	err := r.run(ctx, file, &res)
	res.Duration = time.Since(res.StartedAt)
	if err != nil {
		msg := MapError(err)
		res.Error = err.Error()
		res.Code = msg.Code
		logger.Error("run failed",
			"file", res.File,
			"code", msg.Code,
			"error", err,
			"duration_ms", res.Duration.Milliseconds(),
		)
	} else {
		logger.Info("run complete",
			"file", res.File,
			"rows_read", res.RowsRead,
			"rows_loaded", res.RowsLoaded,
			"duration_ms", res.Duration.Milliseconds(),
		)
	}
	r.history.Add(res)
	return res, err
}

func (r *Runner) run(ctx context.Context, file string, res *RunResult) error {
	path, err := r.resolve(file)
	if err != nil {
		return err
	}
	res.File = path
	logging.FromContext(ctx).Info("run started",
		"file", path,
		"destination", r.opts.Destination.String(),
	)

	srcCfg := r.opts.Source
	srcCfg.Path = path
	reader, err := source.NewReader(srcCfg)
	if err != nil {
		return errors.Wrap(err, "configure reader")
	}
	raw, err := reader.Read(ctx)
	if err != nil {
		return err
	}
	res.RowsRead = raw.Len()

	cleaned, reports, err := r.pipeline.Run(ctx, raw)
	res.Stages = reports
	if err != nil {
		return errors.Wrap(err, "clean")
	}

	loadCtx := ctx
	if r.opts.LoadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, r.opts.LoadTimeout)
		defer cancel()
	}
	loaded, err := r.loader.Load(loadCtx, cleaned, r.opts.Destination)
	if err != nil {
		return errors.Wrap(err, "load")
	}
	res.RowsLoaded = loaded.Documents
	return nil
}

// resolve turns an explicit file or the configured pattern into one path.
func (r *Runner) resolve(file string) (string, error) {
	if file != "" {
		return file, nil
	}
	pattern := r.opts.Source.Path
	if !hasMeta(pattern) {
		return pattern, nil
	}
	path, ok := sensor.Find(pattern)
	if !ok {
		return "", fmt.Errorf("no file matches %s: %w", pattern, fs.ErrNotExist)
	}
	return path, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
