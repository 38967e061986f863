// Package clean implements the cleaning stages applied to every ingested
// dataset and the Pipeline that runs them in a fixed order.
//
// The default order is:
//
//  1. Deduplicate
//  2. DropEmptyRows
//  3. FillMissing
//  4. SortByField (the "at" column)
//  5. StripDisallowedChars (the "content" column)
//
// Every stage returns a new dataset, so when a stage fails the caller still
// holds the dataset it passed in, untouched.
package clean

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/ToniPaltus/airflow-intro/internal/dataset"
	"github.com/ToniPaltus/airflow-intro/internal/logging"
)

// Default column names used by the sort and strip stages.
const (
	DefaultSortField = "at"
	DefaultTextField = "content"
)

// Options names the columns the field-specific stages work on.
type Options struct {
	SortField string
	TextField string
}

// StageReport describes one stage execution.
type StageReport struct {
	Name     string        `json:"name"`
	RowsIn   int           `json:"rowsIn"`
	RowsOut  int           `json:"rowsOut"`
	Duration time.Duration `json:"duration"`
}

// Pipeline runs stages in order, feeding each one the previous output.
type Pipeline struct {
	stages []Stage
}

// New creates a pipeline from the given stages.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Default returns the standard five-stage pipeline. Empty option fields fall
// back to DefaultSortField and DefaultTextField.
func Default(opts Options) *Pipeline {
	if opts.SortField == "" {
		opts.SortField = DefaultSortField
	}
	if opts.TextField == "" {
		opts.TextField = DefaultTextField
	}
	return New(
		Deduplicate{},
		DropEmptyRows{},
		FillMissing{},
		SortByField{Field: opts.SortField},
		StripDisallowedChars{Field: opts.TextField},
	)
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Clean returns the fully cleaned dataset or the first stage error.
func (p *Pipeline) Clean(d *dataset.Dataset) (*dataset.Dataset, error) {
	out, _, err := p.Run(context.Background(), d)
	return out, err
}

// Run is Clean with per-stage reports. The context is checked between stages
// and carries the logger fields for the run.
func (p *Pipeline) Run(ctx context.Context, d *dataset.Dataset) (*dataset.Dataset, []StageReport, error) {
	logger := logging.FromContext(ctx)
	reports := make([]StageReport, 0, len(p.stages))

	cur := d
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, reports, errors.Wrapf(err, "before stage %s", stage.Name())
		}

		start := time.Now()
		next, err := stage.Apply(cur)
		if err != nil {
			return nil, reports, errors.Wrapf(err, "stage %s", stage.Name())
		}

		report := StageReport{
			Name:     stage.Name(),
			RowsIn:   cur.Len(),
			RowsOut:  next.Len(),
			Duration: time.Since(start),
		}
		reports = append(reports, report)
		logger.Debug("stage complete",
			"stage", report.Name,
			"rows_in", report.RowsIn,
			"rows_out", report.RowsOut,
			"duration_ms", report.Duration.Milliseconds(),
		)

		cur = next
	}
	return cur, reports, nil
}
