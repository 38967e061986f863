// Package source reads a delimited text file into a dataset.
//
// The header row names the columns. Every data row must have one cell per
// column. Cells matching a null marker become missing values; the remaining
// cells of each column are typed by inference (int, float, time, otherwise
// string) unless a Schema declares the column's kind.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ToniPaltus/airflow-intro/internal/dataset"
)

var (
	// ErrEmptyFile is returned when the input has no header row.
	ErrEmptyFile = errors.New("empty file")

	// ErrInvalidCSV wraps parse failures of the delimited input.
	ErrInvalidCSV = errors.New("invalid csv")

	// ErrInvalidValue is returned when a cell does not conform to the kind a
	// Schema declares for its column.
	ErrInvalidValue = errors.New("invalid value")
)

// ContextCheckInterval is how often, in rows, Read checks for cancellation.
var ContextCheckInterval = 1000

// Config configures a Reader.
type Config struct {
	// Path of the file to read.
	Path string

	// Delimiter separates cells. Zero means ','.
	Delimiter rune

	// Schema optionally declares column kinds.
	Schema *Schema

	// NullValues replaces DefaultNullValues when non-nil.
	NullValues []string

	// ExtraNullValues are added to the null markers in use.
	ExtraNullValues []string

	// ParseDates enables time inference for undeclared columns.
	ParseDates bool
}

// Reader parses the configured file into a dataset.
type Reader struct {
	cfg  Config
	conv *converter
}

// NewReader validates cfg and returns a Reader.
func NewReader(cfg Config) (*Reader, error) {
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	if cfg.Delimiter == '\r' || cfg.Delimiter == '\n' || cfg.Delimiter == '"' ||
		cfg.Delimiter == utf8.RuneError {
		return nil, fmt.Errorf("invalid delimiter %q", cfg.Delimiter)
	}

	nulls := cfg.NullValues
	if nulls == nil {
		nulls = DefaultNullValues
	}
	nulls = append(append([]string(nil), nulls...), cfg.ExtraNullValues...)

	layouts := DefaultTimeLayouts
	if cfg.Schema != nil && len(cfg.Schema.TimeLayouts) > 0 {
		layouts = cfg.Schema.TimeLayouts
	}

	return &Reader{cfg: cfg, conv: newConverter(nulls, layouts)}, nil
}

// Path returns the configured file path.
func (r *Reader) Path() string { return r.cfg.Path }

// Read opens the configured file and parses it.
func (r *Reader) Read(ctx context.Context) (*dataset.Dataset, error) {
	f, err := os.Open(r.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	d, err := r.ReadFrom(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.cfg.Path, err)
	}
	return d, nil
}

// ReadFrom parses delimited content from in.
func (r *Reader) ReadFrom(ctx context.Context, in io.Reader) (*dataset.Dataset, error) {
	// Strip a byte order mark (decoding UTF-16 when its BOM says so) and
	// replace invalid UTF-8 with U+FFFD.
	decoded := transform.NewReader(in, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(decoded)
	cr.Comma = r.cfg.Delimiter

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	names := columnNames(header)

	var records [][]string
	for i := 0; ; i++ {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}
		records = append(records, rec)
	}

	return r.build(names, records)
}

// build types every column and assembles the dataset.
func (r *Reader) build(names []string, records [][]string) (*dataset.Dataset, error) {
	columns := make([]dataset.Column, len(names))
	cells := make([]string, len(records))
	for c, name := range names {
		kind, declared := r.declared(name)
		if !declared {
			for i, rec := range records {
				cells[i] = rec[c]
			}
			kind = r.conv.infer(cells, r.cfg.ParseDates)
		}
		columns[c] = dataset.Column{Name: name, Kind: kind}
	}

	rows := make([]dataset.Row, len(records))
	for i, rec := range records {
		row := make(dataset.Row, len(columns))
		for c, col := range columns {
			cell := rec[c]
			if r.conv.isNull(cell) || col.Kind == dataset.Null {
				continue
			}
			v, ok := r.conv.parse(cell, col.Kind)
			if !ok {
				// Line numbers are 1-based and the header is line 1.
				return nil, fmt.Errorf("%w: line %d column %q: %q is not a %s",
					ErrInvalidValue, i+2, col.Name, cell, col.Kind)
			}
			row[c] = v
		}
		rows[i] = row
	}

	return dataset.New(columns, rows...)
}

func (r *Reader) declared(name string) (dataset.Kind, bool) {
	if r.cfg.Schema == nil {
		return dataset.Null, false
	}
	kind, ok := r.cfg.Schema.Columns[name]
	return kind, ok
}

// columnNames names blank headers "Unnamed: <index>" and suffixes repeated
// names with ".1", ".2", ... so every column name is unique.
func columnNames(header []string) []string {
	names := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, h := range header {
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = h + "." + strconv.Itoa(n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}
