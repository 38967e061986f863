package clean

import (
	"slices"

	"github.com/ToniPaltus/airflow-intro/internal/dataset"
)

// Placeholder replaces every missing value in FillMissing.
const Placeholder = "-"

// Stage is one cleaning step. Apply must not modify its input; it returns a
// new dataset.
type Stage interface {
	Name() string
	Apply(d *dataset.Dataset) (*dataset.Dataset, error)
}

// Deduplicate drops rows identical to an earlier row across all columns. The
// first occurrence wins.
type Deduplicate struct{}

func (Deduplicate) Name() string { return "deduplicate" }

func (Deduplicate) Apply(d *dataset.Dataset) (*dataset.Dataset, error) {
	seen := make(map[string]struct{}, d.Len())
	rows := make([]dataset.Row, 0, d.Len())
	for i := 0; i < d.Len(); i++ {
		row := d.Row(i)
		key := row.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		rows = append(rows, row)
	}
	return d.Derive(rows)
}

// DropEmptyRows drops rows in which every value is missing.
type DropEmptyRows struct{}

func (DropEmptyRows) Name() string { return "drop_empty_rows" }

func (DropEmptyRows) Apply(d *dataset.Dataset) (*dataset.Dataset, error) {
	rows := make([]dataset.Row, 0, d.Len())
	for i := 0; i < d.Len(); i++ {
		row := d.Row(i)
		if row.AllNull() {
			continue
		}
		rows = append(rows, row)
	}
	return d.Derive(rows)
}

// FillMissing replaces every missing value in every column with Placeholder.
// Present values, including empty strings and zeros, are kept as they are.
type FillMissing struct{}

func (FillMissing) Name() string { return "fill_missing" }

func (FillMissing) Apply(d *dataset.Dataset) (*dataset.Dataset, error) {
	rows := make([]dataset.Row, d.Len())
	for i := range rows {
		row := d.Row(i)
		for c, v := range row {
			if v.IsNull() {
				row[c] = dataset.StringValue(Placeholder)
			}
		}
		rows[i] = row
	}

	// A column that held nothing but missing values now holds strings.
	columns := d.Columns()
	for c := range columns {
		if columns[c].Kind == dataset.Null {
			columns[c].Kind = dataset.String
		}
	}
	return dataset.New(columns, rows...)
}

// SortByField stably orders rows by Field in non-decreasing Value.Compare
// order.
type SortByField struct {
	Field string
}

func (SortByField) Name() string { return "sort_by_field" }

func (s SortByField) Apply(d *dataset.Dataset) (*dataset.Dataset, error) {
	col, ok := d.Index(s.Field)
	if !ok {
		return nil, &MissingColumnError{Stage: s.Name(), Column: s.Field}
	}

	rows := make([]dataset.Row, d.Len())
	for i := range rows {
		rows[i] = d.Row(i)
	}
	slices.SortStableFunc(rows, func(a, b dataset.Row) int {
		return a[col].Compare(b[col])
	})
	return d.Derive(rows)
}
