// Package dataset holds the in-memory tabular form every cleaning stage reads
// and returns: an ordered list of rows over a fixed, named, typed column set.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrRowWidth is returned when a row does not have one value per column.
var ErrRowWidth = errors.New("row width does not match column count")

// Column is a named column with its declared or inferred kind. Cells of a
// column hold either Null or a value of any kind; Kind records what the
// reader decided, it is not enforced per cell.
type Column struct {
	Name string
	Kind Kind
}

// Row holds one Value per column, in column order.
type Row []Value

// Key returns a string that is equal for two rows exactly when every value is
// Equal.
func (r Row) Key() string {
	var b strings.Builder
	for _, v := range r {
		v.key(&b)
	}
	return b.String()
}

// AllNull reports whether every value in the row is missing.
func (r Row) AllNull() bool {
	for _, v := range r {
		if !v.IsNull() {
			return false
		}
	}
	return true
}

// Field is one named value of a record.
type Field struct {
	Name  string
	Value Value
}

// Dataset is an ordered collection of rows sharing one column set.
type Dataset struct {
	columns []Column
	index   map[string]int
	rows    []Row
}

// New creates a dataset with the given columns and rows. Column names must be
// unique and non-empty and every row must have one value per column. Rows are
// copied.
func New(columns []Column, rows ...Row) (*Dataset, error) {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}
		if _, dup := idx[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		idx[c.Name] = i
	}

	d := &Dataset{
		columns: append([]Column(nil), columns...),
		index:   idx,
		rows:    make([]Row, 0, len(rows)),
	}
	for i, r := range rows {
		if err := d.AppendRow(r); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return d, nil
}

// MustNew is New for fixtures; it panics on error.
func MustNew(columns []Column, rows ...Row) *Dataset {
	d, err := New(columns, rows...)
	if err != nil {
		panic(err)
	}
	return d
}

// AppendRow appends a copy of r.
func (d *Dataset) AppendRow(r Row) error {
	if len(r) != len(d.columns) {
		return fmt.Errorf("%w: got %d values, want %d", ErrRowWidth, len(r), len(d.columns))
	}
	d.rows = append(d.rows, append(Row(nil), r...))
	return nil
}

// Columns returns a copy of the column list.
func (d *Dataset) Columns() []Column {
	return append([]Column(nil), d.columns...)
}

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column.
func (d *Dataset) Index(name string) (int, bool) {
	i, ok := d.index[name]
	return i, ok
}

// HasColumn reports whether the named column exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Row returns a copy of row i.
func (d *Dataset) Row(i int) Row {
	return append(Row(nil), d.rows[i]...)
}

// Value returns the cell at row i of the named column.
func (d *Dataset) Value(i int, column string) (Value, bool) {
	c, ok := d.index[column]
	if !ok {
		return Value{}, false
	}
	return d.rows[i][c], true
}

// Record returns row i as ordered name/value pairs.
func (d *Dataset) Record(i int) []Field {
	fields := make([]Field, len(d.columns))
	for c, col := range d.columns {
		fields[c] = Field{Name: col.Name, Value: d.rows[i][c]}
	}
	return fields
}

// Derive returns a new dataset over the same columns holding copies of rows.
// Every row must already have one value per column.
func (d *Dataset) Derive(rows []Row) (*Dataset, error) {
	return New(d.columns, rows...)
}

// Clone returns an independent copy of d.
func (d *Dataset) Clone() *Dataset {
	c, _ := d.Derive(d.rows)
	return c
}

func floatBits(f float64) uint64 {
	if f == 0 {
		// +0 and -0 are Equal, so they must share a key.
		return 0
	}
	return math.Float64bits(f)
}
