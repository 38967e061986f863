package source

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ToniPaltus/airflow-intro/internal/dataset"
)

// DefaultNullValues are the cell texts read as missing values.
var DefaultNullValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None", "n/a",
	"nan", "null",
}

// DefaultTimeLayouts are tried in order when inferring or parsing time
// columns. Only four-digit-year layouts are used so that numeric columns are
// never mistaken for dates.
var DefaultTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"1/2/2006",
	"01/02/2006",
	"1-2-2006",
	"01-02-2006",
	"1.2.2006",
	"01.02.2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// converter turns cell text into typed values.
type converter struct {
	nulls   map[string]struct{}
	layouts []string
}

func newConverter(nullValues, layouts []string) *converter {
	c := &converter{
		nulls:   make(map[string]struct{}, len(nullValues)),
		layouts: layouts,
	}
	for _, v := range nullValues {
		c.nulls[v] = struct{}{}
	}
	return c
}

func (c *converter) isNull(cell string) bool {
	_, ok := c.nulls[cell]
	return ok
}

// infer picks the narrowest kind every present cell parses as. A column with
// no present cells is Null.
func (c *converter) infer(cells []string, parseDates bool) dataset.Kind {
	candidates := []dataset.Kind{dataset.Int, dataset.Float}
	if parseDates {
		candidates = append(candidates, dataset.Time)
	}

	present := false
	for _, cell := range cells {
		if c.isNull(cell) {
			continue
		}
		present = true
		kept := candidates[:0]
		for _, k := range candidates {
			if _, ok := c.parse(cell, k); ok {
				kept = append(kept, k)
			}
		}
		candidates = kept
		if len(candidates) == 0 {
			return dataset.String
		}
	}

	if !present {
		return dataset.Null
	}
	return candidates[0]
}

// parse converts cell to kind. Null cells must be filtered by the caller.
// Non-finite floats such as "inf" are not Float values; documents cannot
// carry them.
func (c *converter) parse(cell string, kind dataset.Kind) (dataset.Value, bool) {
	switch kind {
	case dataset.Int:
		i, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
		if err != nil {
			return dataset.Value{}, false
		}
		return dataset.IntValue(i), true
	case dataset.Float:
		f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return dataset.Value{}, false
		}
		return dataset.FloatValue(f), true
	case dataset.Time:
		s := strings.TrimSpace(cell)
		for _, layout := range c.layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return dataset.TimeValue(t), true
			}
		}
		return dataset.Value{}, false
	default:
		return dataset.StringValue(cell), true
	}
}
