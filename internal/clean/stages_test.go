package clean_test

import (
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ToniPaltus/airflow-intro/internal/clean"
	"github.com/ToniPaltus/airflow-intro/internal/dataset"
)

var (
	null = dataset.NullValue()
	str  = dataset.StringValue
)

func textColumns(names ...string) []dataset.Column {
	out := make([]dataset.Column, len(names))
	for i, n := range names {
		out[i] = dataset.Column{Name: n, Kind: dataset.String}
	}
	return out
}

// rowsOf returns the string rendering of every row, for compact assertions.
func rowsOf(d *dataset.Dataset) [][]string {
	out := make([][]string, d.Len())
	for i := range out {
		row := d.Row(i)
		cells := make([]string, len(row))
		for c, v := range row {
			if v.IsNull() {
				cells[c] = "<null>"
			} else {
				cells[c] = v.String()
			}
		}
		out[i] = cells
	}
	return out
}

func TestDeduplicate(t *testing.T) {
	d := dataset.MustNew(textColumns("a", "b"),
		dataset.Row{str("1"), str("x")},
		dataset.Row{str("2"), str("y")},
		dataset.Row{str("1"), str("x")},
		dataset.Row{str("1"), null},
		dataset.Row{str("1"), null},
		dataset.Row{str("1"), str("")},
	)

	out, err := clean.Deduplicate{}.Apply(d)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"1", "x"},
		{"2", "y"},
		{"1", "<null>"},
		{"1", ""},
	}, rowsOf(out))

	again, err := clean.Deduplicate{}.Apply(out)
	require.NoError(t, err)
	assert.Equal(t, rowsOf(out), rowsOf(again), "deduplicate must be idempotent")

	assert.Equal(t, 6, d.Len(), "input must not be modified")
}

func TestDeduplicate_DistantTimes(t *testing.T) {
	d := dataset.MustNew([]dataset.Column{{Name: "at", Kind: dataset.Time}},
		dataset.Row{dataset.TimeValue(time.Date(1700, 1, 1, 0, 0, 0, 0, time.UTC))},
		dataset.Row{dataset.TimeValue(time.Date(2284, 7, 21, 23, 34, 33, 709551616, time.UTC))},
	)

	out, err := clean.Deduplicate{}.Apply(d)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
}

func TestDeduplicate_Empty(t *testing.T) {
	out, err := clean.Deduplicate{}.Apply(dataset.MustNew(textColumns("a")))
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
}

func TestDropEmptyRows(t *testing.T) {
	d := dataset.MustNew(textColumns("a", "b"),
		dataset.Row{null, null},
		dataset.Row{str("1"), null},
		dataset.Row{null, str("")},
		dataset.Row{null, null},
	)

	out, err := clean.DropEmptyRows{}.Apply(d)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"1", "<null>"},
		{"<null>", ""},
	}, rowsOf(out))

	for i := 0; i < out.Len(); i++ {
		assert.False(t, out.Row(i).AllNull())
	}
}

func TestFillMissing(t *testing.T) {
	columns := []dataset.Column{
		{Name: "n", Kind: dataset.Int},
		{Name: "s", Kind: dataset.String},
		{Name: "gone", Kind: dataset.Null},
	}
	d := dataset.MustNew(columns,
		dataset.Row{dataset.IntValue(0), str(""), null},
		dataset.Row{null, str("keep"), null},
	)

	out, err := clean.FillMissing{}.Apply(d)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"0", "", "-"},
		{"-", "keep", "-"},
	}, rowsOf(out))

	for i := 0; i < out.Len(); i++ {
		for _, v := range out.Row(i) {
			assert.False(t, v.IsNull())
		}
	}

	// Present values keep their kind and payload.
	v, _ := out.Value(0, "n")
	n, ok := v.Int()
	require.True(t, ok)
	assert.Equal(t, int64(0), n)

	assert.Equal(t, dataset.String, out.Columns()[2].Kind)
	assert.Equal(t, dataset.Int, out.Columns()[0].Kind)

	orig, _ := d.Value(1, "n")
	assert.True(t, orig.IsNull(), "input must not be modified")
}

func TestSortByField(t *testing.T) {
	d := dataset.MustNew(textColumns("at", "id"),
		dataset.Row{str("2023-02-01"), str("a")},
		dataset.Row{str("2023-01-01"), str("b")},
		dataset.Row{str("2023-02-01"), str("c")},
		dataset.Row{str("2022-12-31"), str("d")},
		dataset.Row{str("2023-01-01"), str("e")},
	)

	out, err := clean.SortByField{Field: "at"}.Apply(d)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"2022-12-31", "d"},
		{"2023-01-01", "b"},
		{"2023-01-01", "e"},
		{"2023-02-01", "a"},
		{"2023-02-01", "c"},
	}, rowsOf(out))

	first, _ := d.Value(0, "id")
	assert.Equal(t, "a", first.String(), "input order must be preserved")
}

func TestSortByField_Chronological(t *testing.T) {
	columns := []dataset.Column{{Name: "at", Kind: dataset.Time}}
	// 23:00 at UTC-5 on Jan 1 is 04:00Z on Jan 2, after midnight UTC.
	offset := time.Date(2023, 1, 1, 23, 0, 0, 0, time.FixedZone("X", -5*3600))
	midnight := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	d := dataset.MustNew(columns,
		dataset.Row{dataset.TimeValue(offset)},
		dataset.Row{dataset.TimeValue(midnight)},
	)

	out, err := clean.SortByField{Field: "at"}.Apply(d)
	require.NoError(t, err)

	for i := 1; i < out.Len(); i++ {
		prev, _ := out.Value(i-1, "at")
		cur, _ := out.Value(i, "at")
		assert.LessOrEqual(t, prev.Compare(cur), 0)
	}
	got, _ := out.Value(0, "at")
	ts, _ := got.Time()
	assert.True(t, ts.Equal(midnight))
}

func TestSortByField_MissingColumn(t *testing.T) {
	_, err := clean.SortByField{Field: "at"}.Apply(dataset.MustNew(textColumns("content")))
	require.ErrorIs(t, err, clean.ErrMissingColumn)

	var mce *clean.MissingColumnError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, "at", mce.Column)
	assert.Equal(t, "sort_by_field", mce.Stage)
}

func TestStripText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hi!! @@there", "Hi!! there"},
		{"-", "-"},
		{"", ""},
		{"a#b$c%d^e&f*g", "abcdefg"},
		{"keep ?!.,:;'()[]{}/- these", "keep ?!.,:;'()[]{}/- these"},
		{"tabs\tand\nnewlines", "tabs\tand\nnewlines"},
		{"snake_case 123", "snake_case 123"},
		{"Привет, мир! 你好", "Привет, мир! 你好"},
		{"quote\"d <tag> + = ~ `x` | \\", "quoted tag    x  "},
		{"emoji 🙂 gone", "emoji  gone"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, clean.StripText(tt.in))
		})
	}
}

func TestStripText_OutputIsAllowedAndIdempotent(t *testing.T) {
	inputs := []string{
		"Hi!! @@there", "x*y", "§±!@#$%^&*()_+-=[]{};':\",./<>?`~", "naïve café — 100%",
	}
	allowedPunct := "?!.,:;'()[]{}/-_"
	for _, in := range inputs {
		out := clean.StripText(in)
		for _, r := range out {
			ok := unicode.IsSpace(r) || unicode.IsLetter(r) || unicode.IsNumber(r) ||
				strings.ContainsRune(allowedPunct, r)
			assert.True(t, ok, "rune %q survived in %q", r, out)
		}
		assert.Equal(t, out, clean.StripText(out))
	}
}

func TestStripDisallowedChars(t *testing.T) {
	columns := []dataset.Column{
		{Name: "content", Kind: dataset.String},
		{Name: "other", Kind: dataset.String},
	}
	d := dataset.MustNew(columns,
		dataset.Row{str("a@b"), str("x@y")},
		dataset.Row{null, str("z")},
		dataset.Row{dataset.IntValue(7), str("z")},
	)

	out, err := clean.StripDisallowedChars{Field: "content"}.Apply(d)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"ab", "x@y"},
		{"<null>", "z"},
		{"7", "z"},
	}, rowsOf(out))

	orig, _ := d.Value(0, "content")
	assert.Equal(t, "a@b", orig.String())
}

func TestStripDisallowedChars_MissingColumn(t *testing.T) {
	_, err := clean.StripDisallowedChars{Field: "content"}.Apply(dataset.MustNew(textColumns("at")))
	require.ErrorIs(t, err, clean.ErrMissingColumn)
}
