package clean_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ToniPaltus/airflow-intro/internal/clean"
	"github.com/ToniPaltus/airflow-intro/internal/dataset"
)

func TestDefault_StageOrder(t *testing.T) {
	p := clean.Default(clean.Options{})
	assert.Equal(t, []string{
		"deduplicate",
		"drop_empty_rows",
		"fill_missing",
		"sort_by_field",
		"strip_disallowed_chars",
	}, p.Stages())
}

func TestPipeline_DuplicateAndSymbols(t *testing.T) {
	d := dataset.MustNew(textColumns("at", "content"),
		dataset.Row{str("2023-02-01"), str("Hi!! @@there")},
		dataset.Row{str("2023-01-01"), str("ok")},
		dataset.Row{str("2023-02-01"), str("Hi!! @@there")},
	)

	out, err := clean.Default(clean.Options{}).Clean(d)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"2023-01-01", "ok"},
		{"2023-02-01", "Hi!! there"},
	}, rowsOf(out))
}

func TestPipeline_MissingValues(t *testing.T) {
	d := dataset.MustNew(textColumns("at", "content", "author"),
		dataset.Row{null, null, null},
		dataset.Row{str("2023-01-02"), null, str("bob")},
		dataset.Row{str("2023-01-01"), str("x"), null},
	)

	p := clean.New(clean.Deduplicate{}, clean.DropEmptyRows{}, clean.FillMissing{})
	filled, err := p.Clean(d)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"2023-01-02", "-", "bob"},
		{"2023-01-01", "x", "-"},
	}, rowsOf(filled))

	out, err := clean.Default(clean.Options{}).Clean(d)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"2023-01-01", "x", "-"},
		{"2023-01-02", "-", "bob"},
	}, rowsOf(out))
}

func TestPipeline_MissingSortColumn(t *testing.T) {
	d := dataset.MustNew(textColumns("content"),
		dataset.Row{str("a@")},
	)

	out, reports, err := clean.Default(clean.Options{}).Run(context.Background(), d)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, clean.ErrMissingColumn)
	assert.Contains(t, err.Error(), "stage sort_by_field")

	var mce *clean.MissingColumnError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, "at", mce.Column)

	// The three stages before the sort ran.
	assert.Len(t, reports, 3)

	v, _ := d.Value(0, "content")
	assert.Equal(t, "a@", v.String(), "caller's dataset must be untouched")
}

func TestPipeline_CustomFields(t *testing.T) {
	d := dataset.MustNew(textColumns("ts", "body"),
		dataset.Row{str("2"), str("b#")},
		dataset.Row{str("1"), str("a#")},
	)

	out, err := clean.Default(clean.Options{SortField: "ts", TextField: "body"}).Clean(d)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "a"}, {"2", "b"}}, rowsOf(out))
}

func TestPipeline_Reports(t *testing.T) {
	d := dataset.MustNew(textColumns("at", "content"),
		dataset.Row{str("1"), str("a")},
		dataset.Row{str("1"), str("a")},
		dataset.Row{null, null},
	)

	_, reports, err := clean.Default(clean.Options{}).Run(context.Background(), d)
	require.NoError(t, err)
	require.Len(t, reports, 5)

	assert.Equal(t, "deduplicate", reports[0].Name)
	assert.Equal(t, 3, reports[0].RowsIn)
	assert.Equal(t, 2, reports[0].RowsOut)
	assert.Equal(t, "drop_empty_rows", reports[1].Name)
	assert.Equal(t, 1, reports[1].RowsOut)
}

func TestPipeline_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := clean.Default(clean.Options{}).Run(ctx, dataset.MustNew(textColumns("at", "content")))
	require.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_Empty(t *testing.T) {
	out, err := clean.Default(clean.Options{}).Clean(dataset.MustNew(textColumns("at", "content")))
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
}
