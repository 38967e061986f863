package postgres

import (
	"context"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ToniPaltus/airflow-intro/internal/load"
)

func TestTableName(t *testing.T) {
	got, err := tableName(load.Destination{Database: "airflow", Collection: "my table"})
	require.NoError(t, err)
	assert.Equal(t, `"airflow"."my table"`, got)

	got, err = tableName(load.Destination{Database: "a", Collection: `x"y`})
	require.NoError(t, err)
	assert.Equal(t, `"a"."x""y"`, got)

	_, err = tableName(load.Destination{Database: "", Collection: "c"})
	assert.Error(t, err)

	_, err = tableName(load.Destination{Database: "a", Collection: strings.Repeat("c", 64)})
	assert.ErrorContains(t, err, "exceeds 63 bytes")
}

func TestTableName_StagingForLongCollection(t *testing.T) {
	live := strings.Repeat("c", maxIdentifier)
	_, err := tableName(load.Destination{Database: "a", Collection: live})
	require.NoError(t, err)

	staging := load.StagingName(live, strings.ReplaceAll(uuid.NewString(), "-", ""))
	_, err = tableName(load.Destination{Database: "a", Collection: staging})
	assert.NoError(t, err)
}

func TestEncodeDocument(t *testing.T) {
	ts := time.Date(2023, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	b, err := encodeDocument(load.Document{
		{Name: "at", Value: ts},
		{Name: "n", Value: int64(3)},
		{Name: "note", Value: nil},
		{Name: "s", Value: "hi"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"2023-01-02T02:04:05Z","n":3,"note":null,"s":"hi"}`, string(b))

	_, err = encodeDocument(load.Document{{Name: "f", Value: math.NaN()}})
	assert.ErrorContains(t, err, `field "f"`)
}

func TestEncodeRows(t *testing.T) {
	rows, err := encodeRows([]load.Document{{{Name: "a", Value: "1"}}, {{Name: "a", Value: "2"}}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.JSONEq(t, `{"a":"2"}`, string(rows[1][0].([]byte)))

	_, err = encodeRows([]load.Document{{{Name: "a", Value: math.Inf(1)}}})
	assert.ErrorContains(t, err, "document 0")
}

// TestStore_Live runs against a real server when TEST_POSTGRES_URI is set.
func TestStore_Live(t *testing.T) {
	uri := os.Getenv("TEST_POSTGRES_URI")
	if uri == "" {
		t.Skip("TEST_POSTGRES_URI not set")
	}
	ctx := context.Background()

	s, err := Open(ctx, uri, PoolConfig{MaxConns: 2})
	require.NoError(t, err)
	defer s.Close(ctx)
	require.NoError(t, s.Ping(ctx))

	db := "ingest_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	live := load.Destination{Database: db, Collection: "reviews"}
	defer s.pool.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+pgx.Identifier{db}.Sanitize()+" CASCADE")

	require.NoError(t, s.Create(ctx, live))
	require.NoError(t, s.InsertMany(ctx, live, []load.Document{{{Name: "legacy", Value: int64(1)}}}))

	staging := load.Destination{Database: db, Collection: "reviews__staging"}
	require.NoError(t, s.Create(ctx, staging))
	require.NoError(t, s.InsertMany(ctx, staging, []load.Document{
		{{Name: "content", Value: "a"}},
		{{Name: "content", Value: "b"}},
	}))
	require.NoError(t, s.Rename(ctx, staging, live))

	n, err := s.Count(ctx, live)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	docs, err := s.Documents(ctx, live)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"content": "a"}, {"content": "b"}}, docs)

	require.NoError(t, s.Drop(ctx, staging), "staging no longer exists")
}
