// Package postgres stores collections as JSONB tables in PostgreSQL.
//
// A Destination's Database maps to a schema and its Collection to a table
// with one jsonb document per row:
//
//	CREATE TABLE "<db>"."<collection>" (id bigserial PRIMARY KEY, doc jsonb NOT NULL)
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ToniPaltus/airflow-intro/internal/load"
)

// maxIdentifier is PostgreSQL's NAMEDATALEN-1.
const maxIdentifier = 63

// PoolConfig sizes the connection pool. Zero values keep pgxpool defaults.
type PoolConfig struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Store is a load.Backend over a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open parses uri and creates a pool. No connection is made until the first
// query; use Ping to check reachability.
func Open(ctx context.Context, uri string, cfg PoolConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(uri)
	if err != nil {
		return nil, fmt.Errorf("parse postgres uri: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Create(ctx context.Context, dest load.Destination) error {
	table, err := tableName(dest)
	if err != nil {
		return err
	}
	schema := pgx.Identifier{dest.Database}.Sanitize()

	if _, err := s.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+schema); err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}
	_, err = s.pool.Exec(ctx, "CREATE TABLE IF NOT EXISTS "+table+
		" (id bigserial PRIMARY KEY, doc jsonb NOT NULL)")
	if err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func (s *Store) Drop(ctx context.Context, dest load.Destination) error {
	table, err := tableName(dest)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("drop table %s: %w", table, err)
	}
	return nil
}

// InsertMany streams the batch with COPY.
func (s *Store) InsertMany(ctx context.Context, dest load.Destination, docs []load.Document) error {
	if _, err := tableName(dest); err != nil {
		return err
	}
	rows, err := encodeRows(docs)
	if err != nil {
		return err
	}

	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{dest.Database, dest.Collection},
		[]string{"doc"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy into %s: %w", dest, err)
	}
	if int(n) != len(docs) {
		return fmt.Errorf("copy into %s: wrote %d of %d documents", dest, n, len(docs))
	}
	return nil
}

// Rename drops the target and renames the source onto it inside one
// transaction, so readers see either the old table or the new one.
func (s *Store) Rename(ctx context.Context, from, to load.Destination) error {
	if from.Database != to.Database {
		return fmt.Errorf("rename %s to %s: schemas differ", from, to)
	}
	src, err := tableName(from)
	if err != nil {
		return err
	}
	dst, err := tableName(to)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+dst); err != nil {
		return fmt.Errorf("drop %s: %w", dst, err)
	}
	if _, err := tx.Exec(ctx, "ALTER TABLE "+src+" RENAME TO "+pgx.Identifier{to.Collection}.Sanitize()); err != nil {
		return fmt.Errorf("rename %s: %w", src, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit rename: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context, dest load.Destination) (int64, error) {
	table, err := tableName(dest)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Documents returns every document of a collection in insertion order.
func (s *Store) Documents(ctx context.Context, dest load.Destination) ([]map[string]any, error) {
	table, err := tableName(dest)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, "SELECT doc FROM "+table+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	docs, err := pgx.CollectRows(rows, pgx.RowTo[map[string]any])
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", table, err)
	}
	return docs, nil
}

func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}

// tableName returns the quoted schema-qualified table for dest.
func tableName(dest load.Destination) (string, error) {
	for _, part := range []string{dest.Database, dest.Collection} {
		if part == "" {
			return "", fmt.Errorf("invalid destination %q: empty name", dest.String())
		}
		if len(part) > maxIdentifier {
			return "", fmt.Errorf("invalid destination %q: %q exceeds %d bytes", dest.String(), part, maxIdentifier)
		}
	}
	return pgx.Identifier{dest.Database, dest.Collection}.Sanitize(), nil
}

// encodeRows renders each document as a JSON object for the doc column.
func encodeRows(docs []load.Document) ([][]any, error) {
	rows := make([][]any, len(docs))
	for i, doc := range docs {
		b, err := encodeDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		rows[i] = []any{b}
	}
	return rows, nil
}

func encodeDocument(doc load.Document) ([]byte, error) {
	m := doc.Map()
	for name, v := range m {
		switch v := v.(type) {
		case float64:
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("field %q: %v cannot be stored as JSON", name, v)
			}
		case time.Time:
			m[name] = v.UTC().Format(time.RFC3339Nano)
		}
	}
	return json.Marshal(m)
}

var _ load.Backend = (*Store)(nil)
