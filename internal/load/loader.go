// Package load replaces the contents of a destination collection with the
// rows of a cleaned dataset.
//
// Two strategies are available:
//
//   - swap (default): documents are written to a fresh staging collection
//     which then atomically replaces the live one. A failure at any point
//     leaves the live collection as it was.
//   - drop-insert: the live collection is dropped and the documents are
//     inserted into it. A failed insert is not rolled back, so the live
//     collection can be left empty or partially loaded.
//
// The loader never retries; errors are returned as *ConnectionError or
// *WriteError.
package load

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ToniPaltus/airflow-intro/internal/dataset"
	"github.com/ToniPaltus/airflow-intro/internal/logging"
)

// DefaultBatchSize is the number of documents per InsertMany call.
const DefaultBatchSize = 1000

// Destination addresses one collection on a backend.
type Destination struct {
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

func (d Destination) String() string {
	return d.Database + "." + d.Collection
}

// Backend is a document store holding named collections.
type Backend interface {
	// Ping checks the store is reachable.
	Ping(ctx context.Context) error

	// Create creates an empty collection. Creating an existing collection is
	// not an error.
	Create(ctx context.Context, dest Destination) error

	// Drop removes a collection and its documents. Dropping a missing
	// collection is not an error.
	Drop(ctx context.Context, dest Destination) error

	// InsertMany appends documents to a collection.
	InsertMany(ctx context.Context, dest Destination, docs []Document) error

	// Rename atomically replaces to with from; from no longer exists
	// afterwards. Both are in the same database.
	Rename(ctx context.Context, from, to Destination) error

	// Count returns the number of documents in a collection.
	Count(ctx context.Context, dest Destination) (int64, error)

	// Close releases the backend's connections.
	Close(ctx context.Context) error
}

// Strategy selects how the live collection is replaced.
type Strategy string

const (
	StrategySwap       Strategy = "swap"
	StrategyDropInsert Strategy = "drop-insert"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategySwap, "":
		return StrategySwap, nil
	case StrategyDropInsert:
		return StrategyDropInsert, nil
	default:
		return "", fmt.Errorf("unknown load strategy %q (want %q or %q)", s, StrategySwap, StrategyDropInsert)
	}
}

// Config configures a Loader.
type Config struct {
	Strategy  Strategy
	BatchSize int
}

// Result summarises a successful load.
type Result struct {
	Destination Destination   `json:"destination"`
	Strategy    Strategy      `json:"strategy"`
	Documents   int           `json:"documents"`
	Duration    time.Duration `json:"duration"`
}

// Loader writes datasets to a Backend.
type Loader struct {
	backend Backend
	cfg     Config
	newID   func() string
}

// NewLoader returns a Loader. Zero config fields take their defaults.
func NewLoader(backend Backend, cfg Config) *Loader {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategySwap
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Loader{
		backend: backend,
		cfg:     cfg,
		newID:   func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

// MaxStagingName bounds staging names to the shortest identifier limit of
// the supported backends (PostgreSQL's 63 bytes).
const MaxStagingName = 63

// StagingName returns the staging collection name used for a swap. The
// collection prefix is cut so the result never exceeds MaxStagingName bytes.
func StagingName(collection, id string) string {
	if len(id) > 12 {
		id = id[:12]
	}
	suffix := "__staging_" + id
	if keep := MaxStagingName - len(suffix); len(collection) > keep {
		for keep > 0 && !utf8.RuneStart(collection[keep]) {
			keep--
		}
		collection = collection[:keep]
	}
	return collection + suffix
}

// Load replaces the contents of dest with the rows of d, one document per
// row. On success dest holds exactly those documents.
func (l *Loader) Load(ctx context.Context, d *dataset.Dataset, dest Destination) (Result, error) {
	start := time.Now()
	logger := logging.WithFields(ctx,
		"destination", dest.String(),
		"strategy", string(l.cfg.Strategy),
	)

	if err := l.backend.Ping(ctx); err != nil {
		return Result{}, &ConnectionError{Destination: dest, Err: err}
	}

	var err error
	switch l.cfg.Strategy {
	case StrategyDropInsert:
		err = l.dropInsert(ctx, d, dest)
	default:
		err = l.swap(ctx, d, dest)
	}
	if err != nil {
		logger.Error("load failed", "error", err)
		return Result{}, err
	}

	res := Result{
		Destination: dest,
		Strategy:    l.cfg.Strategy,
		Documents:   d.Len(),
		Duration:    time.Since(start),
	}
	logger.Info("load complete",
		"documents", res.Documents,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (l *Loader) swap(ctx context.Context, d *dataset.Dataset, dest Destination) error {
	staging := Destination{
		Database:   dest.Database,
		Collection: StagingName(dest.Collection, l.newID()),
	}

	if err := l.backend.Create(ctx, staging); err != nil {
		return &WriteError{Op: "create staging", Destination: staging, Err: err}
	}

	inserted, err := l.insert(ctx, d, staging)
	if err != nil {
		l.discard(ctx, staging)
		return &WriteError{Op: "insert", Destination: staging, Inserted: inserted, Err: err}
	}

	if err := l.backend.Rename(ctx, staging, dest); err != nil {
		l.discard(ctx, staging)
		return &WriteError{Op: "swap", Destination: dest, Inserted: inserted, Err: err}
	}
	return nil
}

func (l *Loader) dropInsert(ctx context.Context, d *dataset.Dataset, dest Destination) error {
	if err := l.backend.Drop(ctx, dest); err != nil {
		return &WriteError{Op: "drop", Destination: dest, Err: err}
	}
	if err := l.backend.Create(ctx, dest); err != nil {
		return &WriteError{Op: "create", Destination: dest, LiveTouched: true, Err: err}
	}

	inserted, err := l.insert(ctx, d, dest)
	if err != nil {
		return &WriteError{Op: "insert", Destination: dest, Inserted: inserted, LiveTouched: true, Err: err}
	}
	return nil
}

// insert writes every row of d in batches and returns how many documents
// were acknowledged.
func (l *Loader) insert(ctx context.Context, d *dataset.Dataset, dest Destination) (int, error) {
	inserted := 0
	for from := 0; from < d.Len(); from += l.cfg.BatchSize {
		to := min(from+l.cfg.BatchSize, d.Len())
		if err := l.backend.InsertMany(ctx, dest, Documents(d, from, to)); err != nil {
			return inserted, err
		}
		inserted = to
	}
	return inserted, nil
}

// discard drops a staging collection after a failure. It runs even if ctx
// was cancelled; its own error is only logged.
func (l *Loader) discard(ctx context.Context, staging Destination) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := l.backend.Drop(cleanupCtx, staging); err != nil {
		logging.FromContext(ctx).Warn("failed to drop staging collection",
			"staging", staging.String(),
			"error", err,
		)
	}
}
