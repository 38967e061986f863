// Package memstore is an in-process load.Backend. It backs tests and mem://
// dry runs, and can be told to fail specific operations.
package memstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/ToniPaltus/airflow-intro/internal/load"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("memstore: closed")

// Store holds collections in memory. It is safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	collections map[load.Destination][]load.Document
	closed      bool

	pingErr     error
	renameErr   error
	insertErr   error
	insertAfter int
	inserted    int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		collections: make(map[load.Destination][]load.Document),
		insertAfter: -1,
	}
}

// Seed replaces a collection's documents.
func (s *Store) Seed(dest load.Destination, docs []load.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[dest] = slices.Clone(docs)
}

// Documents returns a copy of a collection's documents, or nil if it does
// not exist.
func (s *Store) Documents(dest load.Destination) []load.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.collections[dest])
}

// Exists reports whether a collection exists.
func (s *Store) Exists(dest load.Destination) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.collections[dest]
	return ok
}

// Collections lists every existing collection.
func (s *Store) Collections() []load.Destination {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]load.Destination, 0, len(s.collections))
	for d := range s.collections {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b load.Destination) int {
		return cmp.Or(
			strings.Compare(a.Database, b.Database),
			strings.Compare(a.Collection, b.Collection),
		)
	})
	return out
}

// FailPing makes Ping return err. Nil clears it.
func (s *Store) FailPing(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingErr = err
}

// FailRename makes Rename return err. Nil clears it.
func (s *Store) FailRename(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renameErr = err
}

// FailInsertAfter makes InsertMany fail with err once n more documents have
// been written. Documents before the limit are kept, like an ordered bulk
// insert that stops at the first failure. A negative n clears it.
func (s *Store) FailInsertAfter(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertAfter = n
	s.insertErr = err
	s.inserted = 0
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.pingErr
}

func (s *Store) Create(_ context.Context, dest load.Destination) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.collections[dest]; !ok {
		s.collections[dest] = []load.Document{}
	}
	return nil
}

func (s *Store) Drop(_ context.Context, dest load.Destination) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.collections, dest)
	return nil
}

func (s *Store) InsertMany(ctx context.Context, dest load.Destination, docs []load.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, doc := range docs {
		if s.insertAfter >= 0 && s.inserted >= s.insertAfter {
			return s.insertErr
		}
		s.collections[dest] = append(s.collections[dest], slices.Clone(doc))
		s.inserted++
	}
	return nil
}

func (s *Store) Rename(_ context.Context, from, to load.Destination) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.renameErr != nil {
		return s.renameErr
	}
	if from.Database != to.Database {
		return fmt.Errorf("memstore: rename across databases %s -> %s", from, to)
	}
	docs, ok := s.collections[from]
	if !ok {
		return fmt.Errorf("memstore: collection %s does not exist", from)
	}
	s.collections[to] = docs
	delete(s.collections, from)
	return nil
}

func (s *Store) Count(_ context.Context, dest load.Destination) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	return int64(len(s.collections[dest])), nil
}

func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ load.Backend = (*Store)(nil)
