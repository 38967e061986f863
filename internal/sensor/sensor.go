// Package sensor waits for a source file to appear.
//
// A pattern is either a plain path or a doublestar glob such as
// "/data/**/reviews-*.csv". The sensor watches the pattern's base directory
// with fsnotify and also re-checks on a fixed poke interval, so it still
// works on filesystems that do not deliver events and for base directories
// that do not exist yet.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/ToniPaltus/airflow-intro/internal/logging"
)

// DefaultPokeInterval matches Airflow's FileSensor default.
const DefaultPokeInterval = 30 * time.Second

// ErrTimeout is returned when no file matched before Config.Timeout.
var ErrTimeout = errors.New("sensor timed out")

// Config controls polling.
type Config struct {
	// PokeInterval is how often the pattern is re-checked. Defaults to
	// DefaultPokeInterval.
	PokeInterval time.Duration

	// Timeout bounds each wait; zero waits until ctx is done.
	Timeout time.Duration
}

// Sensor waits for files matching a pattern.
type Sensor struct {
	cfg Config
}

// New returns a Sensor.
func New(cfg Config) *Sensor {
	if cfg.PokeInterval <= 0 {
		cfg.PokeInterval = DefaultPokeInterval
	}
	return &Sensor{cfg: cfg}
}

// Wait blocks until a regular file matches pattern and returns its path.
// When several match, the lexically first is returned.
func (s *Sensor) Wait(ctx context.Context, pattern string) (string, error) {
	return s.wait(ctx, pattern, func(string, fs.FileInfo) bool { return true })
}

// Each calls fn for every matching file, waiting for the next one after
// each call. A file is offered again only when its modification time
// changes. Each returns when ctx is done or fn returns an error.
func (s *Sensor) Each(ctx context.Context, pattern string, fn func(ctx context.Context, path string) error) error {
	seen := make(map[string]time.Time)
	fresh := func(path string, info fs.FileInfo) bool {
		mod, ok := seen[path]
		return !ok || !mod.Equal(info.ModTime())
	}

	for {
		path, err := s.wait(ctx, pattern, fresh)
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				continue
			}
			return err
		}
		if info, err := os.Stat(path); err == nil {
			seen[path] = info.ModTime()
		}
		if err := fn(ctx, path); err != nil {
			return err
		}
	}
}

func (s *Sensor) wait(ctx context.Context, pattern string, accept func(string, fs.FileInfo) bool) (string, error) {
	if !doublestar.ValidatePathPattern(filepath.ToSlash(pattern)) {
		return "", fmt.Errorf("invalid file pattern %q", pattern)
	}
	logger := logging.WithFields(ctx, "pattern", pattern)

	if path, ok := find(pattern, accept); ok {
		return path, nil
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, s.cfg.Timeout, ErrTimeout)
		defer cancel()
	}

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	if watcher, err := watchBase(pattern); err != nil {
		logger.Debug("file events unavailable, polling only", "error", err)
	} else {
		defer watcher.Close()
		events, watchErrs = watcher.Events, watcher.Errors
	}

	ticker := time.NewTicker(s.cfg.PokeInterval)
	defer ticker.Stop()

	logger.Info("waiting for file", "poke_interval", s.cfg.PokeInterval.String())
	for {
		select {
		case <-ctx.Done():
			if cause := context.Cause(ctx); errors.Is(cause, ErrTimeout) {
				return "", fmt.Errorf("%w after %s waiting for %s", ErrTimeout, s.cfg.Timeout, pattern)
			}
			return "", ctx.Err()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
				continue
			}
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			logger.Warn("file watcher error", "error", err)
			continue
		case <-ticker.C:
		}

		if path, ok := find(pattern, accept); ok {
			logger.Info("file found", "path", path)
			return path, nil
		}
	}
}

// Find returns the first regular file matching pattern, if any.
func Find(pattern string) (string, bool) {
	return find(pattern, func(string, fs.FileInfo) bool { return true })
}

func find(pattern string, accept func(string, fs.FileInfo) bool) (string, bool) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return "", false
	}
	slices.Sort(matches)
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if accept(m, info) {
			return m, true
		}
	}
	return "", false
}

// watchBase watches the static directory prefix of pattern. Events deeper
// in a ** glob are still caught by the poke interval.
func watchBase(pattern string) (*fsnotify.Watcher, error) {
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	dir := filepath.FromSlash(base)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return watcher, nil
}
