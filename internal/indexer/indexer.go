// Package indexer copies validated content into the store and keeps it
// current while the content tree changes.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"rubyistrun/internal/content"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long Watch waits after the last change before re-indexing.
const DefaultDebounce = 500 * time.Millisecond

type Loader interface {
	Load(ctx context.Context) (*content.Result, error)
	Dir() string
}

type Store interface {
	ReplaceCollection(ctx context.Context, c content.Collection, entries []content.Entry) error
}

// Observer is told about every index run, successful or not.
type Observer interface {
	ObserveIndex(counts map[content.Collection]int, took time.Duration, err error)
}

type Stats struct {
	Counts   map[content.Collection]int
	Skipped  int
	Duration time.Duration
}

func (s Stats) Total() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

type Indexer struct {
	loader   Loader
	store    Store
	logger   *zap.Logger
	observer Observer
	debounce time.Duration
}

func New(loader Loader, store Store, logger *zap.Logger) *Indexer {
	return &Indexer{
		loader:   loader,
		store:    store,
		logger:   logger.Named("indexer"),
		debounce: DefaultDebounce,
	}
}

func (i *Indexer) SetObserver(o Observer) {
	i.observer = o
}

func (i *Indexer) SetDebounce(d time.Duration) {
	if d > 0 {
		i.debounce = d
	}
}

// Index loads every collection and replaces each one in the store. Nothing
// is written when the load fails.
func (i *Indexer) Index(ctx context.Context) (Stats, error) {
	start := time.Now()
	stats, err := i.index(ctx)
	stats.Duration = time.Since(start)
	if i.observer != nil {
		i.observer.ObserveIndex(stats.Counts, stats.Duration, err)
	}
	return stats, err
}

func (i *Indexer) index(ctx context.Context) (Stats, error) {
	result, err := i.loader.Load(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("error loading content: %w", err)
	}

	stats := Stats{Counts: make(map[content.Collection]int), Skipped: len(result.Skipped)}
	for c, entries := range result.Entries {
		if err := i.store.ReplaceCollection(ctx, c, entries); err != nil {
			return Stats{}, fmt.Errorf("error storing collection %s: %w", c, err)
		}
		stats.Counts[c] = len(entries)
	}

	i.logger.Info("indexed content",
		zap.Int("entries", stats.Total()),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}

// Watch re-indexes after changes under the content directory until ctx is
// done. Failed re-indexes are logged and the previous index stays in place.
func (i *Indexer) Watch(ctx context.Context) error {
	root := i.loader.Dir()
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		i.logger.Warn("content directory not found, not watching", zap.String("dir", root))
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating file watcher: %w", err)
	}
	defer watcher.Close()

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			i.logger.Warn("error walking content directory", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				i.logger.Warn("failed to watch directory", zap.String("path", path), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error walking %s: %w", root, err)
	}
	i.logger.Info("watching content", zap.String("dir", root), zap.Duration("debounce", i.debounce))

	timer := time.NewTimer(i.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			i.logger.Debug("change detected", zap.String("path", event.Name), zap.String("op", event.Op.String()))

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						i.logger.Warn("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
					}
				}
			}
			timer.Reset(i.debounce)

		case <-timer.C:
			if _, err := i.Index(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				i.logger.Error("re-index failed", zap.Error(err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			i.logger.Warn("watcher error", zap.Error(err))
		}
	}
}
