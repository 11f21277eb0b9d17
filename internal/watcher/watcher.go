// Package watcher rescans the sound library when files change on disk.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/soundboard/internal/models"
	"github.com/starford/soundboard/internal/storage"
)

// DefaultDebounce is used when Watch is given a non-positive debounce.
const DefaultDebounce = 300 * time.Millisecond

// Rescanner rebuilds the catalog from disk.
type Rescanner interface {
	Rescan(ctx context.Context) (models.Catalog, error)
}

// Watch starts an fsnotify watcher on the library root and its category
// folders and rescans after changes settle, until ctx is cancelled.
//
// New category folders created at runtime are added to the watch list.
// Bursts of events (a copy, a rename) trigger a single rescan once no event
// arrived for the debounce interval.
func Watch(ctx context.Context, root string, debounce time.Duration, rs Rescanner, logger *slog.Logger) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirs(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root), slog.Duration("debounce", debounce))

	// rescanTimer is used to debounce rescans.
	var rescanTimer *time.Timer
	var rescanCh <-chan time.Time

	scheduleRescan := func() {
		if rescanTimer == nil {
			rescanTimer = time.NewTimer(debounce)
			rescanCh = rescanTimer.C
		} else {
			rescanTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if rescanTimer != nil {
				rescanTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-rescanCh:
			cat, err := rs.Rescan(ctx)
			if err != nil {
				logger.Warn("watcher: rescan failed", slog.String("error", err.Error()))
				continue
			}
			logger.Debug("watcher: rescanned", slog.Int("sounds", cat.Len()))

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirs(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					scheduleRescan()
					continue
				}
			}

			// Removed or renamed folders can no longer be inspected.
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 && !storage.IsAudioFile(ev.Name) {
				continue
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			scheduleRescan()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirs adds root and its direct subdirectories to the watcher. Deeper
// folders are not part of the catalog.
func addDirs(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.Add(path); err != nil {
			return err
		}
		if path != root {
			return fs.SkipDir
		}
		return nil
	})
}
