package library

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces rapid successive writes to the same path before
// the index reacts.
const debounceWindow = 200 * time.Millisecond

// Watch starts an fsnotify watcher over the category directories and applies
// add/update/delete deltas to the live index until ctx is cancelled. It never
// triggers a full rescan: every event re-parses at most one file.
//
// Events are debounced per path and funnelled through a single delta channel,
// so each upsert or removal is applied atomically by one consumer.
func (l *Library) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := l.store.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	l.logger.Info("watcher: started", slog.String("root", root))

	deltaCh := make(chan string, 64)
	var (
		mu      sync.Mutex
		pending = make(map[string]*time.Timer)
	)

	schedule := func(rel string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := pending[rel]; ok {
			t.Reset(debounceWindow)
			return
		}
		pending[rel] = time.AfterFunc(debounceWindow, func() {
			mu.Lock()
			delete(pending, rel)
			mu.Unlock()
			select {
			case deltaCh <- rel:
			case <-ctx.Done():
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, t := range pending {
				t.Stop()
			}
			mu.Unlock()
			l.logger.Info("watcher: stopped")
			return nil

		case rel := <-deltaCh:
			l.applyDelta(rel)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			// New directories join the watch set; any .md files already
			// inside them are scheduled for indexing.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						l.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					scheduleDirFiles(root, ev.Name, schedule)
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if skipFile(rel) {
				continue
			}

			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule(rel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// applyDelta reconciles one path against disk: present files are upserted,
// missing files are removed. Rename pairs resolve naturally because the old
// path reads as missing and the new path arrives as its own event.
func (l *Library) applyDelta(rel string) {
	if _, err := l.store.Read(rel); err != nil {
		l.Remove(rel)
		l.logger.Debug("watcher: removed", slog.String("path", rel))
		return
	}
	if err := l.Upsert(rel); err != nil {
		l.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	l.logger.Debug("watcher: indexed", slog.String("path", rel))
}

// scheduleDirFiles schedules every .md file under a newly created directory.
func scheduleDirFiles(root, dir string, schedule func(string)) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		schedule(filepath.ToSlash(rel))
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
