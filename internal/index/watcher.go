package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow batches change bursts (editor saves, bulk backlink
// updates) into a single rebuild.
const debounceWindow = 300 * time.Millisecond

// Watch starts an fsnotify watcher on root and triggers a manager rebuild
// after each debounced burst of .md changes, until ctx is cancelled. New
// directories created at runtime are added to the watch list. cb (if
// non-nil) runs after every rebuild that actually swapped the index,
// receiving the root-relative paths of the burst, sorted and deduplicated.
func Watch(ctx context.Context, m *Manager, root string, logger *slog.Logger, cb func(changed []string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))

	var timer *time.Timer
	var timerCh <-chan time.Time
	pending := make(map[string]struct{})
	schedule := func(name string) {
		if name != "" {
			if rel, relErr := filepath.Rel(root, name); relErr == nil {
				pending[rel] = struct{}{}
			}
		}
		if timer == nil {
			timer = time.NewTimer(debounceWindow)
			timerCh = timer.C
		} else {
			timer.Reset(debounceWindow)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			burst := make([]string, 0, len(pending))
			for p := range pending {
				burst = append(burst, p)
			}
			sort.Strings(burst)
			clear(pending)

			changed, err := m.Rebuild()
			if err != nil {
				logger.Warn("watcher: rebuild failed", slog.String("error", err.Error()))
				continue
			}
			if changed && cb != nil {
				cb(burst)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					schedule("")
					continue
				}
			}
			if !strings.HasSuffix(strings.ToLower(ev.Name), ".md") {
				continue
			}
			schedule(ev.Name)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
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
