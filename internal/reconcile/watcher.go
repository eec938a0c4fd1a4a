package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/citypages/internal/category"
	"github.com/starford/citypages/internal/pagegen"
	"github.com/starford/citypages/internal/provision"
)

// Debounce is how long the watcher waits for a burst of file events to
// settle before reconciling.
const Debounce = 200 * time.Millisecond

// Callback is invoked after each watcher-driven reconcile of cat.
type Callback func(cat category.Category, rep Report)

// Watch observes the page directories of cats and reconciles a category
// shortly after one of its page files is created, changed, removed or
// renamed. It blocks until ctx is cancelled.
func Watch(ctx context.Context, svc *provision.Service, cats []category.Category, logger *slog.Logger, cb Callback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := svc.Store().Root()
	byDir := make(map[string]category.Category, len(cats))
	for _, cat := range cats {
		dir := filepath.Join(root, filepath.FromSlash(cat.Dir))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("watcher: create %s: %w", cat.Dir, err)
		}
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watcher: watch %s: %w", cat.Dir, err)
		}
		byDir[dir] = cat
	}

	logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]category.Category)
	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func(cat category.Category) {
		pending[cat.Key] = cat
		if timer == nil {
			timer = time.NewTimer(Debounce)
			fire = timer.C
		} else {
			timer.Reset(Debounce)
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

		case <-fire:
			for key, cat := range pending {
				delete(pending, key)
				rep, err := syncCategory(ctx, svc, cat, logger)
				if err != nil {
					logger.Warn("watcher: reconcile failed",
						slog.String("category", cat.Key), slog.String("error", err.Error()))
					continue
				}
				logger.Debug("watcher: reconciled",
					slog.String("category", cat.Key),
					slog.Int("missing", rep.Missing),
					slog.Int("drifted", rep.Drifted),
					slog.Int("orphans", rep.Orphans))
				if cb != nil {
					cb(cat, rep)
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, pagegen.Ext) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			cat, ok := byDir[filepath.Dir(ev.Name)]
			if !ok {
				continue
			}
			schedule(cat)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
