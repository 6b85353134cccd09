package tuning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events editors emit on save.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads a tuning file into a Provider when it changes. A file
// that fails to load leaves the previous tuning active.
type Watcher struct {
	path     string
	provider *Provider
	debounce time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher watches path and stores reloads in p.
func NewWatcher(path string, p *Provider, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		provider: p,
		debounce: debounce,
		logger:   logger,
	}
}

// Run blocks until ctx is done. The parent directory is watched so that
// atomic replace-by-rename saves are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	w.logger.Info("Tuning watcher started", "path", w.path, "debounce_ms", w.debounce.Milliseconds())

	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Tuning watcher stopped")
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.schedule()

		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("Tuning watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) reload() {
	t, err := Load(w.path)
	if err != nil {
		w.logger.Warn("Tuning reload rejected, keeping previous values", "path", w.path, "error", err)
		return
	}
	w.provider.Store(t)
	w.logger.Info("Tuning reloaded", "path", w.path, "reloads", w.provider.Reloads())
}
