package theme

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDelay coalesces the burst of events an editor save produces.
const DefaultReloadDelay = 250 * time.Millisecond

// Watcher reloads a user stylesheet when it, or a partial it imports from
// the same directory, changes on disk.
type Watcher struct {
	mu     sync.Mutex
	logger *slog.Logger

	sheet    *Stylesheet
	delay    time.Duration
	onChange func(css string)

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a watcher for sheet. The watcher owns sheet from here
// on and reloads it in place.
func NewWatcher(sheet *Stylesheet, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		logger: logger,
		sheet:  sheet,
		delay:  DefaultReloadDelay,
	}
}

// SetReloadDelay sets how long the watcher waits after the last change
// event before reloading.
func (w *Watcher) SetReloadDelay(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.delay = d
}

// SetChangeCallback sets the function receiving the new CSS.
func (w *Watcher) SetChangeCallback(callback func(css string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = callback
}

// Start watches the stylesheet's directory until ctx is done or Stop is
// called. Bundled stylesheets are not watched.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	if w.sheet == nil || w.sheet.IsBundled {
		w.logger.Debug("not watching bundled stylesheet")
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors save by renaming over the file, so watch the directory.
	dir := filepath.Dir(w.sheet.Path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return err
	}

	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.loop(ctx, fsw, w.stopCh, w.doneCh, w.delay)

	w.logger.Debug("stylesheet watcher started", "path", w.sheet.Path, "dir", dir)
	return nil
}

// Stop stops watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	<-done
	w.logger.Debug("stylesheet watcher stopped")
}

// IsRunning reports whether the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, stopCh, doneCh chan struct{}, delay time.Duration) {
	defer close(doneCh)
	defer fsw.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !isStylesheetEvent(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(delay)
			} else {
				timer.Reset(delay)
			}
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("stylesheet watcher error", "error", err)

		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func isStylesheetEvent(event fsnotify.Event) bool {
	if !strings.HasSuffix(event.Name, ".css") {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Chmod)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	sheet := w.sheet
	callback := w.onChange
	w.mu.Unlock()

	changed, err := sheet.Refresh()
	if err != nil {
		w.logger.Debug("failed to reload stylesheet", "path", sheet.Path, "error", err)
		return
	}
	if changed {
		w.logger.Info("stylesheet changed, reloading", "path", sheet.Path)
		if callback != nil {
			callback(sheet.CSS)
		}
	}
}
