package theme

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StylesheetsDir returns the directory user stylesheets are loaded from.
func StylesheetsDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		var err error
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(configDir, "deeptrace", "themes"), nil
}

// Loader resolves the dashboard stylesheet and keeps it hot-reloaded.
type Loader struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	dir     string
	sheet   *Stylesheet
	watcher *Watcher
	version time.Time
}

// NewLoader creates a loader reading user stylesheets from dir.
// An empty dir disables user overrides.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, dir: dir}
}

// Load selects a stylesheet by name. Resolution order is the user
// directory, then the bundled stylesheets, then DefaultStylesheet.
func (l *Loader) Load(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if name == "" {
		name = DefaultStylesheet
	}

	if l.dir != "" {
		path := filepath.Join(l.dir, name+".css")
		if _, err := os.Stat(path); err == nil {
			sheet, err := NewStylesheet(name, path)
			if err != nil {
				l.logger.Warn("failed to load user stylesheet, trying bundled", "name", name, "error", err)
			} else {
				l.set(sheet)
				l.logger.Info("loaded user stylesheet", "name", name, "path", path)
				return nil
			}
		}
	}

	if sheet, found := NewBundledStylesheet(name); found {
		l.set(sheet)
		l.logger.Info("loaded bundled stylesheet", "name", name)
		return nil
	}

	l.logger.Warn("stylesheet not found, using default", "name", name)
	sheet, _ := NewBundledStylesheet(DefaultStylesheet)
	l.set(sheet)
	return nil
}

func (l *Loader) set(sheet *Stylesheet) {
	l.sheet = sheet
	l.version = time.Now()
}

// Stylesheet returns the loaded stylesheet, or nil before Load.
func (l *Loader) Stylesheet() *Stylesheet {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sheet
}

// CSS returns the loaded CSS and the time it last changed.
func (l *Loader) CSS() (string, time.Time) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.sheet == nil {
		return "", time.Time{}
	}
	return l.sheet.CSS, l.version
}

// Name returns the loaded stylesheet name.
func (l *Loader) Name() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.sheet == nil {
		return ""
	}
	return l.sheet.Name
}

// List returns all stylesheets available to this loader.
func (l *Loader) List() ([]StylesheetInfo, error) {
	return ListStylesheets(l.dir)
}

// StartHotReload watches the loaded user stylesheet and swaps in changes.
// interval is the quiet period after the last change event before reloading.
// Bundled stylesheets are never watched.
func (l *Loader) StartHotReload(ctx context.Context, interval time.Duration) {
	l.StopHotReload()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sheet == nil || l.sheet.IsBundled {
		l.logger.Debug("not starting hot-reload for bundled stylesheet")
		return
	}

	// The watcher reloads its own copy; changes are swapped in under l.mu.
	watched := *l.sheet
	w := NewWatcher(&watched, l.logger)
	if interval > 0 {
		w.SetReloadDelay(interval)
	}
	w.SetChangeCallback(func(css string) {
		l.mu.Lock()
		next := *l.sheet
		next.CSS = css
		l.sheet = &next
		l.version = time.Now()
		l.mu.Unlock()
		l.logger.Info("hot-reloaded stylesheet", "name", next.Name)
	})
	if err := w.Start(ctx); err != nil {
		l.logger.Warn("failed to start stylesheet watcher", "error", err)
		return
	}
	l.watcher = w
}

// StopHotReload stops the stylesheet watcher, if any.
func (l *Loader) StopHotReload() {
	l.mu.Lock()
	w := l.watcher
	l.watcher = nil
	l.mu.Unlock()

	if w != nil {
		w.Stop()
	}
}
