package theme

import (
	"log/slog"
	"sync"
)

// DefaultKey is the namespaced key the preference is persisted under.
const DefaultKey = "deeptrace-theme"

// Store is the origin-scoped key-value store a Controller persists to.
// Implementations live in internal/prefstore.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Recorder receives controller events. Implemented by internal/metrics.
type Recorder interface {
	ThemeApplied(value string)
	ThemeToggled()
	StorageFailed(op string)
}

// Controller is the single source of truth for the theme the UI is showing.
// It is constructed once per process and injected into whatever needs to
// toggle the theme (HTTP handlers, CLI commands, the TUI).
//
// Storage failures never escape a Controller: reads fall back to the last
// applied value (or Default) and writes are remembered in memory for the
// lifetime of the Controller.
type Controller struct {
	mu       sync.Mutex
	logger   *slog.Logger
	store    Store
	doc      Document
	key      string
	recorder Recorder

	// memory is the last applied theme. It stands in for the store whenever
	// the store cannot be read, or the last write to it failed.
	memory Theme
	stale  bool

	// seen is the raw store value last read or written successfully. While
	// stale, a store value other than seen is an external write and wins.
	seen   string
	seenOK bool
}

// NewController creates a controller. A nil store degrades to memory only,
// a nil document gets a fresh Root, and an empty key uses DefaultKey.
func NewController(store Store, doc Document, key string, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if doc == nil {
		doc = NewRoot()
	}
	if key == "" {
		key = DefaultKey
	}
	return &Controller{
		logger: logger,
		store:  store,
		doc:    doc,
		key:    key,
	}
}

// SetRecorder installs an event recorder.
func (c *Controller) SetRecorder(r Recorder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recorder = r
}

// Key returns the store key the preference is persisted under.
func (c *Controller) Key() string {
	return c.key
}

// Document returns the document the controller applies to.
func (c *Controller) Document() Document {
	return c.doc
}

// Resolve returns the effective theme: the persisted value, else Default.
// It never fails.
func (c *Controller) Resolve() Theme {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolve()
}

// Apply reflects t onto the document and persists it. Invalid values are
// applied as Default.
func (c *Controller) Apply(t Theme) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apply(t)
}

// Toggle flips the effective theme, applies it, and returns the new value.
// Unrecognized persisted values count as light, so they toggle to dark.
func (c *Controller) Toggle() Theme {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.resolve().Opposite()
	c.apply(next)
	if c.recorder != nil {
		c.recorder.ThemeToggled()
	}
	c.logger.Debug("toggled theme", "theme", next)
	return next
}

// Initialize resolves the effective theme and applies it, so the document
// and the store agree even on a first visit. Call once at startup.
func (c *Controller) Initialize() Theme {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.resolve()
	c.apply(t)
	c.logger.Debug("initialized theme", "theme", t, "key", c.key)
	return t
}

// Reload re-resolves the persisted value and mirrors it onto the document
// without writing back. Used when another process changed the store.
func (c *Controller) Reload() Theme {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.resolve()
	if c.doc.Attribute(Attribute) != string(t) {
		c.doc.SetAttribute(Attribute, string(t))
		c.logger.Info("theme changed externally", "theme", t)
	}
	c.memory = t
	return t
}

// Current returns the theme currently shown on the document.
func (c *Controller) Current() Theme {
	return Normalize(c.doc.Attribute(Attribute))
}

func (c *Controller) resolve() Theme {
	if c.store == nil {
		return c.fallback()
	}

	raw, ok, err := c.store.Get(c.key)
	if err != nil {
		c.logger.Debug("theme store read failed, using fallback", "key", c.key, "error", err)
		c.storageFailed("read")
		return c.fallback()
	}
	if c.stale {
		if raw == c.seen && ok == c.seenOK {
			return c.fallback()
		}
		c.logger.Debug("theme store changed externally, dropping unsaved value", "key", c.key)
		c.stale = false
	}
	c.seen, c.seenOK = raw, ok
	if !ok {
		return Default
	}

	t := Normalize(raw)
	if string(t) != raw {
		c.logger.Debug("unrecognized stored theme, treating as light", "key", c.key, "value", raw)
	}
	return t
}

func (c *Controller) apply(t Theme) {
	if !t.Valid() {
		c.logger.Warn("invalid theme applied, using default", "theme", string(t))
		t = Default
	}

	c.doc.SetAttribute(Attribute, string(t))
	c.memory = t

	if c.store != nil {
		if err := c.store.Set(c.key, string(t)); err != nil {
			c.logger.Debug("theme store write failed, keeping value in memory", "key", c.key, "error", err)
			c.storageFailed("write")
			c.stale = true
		} else {
			c.stale = false
			c.seen, c.seenOK = string(t), true
		}
	}

	if c.recorder != nil {
		c.recorder.ThemeApplied(string(t))
	}
}

func (c *Controller) fallback() Theme {
	if c.memory.Valid() {
		return c.memory
	}
	return Default
}

func (c *Controller) storageFailed(op string) {
	if c.recorder != nil {
		c.recorder.StorageFailed(op)
	}
}
