package theme

import "sync"

// Attribute is the root-element attribute stylesheets select on.
const Attribute = "data-theme"

// Document is the visual state a theme is applied to. For the dashboard this
// is the root <html> element of every rendered page.
type Document interface {
	SetAttribute(name, value string)
	Attribute(name string) string
}

// Root is an in-memory Document root element shared by page renders.
type Root struct {
	mu    sync.RWMutex
	attrs map[string]string
}

// NewRoot creates an empty root element.
func NewRoot() *Root {
	return &Root{attrs: make(map[string]string)}
}

// SetAttribute sets an attribute on the root element.
func (r *Root) SetAttribute(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attrs[name] = value
}

// Attribute returns an attribute value, or "" when unset.
func (r *Root) Attribute(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.attrs[name]
}
