package theme

import (
	"embed"
	"io/fs"
	"path/filepath"
	"strings"
)

// EmbeddedStylesheets contains the bundled dashboard stylesheets.
//
//go:embed stylesheets/*.css
var EmbeddedStylesheets embed.FS

// DefaultStylesheet is the name of the built-in stylesheet.
const DefaultStylesheet = "deeptrace"

// BundledStylesheets lists the embedded stylesheet names.
var BundledStylesheets = []string{"deeptrace", "contrast", "minimal"}

// GetEmbeddedStylesheet returns a bundled stylesheet by name.
// @import statements are left as-is; use ProcessImports to inline them.
func GetEmbeddedStylesheet(name string) (string, bool) {
	data, err := EmbeddedStylesheets.ReadFile("stylesheets/" + name + ".css")
	if err != nil {
		return "", false
	}
	return string(data), true
}

// GetEmbeddedPartial returns a bundled partial. Partials start with an
// underscore and are only meant to be imported.
func GetEmbeddedPartial(name string) (string, bool) {
	if !strings.HasPrefix(name, "_") {
		name = "_" + name
	}
	if !strings.HasSuffix(name, ".css") {
		name += ".css"
	}
	data, err := EmbeddedStylesheets.ReadFile("stylesheets/" + name)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// ListEmbeddedStylesheets returns the names of all bundled stylesheets,
// excluding partials.
func ListEmbeddedStylesheets() []string {
	entries, err := fs.ReadDir(EmbeddedStylesheets, "stylesheets")
	if err != nil {
		return BundledStylesheets
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "_") {
			continue
		}
		if ext := filepath.Ext(name); ext == ".css" {
			names = append(names, strings.TrimSuffix(name, ext))
		}
	}
	return names
}

// IsEmbeddedStylesheet reports whether name is bundled.
func IsEmbeddedStylesheet(name string) bool {
	_, found := GetEmbeddedStylesheet(name)
	return found
}
