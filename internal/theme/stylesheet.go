package theme

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// importRegex matches @import "a.css"; @import 'a.css'; and @import url("a.css");
var importRegex = regexp.MustCompile(`@import\s+(?:url\s*\(\s*)?["']([^"']+)["']\s*\)?;?`)

// Stylesheet is a CSS bundle served at /static/theme.css.
type Stylesheet struct {
	Name      string
	Path      string // empty for bundled stylesheets
	CSS       string // imports already inlined
	ModTime   time.Time
	IsBundled bool
}

// NewStylesheet loads a stylesheet from disk and inlines its imports.
func NewStylesheet(name, path string) (*Stylesheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	return &Stylesheet{
		Name:    name,
		Path:    path,
		CSS:     ProcessImports(string(data), filepath.Dir(path), nil),
		ModTime: info.ModTime(),
	}, nil
}

// NewBundledStylesheet returns a bundled stylesheet with imports inlined.
func NewBundledStylesheet(name string) (*Stylesheet, bool) {
	css, found := GetEmbeddedStylesheet(name)
	if !found {
		return nil, false
	}
	return &Stylesheet{
		Name:      name,
		CSS:       ProcessImports(css, "", nil),
		IsBundled: true,
	}, true
}

// ProcessImports inlines @import statements, resolving paths against
// baseDir first and falling back to bundled partials and stylesheets.
// seen guards against import cycles.
func ProcessImports(css, baseDir string, seen map[string]bool) string {
	if seen == nil {
		seen = make(map[string]bool)
	}

	return importRegex.ReplaceAllStringFunc(css, func(match string) string {
		sub := importRegex.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		importPath := sub[1]

		fullPath := importPath
		if !filepath.IsAbs(importPath) {
			fullPath = filepath.Join(baseDir, importPath)
		}
		if seen[fullPath] {
			return "/* circular import prevented: " + importPath + " */"
		}
		seen[fullPath] = true

		if baseDir != "" {
			if data, err := os.ReadFile(fullPath); err == nil {
				return "/* imported: " + importPath + " */\n" +
					ProcessImports(string(data), filepath.Dir(fullPath), seen)
			}
		}

		base := filepath.Base(importPath)
		if strings.HasPrefix(base, "_") {
			if css, found := GetEmbeddedPartial(base); found {
				return "/* imported (embedded): " + importPath + " */\n" + ProcessImports(css, "", seen)
			}
		}
		if css, found := GetEmbeddedStylesheet(strings.TrimSuffix(base, ".css")); found {
			return "/* imported (embedded): " + importPath + " */\n" + ProcessImports(css, "", seen)
		}
		return "/* import failed: " + importPath + " */"
	})
}

// Refresh re-reads a user stylesheet and its imports regardless of
// modification time. It reports whether the CSS changed.
func (s *Stylesheet) Refresh() (bool, error) {
	if s.IsBundled {
		return false, nil
	}

	info, err := os.Stat(s.Path)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return false, err
	}

	css := ProcessImports(string(data), filepath.Dir(s.Path), nil)
	changed := css != s.CSS
	s.CSS = css
	s.ModTime = info.ModTime()
	return changed, nil
}

// StylesheetInfo describes an available stylesheet.
type StylesheetInfo struct {
	Name      string `json:"name" yaml:"name"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	IsDefault bool   `json:"default" yaml:"default"`
	IsBundled bool   `json:"bundled" yaml:"bundled"`
}

// ListStylesheets lists bundled stylesheets followed by user stylesheets in
// dir. User files that shadow a bundled name are reported once, as the
// user override.
func ListStylesheets(dir string) ([]StylesheetInfo, error) {
	var infos []StylesheetInfo
	index := make(map[string]int)

	for _, name := range ListEmbeddedStylesheets() {
		index[name] = len(infos)
		infos = append(infos, StylesheetInfo{
			Name:      name,
			IsDefault: name == DefaultStylesheet,
			IsBundled: true,
		})
	}

	if dir == "" {
		return infos, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return infos, nil
		}
		return infos, err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".css" || strings.HasPrefix(name, "_") {
			continue
		}
		base := strings.TrimSuffix(name, ".css")
		info := StylesheetInfo{Name: base, Path: filepath.Join(dir, name), IsDefault: base == DefaultStylesheet}
		if i, ok := index[base]; ok {
			infos[i] = info
			continue
		}
		index[base] = len(infos)
		infos = append(infos, info)
	}
	return infos, nil
}
