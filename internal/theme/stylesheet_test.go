package theme

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestBundledStylesheets_SelectOnThemeAttribute(t *testing.T) {
	for _, name := range BundledStylesheets {
		t.Run(name, func(t *testing.T) {
			sheet, found := NewBundledStylesheet(name)
			require.True(t, found)

			assert.Contains(t, sheet.CSS, `[data-theme="light"]`)
			assert.Contains(t, sheet.CSS, `[data-theme="dark"]`)
			assert.NotContains(t, sheet.CSS, "import failed")
			assert.Equal(t, strings.Count(sheet.CSS, "{"), strings.Count(sheet.CSS, "}"),
				"stylesheet %s should have balanced braces", name)
		})
	}
}

func TestListEmbeddedStylesheets(t *testing.T) {
	names := ListEmbeddedStylesheets()
	assert.ElementsMatch(t, BundledStylesheets, names)
	for _, name := range names {
		assert.False(t, strings.HasPrefix(name, "_"), "partial %s listed", name)
	}
}

func TestIsEmbeddedStylesheet(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"deeptrace", true},
		{"contrast", true},
		{"minimal", true},
		{"_palette", false},
		{"nonexistent", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsEmbeddedStylesheet(tt.name))
		})
	}
}

func TestGetEmbeddedPartial(t *testing.T) {
	css, found := GetEmbeddedPartial("palette")
	require.True(t, found)
	assert.Contains(t, css, "--accent")

	_, found = GetEmbeddedPartial("_nonexistent.css")
	assert.False(t, found)
}

func TestProcessImports_FileImport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_custom.css"), []byte(`:root { --custom: #ff0000; }`), 0644))

	result := ProcessImports(`@import "_custom.css";
.dt-panel { color: var(--custom); }`, dir, nil)

	assert.Contains(t, result, "/* imported: _custom.css */")
	assert.Contains(t, result, "--custom: #ff0000")
	assert.Contains(t, result, ".dt-panel")
}

func TestProcessImports_CircularPrevention(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_a.css"), []byte("@import \"_b.css\";\n.a {}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_b.css"), []byte("@import \"_a.css\";\n.b {}"), 0644))

	result := ProcessImports(`@import "_a.css";`, dir, nil)

	assert.Contains(t, result, "/* imported: _a.css */")
	assert.Contains(t, result, "/* imported: _b.css */")
	assert.Contains(t, result, "/* circular import prevented: _a.css */")
}

func TestProcessImports_FallsBackToEmbedded(t *testing.T) {
	result := ProcessImports(`@import "deeptrace.css";`, t.TempDir(), nil)
	assert.Contains(t, result, "/* imported (embedded): deeptrace.css */")
	assert.Contains(t, result, ".dt-header")

	result = ProcessImports(`@import "missing.css";`, t.TempDir(), nil)
	assert.Contains(t, result, "/* import failed: missing.css */")
}

func TestImportRegex(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`@import "file.css";`, "file.css"},
		{`@import 'file.css';`, "file.css"},
		{`@import url("file.css");`, "file.css"},
		{`@import url( "file.css" );`, "file.css"},
		{`@import "_partial.css"`, "_partial.css"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m := importRegex.FindStringSubmatch(tt.input)
			require.Len(t, m, 2)
			assert.Equal(t, tt.expected, m[1])
		})
	}
}

func TestLoader_ResolutionOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "contrast.css"), []byte(`.override { color: red; }`), 0644))

	l := NewLoader(dir, nil)

	require.NoError(t, l.Load("contrast"))
	sheet := l.Stylesheet()
	assert.False(t, sheet.IsBundled, "user file should shadow the bundled stylesheet")
	assert.Contains(t, sheet.CSS, ".override")

	require.NoError(t, l.Load("minimal"))
	assert.True(t, l.Stylesheet().IsBundled)
	assert.Equal(t, "minimal", l.Name())

	require.NoError(t, l.Load("nope"))
	assert.Equal(t, DefaultStylesheet, l.Name())

	require.NoError(t, l.Load(""))
	css, version := l.CSS()
	assert.Contains(t, css, ".dt-header")
	assert.False(t, version.IsZero())
}

func TestListStylesheets_UserOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deeptrace.css"), []byte(`.x {}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "casefile.css"), []byte(`.y {}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_shared.css"), []byte(`.z {}`), 0644))

	infos, err := ListStylesheets(dir)
	require.NoError(t, err)

	byName := make(map[string]StylesheetInfo)
	for _, info := range infos {
		byName[info.Name] = info
	}
	assert.Len(t, infos, 4)
	assert.False(t, byName["deeptrace"].IsBundled)
	assert.True(t, byName["deeptrace"].IsDefault)
	assert.True(t, byName["minimal"].IsBundled)
	assert.Equal(t, filepath.Join(dir, "casefile.css"), byName["casefile"].Path)
	assert.NotContains(t, byName, "_shared")
}

func TestLoader_HotReload(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "casefile.css")
	require.NoError(t, os.WriteFile(path, []byte(`.before {}`), 0644))

	l := NewLoader(dir, nil)
	require.NoError(t, l.Load("casefile"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l.StartHotReload(ctx, 10*time.Millisecond)
	defer l.StopHotReload()

	require.NoError(t, os.WriteFile(path, []byte(`.after {}`), 0644))

	assert.Eventually(t, func() bool {
		css, _ := l.CSS()
		return strings.Contains(css, ".after")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_ReloadsOnRenameAndImportedPartial(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "casefile.css")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_tokens.css"), []byte(`:root { --accent: red; }`), 0644))
	require.NoError(t, os.WriteFile(path, []byte(`@import "_tokens.css";`), 0644))

	sheet, err := NewStylesheet("casefile", path)
	require.NoError(t, err)

	changes := make(chan string, 8)
	w := NewWatcher(sheet, nil)
	w.SetReloadDelay(10 * time.Millisecond)
	w.SetChangeCallback(func(css string) { changes <- css })
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	assert.True(t, w.IsRunning())

	// Editor-style save: write a temp file and rename it over the original.
	tmp := filepath.Join(dir, "casefile.css.swp")
	require.NoError(t, os.WriteFile(tmp, []byte(`@import "_tokens.css"; .saved {}`), 0644))
	require.NoError(t, os.Rename(tmp, path))

	select {
	case css := <-changes:
		assert.Contains(t, css, ".saved")
	case <-time.After(2 * time.Second):
		t.Fatal("no reload after rename")
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "_tokens.css"), []byte(`:root { --accent: blue; }`), 0644))

	select {
	case css := <-changes:
		assert.Contains(t, css, "blue")
	case <-time.After(2 * time.Second):
		t.Fatal("no reload after partial changed")
	}

	// Non-stylesheet files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	select {
	case css := <-changes:
		t.Fatalf("unexpected reload: %s", css)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_IgnoresBundled(t *testing.T) {
	sheet, _ := NewBundledStylesheet(DefaultStylesheet)
	w := NewWatcher(sheet, nil)
	require.NoError(t, w.Start(context.Background()))
	assert.False(t, w.IsRunning())
	w.Stop()
}
