package prefstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_GetMissing(t *testing.T) {
	s := NewFileStore(t.TempDir(), DefaultOrigin)

	v, ok, err := s.Get("deeptrace-theme")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)

	_, err = os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err), "reads must not create the file")
}

func TestFileStore_SetAndGet(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "nested", "prefs"), DefaultOrigin)

	require.NoError(t, s.Set("deeptrace-theme", "dark"))

	v, ok, err := s.Get("deeptrace-theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	e, ok, err := s.Entry("deeptrace-theme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), e.UpdatedAt, 5*time.Second)

	// A second store on the same file sees the value, like a page reload.
	reopened := NewFileStore(filepath.Join(dir, "nested", "prefs"), DefaultOrigin)
	v, _, err = reopened.Get("deeptrace-theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", v)
}

func TestFileStore_FileLayout(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, DefaultOrigin)
	require.NoError(t, s.Set("deeptrace-theme", "light"))

	assert.Equal(t, filepath.Join(dir, "http_localhost_8080.json"), s.Path())

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	var doc originFile
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "http://localhost:8080", doc.Origin)
	assert.Equal(t, CurrentSchemaVersion, doc.SchemaVersion)
	assert.Equal(t, "light", doc.Values["deeptrace-theme"].Value)

	_, err = os.Stat(s.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")
}

func TestFileStore_OriginsAreIsolated(t *testing.T) {
	dir := t.TempDir()
	other, err := ParseOrigin("https://deeptrace.example.org")
	require.NoError(t, err)

	local := NewFileStore(dir, DefaultOrigin)
	remote := NewFileStore(dir, other)

	require.NoError(t, local.Set("deeptrace-theme", "dark"))

	_, ok, err := remote.Get("deeptrace-theme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_CorruptFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, DefaultOrigin)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0600))

	_, ok, err := s.Get("deeptrace-theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("deeptrace-theme", "dark"))
	v, _, err := s.Get("deeptrace-theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", v)
}

func TestFileStore_Clear(t *testing.T) {
	s := NewFileStore(t.TempDir(), DefaultOrigin)
	require.NoError(t, s.Set("deeptrace-theme", "dark"))
	require.NoError(t, s.Set("deeptrace-other", "x"))

	require.NoError(t, s.Clear("deeptrace-theme"))
	require.NoError(t, s.Clear("never-written"))

	_, ok, err := s.Get("deeptrace-theme")
	require.NoError(t, err)
	assert.False(t, ok)

	v, _, err := s.Get("deeptrace-other")
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestFileStore_Unavailable(t *testing.T) {
	// A regular file where the directory should be makes every write fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	s := NewFileStore(filepath.Join(blocker, "prefs"), DefaultOrigin)

	err := s.Set("deeptrace-theme", "dark")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, _, err = s.Get("deeptrace-theme")
	assert.ErrorIs(t, err, ErrUnavailable)
}
