package prefstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CurrentSchemaVersion is the version written to preference files.
const CurrentSchemaVersion = 1

// originFile is the on-disk layout of one origin's preferences.
type originFile struct {
	Origin        string               `json:"origin"`
	Values        map[string]fileEntry `json:"values"`
	SchemaVersion int                  `json:"schema_version"`
}

type fileEntry struct {
	Value     string `json:"value"`
	UpdatedAt int64  `json:"updated_at"` // Unix timestamp
}

// FileStore persists one origin's preferences to
// <dir>/<origin key>.json.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	origin Origin
}

// NewFileStore creates a file store for origin under dir. Nothing is
// written until the first Set.
func NewFileStore(dir string, origin Origin) *FileStore {
	return &FileStore{
		path:   filepath.Join(dir, origin.Key()+".json"),
		origin: origin,
	}
}

// Path returns the file backing this store.
func (f *FileStore) Path() string {
	return f.path
}

// Get returns the value for key.
func (f *FileStore) Get(key string) (string, bool, error) {
	e, ok, err := f.Entry(key)
	return e.Value, ok, err
}

// Entry returns the value for key with its write time.
func (f *FileStore) Entry(key string) (Entry, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	doc, err := f.load()
	if err != nil {
		return Entry{}, false, unavailable("get", key, err)
	}
	e, ok := doc.Values[key]
	if !ok {
		return Entry{}, false, nil
	}
	return Entry{Value: e.Value, UpdatedAt: time.Unix(e.UpdatedAt, 0)}, true, nil
}

// Set stores value under key.
func (f *FileStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return unavailable("set", key, err)
	}
	doc.Values[key] = fileEntry{Value: value, UpdatedAt: time.Now().Unix()}
	if err := f.save(doc); err != nil {
		return unavailable("set", key, err)
	}
	return nil
}

// Clear deletes key. Clearing a missing key is not an error.
func (f *FileStore) Clear(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return unavailable("clear", key, err)
	}
	if _, ok := doc.Values[key]; !ok {
		return nil
	}
	delete(doc.Values, key)
	if err := f.save(doc); err != nil {
		return unavailable("clear", key, err)
	}
	return nil
}

// load reads the origin file. A missing or corrupted file is an empty one.
func (f *FileStore) load() (*originFile, error) {
	empty := &originFile{
		Origin:        f.origin.String(),
		Values:        make(map[string]fileEntry),
		SchemaVersion: CurrentSchemaVersion,
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return empty, nil
		}
		return nil, err
	}

	var doc originFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return empty, nil
	}
	if doc.Values == nil {
		doc.Values = make(map[string]fileEntry)
	}
	if doc.SchemaVersion == 0 {
		doc.SchemaVersion = CurrentSchemaVersion
	}
	return &doc, nil
}

// save writes the origin file atomically via a temp file.
func (f *FileStore) save(doc *originFile) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, f.path)
}
