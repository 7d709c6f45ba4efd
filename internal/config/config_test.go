package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "deeptrace-theme", cfg.Theme.StorageKey)
	assert.Equal(t, "file", cfg.Theme.Backend)
	assert.Equal(t, "deeptrace", cfg.Theme.Stylesheet)
	assert.True(t, cfg.Theme.HotReload)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Listen)
	assert.Equal(t, "http://localhost:8080", cfg.Server.Origin)
	assert.False(t, cfg.Server.PrintURL)
	assert.Equal(t, "https://ai.baytides.org/api/generate", cfg.Analysis.APIURL)
	assert.Equal(t, "qwen2.5:3b-instruct", cfg.Analysis.DefaultModel)
	assert.Equal(t, 30*time.Second, cfg.Analysis.Timeout.Duration())
	assert.Equal(t, 0.7, cfg.Analysis.Temperature)
	assert.Equal(t, 4096, cfg.Analysis.NumPredict)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_DefaultsWhenNoFile(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvModel, "")

	cfg, err := LoadConfig("/nonexistent/path/config.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_ParsesTOML(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvModel, "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[theme]
storage_key = "custom-key"
backend = "redis"
stylesheet = "contrast"
hot_reload = false
hot_reload_interval = "2s"

[server]
listen = "0.0.0.0:9000"
origin = "https://deeptrace.example.org"
print_url = true

[analysis]
api_url = "http://localhost:11434/api/generate"
default_model = "llama3"
timeout = "45s"
temperature = 0.2
num_predict = 1024
history = false

[redis]
addr = "redis:6379"
db = 2
prefix = "dt"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "custom-key", cfg.Theme.StorageKey)
	assert.Equal(t, "redis", cfg.Theme.Backend)
	assert.Equal(t, "contrast", cfg.Theme.Stylesheet)
	assert.False(t, cfg.Theme.HotReload)
	assert.Equal(t, 2*time.Second, cfg.Theme.HotReloadInterval.Duration())
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Listen)
	assert.Equal(t, "https://deeptrace.example.org", cfg.Server.Origin)
	assert.True(t, cfg.Server.PrintURL)
	assert.Equal(t, "http://localhost:11434/api/generate", cfg.Analysis.APIURL)
	assert.Equal(t, "llama3", cfg.Analysis.DefaultModel)
	assert.Equal(t, 45*time.Second, cfg.Analysis.Timeout.Duration())
	assert.Equal(t, 0.2, cfg.Analysis.Temperature)
	assert.Equal(t, 1024, cfg.Analysis.NumPredict)
	assert.False(t, cfg.Analysis.History)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "dt", cfg.Redis.Prefix)
}

func TestLoadConfig_PartialConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[theme]\nstylesheet = \"minimal\"\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "minimal", cfg.Theme.Stylesheet)
	assert.Equal(t, DefaultStorageKey, cfg.Theme.StorageKey)
	assert.Equal(t, DefaultListen, cfg.Server.Listen)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[analysis]\napi_url = \"http://file/api/generate\"\n"), 0644))

	t.Setenv(EnvAPIURL, "http://env/api/generate")
	t.Setenv(EnvModel, "env-model")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env/api/generate", cfg.Analysis.APIURL)
	assert.Equal(t, "env-model", cfg.Analysis.DefaultModel)
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`this is not valid toml [`), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[analysis]\ntimeout = \"soon\"\n"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"memory backend", func(c *Config) { c.Theme.Backend = "memory" }, false},
		{"unknown backend", func(c *Config) { c.Theme.Backend = "cookie" }, true},
		{"redis without addr", func(c *Config) { c.Theme.Backend = "redis"; c.Redis.Addr = "" }, true},
		{"empty storage key", func(c *Config) { c.Theme.StorageKey = " " }, true},
		{"bad listen", func(c *Config) { c.Server.Listen = "8080" }, true},
		{"negative timeout", func(c *Config) { c.Analysis.Timeout = Duration(-time.Second) }, true},
		{"temperature too high", func(c *Config) { c.Analysis.Temperature = 3 }, true},
		{"negative num_predict", func(c *Config) { c.Analysis.NumPredict = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Save(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "config.toml")

	cfg := DefaultConfig()
	cfg.Theme.Stylesheet = "contrast"
	cfg.Analysis.Timeout = Duration(90 * time.Second)

	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "contrast", loaded.Theme.Stylesheet)
	assert.Equal(t, 90*time.Second, loaded.Analysis.Timeout.Duration())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	t.Setenv(EnvDataDir, "")

	assert.Equal(t, "/xdg/config/deeptrace/config.toml", ConfigPath())
	assert.Equal(t, "/xdg/data/deeptrace", DataPath())
	assert.Equal(t, "/xdg/data/deeptrace/prefs", PrefsPath())
	assert.Equal(t, "/xdg/data/deeptrace/history.jsonl", HistoryPath())

	t.Setenv(EnvDataDir, "/cases")
	assert.Equal(t, "/cases", DataPath())
}

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"5s", 5 * time.Second, false},
		{"1h30m", 90 * time.Minute, false},
		{"1500", 1500 * time.Millisecond, false},
		{"0", 0, false},
		{"later", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration())
		})
	}
}
