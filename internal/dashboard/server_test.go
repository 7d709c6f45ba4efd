package dashboard

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/baytides/deeptrace/internal/analysis"
	"github.com/baytides/deeptrace/internal/metrics"
	"github.com/baytides/deeptrace/internal/prefstore"
	"github.com/baytides/deeptrace/internal/theme"
)

type fakeAnalyzer struct {
	mu        sync.Mutex
	requests  []analysis.Request
	fail      bool
	available bool
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req analysis.Request) analysis.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.fail {
		return analysis.Result{ID: "01TEST", Mode: req.Mode, Error: "Request failed: boom"}
	}
	return analysis.Result{ID: "01TEST", Mode: req.Mode, Model: "fake", Prompt: req.Prompt, Response: "analysis for " + req.Prompt, Success: true}
}

func (f *fakeAnalyzer) Available(context.Context) bool { return f.available }

type fakeHistory struct {
	mu      sync.Mutex
	results []analysis.Result
}

func (h *fakeHistory) Append(r analysis.Result) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, r)
	return nil
}

type fixture struct {
	server     *Server
	store      *prefstore.MemoryStore
	controller *theme.Controller
	analyzer   *fakeAnalyzer
	history    *fakeHistory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := prefstore.NewMemoryStore()
	ctrl := theme.NewController(store, theme.NewRoot(), theme.DefaultKey, nil)
	ctrl.Initialize()

	loader := theme.NewLoader(t.TempDir(), nil)
	require.NoError(t, loader.Load(theme.DefaultStylesheet))

	an := &fakeAnalyzer{available: true}
	hist := &fakeHistory{}
	m := metrics.New()
	ctrl.SetRecorder(m)

	srv, err := New(Options{
		Listen:     "127.0.0.1:0",
		Controller: ctrl,
		Styles:     loader,
		Analyzer:   an,
		History:    hist,
		Metrics:    m.Handler(),
	})
	require.NoError(t, err)

	return &fixture{server: srv, store: store, controller: ctrl, analyzer: an, history: hist}
}

func (f *fixture) do(t *testing.T, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeTheme(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body themeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Theme
}

func TestNew_RequiresController(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestIndex_RendersEffectiveTheme(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(strings.ToLower(body), "<!doctype html>"))
	assert.Contains(t, body, `<html lang="en" data-theme="light">`)
	assert.Contains(t, body, `action="/theme/toggle"`)
	assert.Contains(t, body, `/static/theme.css`)
	for _, m := range analysis.Modes() {
		assert.Contains(t, body, `value="`+m.ID+`"`)
	}

	f.controller.Apply(theme.Dark)
	rec = f.do(t, http.MethodGet, "/", "", nil)
	assert.Contains(t, rec.Body.String(), `data-theme="dark"`)
	assert.Contains(t, rec.Body.String(), "Light mode")
}

func TestTheme_GetAndToggle(t *testing.T) {
	f := newFixture(t)
	jsonHeader := map[string]string{"Accept": "application/json"}

	rec := f.do(t, http.MethodGet, "/theme", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "light", decodeTheme(t, rec))

	rec = f.do(t, http.MethodPost, "/theme/toggle", "", jsonHeader)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dark", decodeTheme(t, rec))

	v, ok, err := f.store.Get(theme.DefaultKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "dark", v)

	rec = f.do(t, http.MethodPost, "/theme/toggle", "", jsonHeader)
	assert.Equal(t, "light", decodeTheme(t, rec))
}

func TestTheme_ToggleFormRedirects(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/theme/toggle", "", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, theme.Dark, f.controller.Current())
}

func TestTheme_Put(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"dark", `{"theme":"dark"}`, http.StatusOK, "dark"},
		{"light mixed case", `{"theme":" Light "}`, http.StatusOK, "light"},
		{"unknown value", `{"theme":"blue"}`, http.StatusBadRequest, "light"},
		{"malformed", `{`, http.StatusBadRequest, "light"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, http.MethodPut, "/theme", tt.body, map[string]string{"Content-Type": "application/json"})
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.want, f.controller.Current().String())
		})
	}
}

func TestTheme_StoreUnavailable(t *testing.T) {
	f := newFixture(t)
	f.store.Fail(true)

	rec := f.do(t, http.MethodPost, "/theme/toggle", "", map[string]string{"Accept": "application/json"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dark", decodeTheme(t, rec))

	rec = f.do(t, http.MethodGet, "/", "", nil)
	assert.Contains(t, rec.Body.String(), `data-theme="dark"`)
}

func TestStylesheet(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/static/theme.css", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/css; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `[data-theme="dark"]`)
	assert.NotContains(t, rec.Body.String(), "@import")
}

func TestModes(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/modes", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var modes []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &modes))
	require.Len(t, modes, len(analysis.Modes()))
	assert.Equal(t, analysis.DefaultMode, modes[0]["id"])
	assert.NotContains(t, modes[0], "system_prompt")
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		fail   bool
		status int
	}{
		{"success", `{"prompt":"who was at the scene?","mode":"devils-advocate"}`, false, http.StatusOK},
		{"default mode", `{"prompt":"who was at the scene?"}`, false, http.StatusOK},
		{"empty prompt", `{"prompt":"  ","mode":"default"}`, false, http.StatusBadRequest},
		{"unknown mode", `{"prompt":"q","mode":"blue-hat"}`, false, http.StatusBadRequest},
		{"malformed", `nope`, false, http.StatusBadRequest},
		{"upstream failure", `{"prompt":"q"}`, true, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.analyzer.fail = tt.fail

			rec := f.do(t, http.MethodPost, "/api/analyze", tt.body, map[string]string{"Content-Type": "application/json"})
			assert.Equal(t, tt.status, rec.Code)

			if tt.status == http.StatusBadRequest {
				assert.Empty(t, f.analyzer.requests)
				assert.Empty(t, f.history.results)
				return
			}

			var res analysis.Result
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			assert.Equal(t, !tt.fail, res.Success)
			assert.NotEmpty(t, res.Mode)
			assert.Len(t, f.history.results, 1)
		})
	}
}

func TestAnalyzeForm(t *testing.T) {
	f := newFixture(t)

	form := url.Values{"prompt": {"check the <alibi>"}, "mode": {"what-if"}}
	rec := f.do(t, http.MethodPost, "/analyze", form.Encode(), map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "analysis for check the &lt;alibi&gt;")
	assert.Contains(t, body, `<option value="what-if" selected>`)
	require.Len(t, f.analyzer.requests, 1)
	assert.Equal(t, "what-if", f.analyzer.requests[0].Mode)

	rec = f.do(t, http.MethodPost, "/analyze", url.Values{"prompt": {""}}.Encode(), map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	assert.Contains(t, rec.Body.String(), "Please enter a question or scenario to analyze.")
	assert.Len(t, f.analyzer.requests, 1)
}

func TestAnalysisHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/analysis/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"available":true}`, rec.Body.String())

	f.analyzer.available = false
	rec = f.do(t, http.MethodGet, "/api/analysis/health", "", nil)
	assert.JSONEq(t, `{"available":false}`, rec.Body.String())
}

func TestHealthzAndMetrics(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	f.do(t, http.MethodPost, "/theme/toggle", "", nil)

	rec = f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "deeptrace_theme_toggles_total 1")
}

func TestServe_GracefulShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Serve(ctx, ln) }()

	client := &http.Client{Timeout: 2 * time.Second}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	client.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
