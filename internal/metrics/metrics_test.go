package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ThemeApplied("dark")
	m.ThemeApplied("dark")
	m.ThemeApplied("light")
	m.ThemeToggled()
	m.StorageFailed("write")
	m.AnalysisObserved("red-hat", "success", 1500*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.themeApplied.WithLabelValues("dark")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.themeApplied.WithLabelValues("light")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.themeToggles))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storageFailures.WithLabelValues("write")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analysisRequests.WithLabelValues("red-hat", "success")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ThemeToggled()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "deeptrace_theme_toggles_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
