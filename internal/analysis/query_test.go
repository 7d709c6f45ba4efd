package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryFixture() []Result {
	now := time.Now().Unix()
	return []Result{
		{ID: "01AAA", Mode: "default", Prompt: "Who was at the dock?", Response: "The night guard", Success: true, CreatedAt: now - 3*86400, DurationMS: 900},
		{ID: "01AAB", Mode: "what-if", Prompt: "What if the alibi fails", Error: "Request failed: 500", CreatedAt: now - 3600, DurationMS: 50},
		{ID: "01BCD", Mode: "default", Prompt: "Timeline for Tuesday", Response: "Dock at 9pm", Success: true, CreatedAt: now - 60, DurationMS: 2400},
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		opts FilterOptions
		want []string
	}{
		{"no filter", FilterOptions{}, []string{"01AAA", "01AAB", "01BCD"}},
		{"since", FilterOptions{Since: 2 * time.Hour}, []string{"01AAB", "01BCD"}},
		{"mode", FilterOptions{Mode: "default"}, []string{"01AAA", "01BCD"}},
		{"failed", FilterOptions{Status: "failed"}, []string{"01AAB"}},
		{"ok", FilterOptions{Status: "ok"}, []string{"01AAA", "01BCD"}},
		{"search prompt or response", FilterOptions{Search: "DOCK"}, []string{"01AAA", "01BCD"}},
		{"limit", FilterOptions{Limit: 1}, []string{"01AAA"}},
		{"combined", FilterOptions{Mode: "default", Since: time.Hour}, []string{"01BCD"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(queryFixture(), tt.opts)
			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestParseSince(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"48h", 48 * time.Hour, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"xd", 0, true},
		{"soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSince(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]string{"": "", "all": "", "success": "ok", "FAILED": "failed"} {
		got, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStatus("maybe")
	assert.Error(t, err)
}

func TestSort(t *testing.T) {
	t.Run("time desc", func(t *testing.T) {
		rs := queryFixture()
		Sort(rs, SortByTime, true)
		assert.Equal(t, "01BCD", rs[0].ID)
		assert.Equal(t, "01AAA", rs[2].ID)
	})

	t.Run("duration asc", func(t *testing.T) {
		rs := queryFixture()
		Sort(rs, ParseSortField("duration"), false)
		assert.Equal(t, []string{"01AAB", "01AAA", "01BCD"}, []string{rs[0].ID, rs[1].ID, rs[2].ID})
	})

	t.Run("mode desc keeps ties stable", func(t *testing.T) {
		rs := queryFixture()
		Sort(rs, SortByMode, true)
		assert.Equal(t, []string{"01AAB", "01AAA", "01BCD"}, []string{rs[0].ID, rs[1].ID, rs[2].ID})
	})

	t.Run("unknown field sorts by time", func(t *testing.T) {
		assert.Equal(t, SortByTime, ParseSortField("bogus"))
	})
}

func TestLookup(t *testing.T) {
	rs := queryFixture()

	t.Run("exact", func(t *testing.T) {
		r, err := Lookup(rs, "01AAB")
		require.NoError(t, err)
		assert.Equal(t, "what-if", r.Mode)
	})

	t.Run("unique prefix case-insensitive", func(t *testing.T) {
		r, err := Lookup(rs, "01b")
		require.NoError(t, err)
		assert.Equal(t, "01BCD", r.ID)
	})

	t.Run("ambiguous prefix", func(t *testing.T) {
		_, err := Lookup(rs, "01AA")
		assert.ErrorContains(t, err, "ambiguous")
	})

	t.Run("not found", func(t *testing.T) {
		_, err := Lookup(rs, "ZZZ")
		assert.ErrorContains(t, err, "no result")
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Lookup(rs, " ")
		assert.Error(t, err)
	})
}
