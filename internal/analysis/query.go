package analysis

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FilterOptions specifies criteria for filtering recorded results.
type FilterOptions struct {
	Since  time.Duration // Only results newer than now-since (0=all)
	Mode   string        // Exact mode match
	Status string        // "ok", "failed" or "" for any
	Search string        // Case-insensitive substring of prompt or response
	Limit  int           // Maximum results (0=unlimited)
}

// Filter returns the results matching opts, preserving order.
func Filter(results []Result, opts FilterOptions) []Result {
	now := time.Now()
	term := strings.ToLower(opts.Search)
	out := make([]Result, 0, len(results))

	for _, r := range results {
		if opts.Since > 0 && r.Timestamp().Before(now.Add(-opts.Since)) {
			continue
		}
		if opts.Mode != "" && r.Mode != opts.Mode {
			continue
		}
		switch opts.Status {
		case "ok":
			if !r.Success {
				continue
			}
		case "failed":
			if r.Success {
				continue
			}
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(r.Prompt), term) &&
			!strings.Contains(strings.ToLower(r.Response), term) {
			continue
		}
		out = append(out, r)
	}

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

// ParseStatus validates a status filter.
func ParseStatus(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "all":
		return "", nil
	case "ok", "success":
		return "ok", nil
	case "failed", "fail", "error":
		return "failed", nil
	default:
		return "", fmt.Errorf("invalid status: %s (use ok or failed)", s)
	}
}

// ParseSince parses a duration with day and week suffixes.
// Supports: 48h, 7d, 1w, 0 (all time)
func ParseSince(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "0" || s == "" {
		return 0, nil
	}

	if days, found := strings.CutSuffix(s, "d"); found {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	if weeks, found := strings.CutSuffix(s, "w"); found {
		n, err := strconv.Atoi(weeks)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}

// SortField represents a field to sort results by.
type SortField string

const (
	SortByTime     SortField = "time"
	SortByMode     SortField = "mode"
	SortByDuration SortField = "duration"
)

// ParseSortField parses a sort field, defaulting to time.
func ParseSortField(s string) SortField {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mode", "m":
		return SortByMode
	case "duration", "d":
		return SortByDuration
	default:
		return SortByTime
	}
}

// Sort sorts results in place. Ties keep their existing order.
func Sort(results []Result, field SortField, desc bool) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		var less, equal bool
		switch field {
		case SortByMode:
			less, equal = a.Mode < b.Mode, a.Mode == b.Mode
		case SortByDuration:
			less, equal = a.DurationMS < b.DurationMS, a.DurationMS == b.DurationMS
		default:
			less, equal = a.CreatedAt < b.CreatedAt, a.CreatedAt == b.CreatedAt
		}
		if desc {
			return !less && !equal
		}
		return less
	})
}

// Lookup finds a result by ID or unique ID prefix (case-insensitive).
func Lookup(results []Result, id string) (*Result, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return nil, fmt.Errorf("empty result id")
	}

	var match *Result
	for i := range results {
		rid := strings.ToUpper(results[i].ID)
		if rid == id {
			return &results[i], nil
		}
		if strings.HasPrefix(rid, id) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous result id %q", id)
			}
			match = &results[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no result with id %q", id)
	}
	return match, nil
}
