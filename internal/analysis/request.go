package analysis

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Validation errors.
var (
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
	ErrUnknownMode = errors.New("unknown analysis mode")
)

// Request is the body the dashboard sends to POST /api/analyze.
type Request struct {
	Prompt string `json:"prompt"`
	Mode   string `json:"mode"`
	Model  string `json:"model,omitempty"`
}

// Normalize trims the prompt and fills in the default mode.
func (r Request) Normalize() Request {
	r.Prompt = strings.TrimSpace(r.Prompt)
	r.Mode = strings.TrimSpace(r.Mode)
	if r.Mode == "" {
		r.Mode = DefaultMode
	}
	return r
}

// Validate checks a normalized request.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrEmptyPrompt
	}
	if r.Mode != "" {
		if _, ok := LookupMode(r.Mode); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownMode, r.Mode)
		}
	}
	return nil
}

// Result is the outcome of one analysis request. Failures are reported in
// Error with Success false rather than as a Go error, so callers can
// render and record them like any other result.
type Result struct {
	ID         string `json:"id" yaml:"id"`
	Mode       string `json:"mode" yaml:"mode"`
	Model      string `json:"model" yaml:"model"`
	Prompt     string `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Response   string `json:"response" yaml:"response"`
	Success    bool   `json:"success" yaml:"success"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt  int64  `json:"created_at" yaml:"created_at"` // Unix timestamp
	DurationMS int64  `json:"duration_ms" yaml:"duration_ms"`
}

// newResult creates a Result with a fresh ULID.
func newResult(req Request, model string) Result {
	now := time.Now()
	r := Result{
		Mode:      req.Mode,
		Model:     model,
		Prompt:    req.Prompt,
		CreatedAt: now.Unix(),
	}
	if id, err := ulid.New(ulid.Timestamp(now), rand.Reader); err == nil {
		r.ID = id.String()
	}
	return r
}

// Timestamp returns CreatedAt as a time.Time.
func (r Result) Timestamp() time.Time {
	return time.Unix(r.CreatedAt, 0)
}
