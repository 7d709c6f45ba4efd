package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Defaults for the analysis service, overridable through configuration
// and the CARL_API_URL / CARL_DEFAULT_MODEL environment variables.
const (
	DefaultAPIURL      = "https://ai.baytides.org/api/generate"
	DefaultModel       = "qwen2.5:3b-instruct"
	DefaultTimeout     = 30 * time.Second
	DefaultTemperature = 0.7
	DefaultNumPredict  = 4096

	healthTimeout = 5 * time.Second
)

// Config configures a Client.
type Config struct {
	APIURL      string
	Model       string
	Timeout     time.Duration
	Temperature float64
	NumPredict  int
}

// DefaultConfig returns the service defaults. Temperature is taken from
// Config as given, so callers start from here rather than a zero Config.
func DefaultConfig() Config {
	return Config{
		APIURL:      DefaultAPIURL,
		Model:       DefaultModel,
		Timeout:     DefaultTimeout,
		Temperature: DefaultTemperature,
		NumPredict:  DefaultNumPredict,
	}
}

// Observer receives per-request outcomes. Implemented by internal/metrics.
type Observer interface {
	AnalysisObserved(mode, outcome string, d time.Duration)
}

// Outcome labels passed to Observer.
const (
	OutcomeSuccess = "success"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// Client talks to the analysis service.
type Client struct {
	cfg      Config
	http     *http.Client
	logger   *slog.Logger
	observer Observer
}

// NewClient creates a client, filling unset URL, model, timeout and
// num_predict with defaults. A zero Temperature is sent as zero.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.NumPredict <= 0 {
		cfg.NumPredict = DefaultNumPredict
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: logger,
	}
}

// SetObserver installs a request observer.
func (c *Client) SetObserver(o Observer) {
	c.observer = o
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// generateRequest is the Ollama /api/generate payload.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

// BuildPrompt prefixes the user's prompt with the mode's system prompt.
func BuildPrompt(mode, prompt string) string {
	return SystemPrompt(mode) + "\n\nUser Query:\n" + prompt
}

// Analyze sends one request to the service. It never returns a Go error:
// transport failures, timeouts and bad responses end up in Result.Error.
// No retries are attempted.
func (c *Client) Analyze(ctx context.Context, req Request) Result {
	req = req.Normalize()
	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}

	start := time.Now()
	res := newResult(req, model)
	outcome := c.do(ctx, req, model, &res)
	elapsed := time.Since(start)
	res.DurationMS = elapsed.Milliseconds()

	if c.observer != nil {
		c.observer.AnalysisObserved(req.Mode, outcome, elapsed)
	}
	return res
}

func (c *Client) do(ctx context.Context, req Request, model string, res *Result) string {
	payload, err := json.Marshal(generateRequest{
		Model:  model,
		Prompt: BuildPrompt(req.Mode, req.Prompt),
		Stream: false,
		Options: generateOptions{
			Temperature: c.cfg.Temperature,
			NumPredict:  c.cfg.NumPredict,
		},
	})
	if err != nil {
		res.Error = "Unexpected error: " + err.Error()
		return OutcomeError
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		res.Error = "Request failed: " + err.Error()
		return OutcomeError
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Error("analysis request timed out", "timeout", c.cfg.Timeout, "mode", req.Mode)
			res.Error = fmt.Sprintf("Request timed out after %d seconds", int(c.cfg.Timeout.Seconds()))
			return OutcomeTimeout
		}
		c.logger.Error("analysis request failed", "error", err, "mode", req.Mode)
		res.Error = "Request failed: " + err.Error()
		return OutcomeError
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("analysis service returned an error", "status", resp.StatusCode, "mode", req.Mode)
		res.Error = fmt.Sprintf("Request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
		return OutcomeError
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		c.logger.Error("failed to decode analysis response", "error", err)
		res.Error = "Unexpected error: " + err.Error()
		return OutcomeError
	}

	res.Response = gen.Response
	if gen.Model != "" {
		res.Model = gen.Model
	}
	res.Success = true
	return OutcomeSuccess
}

// TagsURL returns the service's model listing endpoint, used as a health
// check.
func (c *Client) TagsURL() string {
	if strings.Contains(c.cfg.APIURL, "/api/generate") {
		return strings.Replace(c.cfg.APIURL, "/api/generate", "/api/tags", 1)
	}
	u, err := url.Parse(c.cfg.APIURL)
	if err != nil {
		return c.cfg.APIURL
	}
	u.Path = "/api/tags"
	u.RawQuery = ""
	return u.String()
}

// Available reports whether the service answers its health check.
func (c *Client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.TagsURL(), nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("analysis service unreachable", "url", c.TagsURL(), "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}
