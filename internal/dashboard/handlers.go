package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/baytides/deeptrace/internal/analysis"
	"github.com/baytides/deeptrace/internal/theme"
)

// themeResponse is the body of the /theme endpoints.
type themeResponse struct {
	Theme string `json:"theme"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Available bool   `json:"available"`
	URL       string `json:"url,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetTheme(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, themeResponse{Theme: s.controller.Current().String()})
}

func (s *Server) handlePutTheme(w http.ResponseWriter, r *http.Request) {
	var body themeResponse
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := theme.Parse(body.Theme)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.controller.Apply(t)
	writeJSON(w, http.StatusOK, themeResponse{Theme: s.controller.Current().String()})
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	next := s.controller.Toggle()
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, themeResponse{Theme: next.String()})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleStylesheet(w http.ResponseWriter, r *http.Request) {
	if s.styles == nil {
		http.NotFound(w, r)
		return
	}
	css, modTime := s.styles.CSS()
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, "theme.css", modTime, strings.NewReader(css))
}

func (s *Server) handleModes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, analysis.Modes())
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "analysis is not configured")
		return
	}

	var req analysis.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.analyzer.Analyze(r.Context(), req)
	s.record(res)

	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	res.Prompt = ""
	writeJSON(w, status, res)
}

func (s *Server) handleAnalysisHealth(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		writeJSON(w, http.StatusOK, healthResponse{})
		return
	}
	resp := healthResponse{Available: s.analyzer.Available(r.Context())}
	if c, ok := s.analyzer.(interface{ TagsURL() string }); ok {
		resp.URL = c.TagsURL()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, PageData{Selected: r.URL.Query().Get("mode")})
}

// handleAnalyzeForm runs an analysis submitted from the page form and renders
// the page with the result. Validation failures render as failed results.
func (s *Server) handleAnalyzeForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	req := analysis.Request{Prompt: r.PostForm.Get("prompt"), Mode: r.PostForm.Get("mode")}.Normalize()
	data := PageData{Selected: req.Mode, Prompt: req.Prompt}

	switch err := req.Validate(); {
	case errors.Is(err, analysis.ErrEmptyPrompt):
		data.Result = &analysis.Result{Mode: req.Mode, Error: "Please enter a question or scenario to analyze."}
	case err != nil:
		data.Result = &analysis.Result{Mode: req.Mode, Error: err.Error()}
	case s.analyzer == nil:
		data.Result = &analysis.Result{Mode: req.Mode, Error: "analysis is not configured"}
	default:
		res := s.analyzer.Analyze(r.Context(), req)
		s.record(res)
		data.Result = &res
	}

	s.renderPage(w, data)
}

func (s *Server) renderPage(w http.ResponseWriter, data PageData) {
	data.Theme = s.controller.Current()
	data.Stylesheet = s.stylesheetHref()
	data.Modes = analysis.Modes()
	data.Year = time.Now().Year()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := Page(data).Render(w); err != nil {
		s.logger.Error("failed to render page", "error", err)
	}
}

func (s *Server) record(res analysis.Result) {
	if s.history == nil {
		return
	}
	if err := s.history.Append(res); err != nil {
		s.logger.Warn("failed to record analysis result", "error", err)
	}
}

func (s *Server) stylesheetHref() string {
	if s.styles == nil {
		return ""
	}
	_, modTime := s.styles.CSS()
	if modTime.IsZero() {
		return "/static/theme.css"
	}
	return "/static/theme.css?v=" + modTime.Format("20060102150405.000")
}
