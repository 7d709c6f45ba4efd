// Package dashboard serves the DeepTrace web dashboard: the themed document,
// the theme preference endpoints and the analysis request contract.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/baytides/deeptrace/internal/analysis"
	"github.com/baytides/deeptrace/internal/theme"
)

// Analyzer runs analysis requests. Implemented by *analysis.Client.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) analysis.Result
	Available(ctx context.Context) bool
}

// ResultRecorder persists analysis results. Implemented by *analysis.History.
type ResultRecorder interface {
	Append(r analysis.Result) error
}

// Stylesheets provides the active stylesheet. Implemented by *theme.Loader.
type Stylesheets interface {
	CSS() (string, time.Time)
	Name() string
}

// Options configures a Server. Controller is required.
type Options struct {
	Listen     string
	Controller *theme.Controller
	Styles     Stylesheets
	Analyzer   Analyzer
	History    ResultRecorder
	Metrics    http.Handler
	Logger     *slog.Logger
}

// Server is the dashboard HTTP server.
type Server struct {
	listen     string
	controller *theme.Controller
	styles     Stylesheets
	analyzer   Analyzer
	history    ResultRecorder
	metrics    http.Handler
	logger     *slog.Logger
	router     chi.Router

	shutdownTimeout time.Duration
}

// New creates a Server and registers its routes.
func New(opts Options) (*Server, error) {
	if opts.Controller == nil {
		return nil, errors.New("dashboard: theme controller is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		listen:          opts.Listen,
		controller:      opts.Controller,
		styles:          opts.Styles,
		analyzer:        opts.Analyzer,
		history:         opts.History,
		metrics:         opts.Metrics,
		logger:          logger,
		shutdownTimeout: 5 * time.Second,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleIndex)
	r.Post("/analyze", s.handleAnalyzeForm)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/static/theme.css", s.handleStylesheet)

	r.Route("/theme", func(r chi.Router) {
		r.Get("/", s.handleGetTheme)
		r.Put("/", s.handlePutTheme)
		r.Post("/toggle", s.handleToggleTheme)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/modes", s.handleModes)
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/analysis/health", s.handleAnalysisHealth)
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown dashboard server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Debug("dashboard stopped")
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
