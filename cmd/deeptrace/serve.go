package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/baytides/deeptrace/internal/dashboard"
	"github.com/baytides/deeptrace/internal/metrics"
	"github.com/baytides/deeptrace/internal/prefstore"
	"github.com/baytides/deeptrace/internal/theme"
)

var serveOpts struct {
	listen     string
	stylesheet string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web dashboard",
	Long: `Run the DeepTrace web dashboard.

The dashboard renders with the stored theme preference, offers a toggle
button, and proxies analysis requests to the configured service. Theme
changes made by other processes (for example "deeptrace theme toggle") are
picked up while the server runs, and user stylesheets are hot-reloaded.

Endpoints:
  GET  /                      Dashboard page
  GET  /theme                 Current theme as JSON
  PUT  /theme                 Set theme: {"theme":"dark"}
  POST /theme/toggle          Flip the theme
  GET  /static/theme.css      Active stylesheet
  GET  /api/modes             Analyst modes
  POST /api/analyze           Run an analysis: {"prompt":"...","mode":"default"}
  GET  /api/analysis/health   Analysis service availability
  GET  /metrics               Prometheus metrics
  GET  /healthz               Liveness`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveOpts.listen, "listen", "l", "",
		"Address to listen on (default: server.listen)")
	serveCmd.Flags().StringVar(&serveOpts.stylesheet, "stylesheet", "",
		"Stylesheet name (default: theme.stylesheet)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listen := cfg.Server.Listen
	if serveOpts.listen != "" {
		listen = serveOpts.listen
	}
	stylesheet := cfg.Theme.Stylesheet
	if serveOpts.stylesheet != "" {
		stylesheet = serveOpts.stylesheet
	}

	store, origin, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(store)

	m := metrics.New()
	ctrl := newController(store)
	ctrl.SetRecorder(m)
	initial := ctrl.Initialize()
	logger.Info("theme initialized", "theme", initial, "origin", origin.String(), "backend", cfg.Theme.Backend)

	dir, err := theme.StylesheetsDir()
	if err != nil {
		logger.Debug("user stylesheets disabled", "error", err)
		dir = ""
	}
	loader := theme.NewLoader(dir, logger)
	if err := loader.Load(stylesheet); err != nil {
		return fmt.Errorf("failed to load stylesheet: %w", err)
	}

	client := newAnalysisClient()
	client.SetObserver(m)

	opts := dashboard.Options{
		Listen:     listen,
		Controller: ctrl,
		Styles:     loader,
		Analyzer:   client,
		Metrics:    m.Handler(),
		Logger:     logger,
	}
	history, err := openHistory()
	if err != nil {
		logger.Warn("analysis history disabled", "error", err)
	}
	if history != nil {
		defer history.Close()
		pruneHistory(history)
		opts.History = history
	}

	srv, err := dashboard.New(opts)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	if fs, ok := store.(*prefstore.FileStore); ok {
		w, err := prefstore.NewFileWatcher(fs.Path(), func() {
			ctrl.Reload()
		}, logger)
		if err != nil {
			logger.Warn("failed to create preference watcher", "error", err)
		} else {
			g.Go(func() error {
				if err := w.Start(); err != nil {
					logger.Warn("failed to start preference watcher", "error", err)
					return nil
				}
				<-gctx.Done()
				return w.Stop()
			})
		}
	}

	if cfg.Theme.HotReload {
		g.Go(func() error {
			loader.StartHotReload(gctx, cfg.Theme.HotReloadInterval.Duration())
			<-gctx.Done()
			loader.StopHotReload()
			return nil
		})
	}

	if cfg.Server.PrintURL {
		fmt.Printf("DeepTrace dashboard: http://%s\n", listen)
	}

	return g.Wait()
}
