// Package main provides the CLI entrypoint for deeptrace.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/baytides/deeptrace/internal/analysis"
	"github.com/baytides/deeptrace/internal/config"
	"github.com/baytides/deeptrace/internal/prefstore"
	"github.com/baytides/deeptrace/internal/theme"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		origin     string
		backend    string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "deeptrace",
	Short: "Case analysis dashboard with a persistent light/dark theme",
	Long: `deeptrace serves the DeepTrace case analysis dashboard and manages its
theme preference from the command line.

The theme preference is stored per origin and shared by the dashboard, the
TUI and the theme subcommands. Analysis requests are sent to an
Ollama-compatible service (CARL_API_URL).

Running deeptrace without a subcommand launches the interactive TUI.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if globalOpts.origin != "" {
			cfg.Server.Origin = globalOpts.origin
		}
		if globalOpts.backend != "" {
			cfg.Theme.Backend = globalOpts.backend
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/deeptrace/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.origin, "origin", "",
		"Origin the theme preference is scoped to (default: server.origin)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.backend, "backend", "",
		"Preference store backend: file, memory, redis (default: theme.backend)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// openStore opens the preference store for the configured origin.
func openStore() (prefstore.Store, prefstore.Origin, error) {
	origin, err := prefstore.ParseOrigin(cfg.Server.Origin)
	if err != nil {
		return nil, prefstore.Origin{}, fmt.Errorf("invalid origin: %w", err)
	}

	store, err := prefstore.Open(prefstore.Options{
		Backend:       cfg.Theme.Backend,
		Dir:           config.PrefsPath(),
		RedisAddr:     cfg.Redis.Addr,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		RedisPrefix:   cfg.Redis.Prefix,
		RedisTimeout:  cfg.Redis.Timeout.Duration(),
	}, origin)
	if err != nil {
		return nil, origin, err
	}
	return store, origin, nil
}

// closeStore releases backend connections, if the store holds any.
func closeStore(store prefstore.Store) {
	if c, ok := store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Debug("failed to close preference store", "error", err)
		}
	}
}

// newController wires a theme controller over store.
func newController(store prefstore.Store) *theme.Controller {
	return theme.NewController(store, theme.NewRoot(), cfg.Theme.StorageKey, logger)
}

// newAnalysisClient builds the analysis client from configuration.
func newAnalysisClient() *analysis.Client {
	return analysis.NewClient(analysis.Config{
		APIURL:      cfg.Analysis.APIURL,
		Model:       cfg.Analysis.DefaultModel,
		Timeout:     cfg.Analysis.Timeout.Duration(),
		Temperature: cfg.Analysis.Temperature,
		NumPredict:  cfg.Analysis.NumPredict,
	}, logger)
}

// openHistory opens the analysis history, or returns nil when disabled.
func openHistory() (*analysis.History, error) {
	if !cfg.Analysis.History {
		return nil, nil
	}
	if err := config.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return analysis.NewHistory(config.HistoryPath())
}

// pruneHistory trims the history to the configured size.
func pruneHistory(h *analysis.History) {
	if h == nil || cfg.Analysis.HistoryKeep <= 0 {
		return
	}
	if removed, err := h.Prune(cfg.Analysis.HistoryKeep); err != nil {
		logger.Warn("failed to prune analysis history", "error", err)
	} else if removed > 0 {
		logger.Debug("pruned analysis history", "removed", removed)
	}
}
