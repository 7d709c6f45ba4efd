package tui

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/baytides/deeptrace/internal/prefstore"
)

// RunOptions configures the TUI program.
type RunOptions struct {
	Options

	// StorePath is the preference file to watch for theme changes made by
	// other processes (empty = no watching).
	StorePath string
	Logger    *slog.Logger
}

// Run starts the TUI and blocks until it exits.
func Run(opts RunOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := New(opts.Options)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if opts.StorePath != "" && opts.Controller != nil {
		ctrl := opts.Controller
		w, err := prefstore.NewFileWatcher(opts.StorePath, func() {
			p.Send(ThemeChangedMsg{Theme: ctrl.Reload()})
		}, logger)
		if err != nil {
			logger.Warn("failed to create preference watcher", "error", err)
		} else {
			if err := w.Start(); err != nil {
				logger.Warn("failed to start preference watcher", "error", err)
			}
			defer func() { _ = w.Stop() }()
		}
	}

	_, err := p.Run()
	return err
}
