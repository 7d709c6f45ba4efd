package main

import (
	"github.com/spf13/cobra"

	"github.com/baytides/deeptrace/internal/prefstore"
	"github.com/baytides/deeptrace/internal/tui"
)

var tuiOpts struct {
	clipboard string
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive TUI",
	Long: `Launch the interactive terminal interface.

The TUI provides:
  - Analyst mode picker
  - Prompt input and scrollable result view
  - Theme toggle shared with the dashboard
  - Copy to clipboard support

Key bindings:
  j/k, ↑/↓    Navigate modes / scroll result
  enter       Select mode / run analysis
  esc         Back
  t           Toggle light/dark theme
  c           Copy response to clipboard
  C / alt+c   Copy result as JSON / YAML
  r           Retry the last analysis
  ?           Show help
  q           Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().StringVar(&tuiOpts.clipboard, "clipboard", "",
		"Clipboard command (auto-detected if empty)")
}

func runTUI(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(store)

	ctrl := newController(store)
	ctrl.Initialize()

	client := newAnalysisClient()
	opts := tui.RunOptions{
		Options: tui.Options{
			Controller: ctrl,
			Analyzer:   client,
			Clipboard:  tuiOpts.clipboard,
			Timeout:    client.Config().Timeout,
		},
		Logger: logger,
	}

	history, err := openHistory()
	if err != nil {
		logger.Warn("analysis history disabled", "error", err)
	}
	if history != nil {
		defer history.Close()
		opts.History = history
	}

	if fs, ok := store.(*prefstore.FileStore); ok {
		opts.StorePath = fs.Path()
	}

	return tui.Run(opts)
}
