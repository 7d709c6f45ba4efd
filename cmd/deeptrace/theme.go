package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/baytides/deeptrace/internal/config"
	"github.com/baytides/deeptrace/internal/output"
	"github.com/baytides/deeptrace/internal/prefstore"
	"github.com/baytides/deeptrace/internal/theme"
)

var themeOpts struct {
	format string
}

// ThemeStatus describes the effective theme and where it comes from.
type ThemeStatus struct {
	Theme     string     `json:"theme" yaml:"theme"`
	Stored    string     `json:"stored,omitempty" yaml:"stored,omitempty"`
	Key       string     `json:"key" yaml:"key"`
	Origin    string     `json:"origin" yaml:"origin"`
	Backend   string     `json:"backend" yaml:"backend"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	Error     string     `json:"error,omitempty" yaml:"error,omitempty"`
}

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Show or change the dashboard theme",
	Long: `Show or change the light/dark theme preference.

The preference is shared with a running dashboard: changes made here are
picked up by "deeptrace serve" without a restart.

Examples:
  # Show the effective theme
  deeptrace theme

  # Switch to dark
  deeptrace theme dark

  # Flip between light and dark
  deeptrace theme toggle

  # Forget the stored preference (back to light)
  deeptrace theme reset`,
	RunE: runThemeStatus,
}

var themeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the effective theme",
	RunE:  runThemeStatus,
}

var themeLightCmd = &cobra.Command{
	Use:   "light",
	Short: "Switch to the light theme",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runThemeApply(theme.Light)
	},
}

var themeDarkCmd = &cobra.Command{
	Use:   "dark",
	Short: "Switch to the dark theme",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runThemeApply(theme.Dark)
	},
}

var themeSetCmd = &cobra.Command{
	Use:       "set <light|dark>",
	Short:     "Set the theme",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(theme.Light), string(theme.Dark)},
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := theme.Parse(args[0])
		if err != nil {
			return err
		}
		return runThemeApply(t)
	},
}

var themeToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Flip between light and dark",
	Args:  cobra.NoArgs,
	RunE:  runThemeToggle,
}

var themeResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the stored theme preference",
	Args:  cobra.NoArgs,
	RunE:  runThemeReset,
}

var themeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available stylesheets",
	Long: `List bundled and user stylesheets.

User stylesheets live in ~/.config/deeptrace/themes and override bundled
ones with the same name.`,
	Args: cobra.NoArgs,
	RunE: runThemeList,
}

func init() {
	rootCmd.AddCommand(themeCmd)
	themeCmd.AddCommand(themeStatusCmd, themeLightCmd, themeDarkCmd, themeSetCmd,
		themeToggleCmd, themeResetCmd, themeListCmd)

	for _, c := range []*cobra.Command{themeCmd, themeStatusCmd, themeListCmd} {
		c.Flags().StringVarP(&themeOpts.format, "format", "f", "text",
			"Output format (text, json, yaml)")
	}
}

func runThemeStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(themeOpts.format)
	if err != nil {
		return err
	}

	store, origin, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(store)

	ctrl := newController(store)
	status := ThemeStatus{
		Theme:   ctrl.Resolve().String(),
		Key:     ctrl.Key(),
		Origin:  origin.String(),
		Backend: cfg.Theme.Backend,
	}

	if d, ok := store.(prefstore.Describer); ok {
		entry, found, err := d.Entry(ctrl.Key())
		switch {
		case err != nil:
			status.Error = err.Error()
		case found:
			status.Stored = entry.Value
			if !entry.UpdatedAt.IsZero() {
				updated := entry.UpdatedAt
				status.UpdatedAt = &updated
			}
		}
	}

	if format != output.FormatText {
		return output.Encode(os.Stdout, format, status)
	}

	fmt.Printf("Theme:   %s\n", status.Theme)
	switch {
	case status.Error != "":
		fmt.Printf("Stored:  unavailable (%s)\n", status.Error)
	case status.Stored == "":
		fmt.Println("Stored:  (none, using default)")
	case status.UpdatedAt != nil:
		fmt.Printf("Stored:  %s (changed %s)\n", status.Stored, humanize.Time(*status.UpdatedAt))
	default:
		fmt.Printf("Stored:  %s\n", status.Stored)
	}
	fmt.Printf("Origin:  %s\n", status.Origin)
	fmt.Printf("Backend: %s\n", status.Backend)
	return nil
}

func runThemeApply(t theme.Theme) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(store)

	ctrl := newController(store)
	ctrl.Apply(t)
	warnIfNotPersisted(store, ctrl)
	fmt.Printf("Theme set to %s\n", ctrl.Current())
	return nil
}

func runThemeToggle(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(store)

	ctrl := newController(store)
	next := ctrl.Toggle()
	warnIfNotPersisted(store, ctrl)
	fmt.Printf("Theme set to %s\n", next)
	return nil
}

// warnIfNotPersisted tells the user when the change only lived for this
// process. The controller itself never reports storage failures.
func warnIfNotPersisted(store prefstore.Store, ctrl *theme.Controller) {
	v, ok, err := store.Get(ctrl.Key())
	if err != nil || !ok || v != ctrl.Current().String() {
		fmt.Fprintln(os.Stderr, "Warning: preference store unavailable; the change was not saved")
		if err != nil {
			logger.Debug("preference store read-back failed", "error", err)
		}
	}
}

func runThemeReset(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(store)

	clearer, ok := store.(prefstore.Clearer)
	if !ok {
		return fmt.Errorf("backend %q does not support reset", cfg.Theme.Backend)
	}
	if err := clearer.Clear(cfg.Theme.StorageKey); err != nil {
		if errors.Is(err, prefstore.ErrUnavailable) {
			return fmt.Errorf("failed to reset theme: %w", err)
		}
		return err
	}
	fmt.Printf("Theme preference cleared (now %s)\n", theme.Default)
	return nil
}

func runThemeList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(themeOpts.format)
	if err != nil {
		return err
	}

	dir, err := theme.StylesheetsDir()
	if err != nil {
		logger.Debug("no user stylesheet directory", "error", err)
		dir = ""
	}
	sheets, err := theme.ListStylesheets(dir)
	if err != nil {
		return err
	}

	active := cfg.Theme.Stylesheet
	if format != output.FormatText {
		return output.Encode(os.Stdout, format, sheets)
	}

	for _, s := range sheets {
		marker := "  "
		if s.Name == active {
			marker = "* "
		}
		source := "bundled"
		if !s.IsBundled {
			source = s.Path
		}
		fmt.Printf("%s%-12s %s\n", marker, s.Name, source)
	}
	if p := config.ConfigPath(); p != "" {
		fmt.Printf("\nActive stylesheet is set by theme.stylesheet in %s\n", p)
	}
	return nil
}
