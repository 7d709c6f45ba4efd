package tui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"github.com/baytides/deeptrace/internal/theme"
)

// palette holds the colors for one theme. Values mirror the dashboard
// stylesheet's light and dark custom properties.
type palette struct {
	fg      lipgloss.Color
	muted   lipgloss.Color
	accent  lipgloss.Color
	errorFg lipgloss.Color
	border  lipgloss.Color
}

var palettes = map[theme.Theme]palette{
	theme.Light: {
		fg:      lipgloss.Color("#1d1f21"),
		muted:   lipgloss.Color("#5c6166"),
		accent:  lipgloss.Color("#2f6fb0"),
		errorFg: lipgloss.Color("#b42318"),
		border:  lipgloss.Color("#d9dcdf"),
	},
	theme.Dark: {
		fg:      lipgloss.Color("#e6e8ea"),
		muted:   lipgloss.Color("#9aa1a8"),
		accent:  lipgloss.Color("#6aa6e8"),
		errorFg: lipgloss.Color("#f0716a"),
		border:  lipgloss.Color("#2d3136"),
	},
}

// styles are the lipgloss styles derived from a palette.
type styles struct {
	title  lipgloss.Style
	label  lipgloss.Style
	muted  lipgloss.Style
	key    lipgloss.Style
	err    lipgloss.Style
	status lipgloss.Style
	panel  lipgloss.Style
}

func newStyles(t theme.Theme) styles {
	p, ok := palettes[t]
	if !ok {
		p = palettes[theme.Default]
	}
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(p.accent).Padding(0, 1),
		label:  lipgloss.NewStyle().Foreground(p.muted),
		muted:  lipgloss.NewStyle().Foreground(p.muted),
		key:    lipgloss.NewStyle().Foreground(p.accent),
		err:    lipgloss.NewStyle().Foreground(p.errorFg),
		status: lipgloss.NewStyle().Foreground(p.fg),
		panel:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.border).Padding(0, 1),
	}
}

// applyListStyles recolors the mode list delegate for t.
func applyListStyles(l *list.Model, t theme.Theme) {
	p, ok := palettes[t]
	if !ok {
		p = palettes[theme.Default]
	}
	d := list.NewDefaultDelegate()
	d.Styles.NormalTitle = d.Styles.NormalTitle.Foreground(p.fg)
	d.Styles.NormalDesc = d.Styles.NormalDesc.Foreground(p.muted)
	d.Styles.SelectedTitle = d.Styles.SelectedTitle.Foreground(p.accent).BorderForeground(p.accent)
	d.Styles.SelectedDesc = d.Styles.SelectedDesc.Foreground(p.accent).BorderForeground(p.accent)
	l.SetDelegate(d)
	l.Styles.Title = l.Styles.Title.Background(p.accent)
}
