// Package tui provides the BubbleTea-based terminal user interface.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/baytides/deeptrace/internal/analysis"
	"github.com/baytides/deeptrace/internal/theme"
)

// View represents the current screen.
type View int

const (
	ViewModes View = iota
	ViewPrompt
	ViewResult
	ViewHelp
)

// Analyzer runs analysis requests. Implemented by *analysis.Client.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) analysis.Result
}

// Recorder persists results. Implemented by *analysis.History.
type Recorder interface {
	Append(r analysis.Result) error
}

// Model is the main TUI model.
type Model struct {
	controller *theme.Controller
	analyzer   Analyzer
	history    Recorder
	clipboard  string

	view     View
	previous View

	// Components
	list     list.Model
	prompt   textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model

	// State
	theme    theme.Theme
	styles   styles
	mode     analysis.Mode
	result   *analysis.Result
	running  bool
	width    int
	height   int
	ready    bool
	keys     KeyMap
	timeout  time.Duration

	statusMsg string
	statusErr bool
}

// modeItem wraps an analysis mode for the list component.
type modeItem struct {
	mode analysis.Mode
}

func (i modeItem) Title() string       { return i.mode.Name }
func (i modeItem) Description() string { return i.mode.Description }
func (i modeItem) FilterValue() string { return i.mode.Name + " " + i.mode.ID }

// Options configures a Model.
type Options struct {
	Controller *theme.Controller
	Analyzer   Analyzer
	History    Recorder
	Clipboard  string        // Clipboard command; auto-detected if empty
	Timeout    time.Duration // Upper bound for one analysis; 0 = none
}

// New creates a new TUI model.
func New(opts Options) Model {
	modes := analysis.Modes()
	items := make([]list.Item, len(modes))
	for i, md := range modes {
		items[i] = modeItem{mode: md}
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "DeepTrace analyst modes"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	in := textinput.New()
	in.Placeholder = "Describe the case details, evidence, or hypotheses..."
	in.CharLimit = analysis.MaxRecordedPrompt
	in.Prompt = "› "

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	current := theme.Default
	if opts.Controller != nil {
		current = opts.Controller.Current()
	}

	m := Model{
		controller: opts.Controller,
		analyzer:   opts.Analyzer,
		history:    opts.History,
		clipboard:  opts.Clipboard,
		view:       ViewModes,
		list:       l,
		prompt:     in,
		spinner:    sp,
		help:       help.New(),
		keys:       DefaultKeyMap(),
		timeout:    opts.Timeout,
		mode:       modes[0],
	}
	m.setTheme(current)
	return m
}

func (m *Model) setTheme(t theme.Theme) {
	m.theme = t
	m.styles = newStyles(t)
	applyListStyles(&m.list, t)
	m.help.Styles.ShortKey = m.styles.key
	m.help.Styles.FullKey = m.styles.key
	m.help.Styles.ShortDesc = m.styles.muted
	m.help.Styles.FullDesc = m.styles.muted
}

// Theme returns the theme the TUI is drawn in.
func (m Model) Theme() theme.Theme {
	return m.theme
}

// CurrentView returns the active screen.
func (m Model) CurrentView() View {
	return m.view
}

// Result returns the last analysis result, if any.
func (m Model) Result() *analysis.Result {
	return m.result
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return nil
}

type analysisDoneMsg struct {
	result analysis.Result
}

// ThemeChangedMsg reports a theme change made outside the TUI.
type ThemeChangedMsg struct {
	Theme theme.Theme
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type copyResultMsg struct {
	err error
}

func status(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.list.SetSize(msg.Width, msg.Height-2)
		m.prompt.Width = msg.Width - 4
		m.viewport = viewport.New(msg.Width, msg.Height-4)
		m.viewport.YPosition = 2
		if m.result != nil {
			m.viewport.SetContent(m.renderResult(*m.result))
		}
		return m, nil

	case ThemeChangedMsg:
		m.setTheme(msg.Theme)
		if m.result != nil {
			m.viewport.SetContent(m.renderResult(*m.result))
		}
		return m, nil

	case analysisDoneMsg:
		m.running = false
		res := msg.result
		m.result = &res
		if m.history != nil {
			if err := m.history.Append(res); err != nil {
				return m, status("Failed to record result: "+err.Error(), true)
			}
		}
		m.view = ViewResult
		m.viewport.SetContent(m.renderResult(res))
		m.viewport.GotoTop()
		return m, nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, status("Copy failed: "+msg.err.Error(), true)
		}
		return m, status("Copied to clipboard", false)
	}

	var cmd tea.Cmd
	switch m.view {
	case ViewModes:
		m.list, cmd = m.list.Update(msg)
	case ViewPrompt:
		m.prompt, cmd = m.prompt.Update(msg)
	case ViewResult:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The prompt swallows printable keys, so only ctrl+c and esc are global there.
	if m.view == ViewPrompt {
		return m.handlePromptKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.ToggleTheme):
		return m.toggleTheme()
	case key.Matches(msg, m.keys.Help):
		if m.view == ViewHelp {
			m.view = m.previous
		} else {
			m.previous = m.view
			m.view = ViewHelp
		}
		return m, nil
	}

	switch m.view {
	case ViewModes:
		return m.handleModesKey(msg)
	case ViewResult:
		return m.handleResultKey(msg)
	case ViewHelp:
		if key.Matches(msg, m.keys.Back) {
			m.view = m.previous
		}
		return m, nil
	}
	return m, nil
}

func (m Model) toggleTheme() (tea.Model, tea.Cmd) {
	next := m.theme.Opposite()
	if m.controller != nil {
		next = m.controller.Toggle()
	}
	m.setTheme(next)
	if m.result != nil {
		m.viewport.SetContent(m.renderResult(*m.result))
	}
	return m, status("Theme: "+next.String(), false)
}

func (m Model) handleModesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Enter) {
		if item, ok := m.list.SelectedItem().(modeItem); ok {
			m.mode = item.mode
		}
		m.view = ViewPrompt
		m.prompt.Focus()
		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEsc:
		m.prompt.Blur()
		m.view = ViewModes
		return m, nil

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		req := analysis.Request{Prompt: m.prompt.Value(), Mode: m.mode.ID}.Normalize()
		if err := req.Validate(); err != nil {
			return m, status("Please enter a question or scenario to analyze.", true)
		}
		if m.analyzer == nil {
			return m, status("Analysis is not configured", true)
		}
		m.running = true
		return m, tea.Batch(m.spinner.Tick, m.runAnalysis(req))
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m Model) handleResultKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.view = ViewPrompt
		m.prompt.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Retry):
		if m.result == nil || m.analyzer == nil || m.running {
			return m, nil
		}
		req := analysis.Request{Prompt: m.prompt.Value(), Mode: m.mode.ID}.Normalize()
		if req.Validate() != nil {
			return m, nil
		}
		m.running = true
		return m, tea.Batch(m.spinner.Tick, m.runAnalysis(req))

	case key.Matches(msg, m.keys.Copy):
		if m.result != nil {
			return m, m.copyToClipboard(m.result.Response)
		}
		return m, nil

	case key.Matches(msg, m.keys.CopyJSON):
		if m.result == nil {
			return m, nil
		}
		data, err := json.MarshalIndent(m.result, "", "  ")
		if err != nil {
			return m, status("Failed to marshal JSON: "+err.Error(), true)
		}
		return m, m.copyToClipboard(string(data))

	case key.Matches(msg, m.keys.CopyYAML):
		if m.result == nil {
			return m, nil
		}
		data, err := yaml.Marshal(m.result)
		if err != nil {
			return m, status("Failed to marshal YAML: "+err.Error(), true)
		}
		return m, m.copyToClipboard(string(data))
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) runAnalysis(req analysis.Request) tea.Cmd {
	an := m.analyzer
	timeout := m.timeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return analysisDoneMsg{result: an.Analyze(ctx, req)}
	}
}

func (m Model) copyToClipboard(text string) tea.Cmd {
	command := m.clipboard
	return func() tea.Msg {
		return copyResultMsg{err: copyText(text, command)}
	}
}

// renderResult renders the result screen body.
func (m Model) renderResult(r analysis.Result) string {
	var b strings.Builder

	b.WriteString(m.styles.label.Render("Mode: ") + m.mode.Name + "\n")
	if r.Model != "" {
		b.WriteString(m.styles.label.Render("Model: ") + r.Model + "\n")
	}
	if r.CreatedAt > 0 {
		b.WriteString(m.styles.label.Render("Time: ") + humanize.Time(r.Timestamp()))
		if r.DurationMS > 0 {
			fmt.Fprintf(&b, " (%s)", (time.Duration(r.DurationMS) * time.Millisecond).Round(time.Millisecond))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if !r.Success {
		b.WriteString(m.styles.err.Render(r.Error) + "\n")
		return b.String()
	}
	b.WriteString(r.Response + "\n")
	return b.String()
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var body string
	switch m.view {
	case ViewModes:
		body = m.list.View()
	case ViewPrompt:
		body = m.viewPrompt()
	case ViewResult:
		body = m.styles.title.Render("Analysis") + "\n" + m.viewport.View()
	case ViewHelp:
		return m.viewHelp()
	}

	return body + "\n" + m.footer()
}

func (m Model) viewPrompt() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render(m.mode.Name) + "\n")
	b.WriteString(m.styles.muted.Render(m.mode.Description) + "\n\n")
	b.WriteString(m.styles.panel.Render(m.prompt.View()) + "\n")
	if m.running {
		b.WriteString(m.spinner.View() + " Analyzing...\n")
	}
	return b.String()
}

func (m Model) footer() string {
	if m.statusMsg != "" {
		if m.statusErr {
			return m.styles.err.Render(m.statusMsg)
		}
		return m.styles.status.Render(m.statusMsg)
	}
	themeTag := m.styles.muted.Render("[" + m.theme.String() + "] ")
	return themeTag + m.help.View(m.keys)
}

func (m Model) viewHelp() string {
	h := m.help
	h.ShowAll = true
	return m.styles.title.Render("Keyboard Shortcuts") + "\n\n" +
		h.View(m.keys) + "\n\n" +
		m.styles.muted.Render("Press ? or esc to return")
}
