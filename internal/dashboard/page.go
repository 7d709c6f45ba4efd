package dashboard

import (
	g "maragu.dev/gomponents"
	"maragu.dev/gomponents/html"

	"github.com/baytides/deeptrace/internal/analysis"
	"github.com/baytides/deeptrace/internal/theme"
)

// PageData is everything the dashboard page renders.
type PageData struct {
	Theme      theme.Theme
	Stylesheet string
	Modes      []analysis.Mode
	Selected   string
	Prompt     string
	Result     *analysis.Result
	Year       int
}

// Page renders the full dashboard document. The root element carries the
// effective theme so stylesheets can select on it.
func Page(d PageData) g.Node {
	return html.Doctype(
		html.HTML(
			html.Lang("en"),
			g.Attr(theme.Attribute, d.Theme.String()),
			html.Head(
				html.Meta(html.Charset("utf-8")),
				html.Meta(html.Name("viewport"), html.Content("width=device-width, initial-scale=1")),
				html.TitleEl(g.Text("DeepTrace")),
				g.If(d.Stylesheet != "", html.Link(html.Rel("stylesheet"), html.Href(d.Stylesheet))),
			),
			html.Body(
				header(d.Theme),
				html.Main(
					html.Class("dt-main"),
					analysisForm(d),
					g.If(d.Result != nil, resultPanel(d.Result)),
				),
				html.Footer(
					html.Class("dt-muted"),
					g.Textf("DeepTrace %d", d.Year),
				),
			),
		),
	)
}

func header(t theme.Theme) g.Node {
	next := t.Opposite()
	return html.Header(
		html.Class("dt-header"),
		html.H1(g.Text("DeepTrace")),
		g.El("form",
			html.Method("post"),
			html.Action("/theme/toggle"),
			html.Button(
				html.Type("submit"),
				html.Class("dt-theme-toggle"),
				html.ID("theme-toggle"),
				html.Aria("label", "Switch to "+next.String()+" theme"),
				g.Text(toggleLabel(t)),
			),
		),
	)
}

func toggleLabel(t theme.Theme) string {
	if t == theme.Dark {
		return "Light mode"
	}
	return "Dark mode"
}

func analysisForm(d PageData) g.Node {
	selected := d.Selected
	if selected == "" {
		selected = analysis.DefaultMode
	}

	return html.Section(
		html.Class("dt-panel"),
		html.H2(g.Text("Analyst assistant")),
		g.El("form",
			html.Method("post"),
			html.Action("/analyze"),
			g.El("label", html.For("mode"), g.Text("Mode")),
			html.Select(
				html.ID("mode"),
				html.Name("mode"),
				g.Map(d.Modes, func(m analysis.Mode) g.Node {
					return html.Option(
						html.Value(m.ID),
						g.If(m.ID == selected, html.Selected()),
						g.Text(m.Name),
					)
				}),
			),
			g.El("label", html.For("prompt"), g.Text("Question or scenario")),
			html.Textarea(
				html.ID("prompt"),
				html.Name("prompt"),
				g.Attr("rows", "6"),
				html.Required(),
				html.Placeholder("Describe the case details, evidence, or hypotheses..."),
				g.Text(d.Prompt),
			),
			html.Button(html.Type("submit"), g.Text("Analyze")),
		),
		html.Ul(
			html.Class("dt-muted"),
			g.Map(d.Modes, func(m analysis.Mode) g.Node {
				return html.Li(html.Strong(g.Text(m.Name)), g.Text(": "+m.Description))
			}),
		),
	)
}

func resultPanel(r *analysis.Result) g.Node {
	if !r.Success {
		return html.Section(
			html.Class("dt-panel dt-error"),
			html.Role("alert"),
			html.H2(g.Text("Analysis failed")),
			html.P(g.Text(r.Error)),
		)
	}
	return html.Section(
		html.Class("dt-panel dt-result"),
		html.H2(g.Text("Analysis")),
		html.P(
			html.Class("dt-muted"),
			g.Textf("%s · %s", r.Mode, r.Model),
		),
		html.Pre(g.Text(r.Response)),
	)
}
