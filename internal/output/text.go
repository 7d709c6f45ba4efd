package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/baytides/deeptrace/internal/analysis"
)

// TextFormatter formats results as human-readable text.
type TextFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(opts FormatterOptions) *TextFormatter {
	f := &TextFormatter{opts: opts}

	if opts.Template != "" {
		tmpl, err := template.New("text").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}
	return f
}

// Format writes results as text.
func (f *TextFormatter) Format(w io.Writer, results []analysis.Result) error {
	for i := range results {
		if err := f.formatResult(w, i+1, &results[i]); err != nil {
			return err
		}
	}
	return nil
}

// templateData provides data for custom templates.
type templateData struct {
	Index        int
	Result       *analysis.Result
	RelativeTime string
}

func (f *TextFormatter) formatResult(w io.Writer, index int, r *analysis.Result) error {
	if f.template != nil {
		return f.template.Execute(w, templateData{
			Index:        index,
			Result:       r,
			RelativeTime: RelativeTime(r.CreatedAt),
		})
	}

	var sb strings.Builder

	if f.opts.ShowIndex {
		fmt.Fprintf(&sb, "[%d] ", index)
	}
	fmt.Fprintf(&sb, "<%s> ", r.Mode)
	if r.Success {
		sb.WriteString("ok")
	} else {
		sb.WriteString("failed")
	}
	if r.Model != "" {
		fmt.Fprintf(&sb, " %s", r.Model)
	}
	if f.opts.ShowTime {
		fmt.Fprintf(&sb, " (%s)", RelativeTime(r.CreatedAt))
	}
	sb.WriteString("\n")

	if f.opts.ShowPrompt && r.Prompt != "" {
		sb.WriteString("    Q: " + sanitize(r.Prompt, f.opts.BodyMaxLen, false) + "\n")
	}

	body := r.Response
	if !r.Success {
		body = r.Error
	}
	if body != "" {
		sb.WriteString("    " + sanitize(body, f.opts.BodyMaxLen, f.opts.IncludeNewline) + "\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": func(s string, maxLen int) string {
			if maxLen <= 0 || len(s) <= maxLen {
				return s
			}
			if maxLen <= 3 {
				return s[:maxLen]
			}
			return s[:maxLen-3] + "..."
		},
		"reltime": RelativeTime,
	}
}

// RelativeTime returns a human-readable relative time for a Unix timestamp.
func RelativeTime(timestamp int64) string {
	if timestamp == 0 {
		return "unknown"
	}
	return humanize.Time(time.Unix(timestamp, 0))
}

// sanitize cleans up text for single-line display.
func sanitize(s string, maxLen int, includeNewline bool) string {
	if !includeNewline {
		s = strings.ReplaceAll(s, "\n", " ")
		s = strings.ReplaceAll(s, "\r", "")
		s = strings.Join(strings.Fields(s), " ")
	}
	s = strings.TrimSpace(s)

	if maxLen > 0 && len(s) > maxLen {
		if maxLen <= 3 {
			return s[:maxLen]
		}
		return s[:maxLen-3] + "..."
	}
	return s
}
