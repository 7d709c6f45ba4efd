// Package output provides output formatters for analysis results and
// status documents.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/baytides/deeptrace/internal/analysis"
)

// Formatter formats analysis results for output.
type Formatter interface {
	// Format writes formatted results to the writer.
	Format(w io.Writer, results []analysis.Result) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatText FormatType = "text"
	FormatJSON FormatType = "json"
	FormatYAML FormatType = "yaml"
	FormatIDs  FormatType = "ids"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (FormatType, error) {
	switch f := FormatType(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML, FormatIDs:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json, yaml or ids)", s)
	}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return encoderFormatter{format: FormatJSON}
	case FormatYAML:
		return encoderFormatter{format: FormatYAML}
	case FormatIDs:
		return NewIDsFormatter()
	case FormatText:
		fallthrough
	default:
		return NewTextFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template       string // Custom template for text format
	ShowIndex      bool   // Show 1-based index prefix
	ShowTime       bool   // Show relative time
	ShowPrompt     bool   // Show the recorded prompt
	BodyMaxLen     int    // Maximum response length (0 = unlimited)
	IncludeNewline bool   // Keep newlines in the response (default: replace with space)
}

// DefaultFormatterOptions returns sensible defaults for text output.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex:  true,
		ShowTime:   true,
		ShowPrompt: true,
		BodyMaxLen: 120,
	}
}

// Encode writes v as indented JSON or YAML.
func Encode(w io.Writer, format FormatType, v any) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("format %q cannot encode structured values", format)
	}
}

// encoderFormatter writes results as a JSON or YAML list.
type encoderFormatter struct {
	format FormatType
}

func (f encoderFormatter) Format(w io.Writer, results []analysis.Result) error {
	if results == nil {
		results = []analysis.Result{}
	}
	return Encode(w, f.format, results)
}
