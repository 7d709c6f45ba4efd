package output

import (
	"fmt"
	"io"

	"github.com/baytides/deeptrace/internal/analysis"
)

// IDsFormatter outputs just the result IDs, one per line.
type IDsFormatter struct{}

// NewIDsFormatter creates a new IDs formatter.
func NewIDsFormatter() *IDsFormatter {
	return &IDsFormatter{}
}

// Format writes result IDs to the writer, one per line.
func (f *IDsFormatter) Format(w io.Writer, results []analysis.Result) error {
	for _, r := range results {
		if _, err := fmt.Fprintln(w, r.ID); err != nil {
			return err
		}
	}
	return nil
}
