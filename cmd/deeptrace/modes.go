package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/baytides/deeptrace/internal/analysis"
	"github.com/baytides/deeptrace/internal/output"
)

var modesOpts struct {
	format string
}

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List analyst modes",
	Args:  cobra.NoArgs,
	RunE:  runModes,
}

func init() {
	rootCmd.AddCommand(modesCmd)

	modesCmd.Flags().StringVarP(&modesOpts.format, "format", "f", "text",
		"Output format (text, json, yaml)")
}

func runModes(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(modesOpts.format)
	if err != nil {
		return err
	}

	modes := analysis.Modes()
	if format != output.FormatText {
		return output.Encode(os.Stdout, format, modes)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, m := range modes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, m.Name, m.Description)
	}
	return tw.Flush()
}
