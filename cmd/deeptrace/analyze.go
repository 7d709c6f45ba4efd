package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baytides/deeptrace/internal/analysis"
	"github.com/baytides/deeptrace/internal/output"
)

var analyzeOpts struct {
	mode      string
	model     string
	format    string
	noHistory bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [prompt...]",
	Short: "Ask the analysis service about a case",
	Long: `Send a question or scenario to the analysis service under one of the
analyst modes. The prompt is read from stdin when no arguments are given.

Examples:
  deeptrace analyze "Who had access to the garage that night?"
  deeptrace analyze --mode devils-advocate < notes.txt
  deeptrace analyze --mode what-if --format json "The witness was mistaken"`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeOpts.mode, "mode", "m", analysis.DefaultMode,
		"Analyst mode (see 'deeptrace modes')")
	analyzeCmd.Flags().StringVar(&analyzeOpts.model, "model", "",
		"Model to use (default: analysis.default_model)")
	analyzeCmd.Flags().StringVarP(&analyzeOpts.format, "format", "f", "text",
		"Output format (text, json, yaml)")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.noHistory, "no-history", false,
		"Do not record the result in history")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(analyzeOpts.format)
	if err != nil {
		return err
	}

	prompt := strings.Join(args, " ")
	if strings.TrimSpace(prompt) == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read prompt from stdin: %w", err)
		}
		prompt = string(data)
	}

	req := analysis.Request{Prompt: prompt, Mode: analyzeOpts.mode, Model: analyzeOpts.model}.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res := newAnalysisClient().Analyze(ctx, req)

	if !analyzeOpts.noHistory {
		recordResult(res)
	}

	switch format {
	case output.FormatText:
		if res.Success {
			fmt.Fprintln(cmd.OutOrStdout(), res.Response)
		}
	default:
		if err := output.Encode(cmd.OutOrStdout(), format, res); err != nil {
			return err
		}
	}

	if !res.Success {
		return errors.New(res.Error)
	}
	return nil
}

func recordResult(res analysis.Result) {
	history, err := openHistory()
	if err != nil {
		logger.Warn("failed to open analysis history", "error", err)
		return
	}
	if history == nil {
		return
	}
	defer history.Close()

	if err := history.Append(res); err != nil {
		logger.Warn("failed to record analysis result", "error", err)
	}
	pruneHistory(history)
}
