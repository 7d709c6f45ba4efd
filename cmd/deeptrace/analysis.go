package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/baytides/deeptrace/internal/analysis"
	"github.com/baytides/deeptrace/internal/config"
	"github.com/baytides/deeptrace/internal/output"
)

var analysisOpts struct {
	format   string
	limit    int
	keep     int
	template string
	since    string
	mode     string
	status   string
	search   string
	sort     string
}

var analysisCmd = &cobra.Command{
	Use:   "analysis",
	Short: "Inspect the analysis service and history",
}

var analysisStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the analysis service is reachable",
	Args:  cobra.NoArgs,
	RunE:  runAnalysisStatus,
}

var analysisHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded analysis results",
	Long: `Show recorded analysis results, newest first.

Examples:
  deeptrace analysis history --limit 5
  deeptrace analysis history --since 7d --mode what-if
  deeptrace analysis history --status failed --sort duration
  deeptrace analysis history --format json
  deeptrace analysis history --template '{{.Result.Mode}} {{reltime .Result.CreatedAt}}{{"\n"}}'`,
	Args: cobra.NoArgs,
	RunE: runAnalysisHistory,
}

var analysisShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recorded result by ID or ID prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalysisShow,
}

var analysisPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Keep only the most recent analysis results",
	Args:  cobra.NoArgs,
	RunE:  runAnalysisPrune,
}

func init() {
	rootCmd.AddCommand(analysisCmd)
	analysisCmd.AddCommand(analysisStatusCmd, analysisHistoryCmd, analysisShowCmd, analysisPruneCmd)

	analysisStatusCmd.Flags().StringVarP(&analysisOpts.format, "format", "f", "text",
		"Output format (text, json, yaml)")
	analysisHistoryCmd.Flags().StringVarP(&analysisOpts.format, "format", "f", "text",
		"Output format (text, json, yaml, ids)")
	analysisHistoryCmd.Flags().IntVarP(&analysisOpts.limit, "limit", "n", 20,
		"Maximum results to show (0 = all)")
	analysisHistoryCmd.Flags().StringVar(&analysisOpts.template, "template", "",
		"Custom Go template for text output")
	analysisHistoryCmd.Flags().StringVar(&analysisOpts.since, "since", "0",
		"Only results newer than this (e.g. 48h, 7d, 1w; 0 = all)")
	analysisHistoryCmd.Flags().StringVarP(&analysisOpts.mode, "mode", "m", "",
		"Only results for this analyst mode")
	analysisHistoryCmd.Flags().StringVar(&analysisOpts.status, "status", "",
		"Only ok or failed results")
	analysisHistoryCmd.Flags().StringVarP(&analysisOpts.search, "search", "s", "",
		"Only results whose prompt or response contains this text")
	analysisHistoryCmd.Flags().StringVar(&analysisOpts.sort, "sort", "time:desc",
		"Sort field and order (time, mode, duration; :asc or :desc)")
	analysisShowCmd.Flags().StringVarP(&analysisOpts.format, "format", "f", "text",
		"Output format (text, json, yaml)")
	analysisPruneCmd.Flags().IntVar(&analysisOpts.keep, "keep", 0,
		"Number of results to keep (default: analysis.history_keep)")
}

// ServiceStatus is the output of "analysis status".
type ServiceStatus struct {
	Available bool   `json:"available" yaml:"available"`
	URL       string `json:"url" yaml:"url"`
	HealthURL string `json:"health_url" yaml:"health_url"`
	Model     string `json:"model" yaml:"model"`
	Timeout   string `json:"timeout" yaml:"timeout"`
}

func runAnalysisStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(analysisOpts.format)
	if err != nil {
		return err
	}

	client := newAnalysisClient()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := client.Config()
	status := ServiceStatus{
		Available: client.Available(ctx),
		URL:       c.APIURL,
		HealthURL: client.TagsURL(),
		Model:     c.Model,
		Timeout:   c.Timeout.String(),
	}

	if format != output.FormatText {
		return output.Encode(os.Stdout, format, status)
	}

	state := "unavailable"
	if status.Available {
		state = "available"
	}
	fmt.Printf("Service: %s (%s)\n", status.URL, state)
	fmt.Printf("Model:   %s\n", status.Model)
	fmt.Printf("Timeout: %s\n", status.Timeout)
	return nil
}

func runAnalysisHistory(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(analysisOpts.format)
	if err != nil {
		return err
	}
	since, err := analysis.ParseSince(analysisOpts.since)
	if err != nil {
		return err
	}
	status, err := analysis.ParseStatus(analysisOpts.status)
	if err != nil {
		return err
	}
	field, order, _ := strings.Cut(analysisOpts.sort, ":")

	results, err := loadHistory()
	if err != nil {
		return err
	}

	analysis.Sort(results, analysis.ParseSortField(field), order != "asc")
	results = analysis.Filter(results, analysis.FilterOptions{
		Since:  since,
		Mode:   analysisOpts.mode,
		Status: status,
		Search: analysisOpts.search,
		Limit:  analysisOpts.limit,
	})

	if format == output.FormatText && len(results) == 0 {
		fmt.Println("No analysis results recorded")
		return nil
	}

	opts := output.DefaultFormatterOptions()
	opts.Template = analysisOpts.template
	return output.NewFormatter(format, opts).Format(os.Stdout, results)
}

func runAnalysisShow(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(analysisOpts.format)
	if err != nil {
		return err
	}

	results, err := loadHistory()
	if err != nil {
		return err
	}
	r, err := analysis.Lookup(results, args[0])
	if err != nil {
		return err
	}

	if format != output.FormatText {
		return output.Encode(os.Stdout, format, r)
	}

	fmt.Printf("ID:       %s\n", r.ID)
	fmt.Printf("Mode:     %s\n", r.Mode)
	fmt.Printf("Model:    %s\n", r.Model)
	fmt.Printf("When:     %s (%s)\n", r.Timestamp().Format(time.RFC3339), output.RelativeTime(r.CreatedAt))
	fmt.Printf("Duration: %dms\n", r.DurationMS)
	fmt.Printf("\n%s\n\n", r.Prompt)
	if r.Success {
		fmt.Println(r.Response)
	} else {
		fmt.Printf("Error: %s\n", r.Error)
	}
	return nil
}

// loadHistory reads every recorded result, oldest first.
func loadHistory() ([]analysis.Result, error) {
	history, err := openHistory()
	if err != nil {
		return nil, err
	}
	if history == nil {
		return nil, fmt.Errorf("analysis history is disabled (analysis.history = false in %s)", config.ConfigPath())
	}
	defer history.Close()
	return history.Load()
}

func runAnalysisPrune(cmd *cobra.Command, args []string) error {
	keep := analysisOpts.keep
	if keep <= 0 {
		keep = cfg.Analysis.HistoryKeep
	}
	if keep <= 0 {
		return errors.New("nothing to prune: analysis.history_keep is unlimited (pass --keep N)")
	}

	history, err := openHistory()
	if err != nil {
		return err
	}
	if history == nil {
		return fmt.Errorf("analysis history is disabled")
	}
	defer history.Close()

	removed, err := history.Prune(keep)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d result(s), kept at most %d\n", removed, keep)
	return nil
}
