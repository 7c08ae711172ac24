// ABOUTME: Ask command answers one financial question in-process
// ABOUTME: Optionally indexes URLs and files first, then prints the narrative
package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/finassist/internal/gateway"
	"github.com/harper/finassist/internal/models"
)

var (
	askURLs  []string
	askFiles []string
)

// NewAskCmd creates the ask command
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a financial question",
		Long: `Answer a financial question in-process.

Fetches the latest intraday price for the ticker named in the question
while searching indexed passages, then asks the narrative model for a
short answer. Use --url and --file to index sources for this run.`,
		Example: `  finassist ask "What is the current price of AAPL?"
  finassist ask --url https://example.com/earnings "How did AAPL earnings look?"
  finassist ask --file q3.pdf --format json "Summarize the quarter for MSFT"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAsk,
	}

	cmd.Flags().StringSliceVar(&askURLs, "url", nil, "URL to index before answering (repeatable)")
	cmd.Flags().StringSliceVar(&askFiles, "file", nil, "PDF or text file to index before answering (repeatable)")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("question cannot be empty")
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}

	if len(askURLs) > 0 || len(askFiles) > 0 {
		if a.Pipeline == nil {
			return fmt.Errorf("--url and --file need local retrieval; unset RETRIEVAL_AGENT_URL")
		}
		report := a.Pipeline.Ingest(cmd.Context(), askURLs, askFiles)
		if !quiet && !wantJSON() {
			printReport(cmd, report)
		}
		if report.Status == models.StatusIndexFail {
			return fmt.Errorf("indexing failed: %s", report.Error)
		}
	}

	outcome, err := a.Orchestrator.Run(cmd.Context(), query)
	if err != nil {
		return err
	}

	if wantJSON() {
		resp := gateway.RunResponse{Narrative: outcome.Text(), Status: gateway.StatusOK}
		if outcome.Failed() {
			resp.Status = gateway.StatusError
			resp.ErrorKind = outcome.Kind
		}
		return printJSON(cmd, resp)
	}

	out := cmd.OutOrStdout()
	if outcome.Failed() {
		fmt.Fprintf(out, "%s %s\n", color.RedString("error (%s):", outcome.Kind), outcome.Error)
		return fmt.Errorf("query failed")
	}
	fmt.Fprintln(out, outcome.Narrative)
	return nil
}

// printReport writes a one-line summary per failed source
func printReport(cmd *cobra.Command, report models.IngestionReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s (%d chunks)\n", color.CyanString("index:"), report.Status, report.Chunks)
	for _, s := range report.Failed() {
		fmt.Fprintf(out, "  %s %s: %s\n", color.YellowString("skipped"), s.Source, s.Error)
	}
}
