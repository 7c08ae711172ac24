// ABOUTME: Ingest command asks a running gateway to rebuild its index
// ABOUTME: Posts URLs and files to /process_and_index and prints the per-source report
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/finassist/internal/gateway"
)

var (
	ingestServer string
	ingestURLs   []string
	ingestFiles  []string
)

// NewIngestCmd creates the ingest command
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index URLs and files on a running gateway",
		Long: `Index URLs and files on a running gateway.

Replaces the gateway's index with passages extracted from the given
web pages and PDF or text files. Paths are resolved on the server.`,
		Example: `  finassist ingest --url https://example.com/markets
  finassist ingest --file /data/q3.pdf --file /data/q4.pdf
  finassist ingest --server http://gateway:8000 --url https://example.com`,
		Args: cobra.NoArgs,
		RunE: runIngest,
	}

	cmd.Flags().StringVar(&ingestServer, "server", defaultServer, "Gateway base URL")
	cmd.Flags().StringSliceVar(&ingestURLs, "url", nil, "URL to index (repeatable)")
	cmd.Flags().StringSliceVar(&ingestFiles, "file", nil, "File path on the server to index (repeatable)")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	if len(ingestURLs) == 0 && len(ingestFiles) == 0 {
		return fmt.Errorf("provide at least one --url or --file")
	}

	var resp gateway.IngestResponse
	req := gateway.IngestRequest{URLs: ingestURLs, Files: ingestFiles}
	if err := postJSON(cmd.Context(), ingestServer, "/process_and_index", req, &resp); err != nil {
		return err
	}

	if wantJSON() {
		return printJSON(cmd, resp)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%d chunks)\n", resp.Status, resp.Report.Chunks)
	if resp.Report.Error != "" {
		fmt.Fprintf(out, "error: %s\n", resp.Report.Error)
	}
	if quiet || len(resp.Report.Sources) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "KIND\tSEGMENTS\tSOURCE\tERROR\n")
	fmt.Fprintf(w, "----\t--------\t------\t-----\n")
	for _, s := range resp.Report.Sources {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.Kind, s.Segments, truncate(s.Source, 50), truncate(s.Error, 60))
	}
	return w.Flush()
}
