// ABOUTME: Retrieve command queries a running gateway for relevant passages
// ABOUTME: Prints the passages returned by /retrieve_relevant_content in rank order
package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/finassist/internal/agents"
	"github.com/harper/finassist/internal/gateway"
)

var retrieveServer string

// NewRetrieveCmd creates the retrieve command
func NewRetrieveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retrieve <query>",
		Short: "Fetch the passages most relevant to a query",
		Long: `Fetch the passages most relevant to a query from a running gateway.

Returns up to RETRIEVAL_TOP_K passages, closest first.`,
		Example: `  finassist retrieve "oil supply outlook"
  finassist retrieve --format json "AAPL guidance"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRetrieve,
	}

	cmd.Flags().StringVar(&retrieveServer, "server", defaultServer, "Gateway base URL")

	return cmd
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("query cannot be empty")
	}

	var raw json.RawMessage
	if err := postJSON(cmd.Context(), retrieveServer, "/retrieve_relevant_content", gateway.RetrieveRequest{Query: query}, &raw); err != nil {
		return err
	}

	var passages []string
	if err := json.Unmarshal(raw, &passages); err != nil {
		var payload agents.ErrorPayload
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			return fmt.Errorf("retrieval failed (%s): %s", payload.ErrorKind, payload.Error)
		}
		return fmt.Errorf("unexpected response: %s", truncate(string(raw), 200))
	}

	if wantJSON() {
		return printJSON(cmd, passages)
	}

	out := cmd.OutOrStdout()
	if len(passages) == 0 {
		if !quiet {
			fmt.Fprintf(out, "No passages found for query: %s\n", query)
		}
		return nil
	}
	for i, p := range passages {
		fmt.Fprintf(out, "[%d] %s\n\n", i+1, strings.TrimSpace(p))
	}
	return nil
}
