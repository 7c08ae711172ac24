// ABOUTME: Shared helpers for CLI commands
// ABOUTME: Builds the service graph from flags and talks to a running gateway over HTTP
package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/harper/finassist/internal/app"
	"github.com/harper/finassist/internal/config"
	"github.com/harper/finassist/internal/gateway"
	"github.com/harper/finassist/internal/logging"
)

const defaultServer = "http://localhost:8000"

// adminTimeout bounds calls to a running gateway; ingestion can be slow
const adminTimeout = 5 * time.Minute

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// validatePositiveInt returns error if n is not positive
func validatePositiveInt(n int, name string) error {
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, n)
	}
	return nil
}

func wantJSON() bool {
	return outputFormat == "json"
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
	return nil
}

// logLevel resolves the effective level from the global flags
func logLevel(cfg *config.Config) string {
	switch {
	case verbose:
		return "debug"
	case quiet:
		return "error"
	default:
		return cfg.LogLevel
	}
}

// newLogger writes to stderr so stdout stays clean for results and MCP
func newLogger(cmd *cobra.Command, cfg *config.Config) *log.Logger {
	return logging.New(cmd.ErrOrStderr(), logLevel(cfg))
}

// loadApp reads configuration and wires the in-process services
func loadApp(cmd *cobra.Command) (*app.App, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("FINASSIST_CONFIG")
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	a, err := app.New(cfg, newLogger(cmd, cfg))
	if err != nil {
		return nil, fmt.Errorf("initializing services: %w", err)
	}
	return a, nil
}

// postJSON sends body to server+path and decodes a 2xx response into out.
// Non-2xx responses carrying {"detail": ...} surface the detail text.
func postJSON(ctx context.Context, server, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, adminTimeout)
	defer cancel()

	url := strings.TrimRight(server, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var detail gateway.DetailResponse
		if json.Unmarshal(data, &detail) == nil && detail.Detail != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, detail.Detail)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(data)), 200))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
