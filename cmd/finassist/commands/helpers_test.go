// ABOUTME: Shared fixtures for command tests
// ABOUTME: Isolates configuration from the host environment and runs the root command

package commands

import (
	"bytes"
	"testing"
)

// isolateEnv clears every variable that would change how services are wired
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "FINASSIST_EMBEDDER", "VECTOR_DIMENSION",
		"ALPHAVANTAGE_API_KEY", "ALPHAVANTAGE_BASE_URL", "MARKET_DATA_INTERVAL",
		"MARKET_DATA_AGENT_URL", "NARRATIVE_AGENT_URL", "RETRIEVAL_AGENT_URL",
		"AGENT_MAX_RETRIES", "LOG_LEVEL", "FINASSIST_CONFIG", "RETRIEVAL_TOP_K", "CHUNK_SIZE", "CHUNK_OVERLAP",
	} {
		t.Setenv(k, "")
	}
}

// execute runs the root command with args and returns stdout
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}
