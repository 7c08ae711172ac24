// ABOUTME: MCP tool handler implementations for the finassist server
// ABOUTME: Tool failures are returned as error results so the calling agent can read them
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/finassist/internal/agents"
	"github.com/harper/finassist/internal/models"
	"github.com/harper/finassist/internal/orchestrator"
	"github.com/harper/finassist/internal/storage"
)

const defaultMaxResults = 2

// Runner answers a query end to end
type Runner interface {
	Run(ctx context.Context, query string) (models.Outcome, error)
}

// Retriever is the retrieval service surface the tools use
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]models.ScoredChunk, error)
	AddText(ctx context.Context, text, source string) (int, error)
	Stats() storage.Stats
}

// Ingester rebuilds the index from URLs and files
type Ingester interface {
	Ingest(ctx context.Context, urls, files []string) models.IngestionReport
}

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	orchestrator Runner
	retrieval    Retriever
	ingester     Ingester
	quoter       agents.MarketDataAgent
}

// AskFinancialQuestion handles the ask_financial_question tool
func (h *Handlers) AskFinancialQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}

	outcome, err := h.orchestrator.Run(ctx, query)
	if errors.Is(err, orchestrator.ErrEmptyQuery) {
		return mcp.NewToolResultError("Query not provided"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	if outcome.Failed() {
		return mcp.NewToolResultError(fmt.Sprintf("%s (%s)", outcome.Error, outcome.Kind)), nil
	}
	return mcp.NewToolResultText(outcome.Narrative), nil
}

// RetrievePassages handles the retrieve_passages tool
func (h *Handlers) RetrievePassages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	maxResults := request.GetInt("max_results", defaultMaxResults)

	hits, err := h.retrieval.Search(ctx, query, maxResults)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("retrieval failed: %v", err)), nil
	}

	passages := make([]map[string]interface{}, 0, len(hits))
	for _, hit := range hits {
		passages = append(passages, map[string]interface{}{
			"text":   hit.Chunk.Text,
			"source": hit.Chunk.Source,
			"score":  hit.Score,
		})
	}
	return jsonResult(map[string]interface{}{"passages": passages})
}

// AddText handles the add_text tool
func (h *Handlers) AddText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil || strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("text argument is required and must be a non-empty string"), nil
	}
	source := request.GetString("source", "mcp")

	added, err := h.retrieval.AddText(ctx, text, source)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add text: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{
		"added": added,
		"index": h.retrieval.Stats(),
	})
}

// IndexStats handles the index_stats tool
func (h *Handlers) IndexStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.retrieval.Stats())
}

// IngestDocuments handles the ingest_documents tool
func (h *Handlers) IngestDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	urls := stringArray(request, "urls")
	files := stringArray(request, "files")
	if len(urls) == 0 && len(files) == 0 {
		return mcp.NewToolResultError("at least one of urls or files is required"), nil
	}

	report := h.ingester.Ingest(ctx, urls, files)
	if report.Status == models.StatusIndexFail {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", report.Status, report.Error)), nil
	}
	return jsonResult(report)
}

// GetQuote handles the get_quote tool
func (h *Handlers) GetQuote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	symbol, err := request.RequireString("symbol")
	if err != nil || strings.TrimSpace(symbol) == "" {
		return mcp.NewToolResultError("symbol argument is required and must be a string"), nil
	}

	res := h.quoter.Quote(ctx, strings.ToUpper(strings.TrimSpace(symbol)))
	md, ok := res.Value()
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("%s (%s)", res.Reason(), res.Kind())), nil
	}
	return jsonResult(agents.ToWire(md))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

// stringArray reads an array-of-strings argument, skipping non-string items
func stringArray(request mcp.CallToolRequest, key string) []string {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
