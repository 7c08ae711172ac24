// ABOUTME: MCP tool definitions and registration for the finassist server
// ABOUTME: Exposes asking, retrieval, ingestion, incremental add and quotes as tools
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/finassist/internal/agents"
)

// Deps are the services behind the tools. Tools whose service is nil are not registered.
type Deps struct {
	Orchestrator Runner
	Retrieval    Retriever
	Ingester     Ingester
	Quoter       agents.MarketDataAgent
}

// RegisterTools registers the MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, deps Deps) *Handlers {
	handlers := &Handlers{
		orchestrator: deps.Orchestrator,
		retrieval:    deps.Retrieval,
		ingester:     deps.Ingester,
		quoter:       deps.Quoter,
	}

	// 1. ask_financial_question - full query path
	if deps.Orchestrator != nil {
		server.AddTool(mcp.Tool{
			Name:        "ask_financial_question",
			Description: "Answer a financial question with a short narrative combining the latest intraday price and indexed documents.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "The question, e.g. 'current price AAPL'",
					},
				},
				Required: []string{"query"},
			},
		}, handlers.AskFinancialQuestion)
	}

	if deps.Retrieval != nil {
		// 2. retrieve_passages - ranked passages from the index
		server.AddTool(mcp.Tool{
			Name:        "retrieve_passages",
			Description: "Return the passages most relevant to a query from the document index, best first, with similarity scores.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Search query",
					},
					"max_results": map[string]interface{}{
						"type":        "number",
						"description": "Maximum number of passages to return (default: 2)",
						"default":     2,
					},
				},
				Required: []string{"query"},
			},
		}, handlers.RetrievePassages)

		// 3. add_text - merge one text into the index
		server.AddTool(mcp.Tool{
			Name:        "add_text",
			Description: "Chunk, embed and add a piece of text to the existing document index without rebuilding it.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Text to add",
					},
					"source": map[string]interface{}{
						"type":        "string",
						"description": "Optional label recorded with the chunks",
					},
				},
				Required: []string{"text"},
			},
		}, handlers.AddText)

		// 4. index_stats - size of the live index
		server.AddTool(mcp.Tool{
			Name:        "index_stats",
			Description: "Report whether retrieval is enabled and how many chunks the index holds.",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]interface{}{},
			},
		}, handlers.IndexStats)
	}

	// 5. ingest_documents - rebuild the index from URLs and files
	if deps.Ingester != nil {
		server.AddTool(mcp.Tool{
			Name:        "ingest_documents",
			Description: "Replace the document index with text loaded from web pages and local files (PDF, HTML, text). Unreachable sources are skipped and reported.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"urls": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Web pages to fetch",
					},
					"files": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Local file paths",
					},
				},
			},
		}, handlers.IngestDocuments)
	}

	// 6. get_quote - latest intraday price for a ticker
	if deps.Quoter != nil {
		server.AddTool(mcp.Tool{
			Name:        "get_quote",
			Description: "Get the latest intraday price for a ticker symbol.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"symbol": map[string]interface{}{
						"type":        "string",
						"description": "Ticker symbol, e.g. AAPL",
					},
				},
				Required: []string{"symbol"},
			},
		}, handlers.GetQuote)
	}

	return handlers
}
