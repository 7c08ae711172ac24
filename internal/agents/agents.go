// ABOUTME: Capability interfaces for the market-data and narrative collaborators
// ABOUTME: Every call returns a tagged Result so callers branch before using the payload
package agents

import (
	"context"
	"fmt"

	"github.com/harper/finassist/internal/models"
)

// MarketDataAgent returns the latest price point for a ticker symbol
type MarketDataAgent interface {
	Quote(ctx context.Context, symbol string) models.Result[models.MarketData]
}

// MarketLookup answers the market-data half of a free-text query
type MarketLookup interface {
	Lookup(ctx context.Context, query string) models.Result[models.MarketData]
}

// NarrativeAgent generates prose from a query and its supporting data
type NarrativeAgent interface {
	Narrate(ctx context.Context, req models.NarrativeRequest) models.Result[models.Narrative]
}

// Retriever returns passages relevant to a free-text query
type Retriever interface {
	Retrieve(ctx context.Context, query string) models.Result[[]string]
}

// Unconfigured stands in for a collaborator with no backend. Every call
// fails as unavailable with Reason.
type Unconfigured struct {
	Reason string
}

// Quote implements MarketDataAgent
func (u Unconfigured) Quote(context.Context, string) models.Result[models.MarketData] {
	return models.Failure[models.MarketData](models.KindUnavailable, u.Reason)
}

// Narrate implements NarrativeAgent
func (u Unconfigured) Narrate(context.Context, models.NarrativeRequest) models.Result[models.Narrative] {
	return models.Failure[models.Narrative](models.KindUnavailable, u.Reason)
}

// SymbolLookup resolves a query to a symbol and asks agent for a quote
type SymbolLookup struct {
	agent MarketDataAgent
}

// NewSymbolLookup wraps a quoting agent with query symbol extraction
func NewSymbolLookup(agent MarketDataAgent) *SymbolLookup {
	return &SymbolLookup{agent: agent}
}

// Lookup extracts a symbol from query. Queries without one succeed with a note
// and no upstream call so the narrative stage still runs.
func (l *SymbolLookup) Lookup(ctx context.Context, query string) models.Result[models.MarketData] {
	symbol, ok := ExtractSymbol(query)
	if !ok {
		return models.Success(models.MarketData{
			Note: fmt.Sprintf("market data agent cannot answer: %q; ask for an intraday or current price", query),
		})
	}
	return l.agent.Quote(ctx, symbol)
}
