// ABOUTME: PromptBuilder assembles the narrative prompt from market data and passages
// ABOUTME: Enforces a character budget by dropping the lowest-ranked passages first
package core

import (
	"fmt"
	"strings"

	"github.com/harper/finassist/internal/models"
)

// SystemPrompt instructs the language model
const SystemPrompt = "You are a financial analyst. Write concise, factual narratives grounded only in the supplied data."

// DefaultPromptMaxChars bounds the prompt when no budget is configured
const DefaultPromptMaxChars = 16000

// PromptBuilder turns a NarrativeRequest into a user prompt
type PromptBuilder struct {
	maxChars int
}

// NewPromptBuilder creates a PromptBuilder with the given character budget
func NewPromptBuilder(maxChars int) *PromptBuilder {
	if maxChars <= 0 {
		maxChars = DefaultPromptMaxChars
	}
	return &PromptBuilder{maxChars: maxChars}
}

// Build assembles the prompt.
// Question and market data are always kept; passages are added best-first until the budget runs out.
func (pb *PromptBuilder) Build(req models.NarrativeRequest) string {
	head := fmt.Sprintf("Given the following data, generate a concise financial narrative: %s\n\n", req.Query)
	market := formatMarketData(req.MarketData)

	var sb strings.Builder
	sb.WriteString(head)
	sb.WriteString(market)

	remaining := pb.maxChars - sb.Len()
	passages := "RETRIEVED PASSAGES:\n"
	if len(req.Passages) == 0 {
		passages += "(none)\n"
	}
	included := 0
	for i, p := range req.Passages {
		entry := fmt.Sprintf("[%d] %s\n", i+1, strings.TrimSpace(p))
		if len(passages)+len(entry) > remaining {
			break
		}
		passages += entry
		included++
	}
	if included < len(req.Passages) {
		passages += fmt.Sprintf("(%d passages omitted)\n", len(req.Passages)-included)
	}

	sb.WriteString(passages)
	return sb.String()
}

// formatMarketData renders the market-data section
func formatMarketData(md models.MarketData) string {
	var sb strings.Builder
	sb.WriteString("MARKET DATA:\n")
	switch {
	case md.HasQuote():
		sb.WriteString(fmt.Sprintf("Symbol: %s\n", md.Symbol))
		sb.WriteString(fmt.Sprintf("Price: %s\n", md.Price))
		if md.Timestamp != "" {
			sb.WriteString(fmt.Sprintf("As of: %s", md.Timestamp))
			if md.Interval != "" {
				sb.WriteString(fmt.Sprintf(" (%s interval)", md.Interval))
			}
			sb.WriteString("\n")
		}
	case md.Note != "":
		sb.WriteString(md.Note + "\n")
	default:
		sb.WriteString("(none)\n")
	}
	sb.WriteString("\n")
	return sb.String()
}
