// ABOUTME: Payload types exchanged with the market-data and narrative agents
// ABOUTME: Mirrors the request/response contracts of both collaborators
package models

// MarketData is the latest intraday price point for a symbol.
// Note is set instead of a price when the query named no symbol.
type MarketData struct {
	Symbol    string `json:"symbol,omitempty"`
	Price     string `json:"price,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Interval  string `json:"interval,omitempty"`
	Note      string `json:"note,omitempty"`
}

// HasQuote reports whether a price was retrieved
func (m MarketData) HasQuote() bool {
	return m.Price != "" && m.Symbol != ""
}

// NarrativeRequest is everything the narrative agent synthesizes from
type NarrativeRequest struct {
	Query      string     `json:"query"`
	MarketData MarketData `json:"market_data"`
	Passages   []string   `json:"passages"`
}

// Narrative is generated prose
type Narrative struct {
	Text string `json:"narrative"`
}
