// ABOUTME: Ticker symbol extraction from free-text financial questions
// ABOUTME: Price phrasing uses the trailing word, otherwise $TICKER or an all-caps token
package agents

import (
	"regexp"
	"strings"
)

var (
	pricePhrases  = []string{"intraday price", "current price"}
	dollarTicker  = regexp.MustCompile(`\$([A-Za-z]{1,5}(?:\.[A-Za-z])?)\b`)
	capsTicker    = regexp.MustCompile(`\b[A-Z]{1,5}\b`)
	symbolTrimmer = ".,;:!?\"'()$"
	nonTickerCaps = map[string]struct{}{
		"I": {}, "A": {}, "CEO": {}, "CFO": {}, "IPO": {}, "ETF": {}, "GDP": {}, "USD": {}, "EPS": {}, "AI": {}, "US": {}, "PE": {},
	}
)

// ExtractSymbol finds the ticker a query is asking about
func ExtractSymbol(query string) (string, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", false
	}

	lower := strings.ToLower(query)
	for _, phrase := range pricePhrases {
		if strings.Contains(lower, phrase) {
			words := strings.Fields(query)
			symbol := strings.ToUpper(strings.Trim(words[len(words)-1], symbolTrimmer))
			if symbol == "" {
				return "", false
			}
			return symbol, true
		}
	}

	if m := dollarTicker.FindStringSubmatch(query); m != nil {
		return strings.ToUpper(m[1]), true
	}

	for _, tok := range capsTicker.FindAllString(query, -1) {
		if _, skip := nonTickerCaps[tok]; skip {
			continue
		}
		return tok, true
	}
	return "", false
}
