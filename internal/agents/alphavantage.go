// ABOUTME: Alpha Vantage market-data agent using the intraday time series endpoint
// ABOUTME: Maps rate-limit notes, missing symbols and malformed payloads to failure kinds
package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/harper/finassist/internal/models"
)

const (
	// DefaultAlphaVantageURL is the public API host
	DefaultAlphaVantageURL = "https://www.alphavantage.co"
	// DefaultInterval is the intraday bar size
	DefaultInterval = "5min"

	maxResponseBytes = 8 << 20
)

// AlphaVantageConfig configures the Alpha Vantage client
type AlphaVantageConfig struct {
	APIKey     string
	BaseURL    string
	Interval   string
	HTTPClient *http.Client
}

// AlphaVantage quotes symbols via TIME_SERIES_INTRADAY
type AlphaVantage struct {
	apiKey   string
	baseURL  string
	interval string
	client   *http.Client
}

// NewAlphaVantage creates an Alpha Vantage client
func NewAlphaVantage(cfg AlphaVantageConfig) (*AlphaVantage, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("Alpha Vantage API key is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultAlphaVantageURL
	}
	interval := cfg.Interval
	if interval == "" {
		interval = DefaultInterval
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &AlphaVantage{apiKey: cfg.APIKey, baseURL: baseURL, interval: interval, client: client}, nil
}

// Quote returns the most recent close for symbol
func (a *AlphaVantage) Quote(ctx context.Context, symbol string) models.Result[models.MarketData] {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return models.Failure[models.MarketData](models.KindRejected, "no symbol provided")
	}

	q := url.Values{}
	q.Set("function", "TIME_SERIES_INTRADAY")
	q.Set("symbol", symbol)
	q.Set("interval", a.interval)
	q.Set("apikey", a.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/query?"+q.Encode(), nil)
	if err != nil {
		return models.Failuref[models.MarketData](models.KindRejected, "build request: %v", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return transportFailure[models.MarketData]("fetch intraday data", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportFailure[models.MarketData]("read intraday data", err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.Failuref[models.MarketData](statusKind(resp.StatusCode),
			"intraday data for %s: HTTP %d", symbol, resp.StatusCode)
	}

	return a.parse(symbol, body)
}

func (a *AlphaVantage) parse(symbol string, body []byte) models.Result[models.MarketData] {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.Failuref[models.MarketData](models.KindResponseShape, "invalid JSON from Alpha Vantage: %v", err)
	}

	for _, key := range []string{"Note", "Information"} {
		if raw, ok := payload[key]; ok {
			var note string
			_ = json.Unmarshal(raw, &note)
			return models.Failuref[models.MarketData](models.KindRateLimited, "Alpha Vantage API note (rate limit?): %s", note)
		}
	}
	if _, ok := payload["Error Message"]; ok {
		return models.Failuref[models.MarketData](models.KindRejected, "no data for symbol %s", symbol)
	}

	seriesKey := fmt.Sprintf("Time Series (%s)", a.interval)
	raw, ok := payload[seriesKey]
	if !ok {
		return models.Failuref[models.MarketData](models.KindResponseShape,
			"could not retrieve intraday data for %s (%s): missing %q", symbol, a.interval, seriesKey)
	}

	var series map[string]map[string]string
	if err := json.Unmarshal(raw, &series); err != nil {
		return models.Failuref[models.MarketData](models.KindResponseShape, "unexpected time series shape: %v", err)
	}
	if len(series) == 0 {
		return models.Failuref[models.MarketData](models.KindRejected, "no data for symbol %s", symbol)
	}

	timestamps := make([]string, 0, len(series))
	for ts := range series {
		timestamps = append(timestamps, ts)
	}
	sort.Strings(timestamps)
	latest := timestamps[len(timestamps)-1]

	price := series[latest]["4. close"]
	if price == "" {
		return models.Failuref[models.MarketData](models.KindResponseShape,
			"could not retrieve intraday data for %s (%s): no close at %s", symbol, a.interval, latest)
	}

	returned := symbol
	var meta struct {
		Symbol string `json:"2. Symbol"`
	}
	if rawMeta, ok := payload["Meta Data"]; ok && json.Unmarshal(rawMeta, &meta) == nil && meta.Symbol != "" {
		returned = meta.Symbol
	}

	return models.Success(models.MarketData{
		Symbol:    returned,
		Price:     price,
		Timestamp: latest,
		Interval:  a.interval,
	})
}

// transportFailure classifies a network-level error
func transportFailure[T any](op string, err error) models.Result[T] {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.Failuref[T](models.KindTimeout, "%s: %v", op, err)
	}
	return models.Failuref[T](models.KindUnavailable, "%s: %v", op, err)
}

func statusKind(code int) models.FailureKind {
	switch {
	case code == http.StatusTooManyRequests:
		return models.KindRateLimited
	case code >= 500:
		return models.KindUnavailable
	default:
		return models.KindRejected
	}
}
