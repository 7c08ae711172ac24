// ABOUTME: HTTP clients for market-data, retrieval and narrative agents running as separate services
// ABOUTME: Speaks the /get_data/, /retrieve_relevant_content/ and /generate_narrative/ JSON protocol
package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harper/finassist/internal/models"
)

const (
	// MarketDataPath is the market-data agent endpoint
	MarketDataPath = "/get_data/"
	// NarrativePath is the narrative agent endpoint
	NarrativePath = "/generate_narrative/"
	// RetrievalPath is the retrieval service endpoint
	RetrievalPath = "/retrieve_relevant_content/"
)

// WireMarketData is the market-data payload on the wire
type WireMarketData struct {
	IntradayPrice string `json:"intraday_price,omitempty"`
	Symbol        string `json:"symbol,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
	Interval      string `json:"interval,omitempty"`
	Response      string `json:"response,omitempty"`
}

// ToWire converts market data to its wire form
func ToWire(md models.MarketData) WireMarketData {
	return WireMarketData{
		IntradayPrice: md.Price,
		Symbol:        md.Symbol,
		Timestamp:     md.Timestamp,
		Interval:      md.Interval,
		Response:      md.Note,
	}
}

// FromWire converts a wire payload to market data
func FromWire(w WireMarketData) models.MarketData {
	return models.MarketData{
		Symbol:    w.Symbol,
		Price:     w.IntradayPrice,
		Timestamp: w.Timestamp,
		Interval:  w.Interval,
		Note:      w.Response,
	}
}

// NarrativePayload is the narrative agent request body
type NarrativePayload struct {
	Query       string         `json:"query"`
	APIData     WireMarketData `json:"api_data"`
	ScrapedData []string       `json:"scraped_data"`
}

// ErrorPayload is returned by agents in place of a result
type ErrorPayload struct {
	Error     string             `json:"error"`
	ErrorKind models.FailureKind `json:"error_kind,omitempty"`
}

type remoteClient struct {
	endpoint string
	client   *http.Client
}

func newRemoteClient(baseURL, path string, client *http.Client) remoteClient {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return remoteClient{endpoint: strings.TrimRight(baseURL, "/") + path, client: client}
}

// post sends payload and decodes a JSON object response. A non-object body
// is returned as a response_shape failure naming the JSON type.
func post[T any](ctx context.Context, rc remoteClient, payload any) (map[string]json.RawMessage, models.Result[T]) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, models.Failuref[T](models.KindRejected, "encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rc.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, models.Failuref[T](models.KindRejected, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := rc.client.Do(req)
	if err != nil {
		return nil, transportFailure[T](fmt.Sprintf("error connecting to agent %s", rc.endpoint), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportFailure[T](fmt.Sprintf("read response from %s", rc.endpoint), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.Failuref[T](statusKind(resp.StatusCode), "agent %s error: HTTP %d", rc.endpoint, resp.StatusCode)
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, models.Failuref[T](models.KindResponseShape, "agent %s returned invalid JSON: %s", rc.endpoint, truncate(string(raw), 200))
	}
	if _, ok := decoded.(map[string]any); !ok {
		return nil, models.Failuref[T](models.KindResponseShape, "agent %s returned unexpected data type: %s", rc.endpoint, jsonType(decoded))
	}

	var obj map[string]json.RawMessage
	_ = json.Unmarshal(raw, &obj)

	if rawErr, ok := obj["error"]; ok {
		var ep ErrorPayload
		if err := json.Unmarshal(raw, &ep); err != nil || ep.Error == "" {
			ep.Error = strings.Trim(string(rawErr), `"`)
		}
		kind := ep.ErrorKind
		if kind == "" {
			kind = models.KindRejected
		}
		return nil, models.Failure[T](kind, ep.Error)
	}
	return obj, models.Result[T]{}
}

// RemoteMarketData calls a market-data agent service with the raw query
type RemoteMarketData struct {
	rc remoteClient
}

// NewRemoteMarketData creates a client for the agent at baseURL
func NewRemoteMarketData(baseURL string, client *http.Client) *RemoteMarketData {
	return &RemoteMarketData{rc: newRemoteClient(baseURL, MarketDataPath, client)}
}

// Lookup posts {query} and decodes the price payload
func (r *RemoteMarketData) Lookup(ctx context.Context, query string) models.Result[models.MarketData] {
	obj, failed := post[models.MarketData](ctx, r.rc, map[string]string{"query": query})
	if obj == nil {
		return failed
	}

	var w WireMarketData
	if err := decodeObject(obj, &w); err != nil {
		return models.Failuref[models.MarketData](models.KindResponseShape, "unexpected market data shape: %v", err)
	}
	if w.IntradayPrice == "" && w.Response == "" {
		return models.Failure[models.MarketData](models.KindResponseShape, "market data response has neither a price nor a note")
	}
	return models.Success(FromWire(w))
}

// RemoteNarrative calls a narrative agent service
type RemoteNarrative struct {
	rc remoteClient
}

// NewRemoteNarrative creates a client for the agent at baseURL
func NewRemoteNarrative(baseURL string, client *http.Client) *RemoteNarrative {
	return &RemoteNarrative{rc: newRemoteClient(baseURL, NarrativePath, client)}
}

// Narrate posts the combined context and returns the narrative text
func (r *RemoteNarrative) Narrate(ctx context.Context, req models.NarrativeRequest) models.Result[models.Narrative] {
	scraped := req.Passages
	if scraped == nil {
		scraped = []string{}
	}
	obj, failed := post[models.Narrative](ctx, r.rc, NarrativePayload{
		Query:       req.Query,
		APIData:     ToWire(req.MarketData),
		ScrapedData: scraped,
	})
	if obj == nil {
		return failed
	}

	raw, ok := obj["narrative"]
	if !ok {
		return models.Failure[models.Narrative](models.KindResponseShape, "no narrative generated")
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		var v any
		_ = json.Unmarshal(raw, &v)
		return models.Failuref[models.Narrative](models.KindResponseShape, "narrative agent returned unexpected data type: %s", jsonType(v))
	}
	if strings.TrimSpace(text) == "" {
		return models.Failure[models.Narrative](models.KindRejected, "empty response")
	}
	return models.Success(models.Narrative{Text: text})
}

// RemoteRetriever queries a retrieval service that returns a JSON array of passages
type RemoteRetriever struct {
	rc remoteClient
}

// NewRemoteRetriever creates a client for the retrieval service at baseURL
func NewRemoteRetriever(baseURL string, client *http.Client) *RemoteRetriever {
	return &RemoteRetriever{rc: newRemoteClient(baseURL, RetrievalPath, client)}
}

// Retrieve posts {query}; an empty array is a success with no passages
func (r *RemoteRetriever) Retrieve(ctx context.Context, query string) models.Result[[]string] {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return models.Failuref[[]string](models.KindRejected, "encode request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.rc.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.Failuref[[]string](models.KindRejected, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.rc.client.Do(req)
	if err != nil {
		return transportFailure[[]string](fmt.Sprintf("error connecting to agent %s", r.rc.endpoint), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportFailure[[]string](fmt.Sprintf("read response from %s", r.rc.endpoint), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Failuref[[]string](statusKind(resp.StatusCode), "agent %s error: HTTP %d", r.rc.endpoint, resp.StatusCode)
	}

	var passages []string
	if err := json.Unmarshal(raw, &passages); err != nil {
		var ep ErrorPayload
		if json.Unmarshal(raw, &ep) == nil && ep.Error != "" {
			kind := ep.ErrorKind
			if kind == "" {
				kind = models.KindRejected
			}
			return models.Failure[[]string](kind, ep.Error)
		}
		return models.Failuref[[]string](models.KindResponseShape, "agent %s returned unexpected data: %s", r.rc.endpoint, truncate(string(raw), 200))
	}
	if passages == nil {
		passages = []string{}
	}
	return models.Success(passages)
}

func decodeObject(obj map[string]json.RawMessage, dst any) error {
	raw, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
