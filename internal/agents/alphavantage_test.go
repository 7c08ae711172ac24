// ABOUTME: Tests for the Alpha Vantage client against an httptest server
// ABOUTME: Covers latest-bar selection, rate-limit notes, unknown symbols and HTTP errors
package agents

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/harper/finassist/internal/models"
)

const intradayFixture = `{
  "Meta Data": {"1. Information": "Intraday (5min)", "2. Symbol": "AAPL"},
  "Time Series (5min)": {
    "2024-01-01 09:30:00": {"1. open": "149.00", "4. close": "149.50"},
    "2024-01-01 09:35:00": {"1. open": "149.50", "4. close": "150.00"},
    "2024-01-01 09:25:00": {"1. open": "148.00", "4. close": "148.75"}
  }
}`

func newAlphaVantageServer(t *testing.T, status int, body string) (*AlphaVantage, func() url.Values) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen url.Values
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = r.URL.Query()
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	av, err := NewAlphaVantage(AlphaVantageConfig{APIKey: "demo", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewAlphaVantage() error: %v", err)
	}
	return av, func() url.Values {
		mu.Lock()
		defer mu.Unlock()
		return seen
	}
}

func TestNewAlphaVantage_RequiresKey(t *testing.T) {
	if _, err := NewAlphaVantage(AlphaVantageConfig{}); err == nil {
		t.Error("NewAlphaVantage() error = nil, want missing key error")
	}
}

func TestAlphaVantage_Quote(t *testing.T) {
	av, seen := newAlphaVantageServer(t, http.StatusOK, intradayFixture)

	res := av.Quote(context.Background(), "aapl")
	md, ok := res.Value()
	if !ok {
		t.Fatalf("Quote() = %v, want success", res)
	}
	if md.Price != "150.00" {
		t.Errorf("Price = %q, want 150.00", md.Price)
	}
	if md.Timestamp != "2024-01-01 09:35:00" {
		t.Errorf("Timestamp = %q, want latest bar", md.Timestamp)
	}
	if md.Symbol != "AAPL" || md.Interval != "5min" {
		t.Errorf("Symbol/Interval = %q/%q, want AAPL/5min", md.Symbol, md.Interval)
	}

	q := seen()
	if q.Get("function") != "TIME_SERIES_INTRADAY" || q.Get("symbol") != "AAPL" || q.Get("interval") != "5min" || q.Get("apikey") != "demo" {
		t.Errorf("query = %v", q)
	}
}

func TestAlphaVantage_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind models.FailureKind
		wantText string
	}{
		{
			name:     "rate limit note",
			status:   http.StatusOK,
			body:     `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`,
			wantKind: models.KindRateLimited,
			wantText: "rate limit",
		},
		{
			name:     "information notice",
			status:   http.StatusOK,
			body:     `{"Information": "daily limit reached"}`,
			wantKind: models.KindRateLimited,
			wantText: "daily limit",
		},
		{
			name:     "unknown symbol",
			status:   http.StatusOK,
			body:     `{"Error Message": "Invalid API call."}`,
			wantKind: models.KindRejected,
			wantText: "no data for symbol",
		},
		{
			name:     "missing series",
			status:   http.StatusOK,
			body:     `{"Meta Data": {}}`,
			wantKind: models.KindResponseShape,
			wantText: "could not retrieve intraday data",
		},
		{
			name:     "missing close",
			status:   http.StatusOK,
			body:     `{"Time Series (5min)": {"2024-01-01 09:35:00": {"1. open": "1"}}}`,
			wantKind: models.KindResponseShape,
			wantText: "no close",
		},
		{
			name:     "invalid json",
			status:   http.StatusOK,
			body:     `<html>`,
			wantKind: models.KindResponseShape,
			wantText: "invalid JSON",
		},
		{
			name:     "server error",
			status:   http.StatusBadGateway,
			body:     ``,
			wantKind: models.KindUnavailable,
			wantText: "HTTP 502",
		},
		{
			name:     "too many requests",
			status:   http.StatusTooManyRequests,
			body:     ``,
			wantKind: models.KindRateLimited,
			wantText: "HTTP 429",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			av, _ := newAlphaVantageServer(t, tt.status, tt.body)
			res := av.Quote(context.Background(), "AAPL")
			if res.Ok() {
				t.Fatalf("Quote() = %v, want failure", res)
			}
			if res.Kind() != tt.wantKind {
				t.Errorf("Kind() = %s, want %s", res.Kind(), tt.wantKind)
			}
			if !strings.Contains(res.Reason(), tt.wantText) {
				t.Errorf("Reason() = %q, want substring %q", res.Reason(), tt.wantText)
			}
		})
	}
}

func TestAlphaVantage_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	av, _ := NewAlphaVantage(AlphaVantageConfig{APIKey: "demo", BaseURL: base})
	res := av.Quote(context.Background(), "AAPL")
	if res.Kind() != models.KindUnavailable {
		t.Errorf("Kind() = %s, want %s", res.Kind(), models.KindUnavailable)
	}
}
