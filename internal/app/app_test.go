// ABOUTME: Tests for wiring the service graph from configuration
// ABOUTME: Exercises local defaults and fully remote collaborators over httptest servers
package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harper/finassist/internal/config"
	"github.com/harper/finassist/internal/models"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestNew_LocalDefaults(t *testing.T) {
	a, err := New(config.Defaults(), quietLogger())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if a.Retrieval == nil || a.Pipeline == nil {
		t.Fatal("local retrieval and pipeline should be wired")
	}
	if a.Quoter != nil {
		t.Error("Quoter should be nil without an Alpha Vantage key")
	}

	outcome, err := a.Orchestrator.Run(context.Background(), "current price AAPL")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if outcome.Kind != models.KindUnavailable || !strings.Contains(outcome.Error, "market data agent not configured") {
		t.Errorf("outcome = %+v, want unconfigured market failure", outcome)
	}

	// No symbol means no market call; the narrative stage reports its own configuration gap
	outcome, _ = a.Orchestrator.Run(context.Background(), "what moved oil this week?")
	if !strings.Contains(outcome.Error, "narrative agent not configured") {
		t.Errorf("outcome = %+v, want unconfigured narrative failure", outcome)
	}
}

func TestNew_OpenAIEmbedderRequiresKey(t *testing.T) {
	cfg := config.Defaults()
	cfg.Embedder = config.EmbedderOpenAI
	if _, err := New(cfg, quietLogger()); err == nil {
		t.Error("New() should fail for the openai embedder without a key")
	}
}

func TestNew_LocalRetrievalHonorsAgentTimeout(t *testing.T) {
	// The first embeddings call indexes the corpus; every later one hangs
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		if calls.Add(1) > 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1,0,0]}]}`)
	}))
	defer srv.Close()

	cfg := config.Defaults()
	cfg.Embedder = config.EmbedderOpenAI
	cfg.OpenAIKey = "test-key"
	cfg.OpenAIBaseURL = srv.URL + "/v1"
	cfg.VectorDimension = 3
	cfg.MaxRetries = 0
	cfg.AgentTimeout = 100 * time.Millisecond
	cfg.AgentMaxRetries = 0

	a, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := a.Retrieval.AddText(context.Background(), "Oil rose on supply cuts.", "wire"); err != nil {
		t.Fatalf("AddText() error: %v", err)
	}

	start := time.Now()
	outcome, err := a.Orchestrator.Run(context.Background(), "what moved oil this week?")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if outcome.Kind != models.KindTimeout {
		t.Errorf("outcome = %+v, want timeout", outcome)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Run() took %v, want it bounded by the agent timeout", elapsed)
	}
}

func TestNew_AlphaVantage(t *testing.T) {
	cfg := config.Defaults()
	cfg.AlphaVantageKey = "demo"
	a, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if a.Quoter == nil {
		t.Error("Quoter should be wired with an Alpha Vantage key")
	}
}

func TestNew_RemoteCollaborators(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/get_data/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"intraday_price": "150.0000", "symbol": "AAPL", "timestamp": "2024-01-02 16:00:00", "interval": "5min"}`)
	})
	mux.HandleFunc("/retrieve_relevant_content/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `["Apple beat earnings estimates."]`)
	})
	mux.HandleFunc("/generate_narrative/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"narrative": "Apple trades at 150 after beating estimates."}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := config.Defaults()
	cfg.MarketAgentURL = srv.URL
	cfg.RetrievalAgentURL = srv.URL
	cfg.NarrativeAgentURL = srv.URL
	cfg.AgentTimeout = 2 * time.Second

	a, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if a.Retrieval != nil || a.Pipeline != nil {
		t.Error("local retrieval should not be wired with a remote retrieval agent")
	}

	outcome, err := a.Orchestrator.Run(context.Background(), "current price AAPL")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if outcome.Narrative != "Apple trades at 150 after beating estimates." {
		t.Errorf("outcome = %+v", outcome)
	}

	h := a.Handler().Routes()
	req := httptest.NewRequest(http.MethodPost, "/retrieve_relevant_content", strings.NewReader(`{"query": "x"}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("local retrieval route status = %d, want 404", w.Code)
	}
}

func TestHandler_ServesMetrics(t *testing.T) {
	a, err := New(config.Defaults(), quietLogger())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	h := a.Handler().Routes()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Errorf("metrics = %d, missing go collector", w.Code)
	}
}
