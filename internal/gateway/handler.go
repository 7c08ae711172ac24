// ABOUTME: HTTP gateway exposing query, ingestion, retrieval and agent endpoints
// ABOUTME: Collaborator failures travel as JSON payloads; only client input errors get 4xx codes
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harper/finassist/internal/agents"
	"github.com/harper/finassist/internal/models"
	"github.com/harper/finassist/internal/orchestrator"
	"github.com/harper/finassist/internal/storage"
)

// DefaultMaxBodyBytes bounds request bodies
const DefaultMaxBodyBytes = 1 << 20

const requestIDHeader = "X-Request-ID"

// Runner answers a query end to end
type Runner interface {
	Run(ctx context.Context, query string) (models.Outcome, error)
}

// Index is the retrieval service surface used by the gateway
type Index interface {
	Retrieve(ctx context.Context, query string) models.Result[[]string]
	AddText(ctx context.Context, text, source string) (int, error)
	Stats() storage.Stats
}

// Ingester rebuilds the index from URLs and files
type Ingester interface {
	Ingest(ctx context.Context, urls, files []string) models.IngestionReport
}

// Handler serves the gateway endpoints. Routes for nil collaborators are
// not registered.
type Handler struct {
	Orchestrator Runner
	Index        Index
	Ingester     Ingester
	Market       agents.MarketLookup
	Narrator     agents.NarrativeAgent
	RateLimiter  *RateLimiter
	Gatherer     prometheus.Gatherer
	Logger       *log.Logger
	MaxBodyBytes int64
}

// Routes builds the request multiplexer. Each endpoint answers with and
// without a trailing slash.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	handle := func(path string, fn http.HandlerFunc) {
		mux.HandleFunc(path, fn)
		mux.HandleFunc(path+"/", fn)
	}

	if h.Orchestrator != nil {
		handle("/run", h.Run)
	}
	if h.Ingester != nil {
		handle("/process_and_index", h.ProcessAndIndex)
	}
	if h.Index != nil {
		handle("/retrieve_relevant_content", h.RetrieveRelevantContent)
		handle("/add_text", h.AddText)
		mux.HandleFunc("/index/stats", h.IndexStats)
	}
	if h.Market != nil {
		handle("/get_data", h.GetData)
	}
	if h.Narrator != nil {
		handle("/generate_narrative", h.GenerateNarrative)
	}
	if h.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "ok")
	})

	return h.withRequestID(mux)
}

func (h *Handler) logger() *log.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return log.Default()
}

func (h *Handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// Run handles POST /run
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	if !allowPost(w, r) {
		return
	}
	if ok, wait := h.RateLimiter.Allow(ClientKey(r)); !ok {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		writeDetail(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var req RunRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeDetail(w, http.StatusBadRequest, "Query not provided")
		return
	}

	outcome, err := h.Orchestrator.Run(r.Context(), req.Query)
	if errors.Is(err, orchestrator.ErrEmptyQuery) {
		writeDetail(w, http.StatusBadRequest, "Query not provided")
		return
	}
	if err != nil {
		h.logger().Error("run failed", "err", err, "request_id", w.Header().Get(requestIDHeader))
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := RunResponse{Narrative: outcome.Text(), Status: StatusOK}
	if outcome.Failed() {
		resp.Status = StatusError
		resp.ErrorKind = outcome.Kind
	}
	writeJSON(w, http.StatusOK, resp)
}

// ProcessAndIndex handles POST /process_and_index
func (h *Handler) ProcessAndIndex(w http.ResponseWriter, r *http.Request) {
	if !allowPost(w, r) {
		return
	}
	var req IngestRequest
	if !h.decode(w, r, &req) {
		return
	}
	files := req.AllFiles()
	if len(req.URLs) == 0 && len(files) == 0 {
		writeDetail(w, http.StatusBadRequest, "No URLs or files provided")
		return
	}

	report := h.Ingester.Ingest(r.Context(), req.URLs, files)
	h.logger().Info("ingestion finished", "status", report.Status, "chunks", report.Chunks, "failed_sources", len(report.Failed()))
	writeJSON(w, http.StatusOK, IngestResponse{Status: report.Status, Report: report})
}

// RetrieveRelevantContent handles POST /retrieve_relevant_content and
// responds with a JSON array of passages
func (h *Handler) RetrieveRelevantContent(w http.ResponseWriter, r *http.Request) {
	if !allowPost(w, r) {
		return
	}
	var req RetrieveRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeDetail(w, http.StatusBadRequest, "Query not provided")
		return
	}

	res := h.Index.Retrieve(r.Context(), req.Query)
	passages, ok := res.Value()
	if !ok {
		writeJSON(w, http.StatusOK, agents.ErrorPayload{Error: res.Reason(), ErrorKind: res.Kind()})
		return
	}
	writeJSON(w, http.StatusOK, passages)
}

// AddText handles POST /add_text
func (h *Handler) AddText(w http.ResponseWriter, r *http.Request) {
	if !allowPost(w, r) {
		return
	}
	var req AddTextRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeDetail(w, http.StatusBadRequest, "Text not provided")
		return
	}
	if req.Source == "" {
		req.Source = "manual"
	}

	added, err := h.Index.AddText(r.Context(), req.Text, req.Source)
	if err != nil {
		h.logger().Warn("add text failed", "source", req.Source, "err", err)
		status := http.StatusBadGateway
		if errors.Is(err, storage.ErrDimensionMismatch) {
			status = http.StatusConflict
		}
		writeDetail(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, AddTextResponse{Added: added, Index: h.Index.Stats()})
}

// IndexStats handles GET /index/stats
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, h.Index.Stats())
}

// GetData handles POST /get_data/ as a market-data agent
func (h *Handler) GetData(w http.ResponseWriter, r *http.Request) {
	if !allowPost(w, r) {
		return
	}
	var req QueryRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeDetail(w, http.StatusBadRequest, "Query not provided")
		return
	}

	res := h.Market.Lookup(r.Context(), req.Query)
	md, ok := res.Value()
	if !ok {
		writeJSON(w, http.StatusOK, agents.ErrorPayload{Error: res.Reason(), ErrorKind: res.Kind()})
		return
	}
	writeJSON(w, http.StatusOK, agents.ToWire(md))
}

// GenerateNarrative handles POST /generate_narrative/ as a narrative agent
func (h *Handler) GenerateNarrative(w http.ResponseWriter, r *http.Request) {
	if !allowPost(w, r) {
		return
	}
	var req agents.NarrativePayload
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeDetail(w, http.StatusBadRequest, "Query not provided")
		return
	}

	res := h.Narrator.Narrate(r.Context(), models.NarrativeRequest{
		Query:      req.Query,
		MarketData: agents.FromWire(req.APIData),
		Passages:   req.ScrapedData,
	})
	n, ok := res.Value()
	if !ok {
		writeJSON(w, http.StatusOK, agents.ErrorPayload{Error: res.Reason(), ErrorKind: res.Kind()})
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeDetail(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func allowPost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, DetailResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
