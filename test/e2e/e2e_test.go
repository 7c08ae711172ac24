// ABOUTME: End-to-end scenarios over the gateway wired by internal/app
// ABOUTME: Stubs Alpha Vantage and the narrative agent, indexes real files, then asks questions

package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/harper/finassist/internal/agents"
	"github.com/harper/finassist/internal/app"
	"github.com/harper/finassist/internal/config"
	"github.com/harper/finassist/internal/gateway"
	"github.com/harper/finassist/internal/models"
	"github.com/harper/finassist/internal/storage"
)

const intradayAAPL = `{
  "Meta Data": {"2. Symbol": "AAPL"},
  "Time Series (5min)": {
    "2024-01-02 15:55:00": {"4. close": "149.5000"},
    "2024-01-02 16:00:00": {"4. close": "150.2500"}
  }
}`

// upstreams records what the stub collaborators received
type upstreams struct {
	mu        sync.Mutex
	quotes    []string
	narrative []agents.NarrativePayload
}

func (u *upstreams) lastNarrative() agents.NarrativePayload {
	u.mu.Lock()
	defer u.mu.Unlock()
	Expect(u.narrative).NotTo(BeEmpty())
	return u.narrative[len(u.narrative)-1]
}

func (u *upstreams) narrativeCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.narrative)
}

func (u *upstreams) quoteCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.quotes)
}

func (u *upstreams) alphaVantage() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		u.mu.Lock()
		u.quotes = append(u.quotes, symbol)
		u.mu.Unlock()
		switch symbol {
		case "AAPL":
			_, _ = io.WriteString(w, intradayAAPL)
		case "SLOW":
			time.Sleep(500 * time.Millisecond)
			_, _ = io.WriteString(w, intradayAAPL)
		default:
			_, _ = io.WriteString(w, `{"Error Message": "Invalid API call."}`)
		}
	})
}

func (u *upstreams) narrator() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p agents.NarrativePayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		u.mu.Lock()
		u.narrative = append(u.narrative, p)
		u.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{
			"narrative": "Narrative for: " + p.Query,
		})
	})
}

func postJSON(url string, body any) (*http.Response, []byte) {
	payload, err := json.Marshal(body)
	Expect(err).NotTo(HaveOccurred())
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp, data
}

var _ = Describe("gateway", Ordered, func() {
	var (
		up        *upstreams
		avServer  *httptest.Server
		narServer *httptest.Server
		gw        *httptest.Server
		docsDir   string
	)

	BeforeAll(func() {
		up = &upstreams{}
		avServer = httptest.NewServer(up.alphaVantage())
		narServer = httptest.NewServer(up.narrator())

		cfg := config.Defaults()
		cfg.AlphaVantageKey = "demo"
		cfg.AlphaVantageURL = avServer.URL
		cfg.NarrativeAgentURL = narServer.URL
		cfg.VectorDimension = 128
		cfg.ChunkSize = 200
		cfg.AgentTimeout = 200 * time.Millisecond
		cfg.AgentMaxRetries = 0
		cfg.RateLimit = 0

		a, err := app.New(cfg, log.New(GinkgoWriter))
		Expect(err).NotTo(HaveOccurred())
		gw = httptest.NewServer(a.Handler().Routes())

		docsDir = GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(docsDir, "earnings.txt"),
			[]byte("Apple beat earnings estimates on strong iPhone sales."), 0o600)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(docsDir, "oil.md"),
			[]byte("Oil prices rose after OPEC announced supply cuts."), 0o600)).To(Succeed())
	})

	AfterAll(func() {
		gw.Close()
		narServer.Close()
		avServer.Close()
	})

	It("reports a disabled index before ingestion", func() {
		resp, err := http.Get(gw.URL + "/index/stats")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		var stats storage.Stats
		Expect(json.NewDecoder(resp.Body).Decode(&stats)).To(Succeed())
		Expect(stats.Enabled).To(BeFalse())
	})

	It("answers without passages while the index is empty", func() {
		resp, data := postJSON(gw.URL+"/run", gateway.RunRequest{Query: "what moved oil this week?"})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var out gateway.RunResponse
		Expect(json.Unmarshal(data, &out)).To(Succeed())
		Expect(out.Status).To(Equal(gateway.StatusOK))
		Expect(up.lastNarrative().ScrapedData).To(BeEmpty())
	})

	It("indexes files and reports missing ones without failing the batch", func() {
		resp, data := postJSON(gw.URL+"/process_and_index", gateway.IngestRequest{
			Files: []string{
				filepath.Join(docsDir, "earnings.txt"),
				filepath.Join(docsDir, "oil.md"),
				filepath.Join(docsDir, "missing.pdf"),
			},
		})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var out gateway.IngestResponse
		Expect(json.Unmarshal(data, &out)).To(Succeed())
		Expect(out.Status).To(Equal(models.StatusPartial))
		Expect(out.Report.Indexed).To(BeTrue())
		Expect(out.Report.Chunks).To(Equal(2))
		Expect(out.Report.Failed()).To(HaveLen(1))
	})

	It("retrieves passages best first", func() {
		_, data := postJSON(gw.URL+"/retrieve_relevant_content", gateway.RetrieveRequest{Query: "OPEC supply cuts oil prices"})

		var passages []string
		Expect(json.Unmarshal(data, &passages)).To(Succeed())
		Expect(passages).To(HaveLen(2))
		Expect(passages[0]).To(ContainSubstring("OPEC"))
	})

	It("fans out to market data and retrieval before narrating", func() {
		resp, data := postJSON(gw.URL+"/run", gateway.RunRequest{Query: "What is the current price AAPL"})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var out gateway.RunResponse
		Expect(json.Unmarshal(data, &out)).To(Succeed())
		Expect(out.Status).To(Equal(gateway.StatusOK))
		Expect(out.Narrative).To(Equal("Narrative for: What is the current price AAPL"))

		sent := up.lastNarrative()
		Expect(sent.APIData.IntradayPrice).To(Equal("150.2500"))
		Expect(sent.APIData.Timestamp).To(Equal("2024-01-02 16:00:00"))
		Expect(sent.ScrapedData).To(HaveLen(2))
	})

	It("surfaces an unknown symbol as a rejected failure without narrating", func() {
		before := up.narrativeCount()
		_, data := postJSON(gw.URL+"/run", gateway.RunRequest{Query: "current price ZZZZ"})

		var out gateway.RunResponse
		Expect(json.Unmarshal(data, &out)).To(Succeed())
		Expect(out.Status).To(Equal(gateway.StatusError))
		Expect(out.ErrorKind).To(Equal(models.KindRejected))
		Expect(out.Narrative).To(ContainSubstring("ZZZZ"))
		Expect(up.narrativeCount()).To(Equal(before))
	})

	It("times out a slow market data call", func() {
		_, data := postJSON(gw.URL+"/run", gateway.RunRequest{Query: "current price SLOW"})

		var out gateway.RunResponse
		Expect(json.Unmarshal(data, &out)).To(Succeed())
		Expect(out.ErrorKind).To(Equal(models.KindTimeout))
	})

	It("adds text incrementally", func() {
		resp, data := postJSON(gw.URL+"/add_text", gateway.AddTextRequest{Text: "Gold hit a record high.", Source: "wire"})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var out gateway.AddTextResponse
		Expect(json.Unmarshal(data, &out)).To(Succeed())
		Expect(out.Added).To(Equal(1))
		Expect(out.Index.Chunks).To(Equal(3))
		Expect(out.Index.Dimension).To(Equal(128))
	})

	It("serves the market data agent protocol", func() {
		_, data := postJSON(gw.URL+"/get_data/", gateway.QueryRequest{Query: "current price AAPL"})

		var wire agents.WireMarketData
		Expect(json.Unmarshal(data, &wire)).To(Succeed())
		Expect(wire.Symbol).To(Equal("AAPL"))
		Expect(wire.IntradayPrice).To(Equal("150.2500"))
	})

	It("rejects an empty query", func() {
		resp, data := postJSON(gw.URL+"/run", gateway.RunRequest{Query: "  "})
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(string(data)).To(ContainSubstring("Query not provided"))
	})

	It("exports query metrics", func() {
		resp, err := http.Get(gw.URL + "/metrics")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(`finassist_queries_total{outcome="ok"}`))
		Expect(up.quoteCount()).To(BeNumerically(">=", 3))
	})
})

var _ = Describe("rate limiting", func() {
	It("returns 429 with Retry-After once the per-minute budget is spent", func() {
		cfg := config.Defaults()
		cfg.RateLimit = 1

		a, err := app.New(cfg, log.New(GinkgoWriter))
		Expect(err).NotTo(HaveOccurred())
		gw := httptest.NewServer(a.Handler().Routes())
		defer gw.Close()

		resp, _ := postJSON(gw.URL+"/run", gateway.RunRequest{Query: "what moved oil?"})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		resp, _ = postJSON(gw.URL+"/run", gateway.RunRequest{Query: "what moved oil?"})
		Expect(resp.StatusCode).To(Equal(http.StatusTooManyRequests))
		Expect(resp.Header.Get("Retry-After")).NotTo(BeEmpty())
	})
})
