// ABOUTME: Builds the full service graph from configuration
// ABOUTME: Chooses local or remote collaborators, wraps them in guards and shares one metrics registry
package app

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/harper/finassist/internal/agents"
	"github.com/harper/finassist/internal/config"
	"github.com/harper/finassist/internal/core"
	"github.com/harper/finassist/internal/embedding"
	"github.com/harper/finassist/internal/gateway"
	"github.com/harper/finassist/internal/ingest"
	"github.com/harper/finassist/internal/llm"
	"github.com/harper/finassist/internal/mcp"
	"github.com/harper/finassist/internal/orchestrator"
	"github.com/harper/finassist/internal/retrieval"
	"github.com/harper/finassist/internal/storage"
)

// App holds the wired services. Retrieval and Pipeline are nil when
// retrieval is served by a remote agent.
type App struct {
	Config       *config.Config
	Logger       *log.Logger
	Registry     *prometheus.Registry
	Retrieval    *retrieval.Service
	Pipeline     *ingest.Pipeline
	Quoter       agents.MarketDataAgent
	Market       agents.MarketLookup
	Narrator     agents.NarrativeAgent
	Orchestrator *orchestrator.Orchestrator
}

// New wires every component described by cfg
func New(cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	policy := agents.Policy{
		Timeout:    cfg.AgentTimeout,
		MaxRetries: cfg.AgentMaxRetries,
		RetryDelay: cfg.AgentRetryDelay,
		Logger:     logger.WithPrefix("guard"),
	}
	httpClient := &http.Client{Timeout: cfg.AgentTimeout}

	var openaiClient *llm.OpenAIClient
	if cfg.OpenAIKey != "" {
		client, err := llm.NewOpenAIClientWithConfig(&llm.ClientConfig{
			APIKey:         cfg.OpenAIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			ChatModel:      cfg.ChatModel,
			EmbeddingModel: openai.EmbeddingModel(cfg.EmbeddingModel),
			Dimensions:     cfg.VectorDimension,
			MaxRetries:     cfg.MaxRetries,
			RetryDelay:     cfg.RetryDelay,
			Timeout:        cfg.Timeout,
			Temperature:    float32(cfg.Temperature),
		})
		if err != nil {
			return nil, fmt.Errorf("create OpenAI client: %w", err)
		}
		openaiClient = client
	}

	var retriever orchestrator.Retriever
	if cfg.RetrievalAgentURL != "" {
		retriever = agents.GuardRetriever(agents.NewRemoteRetriever(cfg.RetrievalAgentURL, httpClient), policy)
		logger.Info("using remote retrieval agent", "url", cfg.RetrievalAgentURL)
	} else {
		embedder, err := newEmbedder(cfg, openaiClient)
		if err != nil {
			return nil, err
		}
		a.Retrieval = retrieval.NewService(
			storage.NewHandle(nil),
			core.NewChunkEngine(cfg.ChunkSize, cfg.ChunkOverlap),
			embedder,
			retrieval.Options{
				TopK:      cfg.TopK,
				Workers:   cfg.EmbedWorkers,
				BatchSize: cfg.EmbedBatchSize,
				Logger:    logger.WithPrefix("retrieval"),
			},
		)
		a.Pipeline = ingest.NewPipeline(
			ingest.NewWebLoader(nil, cfg.FetchTimeout),
			ingest.NewFileLoader(),
			a.Retrieval,
			ingest.Options{Concurrency: cfg.IngestConcurrency, Logger: logger.WithPrefix("ingest")},
		)
		retriever = agents.GuardRetriever(a.Retrieval, policy)
	}

	switch {
	case cfg.MarketAgentURL != "":
		a.Market = agents.GuardLookup(agents.NewRemoteMarketData(cfg.MarketAgentURL, httpClient), policy)
		logger.Info("using remote market data agent", "url", cfg.MarketAgentURL)
	case cfg.AlphaVantageKey != "":
		av, err := agents.NewAlphaVantage(agents.AlphaVantageConfig{
			APIKey:     cfg.AlphaVantageKey,
			BaseURL:    cfg.AlphaVantageURL,
			Interval:   cfg.MarketInterval,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, fmt.Errorf("create Alpha Vantage client: %w", err)
		}
		a.Quoter = agents.GuardMarketData(av, policy)
		a.Market = agents.NewSymbolLookup(a.Quoter)
	default:
		logger.Warn("no market data source configured; set ALPHAVANTAGE_API_KEY or MARKET_DATA_AGENT_URL")
		a.Market = agents.NewSymbolLookup(agents.Unconfigured{
			Reason: "market data agent not configured: set ALPHAVANTAGE_API_KEY or MARKET_DATA_AGENT_URL",
		})
	}

	switch {
	case cfg.NarrativeAgentURL != "":
		a.Narrator = agents.GuardNarrative(agents.NewRemoteNarrative(cfg.NarrativeAgentURL, httpClient), policy)
		logger.Info("using remote narrative agent", "url", cfg.NarrativeAgentURL)
	case openaiClient != nil:
		a.Narrator = agents.GuardNarrative(agents.NewLLMNarrator(openaiClient, core.NewPromptBuilder(cfg.PromptMaxChars)), policy)
	default:
		logger.Warn("no narrative model configured; set OPENAI_API_KEY or NARRATIVE_AGENT_URL")
		a.Narrator = agents.Unconfigured{
			Reason: "narrative agent not configured: set OPENAI_API_KEY or NARRATIVE_AGENT_URL",
		}
	}

	a.Orchestrator = orchestrator.New(a.Market, retriever, a.Narrator,
		orchestrator.WithMetrics(orchestrator.NewMetrics(a.Registry)),
		orchestrator.WithLogger(logger.WithPrefix("orchestrator")),
	)
	return a, nil
}

func newEmbedder(cfg *config.Config, client *llm.OpenAIClient) (embedding.Provider, error) {
	switch cfg.Embedder {
	case config.EmbedderOpenAI:
		if client == nil {
			return nil, fmt.Errorf("embedder %q requires OPENAI_API_KEY", cfg.Embedder)
		}
		return client, nil
	case config.EmbedderHashing, "":
		return embedding.NewHashing(cfg.VectorDimension), nil
	default:
		return nil, fmt.Errorf("unknown embedder %q", cfg.Embedder)
	}
}

// Handler returns the HTTP gateway over the wired services
func (a *App) Handler() *gateway.Handler {
	h := &gateway.Handler{
		Orchestrator: a.Orchestrator,
		Market:       a.Market,
		Narrator:     a.Narrator,
		RateLimiter:  gateway.NewRateLimiter(a.Config.RateLimit),
		Gatherer:     a.Registry,
		Logger:       a.Logger.WithPrefix("gateway"),
	}
	// Leave the interface fields nil rather than holding typed nil pointers
	if a.Retrieval != nil {
		h.Index = a.Retrieval
	}
	if a.Pipeline != nil {
		h.Ingester = a.Pipeline
	}
	return h
}

// RegisterTools registers the MCP tools backed by the wired services
func (a *App) RegisterTools(server *mcpserver.MCPServer) *mcp.Handlers {
	deps := mcp.Deps{Orchestrator: a.Orchestrator}
	if a.Retrieval != nil {
		deps.Retrieval = a.Retrieval
	}
	if a.Pipeline != nil {
		deps.Ingester = a.Pipeline
	}
	if a.Quoter != nil {
		deps.Quoter = a.Quoter
	}
	return mcp.RegisterTools(server, deps)
}
