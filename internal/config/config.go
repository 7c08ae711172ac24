// ABOUTME: Centralized configuration for the finassist services
// ABOUTME: Defaults, then an optional YAML file, then environment variables, then validation
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// Embedder names accepted by FINASSIST_EMBEDDER
const (
	EmbedderHashing = "hashing"
	EmbedderOpenAI  = "openai"
)

// Config holds all configuration for finassist
type Config struct {
	// OpenAI settings
	OpenAIKey      string        `yaml:"-"`
	OpenAIBaseURL  string        `yaml:"openai_base_url"`
	ChatModel      string        `yaml:"chat_model"`
	EmbeddingModel string        `yaml:"embedding_model"`
	Temperature    float64       `yaml:"temperature"`
	Timeout        time.Duration `yaml:"openai_timeout"`
	MaxRetries     int           `yaml:"openai_max_retries"`
	RetryDelay     time.Duration `yaml:"openai_retry_delay"`

	// Retrieval settings
	Embedder        string `yaml:"embedder"`
	VectorDimension int    `yaml:"vector_dimension"`
	ChunkSize       int    `yaml:"chunk_size"`
	ChunkOverlap    int    `yaml:"chunk_overlap"`
	TopK            int    `yaml:"retrieval_top_k"`
	EmbedWorkers    int    `yaml:"embed_workers"`
	EmbedBatchSize  int    `yaml:"embed_batch_size"`

	// Ingestion settings
	IngestConcurrency int           `yaml:"ingest_concurrency"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout"`

	// Market data settings
	AlphaVantageKey string `yaml:"-"`
	AlphaVantageURL string `yaml:"alphavantage_base_url"`
	MarketInterval  string `yaml:"market_data_interval"`

	// Remote collaborators; empty means in-process
	MarketAgentURL    string `yaml:"market_data_agent_url"`
	NarrativeAgentURL string `yaml:"narrative_agent_url"`
	RetrievalAgentURL string `yaml:"retrieval_agent_url"`

	// Collaborator guard settings
	AgentTimeout    time.Duration `yaml:"agent_timeout"`
	AgentMaxRetries int           `yaml:"agent_max_retries"`
	AgentRetryDelay time.Duration `yaml:"agent_retry_delay"`

	PromptMaxChars int `yaml:"prompt_max_chars"`

	// Server settings
	ListenAddr string `yaml:"listen_addr"`
	RateLimit  int    `yaml:"rate_limit"`
	LogLevel   string `yaml:"log_level"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		ChatModel:         "gpt-4o-mini",
		EmbeddingModel:    "text-embedding-3-small",
		Temperature:       0.3,
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		RetryDelay:        2 * time.Second,
		Embedder:          EmbedderHashing,
		VectorDimension:   384,
		ChunkSize:         1000,
		ChunkOverlap:      0,
		TopK:              2,
		EmbedWorkers:      4,
		EmbedBatchSize:    32,
		IngestConcurrency: 4,
		FetchTimeout:      30 * time.Second,
		AlphaVantageURL:   "https://www.alphavantage.co",
		MarketInterval:    "5min",
		AgentTimeout:      30 * time.Second,
		AgentMaxRetries:   2,
		AgentRetryDelay:   500 * time.Millisecond,
		PromptMaxChars:    16000,
		ListenAddr:        ":8000",
		RateLimit:         60,
		LogLevel:          "info",
	}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile overlays the YAML file at path (if non-empty) on the defaults,
// then applies environment variables
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.OpenAIKey = getEnv("OPENAI_API_KEY", c.OpenAIKey)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.ChatModel = getEnv("FINASSIST_CHAT_MODEL", c.ChatModel)
	c.EmbeddingModel = getEnv("FINASSIST_EMBEDDING_MODEL", c.EmbeddingModel)
	c.Temperature = getEnvFloat("FINASSIST_TEMPERATURE", c.Temperature)
	c.Timeout = getEnvDuration("OPENAI_TIMEOUT", c.Timeout)
	c.MaxRetries = getEnvInt("OPENAI_MAX_RETRIES", c.MaxRetries)
	c.RetryDelay = getEnvDuration("OPENAI_RETRY_DELAY", c.RetryDelay)

	c.Embedder = strings.ToLower(getEnv("FINASSIST_EMBEDDER", c.Embedder))
	c.VectorDimension = getEnvInt("VECTOR_DIMENSION", c.VectorDimension)
	c.ChunkSize = getEnvInt("CHUNK_SIZE", c.ChunkSize)
	c.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", c.ChunkOverlap)
	c.TopK = getEnvInt("RETRIEVAL_TOP_K", c.TopK)
	c.EmbedWorkers = getEnvInt("EMBED_WORKERS", c.EmbedWorkers)
	c.EmbedBatchSize = getEnvInt("EMBED_BATCH_SIZE", c.EmbedBatchSize)

	c.IngestConcurrency = getEnvInt("INGEST_CONCURRENCY", c.IngestConcurrency)
	c.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", c.FetchTimeout)

	c.AlphaVantageKey = getEnv("ALPHAVANTAGE_API_KEY", c.AlphaVantageKey)
	c.AlphaVantageURL = getEnv("ALPHAVANTAGE_BASE_URL", c.AlphaVantageURL)
	c.MarketInterval = getEnv("MARKET_DATA_INTERVAL", c.MarketInterval)

	c.MarketAgentURL = getEnv("MARKET_DATA_AGENT_URL", c.MarketAgentURL)
	c.NarrativeAgentURL = getEnv("NARRATIVE_AGENT_URL", c.NarrativeAgentURL)
	c.RetrievalAgentURL = getEnv("RETRIEVAL_AGENT_URL", c.RetrievalAgentURL)

	c.AgentTimeout = getEnvDuration("AGENT_TIMEOUT", c.AgentTimeout)
	c.AgentMaxRetries = getEnvInt("AGENT_MAX_RETRIES", c.AgentMaxRetries)
	c.AgentRetryDelay = getEnvDuration("AGENT_RETRY_DELAY", c.AgentRetryDelay)

	c.PromptMaxChars = getEnvInt("PROMPT_MAX_CHARS", c.PromptMaxChars)

	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.RateLimit = getEnvInt("RATE_LIMIT", c.RateLimit)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

func (c *Config) Validate() error {
	switch c.Embedder {
	case EmbedderHashing:
	case EmbedderOpenAI:
		if c.OpenAIKey == "" {
			return fmt.Errorf("FINASSIST_EMBEDDER=openai requires OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("FINASSIST_EMBEDDER must be %q or %q, got %q", EmbedderHashing, EmbedderOpenAI, c.Embedder)
	}
	if c.VectorDimension <= 0 {
		return fmt.Errorf("VECTOR_DIMENSION must be positive, got %d", c.VectorDimension)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("CHUNK_OVERLAP must not be negative, got %d", c.ChunkOverlap)
	}
	if c.TopK < 1 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be at least 1, got %d", c.TopK)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("OPENAI_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.AgentMaxRetries < 0 || c.AgentMaxRetries > 10 {
		return fmt.Errorf("AGENT_MAX_RETRIES must be 0-10, got %d", c.AgentMaxRetries)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("FINASSIST_TEMPERATURE must be 0-2, got %f", c.Temperature)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("RATE_LIMIT must not be negative, got %d", c.RateLimit)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// Helper functions; each falls back to the current value
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
