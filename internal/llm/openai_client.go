// ABOUTME: OpenAI client for embeddings and narrative chat completions
// ABOUTME: Uses text-embedding-3-small for embeddings, gpt-4o-mini for narratives (configurable)
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/harper/finassist/internal/models"
	"github.com/harper/finassist/internal/util"
)

const (
	// DefaultChatModel is the default model for chat completions
	DefaultChatModel = "gpt-4o-mini"
	// DefaultEmbeddingModel is the default model for embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimension is the native size of text-embedding-3-small
	DefaultEmbeddingDimension = 1536
)

// ClientConfig holds configuration for the OpenAI client
type ClientConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel openai.EmbeddingModel
	Dimensions     int
	MaxRetries     int
	RetryDelay     time.Duration
	Timeout        time.Duration
	Temperature    float32
}

// DefaultConfig returns the default client configuration
func DefaultConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		APIKey:         apiKey,
		ChatModel:      DefaultChatModel,
		EmbeddingModel: DefaultEmbeddingModel,
		Dimensions:     DefaultEmbeddingDimension,
		MaxRetries:     3,
		RetryDelay:     time.Second * 2,
		Timeout:        30 * time.Second,
		Temperature:    0.3,
	}
}

// OpenAIClient wraps the OpenAI API client with retry logic
type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	embeddingModel openai.EmbeddingModel
	dimensions     int
	maxRetries     int
	retryDelay     time.Duration
	timeout        time.Duration
	temperature    float32
}

// NewOpenAIClient creates a new OpenAI client with the given API key using default configuration
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	return NewOpenAIClientWithConfig(DefaultConfig(apiKey))
}

// NewOpenAIClientWithConfig creates a new OpenAI client with custom configuration
func NewOpenAIClientWithConfig(config *ClientConfig) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	oc := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		oc.BaseURL = config.BaseURL
	}

	chatModel := config.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	embeddingModel := config.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	dims := config.Dimensions
	if dims <= 0 {
		dims = DefaultEmbeddingDimension
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(oc),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		dimensions:     dims,
		maxRetries:     config.MaxRetries,
		retryDelay:     config.RetryDelay,
		timeout:        timeout,
		temperature:    config.Temperature,
	}, nil
}

// Name returns the identifier of this embedder implementation
func (c *OpenAIClient) Name() string { return "openai:" + string(c.embeddingModel) }

// Dimension returns the requested embedding dimensionality
func (c *OpenAIClient) Dimension() int { return c.dimensions }

// Embed generates one embedding per text in a single batched request
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts to embed")
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := util.Sleep(ctx, util.CalculateBackoff(c.retryDelay, attempt)); err != nil {
				return nil, err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.CreateEmbeddings(callCtx, openai.EmbeddingRequestStrings{
			Input:      texts,
			Model:      c.embeddingModel,
			Dimensions: c.dimensions,
		})
		cancel()

		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			if !ClassifyError(err).Retryable() {
				break
			}
			continue
		}

		if len(resp.Data) != len(texts) {
			lastErr = fmt.Errorf("attempt %d: got %d embeddings for %d texts", attempt+1, len(resp.Data), len(texts))
			continue
		}

		sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

		// Convert []float32 to []float64
		out := make([][]float64, len(resp.Data))
		for i, d := range resp.Data {
			if len(d.Embedding) != c.dimensions {
				return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(d.Embedding), c.dimensions)
			}
			vec := make([]float64, len(d.Embedding))
			for j, v := range d.Embedding {
				vec[j] = float64(v)
			}
			out[i] = vec
		}
		return out, nil
	}

	return nil, fmt.Errorf("failed to generate embeddings after %d attempts: %w", c.maxRetries+1, lastErr)
}

// Complete runs a single system+user chat completion and returns the first choice.
// Retries are left to the caller's guard so timeouts stay bounded per call.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: system,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: user,
			},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// ErrNoChoices is returned when a completion response carries no choices
var ErrNoChoices = errors.New("no completion choices returned")

// ClassifyError maps an OpenAI client error onto a failure kind
func ClassifyError(err error) models.FailureKind {
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return models.KindTimeout
	case errors.Is(err, ErrNoChoices):
		return models.KindResponseShape
	case errors.As(err, &apiErr):
		return classifyStatus(apiErr.HTTPStatusCode)
	case errors.As(err, &reqErr):
		return classifyStatus(reqErr.HTTPStatusCode)
	default:
		return models.KindUnavailable
	}
}

func classifyStatus(code int) models.FailureKind {
	switch {
	case code == http.StatusTooManyRequests:
		return models.KindRateLimited
	case code >= 500 || code == 0:
		return models.KindUnavailable
	default:
		return models.KindRejected
	}
}
