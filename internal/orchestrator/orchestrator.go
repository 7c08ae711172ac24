// ABOUTME: Orchestrator fans a query out to market data and retrieval, then synthesizes a narrative
// ABOUTME: Collaborator failures become Outcome values; only empty queries return an error
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/harper/finassist/internal/agents"
	"github.com/harper/finassist/internal/models"
)

// ErrEmptyQuery is returned before dispatch when the query is blank
var ErrEmptyQuery = errors.New("query not provided")

const (
	agentMarketData = "market_data"
	agentRetrieval  = "retrieval"
	agentNarrative  = "narrative"
)

var tracer = otel.Tracer("github.com/harper/finassist/orchestrator")

// Retriever is the retrieval query path
type Retriever interface {
	Retrieve(ctx context.Context, query string) models.Result[[]string]
}

// Orchestrator answers one query at a time; it holds no query-scoped state
// and is safe for concurrent use
type Orchestrator struct {
	market    agents.MarketLookup
	retriever Retriever
	narrator  agents.NarrativeAgent
	metrics   *Metrics
	logger    *log.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithMetrics records outcomes in m
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an Orchestrator
func New(market agents.MarketLookup, retriever Retriever, narrator agents.NarrativeAgent, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		market:    market,
		retriever: retriever,
		narrator:  narrator,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run answers query. The returned error is non-nil only for client input
// errors; every collaborator failure is reported through the Outcome.
func (o *Orchestrator) Run(ctx context.Context, query string) (models.Outcome, error) {
	if strings.TrimSpace(query) == "" {
		return models.Outcome{}, ErrEmptyQuery
	}

	start := time.Now()
	ctx, span := tracer.Start(ctx, "orchestrator.run", trace.WithAttributes(attribute.Int("query.length", len(query))))
	defer span.End()

	outcome := o.run(ctx, query)

	if outcome.Failed() {
		span.SetStatus(codes.Error, outcome.Error)
		span.SetAttributes(attribute.String("outcome.kind", string(outcome.Kind)))
		o.logger.Warn("query failed", "kind", outcome.Kind, "reason", outcome.Error, "elapsed", time.Since(start))
	} else {
		o.logger.Info("query answered", "elapsed", time.Since(start))
	}
	o.metrics.observeOutcome(outcome, time.Since(start))
	return outcome, nil
}

func (o *Orchestrator) run(ctx context.Context, query string) models.Outcome {
	market, passages := o.dispatch(ctx, query)

	// Market data is checked first so its failure wins when both fail
	if !market.Ok() {
		o.metrics.observeFailure(agentMarketData, market.Kind())
		if !passages.Ok() {
			o.metrics.observeFailure(agentRetrieval, passages.Kind())
		}
		return models.FailedOutcome(market.Kind(), market.Reason())
	}
	if !passages.Ok() {
		o.metrics.observeFailure(agentRetrieval, passages.Kind())
		return models.FailedOutcome(passages.Kind(), passages.Reason())
	}

	md, _ := market.Value()
	texts, _ := passages.Value()
	o.metrics.observePassages(len(texts))

	narrative := o.synthesize(ctx, models.NarrativeRequest{Query: query, MarketData: md, Passages: texts})
	if !narrative.Ok() {
		o.metrics.observeFailure(agentNarrative, narrative.Kind())
		return models.FailedOutcome(narrative.Kind(), narrative.Reason())
	}
	n, _ := narrative.Value()
	return models.NarrativeOutcome(n.Text)
}

// dispatch runs both stage-one calls concurrently and waits for both
func (o *Orchestrator) dispatch(ctx context.Context, query string) (models.Result[models.MarketData], models.Result[[]string]) {
	ctx, span := tracer.Start(ctx, "orchestrator.dispatch")
	defer span.End()

	var (
		wg       sync.WaitGroup
		market   models.Result[models.MarketData]
		passages models.Result[[]string]
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		market = guard(agentMarketData, func() models.Result[models.MarketData] {
			return o.market.Lookup(ctx, query)
		})
	}()
	go func() {
		defer wg.Done()
		passages = guard(agentRetrieval, func() models.Result[[]string] {
			return o.retriever.Retrieve(ctx, query)
		})
	}()
	wg.Wait()

	span.SetAttributes(attribute.Bool("market_data.ok", market.Ok()), attribute.Bool("retrieval.ok", passages.Ok()))
	return market, passages
}

func (o *Orchestrator) synthesize(ctx context.Context, req models.NarrativeRequest) models.Result[models.Narrative] {
	ctx, span := tracer.Start(ctx, "orchestrator.synthesize", trace.WithAttributes(attribute.Int("passages", len(req.Passages))))
	defer span.End()

	res := guard(agentNarrative, func() models.Result[models.Narrative] {
		return o.narrator.Narrate(ctx, req)
	})
	if !res.Ok() {
		span.SetStatus(codes.Error, res.Reason())
	}
	return res
}

// guard converts a collaborator panic into a failure
func guard[T any](agent string, fn func() models.Result[T]) (res models.Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = models.Failure[T](models.KindUnavailable, fmt.Sprintf("%s agent failed unexpectedly: %v", strings.ReplaceAll(agent, "_", " "), r))
		}
	}()
	return fn()
}
