// ABOUTME: Guard adapters give every collaborator call a timeout, bounded retry and panic recovery
// ABOUTME: Wrapped agents keep their interfaces so tests can swap fakes in freely
package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harper/finassist/internal/models"
	"github.com/harper/finassist/internal/util"
)

// Policy bounds one collaborator call
type Policy struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Logger     *log.Logger
}

// DefaultPolicy returns the timeout and retry settings used when none are configured
func DefaultPolicy() Policy {
	return Policy{
		Timeout:    30 * time.Second,
		MaxRetries: 2,
		RetryDelay: 500 * time.Millisecond,
	}
}

// Call runs fn under p. Each attempt gets its own deadline; failures whose
// kind is retryable are retried with exponential backoff.
func Call[T any](ctx context.Context, p Policy, name string, fn func(ctx context.Context) models.Result[T]) models.Result[T] {
	logger := p.Logger
	if logger == nil {
		logger = log.Default()
	}

	var res models.Result[T]
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := util.Sleep(ctx, util.CalculateBackoff(p.RetryDelay, attempt)); err != nil {
				return models.Failuref[T](models.KindTimeout, "%s canceled while waiting to retry: %v", name, err)
			}
		}

		res = attemptOnce(ctx, p.Timeout, name, fn)
		if res.Ok() || !res.Kind().Retryable() {
			return res
		}
		if attempt < p.MaxRetries {
			logger.Warn("collaborator call failed, retrying", "agent", name, "attempt", attempt+1, "kind", res.Kind(), "reason", res.Reason())
		}
	}
	return res
}

func attemptOnce[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) models.Result[T]) models.Result[T] {
	attemptCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	done := make(chan models.Result[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- models.Failuref[T](models.KindUnavailable, "%s panicked: %v", name, r)
			}
		}()
		done <- fn(attemptCtx)
	}()

	select {
	case res := <-done:
		if !res.Ok() && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return timedOut[T](name, timeout)
		}
		return res
	case <-attemptCtx.Done():
		if ctx.Err() == nil {
			return timedOut[T](name, timeout)
		}
		return models.Failuref[T](models.KindTimeout, "%s: %v", name, ctx.Err())
	}
}

func timedOut[T any](name string, timeout time.Duration) models.Result[T] {
	return models.Failure[T](models.KindTimeout, fmt.Sprintf("%s timed out after %s", name, timeout))
}

type guardedMarketData struct {
	agent  MarketDataAgent
	policy Policy
}

// GuardMarketData wraps a quoting agent with p
func GuardMarketData(agent MarketDataAgent, p Policy) MarketDataAgent {
	return &guardedMarketData{agent: agent, policy: p}
}

func (g *guardedMarketData) Quote(ctx context.Context, symbol string) models.Result[models.MarketData] {
	return Call(ctx, g.policy, "market data agent", func(ctx context.Context) models.Result[models.MarketData] {
		return g.agent.Quote(ctx, symbol)
	})
}

type guardedLookup struct {
	lookup MarketLookup
	policy Policy
}

// GuardLookup wraps a query-level market lookup with p
func GuardLookup(lookup MarketLookup, p Policy) MarketLookup {
	return &guardedLookup{lookup: lookup, policy: p}
}

func (g *guardedLookup) Lookup(ctx context.Context, query string) models.Result[models.MarketData] {
	return Call(ctx, g.policy, "market data agent", func(ctx context.Context) models.Result[models.MarketData] {
		return g.lookup.Lookup(ctx, query)
	})
}

type guardedNarrative struct {
	agent  NarrativeAgent
	policy Policy
}

// GuardNarrative wraps a narrative agent with p
func GuardNarrative(agent NarrativeAgent, p Policy) NarrativeAgent {
	return &guardedNarrative{agent: agent, policy: p}
}

func (g *guardedNarrative) Narrate(ctx context.Context, req models.NarrativeRequest) models.Result[models.Narrative] {
	return Call(ctx, g.policy, "narrative agent", func(ctx context.Context) models.Result[models.Narrative] {
		return g.agent.Narrate(ctx, req)
	})
}

type guardedRetriever struct {
	retriever Retriever
	policy    Policy
}

// GuardRetriever wraps a remote retrieval service with p
func GuardRetriever(retriever Retriever, p Policy) Retriever {
	return &guardedRetriever{retriever: retriever, policy: p}
}

func (g *guardedRetriever) Retrieve(ctx context.Context, query string) models.Result[[]string] {
	return Call(ctx, g.policy, "retrieval agent", func(ctx context.Context) models.Result[[]string] {
		return g.retriever.Retrieve(ctx, query)
	})
}
