// ABOUTME: Tests for the LLM-backed narrative agent
// ABOUTME: Uses a fake completer to check prompts, empty responses and error mapping
package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/harper/finassist/internal/core"
	"github.com/harper/finassist/internal/models"
)

type fakeCompleter struct {
	system, user string
	reply        string
	err          error
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	return f.reply, f.err
}

func TestLLMNarrator_Narrate(t *testing.T) {
	c := &fakeCompleter{reply: "  Apple traded at $150.00.  "}
	n := NewLLMNarrator(c, nil)

	res := n.Narrate(context.Background(), models.NarrativeRequest{
		Query:      "current price AAPL",
		MarketData: models.MarketData{Symbol: "AAPL", Price: "150.00", Timestamp: "2024-01-01 09:35:00"},
		Passages:   []string{"Apple beat estimates."},
	})
	got, ok := res.Value()
	if !ok {
		t.Fatalf("Narrate() = %v, want success", res)
	}
	if got.Text != "Apple traded at $150.00." {
		t.Errorf("Text = %q", got.Text)
	}
	if c.system != core.SystemPrompt {
		t.Errorf("system prompt = %q, want core.SystemPrompt", c.system)
	}
	for _, want := range []string{"current price AAPL", "150.00", "Apple beat estimates."} {
		if !strings.Contains(c.user, want) {
			t.Errorf("user prompt missing %q", want)
		}
	}
}

func TestLLMNarrator_EmptyResponse(t *testing.T) {
	n := NewLLMNarrator(&fakeCompleter{reply: "   "}, nil)

	res := n.Narrate(context.Background(), models.NarrativeRequest{Query: "q"})
	if res.Ok() {
		t.Fatal("Narrate() succeeded, want failure")
	}
	if res.Kind() != models.KindRejected || res.Reason() != "empty response" {
		t.Errorf("Narrate() = %v, want Failure(rejected: empty response)", res)
	}
}

func TestLLMNarrator_CompleterError(t *testing.T) {
	n := NewLLMNarrator(&fakeCompleter{err: context.DeadlineExceeded}, nil)

	res := n.Narrate(context.Background(), models.NarrativeRequest{Query: "q"})
	if res.Kind() != models.KindTimeout {
		t.Errorf("Kind() = %s, want %s", res.Kind(), models.KindTimeout)
	}

	n = NewLLMNarrator(&fakeCompleter{err: errors.New("dial tcp: refused")}, nil)
	res = n.Narrate(context.Background(), models.NarrativeRequest{Query: "q"})
	if res.Kind() != models.KindUnavailable || !strings.Contains(res.Reason(), "LLM generation failed") {
		t.Errorf("Narrate() = %v, want unavailable generation failure", res)
	}
}
