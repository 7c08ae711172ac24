// ABOUTME: Narrative agent backed by a chat completion model
// ABOUTME: Builds the sectioned prompt and treats empty generations as failures
package agents

import (
	"context"
	"strings"

	"github.com/harper/finassist/internal/core"
	"github.com/harper/finassist/internal/llm"
	"github.com/harper/finassist/internal/models"
)

// Completer runs one system+user chat completion
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// LLMNarrator generates narratives with a Completer
type LLMNarrator struct {
	completer Completer
	prompts   *core.PromptBuilder
}

// NewLLMNarrator creates a narrator; a nil builder uses the default budget
func NewLLMNarrator(completer Completer, prompts *core.PromptBuilder) *LLMNarrator {
	if prompts == nil {
		prompts = core.NewPromptBuilder(core.DefaultPromptMaxChars)
	}
	return &LLMNarrator{completer: completer, prompts: prompts}
}

// Narrate asks the model for a concise narrative
func (n *LLMNarrator) Narrate(ctx context.Context, req models.NarrativeRequest) models.Result[models.Narrative] {
	text, err := n.completer.Complete(ctx, core.SystemPrompt, n.prompts.Build(req))
	if err != nil {
		return models.Failuref[models.Narrative](llm.ClassifyError(err), "LLM generation failed: %v", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Failure[models.Narrative](models.KindRejected, "empty response")
	}
	return models.Success(models.Narrative{Text: text})
}
