package team

import (
	"context"
	"fmt"
	"log"

	"github.com/taskfleet/taskfleet/internal/llm"
)

// GeneralTeam is the single-agent assistant for math, conversions, and
// general knowledge. It has no native streaming capability, so streamed
// callers receive its answer through the synthetic chunking path.
type GeneralTeam struct {
	model   string
	gen     llm.Generator
	prompts Prompts
}

// NewGeneralTeam constructs a general assistant team bound to the given model.
func NewGeneralTeam(gen llm.Generator, model string, prompts Prompts) *GeneralTeam {
	return &GeneralTeam{
		model:   model,
		gen:     gen,
		prompts: prompts,
	}
}

// Name returns the team's display name.
func (t *GeneralTeam) Name() string {
	return "GeneralAssistantTeam"
}

// Run asks the assistant for a direct answer to the task.
func (t *GeneralTeam) Run(ctx context.Context, task string) (*RunResult, error) {
	log.Printf("[team] %s running task", t.Name())

	result, err := t.gen.Generate(ctx, t.model, t.prompts.GeneralAssistant, task)
	if err != nil {
		return nil, fmt.Errorf("general assistant: %w", err)
	}

	return &RunResult{
		Response: result.Text,
		Messages: []Message{
			{Source: "GeneralAssistant", Content: result.Text},
		},
		TokensUsed: int(result.OutputTokens),
	}, nil
}
