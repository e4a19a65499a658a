// Package team constructs the runnable agent teams a task can be routed to.
//
// A team is a stateless-per-call capability: the factory returns a fresh
// instance per request because a team's conversation state is request-scoped
// and must never leak across concurrent requests.
package team

import (
	"context"
	"errors"

	"github.com/taskfleet/taskfleet/pkg/models"
)

// ErrUnknownCategory is returned when the factory is asked for a category it
// has no constructor for. This is a programming error (the category enum is
// closed) and is propagated as a hard failure, never converted into an
// execution outcome.
var ErrUnknownCategory = errors.New("unknown task category")

// Message is one unit of intermediate output from a team. Content is
// deliberately untyped at this boundary: the underlying agents may produce
// strings, lists, or maps, and normalization to text happens once at the
// streaming edge.
type Message struct {
	// Source is the agent or component name that produced the message.
	Source string
	// Content is the raw message payload in whatever shape the agent produced.
	Content any
	// Err marks a terminal failure on a streamed sequence. When set, no
	// further messages follow.
	Err error
}

// RunResult is the final product of a completed team run.
type RunResult struct {
	// Response is the final answer text.
	Response string
	// Messages are the intermediate messages produced along the way.
	Messages []Message
	// TokensUsed is the provider-reported output token count, zero when the
	// provider did not report usage.
	TokensUsed int
}

// Team runs a task to completion and produces a final answer.
type Team interface {
	// Name returns the team's display name.
	Name() string
	// Run executes the task and returns the final result.
	Run(ctx context.Context, task string) (*RunResult, error)
}

// Streamer is the optional native streaming capability. Teams that implement
// it deliver intermediate messages as they occur; the returned channel is
// closed after the last message. A terminal failure is delivered as a final
// Message with Err set.
//
// Selection is by capability interface, not type inspection: callers check
// for Streamer and fall back to Run plus synthetic chunking otherwise.
type Streamer interface {
	RunStream(ctx context.Context, task string) <-chan Message
}

// categoryTeamNames maps categories to display names.
var categoryTeamNames = map[models.Category]string{
	models.CategoryDataAnalysis: "DataAnalysisTeam",
	models.CategoryGeneral:      "GeneralAssistantTeam",
}

// DisplayName returns the team display name for a category.
func DisplayName(category models.Category) string {
	if name, ok := categoryTeamNames[category]; ok {
		return name
	}
	return string(category)
}
