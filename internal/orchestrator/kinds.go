package orchestrator

import (
	"strings"

	"github.com/taskfleet/taskfleet/pkg/models"
)

// kindRule is one ordered classification predicate. The first matching rule
// wins, so order encodes precedence.
type kindRule struct {
	kind  models.EventKind
	match func(source, lower string) bool
}

var kindRules = []kindRule{
	{models.EventRouting, func(source, lower string) bool {
		return source == "Router"
	}},
	{models.EventToolResult, func(source, lower string) bool {
		return strings.HasPrefix(lower, "tool result")
	}},
	{models.EventAction, func(source, lower string) bool {
		return strings.HasPrefix(lower, "executing:") || strings.Contains(lower, "calling tool")
	}},
	{models.EventValidation, func(source, lower string) bool {
		return source == "ValidationAgent" ||
			strings.HasPrefix(lower, "approved") || strings.HasPrefix(lower, "rejected")
	}},
	{models.EventAnalysis, func(source, lower string) bool {
		return source == "AnalysisAgent"
	}},
	{models.EventThinking, func(source, lower string) bool {
		return strings.HasPrefix(lower, "thinking") || strings.HasPrefix(lower, "let me")
	}},
}

// ClassifyEvent maps a team message to an event kind for display. Rules are
// checked in precedence order; anything unmatched is a plain message.
func ClassifyEvent(source, content string) models.EventKind {
	lower := strings.ToLower(strings.TrimSpace(content))
	for _, rule := range kindRules {
		if rule.match(source, lower) {
			return rule.kind
		}
	}
	return models.EventMessage
}
