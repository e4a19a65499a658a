package models

import "time"

// EventKind classifies a progress event for display formatting.
type EventKind string

const (
	// EventRouting announces classification and team selection.
	EventRouting EventKind = "routing"
	// EventThinking is agent reasoning narration.
	EventThinking EventKind = "thinking"
	// EventAction is a tool call or SQL execution step.
	EventAction EventKind = "action"
	// EventToolResult carries output returned by a tool.
	EventToolResult EventKind = "tool_result"
	// EventValidation is a QA/approval message.
	EventValidation EventKind = "validation"
	// EventAnalysis is a statistics or insight message.
	EventAnalysis EventKind = "analysis"
	// EventFinal is the successful terminal event. Exactly one terminal
	// event (final or error) ends every stream, and it is always last.
	EventFinal EventKind = "final"
	// EventError is the failed terminal event.
	EventError EventKind = "error"
	// EventMessage is the default kind when no other matches.
	EventMessage EventKind = "message"
)

// Valid returns true if the kind is a known value.
func (k EventKind) Valid() bool {
	switch k {
	case EventRouting, EventThinking, EventAction, EventToolResult,
		EventValidation, EventAnalysis, EventFinal, EventError, EventMessage:
		return true
	default:
		return false
	}
}

// Terminal returns true for the kinds that end a stream.
func (k EventKind) Terminal() bool {
	return k == EventFinal || k == EventError
}

// ProgressEvent is one normalized unit of intermediate output on the
// streaming path. Events within one request are strictly ordered by emission
// and never replayed.
type ProgressEvent struct {
	// Source is the agent or component that produced the message.
	Source string `json:"source"`
	// Kind is the classified event kind.
	Kind EventKind `json:"kind"`
	// Content is the normalized message text.
	Content string `json:"content"`
	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"timestamp"`
}
