package models

// TaskRequest is one incoming unit of work. It is immutable once created and
// owned by the orchestrator for the duration of a single call.
type TaskRequest struct {
	// ID is the unique identifier assigned when the request enters the system.
	ID string `json:"id"`
	// Description is the free-form task text supplied by the caller.
	Description string `json:"description"`
	// RequesterID identifies the caller for audit logging. It is accepted as
	// given; identity lookup happens outside this system.
	RequesterID string `json:"requester_id"`
}

// ErrorInfo is the structured, user-visible error attached to a failed
// outcome. Raw stack traces never cross this boundary.
type ErrorInfo struct {
	// Kind is the error taxonomy label (quota_exceeded, execution_failed,
	// model_format).
	Kind string `json:"kind"`
	// Message is the user-visible description of the failure.
	Message string `json:"message"`
}

// Error kinds used in ErrorInfo.Kind.
const (
	// ErrorKindQuotaExceeded means the daily request quota was reached.
	ErrorKindQuotaExceeded = "quota_exceeded"
	// ErrorKindExecutionFailed means the team failed after the retry budget.
	ErrorKindExecutionFailed = "execution_failed"
	// ErrorKindModelFormat means the underlying error was recognized as a
	// model format incompatibility, so the caller can pick a non-routed path.
	ErrorKindModelFormat = "model_format"
)

// ExecutionOutcome is the single result of the direct or retried execution
// path. Exactly one outcome is produced per TaskRequest on that path.
type ExecutionOutcome struct {
	// Success reports whether the team produced a final answer.
	Success bool `json:"success"`
	// Response is the final answer text when Success is true.
	Response string `json:"response,omitempty"`
	// Err describes the failure when Success is false.
	Err *ErrorInfo `json:"error,omitempty"`
	// RoutedTo is the category the task was classified into.
	RoutedTo Category `json:"routed_to"`
	// ModelUsed is the model identifier in effect for the final attempt.
	ModelUsed string `json:"model_used"`
	// AttemptCount is the number of attempts spent. A quota refusal spends
	// zero attempts.
	AttemptCount int `json:"attempt_count"`
	// FallbackUsed reports whether the fallback model was tried.
	FallbackUsed bool `json:"fallback_used"`
}
