package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/taskfleet/taskfleet/pkg/models"
)

// QuotaExceededError is returned when the daily request quota is already
// spent before any attempt is made. It consumes zero attempts.
type QuotaExceededError struct {
	// Used is the number of requests recorded today.
	Used int
	// Limit is the configured daily request limit.
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily request quota exceeded (%d/%d)", e.Used, e.Limit)
}

// ExecutionError wraps the last underlying failure after the retry budget is
// spent.
type ExecutionError struct {
	// Attempts is the number of attempts spent before giving up.
	Attempts int
	// FallbackTried reports whether the fallback model was used for at least
	// one attempt.
	FallbackTried bool
	// Last is the error from the final attempt.
	Last error
}

func (e *ExecutionError) Error() string {
	if e.FallbackTried {
		return fmt.Sprintf("task failed after %d attempts (fallback model tried): %v", e.Attempts, e.Last)
	}
	return fmt.Sprintf("task failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExecutionError) Unwrap() error {
	return e.Last
}

// modelFormatNeedles are lowercase fragments that mark a model format
// incompatibility rather than a transient failure. These surface when a model
// family returns a response shape the team layer cannot consume.
var modelFormatNeedles = []string{
	"string indices must be",
	"unexpected response format",
	"unexpected message type",
	"unsupported content block",
	"does not support tool use",
}

// IsModelFormatError reports whether err looks like a model format
// incompatibility. Matching is by error text: these failures originate in
// third-party response decoding and carry no typed sentinel.
func IsModelFormatError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range modelFormatNeedles {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// errorInfoKind maps an underlying error to the outcome error taxonomy.
func errorInfoKind(err error) string {
	var quota *QuotaExceededError
	if errors.As(err, &quota) {
		return models.ErrorKindQuotaExceeded
	}
	if IsModelFormatError(err) {
		return models.ErrorKindModelFormat
	}
	return models.ErrorKindExecutionFailed
}
