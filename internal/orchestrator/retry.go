package orchestrator

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/taskfleet/taskfleet/internal/team"
	"github.com/taskfleet/taskfleet/pkg/models"
)

// executeWithRetry runs the task with the retry and fallback policy applied.
// The quota refusal path returns before any attempt is made, so a refused
// request always reports zero attempts.
func (o *Orchestrator) executeWithRetry(ctx context.Context, req models.TaskRequest, category models.Category) *models.ExecutionOutcome {
	model, usingFallback := o.selector.Model()

	if status := o.tracker.CheckQuota(); status.Exceeded {
		qerr := &QuotaExceededError{Used: status.Used, Limit: status.Limit}
		log.Printf("[orchestrator] request %s refused: %v", req.ID, qerr)
		return &models.ExecutionOutcome{
			Success:      false,
			Err:          &models.ErrorInfo{Kind: models.ErrorKindQuotaExceeded, Message: qerr.Error()},
			RoutedTo:     category,
			ModelUsed:    model,
			AttemptCount: 0,
			FallbackUsed: usingFallback,
		}
	}
	if o.tracker.ShouldWarn() {
		status := o.tracker.CheckQuota()
		log.Printf("[orchestrator] usage warning: %.0f%% of daily quota spent (%d remaining)",
			status.Percentage*100, status.Remaining)
	}

	tm, err := o.builder.Build(category, model)
	if err != nil {
		log.Printf("[orchestrator] request %s: building team failed: %v", req.ID, err)
		return &models.ExecutionOutcome{
			Success:      false,
			Err:          &models.ErrorInfo{Kind: models.ErrorKindExecutionFailed, Message: err.Error()},
			RoutedTo:     category,
			ModelUsed:    model,
			AttemptCount: 0,
			FallbackUsed: usingFallback,
		}
	}

	var lastErr error
	fallbackTried := usingFallback
	attemptsSpent := 0

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		attemptsSpent = attempt

		result, err := o.runAttempt(ctx, tm, req.Description)
		if err == nil {
			o.selector.RecordSuccess()
			o.tracker.RecordRequest(tokensFor(result), usingFallback)
			log.Printf("[orchestrator] request %s succeeded on attempt %d (model %s)", req.ID, attempt, model)
			return &models.ExecutionOutcome{
				Success:      true,
				Response:     result.Response,
				RoutedTo:     category,
				ModelUsed:    model,
				AttemptCount: attempt,
				FallbackUsed: fallbackTried,
			}
		}

		lastErr = err
		log.Printf("[orchestrator] request %s attempt %d/%d failed: %v", req.ID, attempt, o.maxAttempts, err)

		if switched := o.selector.RecordFailure(); switched {
			model, usingFallback = o.selector.Model()
			fallbackTried = true
			log.Printf("[orchestrator] %s", o.selector.FallbackNotice())

			rebuilt, berr := o.builder.Build(category, model)
			if berr != nil {
				lastErr = berr
				break
			}
			tm = rebuilt
		}

		if attempt < o.maxAttempts {
			if err := sleepCtx(ctx, o.delay*time.Duration(attempt)); err != nil {
				break
			}
		}
	}

	execErr := &ExecutionError{Attempts: attemptsSpent, FallbackTried: fallbackTried, Last: lastErr}
	return &models.ExecutionOutcome{
		Success:      false,
		Err:          &models.ErrorInfo{Kind: errorInfoKind(lastErr), Message: execErr.Error()},
		RoutedTo:     category,
		ModelUsed:    model,
		AttemptCount: attemptsSpent,
		FallbackUsed: fallbackTried,
	}
}

// runAttempt runs one team attempt under the per-attempt timeout. Without the
// deadline a hung provider call would hold the whole retry loop open.
func (o *Orchestrator) runAttempt(ctx context.Context, tm team.Team, task string) (*team.RunResult, error) {
	if o.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.attemptTimeout)
		defer cancel()
	}
	return tm.Run(ctx, task)
}

// tokensFor returns the usage charge for a completed run. When the provider
// did not report token usage, the response word count stands in as a proxy so
// the quota still moves.
func tokensFor(result *team.RunResult) int {
	if result.TokensUsed > 0 {
		return result.TokensUsed
	}
	return len(strings.Fields(result.Response))
}

// sleepCtx waits for d or until the context is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
