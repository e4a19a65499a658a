// Package orchestrator routes incoming tasks to agent teams and owns the
// execution policy around them: quota enforcement, retries with model
// fallback, and progress streaming.
package orchestrator

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/taskfleet/taskfleet/internal/team"
	"github.com/taskfleet/taskfleet/internal/usage"
	"github.com/taskfleet/taskfleet/pkg/models"
)

// Classifier decides which category a task belongs to.
type Classifier interface {
	Classify(description string) models.ClassificationResult
}

// Builder constructs a fresh team for a category, bound to a model.
type Builder interface {
	Build(category models.Category, model string) (team.Team, error)
}

// ModelSelector tracks which model attempts should use.
type ModelSelector interface {
	Model() (model string, usingFallback bool)
	RecordFailure() (switched bool)
	RecordSuccess()
	FallbackNotice() string
}

// QuotaTracker enforces the daily request budget.
type QuotaTracker interface {
	CheckQuota() usage.QuotaStatus
	RecordRequest(tokensUsed int, fallback bool)
	ShouldWarn() bool
}

// Options tunes the execution policy.
type Options struct {
	// MaxAttempts bounds the retry loop. Values below 1 are raised to 1.
	MaxAttempts int
	// Delay is the base backoff between attempts; the wait grows linearly
	// with the attempt number.
	Delay time.Duration
	// AttemptTimeout bounds a single team run. Zero disables the bound.
	AttemptTimeout time.Duration
	// ChunkWords is the word count per synthetic streaming chunk.
	ChunkWords int
	// ChunkDelay is the pause between synthetic chunks.
	ChunkDelay time.Duration
}

// Orchestrator is the single entry point for task execution. It classifies,
// builds the right team, and runs it under the retry or streaming policy.
type Orchestrator struct {
	classifier Classifier
	builder    Builder
	selector   ModelSelector
	tracker    QuotaTracker

	maxAttempts    int
	delay          time.Duration
	attemptTimeout time.Duration
	chunkWords     int
	chunkDelay     time.Duration
}

// New wires an orchestrator from its collaborators.
func New(classifier Classifier, builder Builder, selector ModelSelector, tracker QuotaTracker, opts Options) *Orchestrator {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.ChunkWords < 1 {
		opts.ChunkWords = 1
	}
	return &Orchestrator{
		classifier:     classifier,
		builder:        builder,
		selector:       selector,
		tracker:        tracker,
		maxAttempts:    opts.MaxAttempts,
		delay:          opts.Delay,
		attemptTimeout: opts.AttemptTimeout,
		chunkWords:     opts.ChunkWords,
		chunkDelay:     opts.ChunkDelay,
	}
}

// Execute classifies the task and runs it to a single outcome. Exactly one
// outcome is produced per call; failures are reported in the outcome, never
// as a Go error.
func (o *Orchestrator) Execute(ctx context.Context, description, requesterID string) *models.ExecutionOutcome {
	req := models.TaskRequest{
		ID:          uuid.NewString(),
		Description: description,
		RequesterID: requesterID,
	}

	cls := o.classifier.Classify(req.Description)
	log.Printf("[orchestrator] request %s from %q classified as %s (confidence %.2f)",
		req.ID, req.RequesterID, cls.Category, cls.Confidence)

	return o.executeWithRetry(ctx, req, cls.Category)
}

// Stream classifies the task and runs it on the streaming path. The returned
// channel delivers progress events in order and is closed after the single
// terminal event.
func (o *Orchestrator) Stream(ctx context.Context, description, requesterID string) <-chan models.ProgressEvent {
	req := models.TaskRequest{
		ID:          uuid.NewString(),
		Description: description,
		RequesterID: requesterID,
	}

	cls := o.classifier.Classify(req.Description)
	log.Printf("[orchestrator] request %s from %q classified as %s (confidence %.2f), streaming",
		req.ID, req.RequesterID, cls.Category, cls.Confidence)

	return o.streamExecution(ctx, req, cls)
}
