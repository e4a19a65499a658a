package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/taskfleet/taskfleet/internal/team"
	"github.com/taskfleet/taskfleet/pkg/models"
)

// streamExecution runs the task on the streaming path, translating team
// messages into classified progress events. Every stream ends with exactly
// one terminal event (final or error), and the terminal event is always last;
// the channel is closed after it.
func (o *Orchestrator) streamExecution(ctx context.Context, req models.TaskRequest, cls models.ClassificationResult) <-chan models.ProgressEvent {
	out := make(chan models.ProgressEvent)

	go func() {
		defer close(out)

		emit := func(source string, kind models.EventKind, content string) bool {
			ev := models.ProgressEvent{
				Source:    source,
				Kind:      kind,
				Content:   content,
				Timestamp: time.Now(),
			}
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		model, usingFallback := o.selector.Model()
		teamName := team.DisplayName(cls.Category)

		if !emit("Router", models.EventRouting,
			fmt.Sprintf("Task classified as %s (confidence %.2f)", cls.Category, cls.Confidence)) {
			return
		}
		if !emit("Router", models.EventRouting,
			fmt.Sprintf("Routing to %s using model %s", teamName, model)) {
			return
		}

		if status := o.tracker.CheckQuota(); status.Exceeded {
			qerr := &QuotaExceededError{Used: status.Used, Limit: status.Limit}
			log.Printf("[orchestrator] request %s refused: %v", req.ID, qerr)
			emit("Orchestrator", models.EventError, qerr.Error())
			return
		}

		tm, err := o.builder.Build(cls.Category, model)
		if err != nil {
			emit("Orchestrator", models.EventError, err.Error())
			return
		}

		if streamer, ok := tm.(team.Streamer); ok {
			o.relayNativeStream(ctx, emit, streamer, tm.Name(), req.Description, usingFallback)
			return
		}
		o.streamChunked(ctx, emit, tm, req.Description, usingFallback)
	}()

	return out
}

// relayNativeStream forwards a team's own message stream as progress events.
// The team's final analysis becomes the content of the terminal final event.
func (o *Orchestrator) relayNativeStream(ctx context.Context, emit func(string, models.EventKind, string) bool, streamer team.Streamer, teamName, task string, usingFallback bool) {
	var response, lastContent string

	for msg := range streamer.RunStream(ctx, task) {
		if msg.Err != nil {
			o.selector.RecordFailure()
			emit(msg.Source, models.EventError, msg.Err.Error())
			return
		}

		content := NormalizeContent(msg.Content)
		kind := ClassifyEvent(msg.Source, content)
		if kind == models.EventAnalysis {
			response = content
		}
		lastContent = content

		if !emit(msg.Source, kind, content) {
			return
		}
	}
	if ctx.Err() != nil {
		return
	}

	if response == "" {
		response = lastContent
	}
	o.selector.RecordSuccess()
	o.tracker.RecordRequest(len(strings.Fields(response)), usingFallback)
	emit(teamName, models.EventFinal, response)
}

// streamChunked runs a non-streaming team once and synthesizes progress by
// chunking the final answer into word groups with a short delay between them.
func (o *Orchestrator) streamChunked(ctx context.Context, emit func(string, models.EventKind, string) bool, tm team.Team, task string, usingFallback bool) {
	result, err := o.runAttempt(ctx, tm, task)
	if err != nil {
		o.selector.RecordFailure()
		emit(tm.Name(), models.EventError, err.Error())
		return
	}

	for i, chunk := range ChunkResponse(result.Response, o.chunkWords) {
		if i > 0 {
			if sleepCtx(ctx, o.chunkDelay) != nil {
				return
			}
		}
		if !emit(tm.Name(), models.EventMessage, chunk) {
			return
		}
	}

	o.selector.RecordSuccess()
	o.tracker.RecordRequest(tokensFor(result), usingFallback)
	emit(tm.Name(), models.EventFinal, result.Response)
}

// ChunkResponse splits text into groups of n words. Every chunk except the
// last carries a trailing space, so concatenating all chunks reproduces the
// whitespace-normalized text.
func ChunkResponse(text string, n int) []string {
	if n < 1 {
		n = 1
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	for i := 0; i < len(words); i += n {
		end := i + n
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.Join(words[i:end], " ")
		if end < len(words) {
			chunk += " "
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
