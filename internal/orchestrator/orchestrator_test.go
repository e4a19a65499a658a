package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/taskfleet/taskfleet/internal/failover"
	"github.com/taskfleet/taskfleet/internal/team"
	"github.com/taskfleet/taskfleet/internal/usage"
	"github.com/taskfleet/taskfleet/pkg/models"
)

type fakeClassifier struct {
	result models.ClassificationResult
}

func (c fakeClassifier) Classify(string) models.ClassificationResult {
	return c.result
}

type recordCall struct {
	tokens   int
	fallback bool
}

type fakeTracker struct {
	mu       sync.Mutex
	exceeded bool
	warn     bool
	used     int
	limit    int
	recorded []recordCall
}

func (t *fakeTracker) CheckQuota() usage.QuotaStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	remaining := t.limit - t.used
	if remaining < 0 {
		remaining = 0
	}
	return usage.QuotaStatus{
		Exceeded:   t.exceeded,
		Percentage: float64(t.used) / float64(t.limit),
		Remaining:  remaining,
		Used:       t.used,
		Limit:      t.limit,
	}
}

func (t *fakeTracker) RecordRequest(tokens int, fallback bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recorded = append(t.recorded, recordCall{tokens: tokens, fallback: fallback})
}

func (t *fakeTracker) ShouldWarn() bool { return t.warn }

type runStep struct {
	response string
	err      error
}

// scriptedBuilder hands out teams whose Run calls consume a shared script of
// results, so retries across rebuilt teams see one continuous sequence.
type scriptedBuilder struct {
	mu       sync.Mutex
	steps    []runStep
	builds   []string
	buildErr error
	stream   []team.Message
}

func (b *scriptedBuilder) Build(category models.Category, model string) (team.Team, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buildErr != nil {
		return nil, b.buildErr
	}
	b.builds = append(b.builds, model)
	if b.stream != nil {
		return &fakeStreamTeam{msgs: b.stream}, nil
	}
	return &fakeTeam{builder: b}, nil
}

func (b *scriptedBuilder) nextStep() runStep {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.steps) == 0 {
		return runStep{err: errors.New("script exhausted")}
	}
	step := b.steps[0]
	b.steps = b.steps[1:]
	return step
}

type fakeTeam struct {
	builder *scriptedBuilder
}

func (t *fakeTeam) Name() string { return "FakeTeam" }

func (t *fakeTeam) Run(ctx context.Context, task string) (*team.RunResult, error) {
	step := t.builder.nextStep()
	if step.err != nil {
		return nil, step.err
	}
	return &team.RunResult{Response: step.response}, nil
}

type fakeStreamTeam struct {
	msgs []team.Message
}

func (t *fakeStreamTeam) Name() string { return "FakeStreamTeam" }

func (t *fakeStreamTeam) Run(ctx context.Context, task string) (*team.RunResult, error) {
	return &team.RunResult{Response: "unused"}, nil
}

func (t *fakeStreamTeam) RunStream(ctx context.Context, task string) <-chan team.Message {
	out := make(chan team.Message)
	go func() {
		defer close(out)
		for _, m := range t.msgs {
			select {
			case out <- m:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func newTestOrchestrator(builder *scriptedBuilder, tracker *fakeTracker, threshold, maxAttempts int) (*Orchestrator, *failover.Selector) {
	selector := failover.NewSelector("primary-model", "fallback-model", threshold)
	o := New(
		fakeClassifier{result: models.ClassificationResult{Category: models.CategoryGeneral, Confidence: 0.8}},
		builder, selector, tracker,
		Options{MaxAttempts: maxAttempts, ChunkWords: 2},
	)
	return o, selector
}

func TestExecuteQuotaRefusalSpendsNoAttempts(t *testing.T) {
	builder := &scriptedBuilder{steps: []runStep{{response: "should not run"}}}
	tracker := &fakeTracker{exceeded: true, used: 1000, limit: 1000}
	o, _ := newTestOrchestrator(builder, tracker, 2, 3)

	outcome := o.Execute(context.Background(), "hello", "alice")

	if outcome.Success {
		t.Fatal("expected refusal")
	}
	if outcome.Err == nil || outcome.Err.Kind != models.ErrorKindQuotaExceeded {
		t.Errorf("expected quota_exceeded error, got %+v", outcome.Err)
	}
	if outcome.AttemptCount != 0 {
		t.Errorf("quota refusal must spend zero attempts, got %d", outcome.AttemptCount)
	}
	if len(builder.builds) != 0 {
		t.Errorf("no team should be built on refusal, built %v", builder.builds)
	}
	if len(tracker.recorded) != 0 {
		t.Errorf("no usage should be recorded on refusal, got %v", tracker.recorded)
	}
}

func TestExecuteSuccessFirstAttempt(t *testing.T) {
	builder := &scriptedBuilder{steps: []runStep{{response: "the answer"}}}
	tracker := &fakeTracker{limit: 1000}
	o, _ := newTestOrchestrator(builder, tracker, 2, 3)

	outcome := o.Execute(context.Background(), "hello", "alice")

	if !outcome.Success {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if outcome.Response != "the answer" {
		t.Errorf("response = %q", outcome.Response)
	}
	if outcome.AttemptCount != 1 || outcome.FallbackUsed {
		t.Errorf("expected 1 attempt on primary, got attempts=%d fallback=%v",
			outcome.AttemptCount, outcome.FallbackUsed)
	}
	if outcome.ModelUsed != "primary-model" {
		t.Errorf("model = %q", outcome.ModelUsed)
	}
	if len(tracker.recorded) != 1 || tracker.recorded[0].fallback {
		t.Errorf("expected one primary usage record, got %v", tracker.recorded)
	}
}

func TestExecuteWarningLogsWholePercentage(t *testing.T) {
	builder := &scriptedBuilder{steps: []runStep{{response: "ok"}}}
	tracker := &fakeTracker{warn: true, used: 80, limit: 100}
	o, _ := newTestOrchestrator(builder, tracker, 2, 3)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	outcome := o.Execute(context.Background(), "hello", "alice")

	if !outcome.Success {
		t.Fatalf("expected success, got %+v", outcome)
	}
	// Percentage is a fraction of the limit; the log must show 80%, not 1%.
	if !strings.Contains(buf.String(), "80% of daily quota spent (20 remaining)") {
		t.Errorf("warning log = %q, want 80%% of daily quota spent", buf.String())
	}
}

func TestExecuteFallsBackAfterThreshold(t *testing.T) {
	builder := &scriptedBuilder{steps: []runStep{
		{err: errors.New("boom 1")},
		{err: errors.New("boom 2")},
		{response: "recovered"},
	}}
	tracker := &fakeTracker{limit: 1000}
	o, selector := newTestOrchestrator(builder, tracker, 2, 3)

	outcome := o.Execute(context.Background(), "hello", "alice")

	if !outcome.Success {
		t.Fatalf("expected eventual success, got %+v", outcome)
	}
	if outcome.AttemptCount != 3 {
		t.Errorf("attempts = %d, want 3", outcome.AttemptCount)
	}
	if !outcome.FallbackUsed || outcome.ModelUsed != "fallback-model" {
		t.Errorf("expected fallback model in effect, got model=%q fallback=%v",
			outcome.ModelUsed, outcome.FallbackUsed)
	}
	// Team is rebuilt once, when the selector switches models.
	want := []string{"primary-model", "fallback-model"}
	if len(builder.builds) != 2 || builder.builds[0] != want[0] || builder.builds[1] != want[1] {
		t.Errorf("builds = %v, want %v", builder.builds, want)
	}
	// Success resets the failure counter but the fallback stays sticky.
	if !selector.UsingFallback() {
		t.Error("selector must stay on fallback after success")
	}
	if len(tracker.recorded) != 1 || !tracker.recorded[0].fallback {
		t.Errorf("usage should be recorded against fallback, got %v", tracker.recorded)
	}
}

func TestExecuteExhaustsRetryBudget(t *testing.T) {
	builder := &scriptedBuilder{steps: []runStep{
		{err: errors.New("boom 1")},
		{err: errors.New("boom 2")},
		{err: errors.New("boom 3")},
	}}
	tracker := &fakeTracker{limit: 1000}
	o, _ := newTestOrchestrator(builder, tracker, 2, 3)

	outcome := o.Execute(context.Background(), "hello", "alice")

	if outcome.Success {
		t.Fatal("expected failure")
	}
	if outcome.AttemptCount != 3 {
		t.Errorf("attempts = %d, want 3", outcome.AttemptCount)
	}
	if outcome.Err == nil || outcome.Err.Kind != models.ErrorKindExecutionFailed {
		t.Errorf("error = %+v", outcome.Err)
	}
	if !strings.Contains(outcome.Err.Message, "boom 3") {
		t.Errorf("message should carry the last failure, got %q", outcome.Err.Message)
	}
	if !outcome.FallbackUsed {
		t.Error("fallback should have been tried after the threshold")
	}
	if len(tracker.recorded) != 0 {
		t.Errorf("failed runs must not record usage, got %v", tracker.recorded)
	}
}

func TestExecuteReportsModelFormatErrors(t *testing.T) {
	builder := &scriptedBuilder{steps: []runStep{
		{err: errors.New("decode: unexpected response format from model")},
	}}
	tracker := &fakeTracker{limit: 1000}
	o, _ := newTestOrchestrator(builder, tracker, 5, 1)

	outcome := o.Execute(context.Background(), "hello", "alice")

	if outcome.Success || outcome.Err == nil {
		t.Fatalf("expected failure, got %+v", outcome)
	}
	if outcome.Err.Kind != models.ErrorKindModelFormat {
		t.Errorf("kind = %q, want %q", outcome.Err.Kind, models.ErrorKindModelFormat)
	}
}

func TestExecuteBuildFailureIsHard(t *testing.T) {
	builder := &scriptedBuilder{buildErr: team.ErrUnknownCategory}
	tracker := &fakeTracker{limit: 1000}
	o, _ := newTestOrchestrator(builder, tracker, 2, 3)

	outcome := o.Execute(context.Background(), "hello", "alice")

	if outcome.Success {
		t.Fatal("expected failure")
	}
	if outcome.AttemptCount != 0 {
		t.Errorf("build failure spends no attempts, got %d", outcome.AttemptCount)
	}
}

func collectEvents(t *testing.T, ch <-chan models.ProgressEvent) []models.ProgressEvent {
	t.Helper()
	var events []models.ProgressEvent
	for ev := range ch {
		events = append(events, ev)
	}
	if len(events) == 0 {
		t.Fatal("expected events")
	}
	return events
}

func assertSingleTerminalLast(t *testing.T, events []models.ProgressEvent) {
	t.Helper()
	terminals := 0
	for _, ev := range events {
		if ev.Kind.Terminal() {
			terminals++
		}
	}
	if terminals != 1 {
		t.Errorf("expected exactly one terminal event, got %d", terminals)
	}
	if !events[len(events)-1].Kind.Terminal() {
		t.Errorf("terminal event must be last, got %s", events[len(events)-1].Kind)
	}
}

func TestStreamChunksNonStreamingTeam(t *testing.T) {
	builder := &scriptedBuilder{steps: []runStep{{response: "A B C D E F"}}}
	tracker := &fakeTracker{limit: 1000}
	o, _ := newTestOrchestrator(builder, tracker, 2, 3)

	events := collectEvents(t, o.Stream(context.Background(), "hello", "alice"))
	assertSingleTerminalLast(t, events)

	var routing, messages int
	var concat strings.Builder
	for _, ev := range events {
		switch ev.Kind {
		case models.EventRouting:
			routing++
		case models.EventMessage:
			messages++
			concat.WriteString(ev.Content)
		}
	}
	if routing != 2 {
		t.Errorf("routing events = %d, want 2", routing)
	}
	if messages != 3 {
		t.Errorf("message chunks = %d, want 3 for 6 words at 2 per chunk", messages)
	}
	if concat.String() != "A B C D E F" {
		t.Errorf("chunk concatenation = %q, want original text", concat.String())
	}
	final := events[len(events)-1]
	if final.Kind != models.EventFinal || final.Content != "A B C D E F" {
		t.Errorf("final event = %+v", final)
	}
	if len(tracker.recorded) != 1 {
		t.Errorf("expected one usage record, got %v", tracker.recorded)
	}
}

func TestStreamRelaysNativeStream(t *testing.T) {
	builder := &scriptedBuilder{stream: []team.Message{
		{Source: "SQLAgent", Content: "Executing: SELECT 1"},
		{Source: "SQLAgent", Content: "Tool result:\n1 row"},
		{Source: "AnalysisAgent", Content: "One row found."},
		{Source: "ValidationAgent", Content: "APPROVED"},
	}}
	tracker := &fakeTracker{limit: 1000}
	o, _ := newTestOrchestrator(builder, tracker, 2, 3)

	events := collectEvents(t, o.Stream(context.Background(), "hello", "alice"))
	assertSingleTerminalLast(t, events)

	kinds := make([]models.EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	want := []models.EventKind{
		models.EventRouting, models.EventRouting,
		models.EventAction, models.EventToolResult,
		models.EventAnalysis, models.EventValidation,
		models.EventFinal,
	}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d kind = %s, want %s", i, kinds[i], want[i])
		}
	}
	final := events[len(events)-1]
	if final.Content != "One row found." {
		t.Errorf("final content should be the analysis, got %q", final.Content)
	}
}

func TestStreamDeliversErrorTerminal(t *testing.T) {
	builder := &scriptedBuilder{steps: []runStep{{err: errors.New("model unavailable")}}}
	tracker := &fakeTracker{limit: 1000}
	o, _ := newTestOrchestrator(builder, tracker, 2, 1)

	events := collectEvents(t, o.Stream(context.Background(), "hello", "alice"))
	assertSingleTerminalLast(t, events)

	final := events[len(events)-1]
	if final.Kind != models.EventError {
		t.Errorf("expected error terminal, got %s", final.Kind)
	}
	if len(tracker.recorded) != 0 {
		t.Errorf("failed stream must not record usage, got %v", tracker.recorded)
	}
}

func TestStreamQuotaRefusal(t *testing.T) {
	builder := &scriptedBuilder{steps: []runStep{{response: "should not run"}}}
	tracker := &fakeTracker{exceeded: true, used: 1000, limit: 1000}
	o, _ := newTestOrchestrator(builder, tracker, 2, 3)

	events := collectEvents(t, o.Stream(context.Background(), "hello", "alice"))
	assertSingleTerminalLast(t, events)

	final := events[len(events)-1]
	if final.Kind != models.EventError || !strings.Contains(final.Content, "quota") {
		t.Errorf("expected quota error terminal, got %+v", final)
	}
	if len(builder.builds) != 0 {
		t.Errorf("no team should be built on refusal, built %v", builder.builds)
	}
}

func TestClassifyEvent(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		content string
		want    models.EventKind
	}{
		{"router source", "Router", "anything", models.EventRouting},
		{"tool result beats validation source", "ValidationAgent", "Tool result: ok", models.EventToolResult},
		{"executing prefix", "SQLAgent", "Executing: SELECT 1", models.EventAction},
		{"approved verdict", "SomeAgent", "APPROVED", models.EventValidation},
		{"rejected verdict", "SomeAgent", "REJECTED: bad", models.EventValidation},
		{"analysis source", "AnalysisAgent", "Revenue grew 4%.", models.EventAnalysis},
		{"thinking narration", "SQLAgent", "Let me check the schema first", models.EventThinking},
		{"default message", "SQLAgent", "Here is the query plan.", models.EventMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyEvent(tt.source, tt.content); got != tt.want {
				t.Errorf("ClassifyEvent(%q, %q) = %s, want %s", tt.source, tt.content, got, tt.want)
			}
		})
	}
}

func TestNormalizeContent(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, ""},
		{"string passthrough", "hello", "hello"},
		{"string slice", []string{"a", "b"}, "a\nb"},
		{"any slice", []any{"a", 2}, "a\n2"},
		{"map sorted", map[string]any{"b": 2, "a": "x"}, "a: x\nb: 2"},
		{"number", 42, "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeContent(tt.input); got != tt.want {
				t.Errorf("NormalizeContent(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestChunkResponseRoundTrip(t *testing.T) {
	text := "one two three four five six seven"
	chunks := ChunkResponse(text, 3)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if strings.Join(chunks, "") != text {
		t.Errorf("concatenation = %q, want %q", strings.Join(chunks, ""), text)
	}
	if got := ChunkResponse("", 3); got != nil {
		t.Errorf("empty text should produce no chunks, got %v", got)
	}
}

func TestIsModelFormatError(t *testing.T) {
	if !IsModelFormatError(errors.New("TypeError: string indices must be integers")) {
		t.Error("expected match for string indices error")
	}
	if IsModelFormatError(errors.New("connection refused")) {
		t.Error("transient network error is not a format error")
	}
	if IsModelFormatError(nil) {
		t.Error("nil is not a format error")
	}
}
