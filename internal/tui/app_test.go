package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/taskfleet/taskfleet/pkg/models"
)

func TestAppCollectsEvents(t *testing.T) {
	events := make(chan models.ProgressEvent, 2)
	app := New("show sales", events)

	ev := models.ProgressEvent{
		Source:    "Router",
		Kind:      models.EventRouting,
		Content:   "Routing to DataAnalysisTeam",
		Timestamp: time.Now(),
	}
	model, _ := app.Update(EventMsg{Event: ev})
	app = model.(*App)

	if len(app.lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(app.lines))
	}
	if !strings.Contains(app.View(), "Routing to DataAnalysisTeam") {
		t.Errorf("view missing event content:\n%s", app.View())
	}
}

func TestAppMarksErrorTerminal(t *testing.T) {
	events := make(chan models.ProgressEvent)
	app := New("show sales", events)

	model, _ := app.Update(EventMsg{Event: models.ProgressEvent{
		Source: "Orchestrator", Kind: models.EventError, Content: "quota exceeded",
	}})
	app = model.(*App)
	model, _ = app.Update(StreamDoneMsg{})
	app = model.(*App)

	if !app.Done() || !app.Failed() {
		t.Errorf("done=%v failed=%v, want both true", app.Done(), app.Failed())
	}
	if !strings.Contains(app.View(), "Run failed.") {
		t.Errorf("view missing failure notice:\n%s", app.View())
	}
}

func TestWaitForEventSignalsClose(t *testing.T) {
	events := make(chan models.ProgressEvent)
	close(events)

	msg := waitForEvent(events)()
	if _, ok := msg.(StreamDoneMsg); !ok {
		t.Errorf("expected StreamDoneMsg, got %T", msg)
	}
}
