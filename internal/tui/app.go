// Package tui provides the terminal user interface for watching a streamed
// task run.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/taskfleet/taskfleet/pkg/models"
)

// EventMsg wraps one progress event for the TUI.
type EventMsg struct {
	Event models.ProgressEvent
}

// StreamDoneMsg signals that the event stream has closed.
type StreamDoneMsg struct{}

// App is the bubbletea model for a streamed task run. It renders each
// progress event as it arrives and stops spinning once the terminal event
// lands.
type App struct {
	// task is the task description shown in the header.
	task string
	// events is the stream feeding the view.
	events <-chan models.ProgressEvent
	// lines are the rendered event lines in arrival order.
	lines []string
	// spin is the activity indicator shown while the run is live.
	spin spinner.Model
	// done indicates the stream has closed.
	done bool
	// failed indicates the terminal event was an error.
	failed bool
	// width is the terminal width.
	width int
}

// New creates a TUI app over the given event stream.
func New(task string, events <-chan models.ProgressEvent) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	return &App{
		task:   task,
		events: events,
		spin:   sp,
	}
}

// waitForEvent blocks on the stream and converts the next event to a message.
func waitForEvent(events <-chan models.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return StreamDoneMsg{}
		}
		return EventMsg{Event: ev}
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spin.Tick, waitForEvent(a.events))
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width

	case EventMsg:
		a.lines = append(a.lines, renderEvent(msg.Event))
		if msg.Event.Kind == models.EventError {
			a.failed = true
		}
		return a, waitForEvent(a.events)

	case StreamDoneMsg:
		a.done = true
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd
	}

	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	var out string
	out += headerStyle.Render("Task: "+a.task) + "\n\n"

	for _, line := range a.lines {
		out += line + "\n"
	}

	switch {
	case a.done && a.failed:
		out += "\n" + errorStyle.Render("Run failed.") + " Press q to exit.\n"
	case a.done:
		out += "\n" + finalStyle.Render("Run complete.") + " Press q to exit.\n"
	default:
		out += fmt.Sprintf("\n%s working...\n", a.spin.View())
	}
	return out
}

// Done reports whether the stream has closed.
func (a *App) Done() bool {
	return a.done
}

// Failed reports whether the run ended in an error.
func (a *App) Failed() bool {
	return a.failed
}
