package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/taskfleet/taskfleet/pkg/models"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	routingStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	actionStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	toolStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	validationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("135"))
	analysisStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("36"))
	finalStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	messageStyle    = lipgloss.NewStyle()
)

// kindStyles maps event kinds to their display styles.
var kindStyles = map[models.EventKind]lipgloss.Style{
	models.EventRouting:    routingStyle,
	models.EventThinking:   toolStyle,
	models.EventAction:     actionStyle,
	models.EventToolResult: toolStyle,
	models.EventValidation: validationStyle,
	models.EventAnalysis:   analysisStyle,
	models.EventFinal:      finalStyle,
	models.EventError:      errorStyle,
	models.EventMessage:    messageStyle,
}

// renderEvent formats one progress event as a display line.
func renderEvent(ev models.ProgressEvent) string {
	style, ok := kindStyles[ev.Kind]
	if !ok {
		style = messageStyle
	}
	label := style.Render(fmt.Sprintf("[%s]", ev.Kind))
	return fmt.Sprintf("%s %s: %s", label, ev.Source, ev.Content)
}
