package team

import (
	"fmt"

	"github.com/taskfleet/taskfleet/internal/llm"
	"github.com/taskfleet/taskfleet/internal/warehouse"
	"github.com/taskfleet/taskfleet/pkg/models"
)

// Factory builds teams for categories. Construction is pure wiring: no I/O
// happens until the team runs.
type Factory struct {
	gen      llm.Generator
	wh       *warehouse.Executor
	prompts  Prompts
	maxTurns int
}

// NewFactory creates a team factory. wh may be nil when no warehouse is
// configured; building the data team then fails at run time with a clear
// error rather than at wiring time.
func NewFactory(gen llm.Generator, wh *warehouse.Executor, prompts Prompts, maxTurns int) *Factory {
	return &Factory{
		gen:      gen,
		wh:       wh,
		prompts:  prompts,
		maxTurns: maxTurns,
	}
}

// Build returns a fresh team for the category, bound to the given model.
// Teams are never pooled: each request gets its own instance. An unknown
// category returns ErrUnknownCategory — a hard failure, since the category
// enum is closed and every routing path must map to a constructor here.
func (f *Factory) Build(category models.Category, model string) (Team, error) {
	switch category {
	case models.CategoryDataAnalysis:
		if f.wh == nil {
			return nil, fmt.Errorf("data analysis team requires a warehouse: none configured")
		}
		return NewDataTeam(f.gen, f.wh, model, f.prompts, f.maxTurns), nil
	case models.CategoryGeneral:
		return NewGeneralTeam(f.gen, model, f.prompts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
}
