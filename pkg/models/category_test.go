package models

import "testing"

func TestCategoryValid(t *testing.T) {
	if !CategoryDataAnalysis.Valid() || !CategoryGeneral.Valid() {
		t.Error("known categories must be valid")
	}
	if Category("nonsense").Valid() {
		t.Error("unknown category must be invalid")
	}
}

func TestEventKindTerminal(t *testing.T) {
	if !EventFinal.Terminal() || !EventError.Terminal() {
		t.Error("final and error are terminal")
	}
	for _, k := range []EventKind{EventRouting, EventThinking, EventAction, EventToolResult, EventValidation, EventAnalysis, EventMessage} {
		if k.Terminal() {
			t.Errorf("%s must not be terminal", k)
		}
	}
}
