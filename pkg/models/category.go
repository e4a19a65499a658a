// Package models defines the shared value types exchanged between the
// classifier, team factory, executors, and transport boundary.
package models

// Category is the closed routing label that determines which team is
// constructed for a task.
type Category string

const (
	// CategoryDataAnalysis routes to the data analysis team (SQL, warehouse
	// queries, statistics over retrieved data).
	CategoryDataAnalysis Category = "data_analysis"
	// CategoryGeneral routes to the general assistant team (math, knowledge,
	// conversions). It is also the default for ambiguous tasks.
	CategoryGeneral Category = "general"
)

// Valid returns true if the category is a known value.
func (c Category) Valid() bool {
	switch c {
	case CategoryDataAnalysis, CategoryGeneral:
		return true
	default:
		return false
	}
}

// String returns the category label.
func (c Category) String() string {
	return string(c)
}

// ClassificationResult is the outcome of classifying a task description.
// Confidence is advisory: it is surfaced to the caller but never used to
// reject a request.
type ClassificationResult struct {
	// Category is the resolved routing label. Always a valid value.
	Category Category `json:"category"`
	// Confidence is in [0,1]. Zero means the classifier fell back to the
	// default without any signal.
	Confidence float64 `json:"confidence"`
}
