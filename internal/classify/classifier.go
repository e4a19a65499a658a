// Package classify maps free-form task descriptions to a routing category.
//
// Classification is a two-tier keyword heuristic. Tier one looks for strong
// data/database indicators; tier two looks for simple-task indicators with a
// data-entity double check. The tables are plain data so tests can exercise
// precedence directly and new indicators can be added without touching
// control flow. Classification always resolves to exactly one category and
// never fails: ambiguous or empty input defaults to the general category
// with zero confidence.
package classify

import (
	"strings"

	"github.com/taskfleet/taskfleet/pkg/models"
)

// dataIndicators are tier-one signals: any match routes to data analysis.
var dataIndicators = []string{
	// Action verbs
	"show", "list", "display", "fetch", "retrieve",
	"analyze", "compare", "query",

	// Question starters
	"how many", "what are", "who are",

	// Database terms
	"table", "database", "sql", "data",

	// Business entities
	"sales", "customer", "product", "order", "revenue",
	"employee", "supplier", "inventory", "transaction",
}

// generalIndicators are tier-two signals for simple assistant tasks.
var generalIndicators = []string{
	"what is", "calculate", "compute", "convert",
	"how much", "percentage", "sum", "multiply", "divide",
}

// dataEntities double-checks tier-two matches: a simple-sounding task that
// mentions one of these still concerns the warehouse.
var dataEntities = []string{
	"sales", "customer", "data", "table", "from the database",
}

// Classifier resolves task descriptions to categories with an advisory
// confidence score.
type Classifier struct {
	dataIndicators    []string
	generalIndicators []string
	dataEntities      []string
}

// NewClassifier creates a classifier with the built-in indicator tables.
func NewClassifier() *Classifier {
	return &Classifier{
		dataIndicators:    dataIndicators,
		generalIndicators: generalIndicators,
		dataEntities:      dataEntities,
	}
}

// Classify resolves a description to a category. It never returns an error:
// routing must always succeed, so anything without a clear signal lands on
// the general category with confidence 0.
func (c *Classifier) Classify(description string) models.ClassificationResult {
	text := strings.ToLower(strings.TrimSpace(description))
	if text == "" {
		return models.ClassificationResult{Category: models.CategoryGeneral, Confidence: 0}
	}

	// Tier 1: strong data indicators take precedence.
	if n := countMatches(text, c.dataIndicators); n > 0 {
		return models.ClassificationResult{
			Category:   models.CategoryDataAnalysis,
			Confidence: clamp(0.55+0.10*float64(n), 0.95),
		}
	}

	// Tier 2: simple-task indicators, unless a data entity sneaks in.
	if n := countMatches(text, c.generalIndicators); n > 0 && countMatches(text, c.dataEntities) == 0 {
		return models.ClassificationResult{
			Category:   models.CategoryGeneral,
			Confidence: clamp(0.50+0.15*float64(n), 0.90),
		}
	}

	// Default for ambiguous input.
	return models.ClassificationResult{Category: models.CategoryGeneral, Confidence: 0}
}

func countMatches(text string, indicators []string) int {
	n := 0
	for _, kw := range indicators {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

func clamp(v, max float64) float64 {
	if v > max {
		return max
	}
	return v
}
