package team

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// Prompts holds the agent system prompts. Prompts are data: operators can
// override any of them from a YAML file without rebuilding.
type Prompts struct {
	SQLAgent         string `yaml:"sql_agent"`
	AnalysisAgent    string `yaml:"analysis_agent"`
	ValidationAgent  string `yaml:"validation_agent"`
	GeneralAssistant string `yaml:"general_assistant"`
}

// DefaultPrompts returns the built-in agent system prompts.
func DefaultPrompts() Prompts {
	return Prompts{
		SQLAgent: `You are a SQL expert connected to a read-only analytics warehouse.

You will be given the available tables with their columns, and a task.
Respond with exactly one SELECT statement that answers the task, inside a
` + "```sql" + ` fenced block. Do not ask clarifying questions; make reasonable
assumptions and query directly.

Safety rules:
- SELECT statements only; never DROP, DELETE, TRUNCATE, ALTER, INSERT, or UPDATE.
- Prefer LIMIT for exploration.`,

		AnalysisAgent: `You are a data analyst.

You will be given a task and the rows retrieved for it. Provide key figures,
trends, and a direct answer to the task. Be brief and data-driven.`,

		ValidationAgent: `You are a QA specialist reviewing a data analysis.

Check that the query was safe and the conclusions follow from the rows.
Respond with exactly "APPROVED" or "REJECTED: <reason>". Keep it short.`,

		GeneralAssistant: `You are a helpful assistant.

Handle math calculations, unit conversions, general knowledge, and simple
questions. Be concise and direct. Provide the answer clearly.`,
	}
}

// LoadPrompts reads prompt overrides from a YAML file and merges them over
// the defaults. Empty fields in the file keep the built-in prompt.
func LoadPrompts(path string) (Prompts, error) {
	prompts := DefaultPrompts()

	data, err := os.ReadFile(path)
	if err != nil {
		return prompts, fmt.Errorf("reading prompts file: %w", err)
	}

	var overrides Prompts
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return prompts, fmt.Errorf("parsing prompts file: %w", err)
	}

	if overrides.SQLAgent != "" {
		prompts.SQLAgent = overrides.SQLAgent
	}
	if overrides.AnalysisAgent != "" {
		prompts.AnalysisAgent = overrides.AnalysisAgent
	}
	if overrides.ValidationAgent != "" {
		prompts.ValidationAgent = overrides.ValidationAgent
	}
	if overrides.GeneralAssistant != "" {
		prompts.GeneralAssistant = overrides.GeneralAssistant
	}

	return prompts, nil
}
