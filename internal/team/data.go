package team

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/taskfleet/taskfleet/internal/llm"
	"github.com/taskfleet/taskfleet/internal/warehouse"
)

// DataTeam answers warehouse questions with a three-agent pipeline:
// SQLAgent writes and executes a read-only query, AnalysisAgent interprets
// the rows, and ValidationAgent reviews the conclusion. It implements
// Streamer, so callers see each agent's messages as they occur.
type DataTeam struct {
	model    string
	gen      llm.Generator
	wh       *warehouse.Executor
	prompts  Prompts
	maxTurns int
}

// NewDataTeam constructs a data analysis team bound to the given model.
// maxTurns bounds the total number of model calls to prevent repair loops
// from running away; values below 4 are raised to 4 (one per agent plus one
// repair).
func NewDataTeam(gen llm.Generator, wh *warehouse.Executor, model string, prompts Prompts, maxTurns int) *DataTeam {
	if maxTurns < 4 {
		maxTurns = 4
	}
	return &DataTeam{
		model:    model,
		gen:      gen,
		wh:       wh,
		prompts:  prompts,
		maxTurns: maxTurns,
	}
}

// Name returns the team's display name.
func (t *DataTeam) Name() string {
	return "DataAnalysisTeam"
}

// Run executes the pipeline and collects all intermediate messages.
func (t *DataTeam) Run(ctx context.Context, task string) (*RunResult, error) {
	var messages []Message
	result, err := t.runPipeline(ctx, task, func(m Message) {
		messages = append(messages, m)
	})
	if err != nil {
		return nil, err
	}
	result.Messages = messages
	return result, nil
}

// RunStream executes the pipeline in the background, delivering messages as
// they occur. The channel is closed after the final message; a terminal
// failure arrives as a Message with Err set.
func (t *DataTeam) RunStream(ctx context.Context, task string) <-chan Message {
	out := make(chan Message)

	go func() {
		defer close(out)

		emit := func(m Message) {
			select {
			case out <- m:
			case <-ctx.Done():
			}
		}

		if _, err := t.runPipeline(ctx, task, emit); err != nil {
			emit(Message{Source: "System", Err: err})
		}
	}()

	return out
}

// runPipeline drives the agent sequence, calling emit for every intermediate
// message in order.
func (t *DataTeam) runPipeline(ctx context.Context, task string, emit func(Message)) (*RunResult, error) {
	log.Printf("[team] %s running task", t.Name())

	turns := 0
	tokens := 0
	call := func(system, prompt string) (string, error) {
		if turns >= t.maxTurns {
			return "", fmt.Errorf("turn limit (%d) reached", t.maxTurns)
		}
		turns++
		res, err := t.gen.Generate(ctx, t.model, system, prompt)
		if err != nil {
			return "", err
		}
		tokens += int(res.OutputTokens)
		return res.Text, nil
	}

	// SQL agent: describe the warehouse, ask for one SELECT, execute it.
	schema, err := t.describeWarehouse(ctx)
	if err != nil {
		return nil, fmt.Errorf("inspect warehouse: %w", err)
	}

	sqlPrompt := fmt.Sprintf("Available tables:\n%s\nTask: %s", schema, task)
	sqlText, err := call(t.prompts.SQLAgent, sqlPrompt)
	if err != nil {
		return nil, fmt.Errorf("sql agent: %w", err)
	}
	emit(Message{Source: "SQLAgent", Content: sqlText})

	query := ExtractSQL(sqlText)
	if query == "" {
		return nil, fmt.Errorf("sql agent produced no SELECT statement")
	}
	emit(Message{Source: "SQLAgent", Content: "Executing: " + query})

	rows, err := t.wh.Query(ctx, query)
	if err != nil {
		// One repair round: show the agent its error and ask again.
		repairPrompt := fmt.Sprintf("%s\n\nYour previous query failed:\n%s\nError: %v\nProduce a corrected SELECT statement.",
			sqlPrompt, query, err)
		sqlText, err = call(t.prompts.SQLAgent, repairPrompt)
		if err != nil {
			return nil, fmt.Errorf("sql agent repair: %w", err)
		}
		query = ExtractSQL(sqlText)
		if query == "" {
			return nil, fmt.Errorf("sql agent repair produced no SELECT statement")
		}
		emit(Message{Source: "SQLAgent", Content: "Executing: " + query})
		rows, err = t.wh.Query(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("query failed after repair: %w", err)
		}
	}
	emit(Message{Source: "SQLAgent", Content: "Tool result:\n" + rows.Format()})

	// Analysis agent interprets the rows.
	analysisPrompt := fmt.Sprintf("Task: %s\n\nRetrieved rows:\n%s", task, rows.Format())
	analysis, err := call(t.prompts.AnalysisAgent, analysisPrompt)
	if err != nil {
		return nil, fmt.Errorf("analysis agent: %w", err)
	}
	emit(Message{Source: "AnalysisAgent", Content: analysis})

	// Validation agent reviews the conclusion.
	validationPrompt := fmt.Sprintf("Task: %s\nQuery: %s\nAnalysis:\n%s", task, query, analysis)
	verdict, err := call(t.prompts.ValidationAgent, validationPrompt)
	if err != nil {
		return nil, fmt.Errorf("validation agent: %w", err)
	}
	emit(Message{Source: "ValidationAgent", Content: verdict})

	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(verdict)), "REJECTED") {
		return nil, fmt.Errorf("validation rejected the analysis: %s", strings.TrimSpace(verdict))
	}

	return &RunResult{Response: analysis, TokensUsed: tokens}, nil
}

// describeWarehouse renders the table layout handed to the SQL agent.
func (t *DataTeam) describeWarehouse(ctx context.Context) (string, error) {
	tables, err := t.wh.ListTables(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, table := range tables {
		cols, err := t.wh.TableSchema(ctx, table)
		if err != nil {
			return "", err
		}
		sb.WriteString(table)
		sb.WriteString(" (")
		for i, col := range cols {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(col[0])
			sb.WriteString(" ")
			sb.WriteString(col[1])
		}
		sb.WriteString(")\n")
	}
	return sb.String(), nil
}

// ExtractSQL pulls the SELECT statement out of an agent response. It prefers
// a ```sql fenced block and falls back to the first line starting with
// SELECT or WITH.
func ExtractSQL(text string) string {
	lower := strings.ToLower(text)

	if idx := strings.Index(lower, "```sql"); idx != -1 {
		rest := text[idx+len("```sql"):]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
	}
	if idx := strings.Index(lower, "```"); idx != -1 {
		rest := text[idx+3:]
		if end := strings.Index(rest, "```"); end != -1 {
			candidate := strings.TrimSpace(rest[:end])
			lc := strings.ToLower(candidate)
			if strings.HasPrefix(lc, "select") || strings.HasPrefix(lc, "with") {
				return candidate
			}
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		lc := strings.ToLower(trimmed)
		if strings.HasPrefix(lc, "select") || strings.HasPrefix(lc, "with") {
			return trimmed
		}
	}

	return ""
}
