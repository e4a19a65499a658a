// Package warehouse provides the read-only SQL query executor backing the
// data analysis team's tools. A local SQLite database stands in for the
// external warehouse; the executor only enforces the safety contract and
// result shaping at this boundary.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// forbiddenKeywords are statement keywords agents may never execute.
var forbiddenKeywords = []string{
	"drop", "delete", "truncate", "alter",
	"insert", "update", "create", "replace",
	"attach", "detach", "pragma", "vacuum",
}

// Executor runs read-only queries against the warehouse database.
type Executor struct {
	conn    *sql.DB
	maxRows int
}

// Open opens the warehouse database at the given path. maxRows caps result
// sets returned to agents; values below 1 default to 100.
func Open(path string, maxRows int) (*Executor, error) {
	if maxRows < 1 {
		maxRows = 100
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open warehouse database: %w", err)
	}

	return &Executor{conn: conn, maxRows: maxRows}, nil
}

// Close closes the database connection.
func (e *Executor) Close() error {
	return e.conn.Close()
}

// QueryResult is a shaped, row-capped query result.
type QueryResult struct {
	// Columns are the result column names in order.
	Columns []string
	// Rows are the stringified result rows, at most maxRows of them.
	Rows [][]string
	// Truncated is true when the result was cut at the row cap.
	Truncated bool
}

// CheckStatement validates that a SQL statement is a plain read. It returns
// an error for anything that is not a SELECT/WITH statement or that contains
// a forbidden keyword.
func CheckStatement(query string) error {
	trimmed := strings.ToLower(strings.TrimSpace(query))
	if trimmed == "" {
		return fmt.Errorf("empty SQL statement")
	}

	if !strings.HasPrefix(trimmed, "select") && !strings.HasPrefix(trimmed, "with") {
		return fmt.Errorf("only SELECT statements are allowed")
	}

	for _, kw := range forbiddenKeywords {
		// Word-boundary check so column names like "created_at" pass.
		for idx := strings.Index(trimmed, kw); idx != -1; idx = nextIndex(trimmed, kw, idx) {
			before := idx == 0 || !isWordChar(trimmed[idx-1])
			afterIdx := idx + len(kw)
			after := afterIdx >= len(trimmed) || !isWordChar(trimmed[afterIdx])
			if before && after {
				return fmt.Errorf("forbidden SQL keyword: %s", strings.ToUpper(kw))
			}
		}
	}

	return nil
}

func nextIndex(s, sub string, from int) int {
	rest := strings.Index(s[from+1:], sub)
	if rest == -1 {
		return -1
	}
	return from + 1 + rest
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_'
}

// Query executes a validated read-only statement and returns a row-capped
// result.
func (e *Executor) Query(ctx context.Context, query string) (*QueryResult, error) {
	if err := CheckStatement(query); err != nil {
		return nil, err
	}

	log.Printf("[warehouse] executing query: %s", firstLine(query))

	rows, err := e.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := &QueryResult{Columns: columns}
	values := make([]any, len(columns))
	scanTargets := make([]any, len(columns))
	for i := range values {
		scanTargets[i] = &values[i]
	}

	for rows.Next() {
		if len(result.Rows) >= e.maxRows {
			result.Truncated = true
			break
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = stringify(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return result, nil
}

// ListTables returns the base table names in the warehouse.
func (e *Executor) ListTables(ctx context.Context) ([]string, error) {
	rows, err := e.conn.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// TableSchema returns column name/type pairs for a table.
func (e *Executor) TableSchema(ctx context.Context, table string) ([][2]string, error) {
	// table_info does not accept bind parameters; validate the name instead.
	for i := 0; i < len(table); i++ {
		if !isWordChar(table[i]) && !(table[i] >= 'A' && table[i] <= 'Z') {
			return nil, fmt.Errorf("invalid table name: %s", table)
		}
	}

	rows, err := e.conn.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("read schema for %s: %w", table, err)
	}
	defer rows.Close()

	var cols [][2]string
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column info: %w", err)
		}
		cols = append(cols, [2]string{name, colType})
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return cols, rows.Err()
}

// Format renders a result as a compact text table for agent consumption.
func (r *QueryResult) Format() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(r.Columns, " | "))
	sb.WriteString("\n")
	for _, row := range r.Rows {
		sb.WriteString(strings.Join(row, " | "))
		sb.WriteString("\n")
	}
	if r.Truncated {
		sb.WriteString("(result truncated)\n")
	}
	return sb.String()
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		return s[:idx]
	}
	return s
}
