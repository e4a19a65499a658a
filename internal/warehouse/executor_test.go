package warehouse

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckStatement(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{name: "plain select", query: "SELECT * FROM sales", wantErr: false},
		{name: "cte select", query: "WITH t AS (SELECT 1) SELECT * FROM t", wantErr: false},
		{name: "lowercase select", query: "select name from customers", wantErr: false},
		{name: "empty", query: "  ", wantErr: true},
		{name: "drop table", query: "DROP TABLE sales", wantErr: true},
		{name: "delete", query: "DELETE FROM sales", wantErr: true},
		{name: "sneaky drop in select", query: "SELECT 1; DROP TABLE sales", wantErr: true},
		{name: "update", query: "UPDATE sales SET amount = 0", wantErr: true},
		{name: "insert", query: "INSERT INTO sales VALUES (1)", wantErr: true},
		{name: "pragma", query: "PRAGMA journal_mode", wantErr: true},
		// Column names containing forbidden substrings are fine.
		{name: "created_at column passes", query: "SELECT created_at FROM sales", wantErr: false},
		{name: "updated_by column passes", query: "SELECT updated_by FROM sales", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckStatement(tt.query)
			if tt.wantErr && err == nil {
				t.Errorf("CheckStatement(%q) = nil, want error", tt.query)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("CheckStatement(%q) = %v, want nil", tt.query, err)
			}
		})
	}
}

func newTestExecutor(t *testing.T, maxRows int) *Executor {
	t.Helper()

	path := filepath.Join(t.TempDir(), "warehouse.db")
	e, err := Open(path, maxRows)
	if err != nil {
		t.Fatalf("open warehouse: %v", err)
	}
	t.Cleanup(func() { e.Close() })

	// Seed directly through the underlying connection.
	stmts := []string{
		`CREATE TABLE sales (id INTEGER PRIMARY KEY, region TEXT, amount REAL)`,
		`INSERT INTO sales (region, amount) VALUES ('north', 100.5), ('south', 200.0), ('east', 50.25)`,
	}
	for _, stmt := range stmts {
		if _, err := e.conn.Exec(stmt); err != nil {
			t.Fatalf("seed warehouse: %v", err)
		}
	}
	return e
}

func TestQuery(t *testing.T) {
	e := newTestExecutor(t, 100)

	result, err := e.Query(context.Background(), "SELECT region, amount FROM sales ORDER BY id")
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if len(result.Columns) != 2 || result.Columns[0] != "region" {
		t.Errorf("unexpected columns: %v", result.Columns)
	}
	if len(result.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(result.Rows))
	}
	if result.Rows[0][0] != "north" {
		t.Errorf("expected first row region north, got %s", result.Rows[0][0])
	}
	if result.Truncated {
		t.Error("result should not be truncated")
	}
}

func TestQueryRowCap(t *testing.T) {
	e := newTestExecutor(t, 2)

	result, err := e.Query(context.Background(), "SELECT * FROM sales")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Errorf("expected 2 rows at cap, got %d", len(result.Rows))
	}
	if !result.Truncated {
		t.Error("expected truncated result")
	}
	if !strings.Contains(result.Format(), "(result truncated)") {
		t.Error("formatted output should note truncation")
	}
}

func TestQueryRejectsWrites(t *testing.T) {
	e := newTestExecutor(t, 100)

	if _, err := e.Query(context.Background(), "DELETE FROM sales"); err == nil {
		t.Error("expected write statement to be rejected")
	}
}

func TestListTablesAndSchema(t *testing.T) {
	e := newTestExecutor(t, 100)

	tables, err := e.ListTables(context.Background())
	if err != nil {
		t.Fatalf("list tables: %v", err)
	}
	if len(tables) != 1 || tables[0] != "sales" {
		t.Errorf("expected [sales], got %v", tables)
	}

	cols, err := e.TableSchema(context.Background(), "sales")
	if err != nil {
		t.Fatalf("table schema: %v", err)
	}
	if len(cols) != 3 {
		t.Errorf("expected 3 columns, got %d", len(cols))
	}

	if _, err := e.TableSchema(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown table")
	}
	if _, err := e.TableSchema(context.Background(), "sales; DROP TABLE sales"); err == nil {
		t.Error("expected error for invalid table name")
	}
}
