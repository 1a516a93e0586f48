package api

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

const (
	// maxQueryRows caps the rows returned by /api/v1/query.
	maxQueryRows = 1000
	queryTimeout = 30 * time.Second
)

// readOnlyVerbs are the statements /api/v1/query accepts.
var readOnlyVerbs = []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "SUMMARIZE", "EXPLAIN"}

// DBHandler exposes the DuckDB store for ad-hoc inspection.
type DBHandler struct {
	db *sql.DB
}

// NewDBHandler creates the handler; a nil db answers 503.
func NewDBHandler(db *sql.DB) *DBHandler {
	return &DBHandler{db: db}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("db"))
	huma.Post(api, "/api/v1/query", h.Query, huma.OperationTags("db"))
}

type TablesBody struct {
	Tables []string `json:"tables" doc:"DuckDB table names"`
}

type QueryInput struct {
	Body struct {
		Query string `json:"query" required:"true" doc:"Single read-only SQL statement" example:"SELECT lot_no, status FROM lots"`
	}
}

type QueryBody struct {
	Columns   []string         `json:"columns" doc:"Column names"`
	Rows      []map[string]any `json:"rows" doc:"Result rows"`
	Count     int              `json:"count" doc:"Number of rows returned"`
	Truncated bool             `json:"truncated,omitempty" doc:"Whether rows were cut at the row limit"`
}

// ListTables returns all DuckDB tables, including the imported lots table.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*struct{ Body TablesBody }, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	rows, err := h.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, huma.Error500InternalServerError("Failed to list tables", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	return &struct{ Body TablesBody }{Body: TablesBody{Tables: tables}}, nil
}

// Query runs one read-only statement and returns at most maxQueryRows rows.
func (h *DBHandler) Query(ctx context.Context, input *QueryInput) (*struct{ Body QueryBody }, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	if !readOnly(input.Body.Query) {
		return nil, huma.Error400BadRequest("Only single read-only statements are allowed")
	}

	body, err := h.run(ctx, input.Body.Query)
	if err != nil {
		return nil, err
	}
	return &struct{ Body QueryBody }{Body: body}, nil
}

// run executes q inside a transaction that is always rolled back, so no
// statement can leave changes behind.
func (h *DBHandler) run(ctx context.Context, q string) (QueryBody, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return QueryBody{}, huma.Error500InternalServerError("Failed to begin query", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, q)
	if err != nil {
		return QueryBody{}, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return QueryBody{}, huma.Error500InternalServerError("Failed to get columns", err)
	}

	body := QueryBody{Columns: columns, Rows: []map[string]any{}}
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if len(body.Rows) == maxQueryRows {
			body.Truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return QueryBody{}, huma.Error500InternalServerError("Failed to read row", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		body.Rows = append(body.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return QueryBody{}, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	body.Count = len(body.Rows)
	return body, nil
}

// readOnly reports whether q is a single read-only statement. EXPLAIN
// ANALYZE runs the statement it explains and is refused.
func readOnly(q string) bool {
	q = strings.TrimSuffix(strings.TrimSpace(q), ";")
	if strings.Contains(q, ";") {
		return false
	}
	fields := strings.Fields(q)
	if len(fields) == 0 {
		return false
	}
	verb := strings.ToUpper(fields[0])
	if verb == "EXPLAIN" && strings.Contains(strings.ToUpper(q), "ANALYZE") {
		return false
	}
	for _, v := range readOnlyVerbs {
		if verb == v {
			return true
		}
	}
	return false
}
