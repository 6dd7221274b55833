package storage

import (
	"context"
	"database/sql"
	"strings"
)

// Queryer is the subset of database/sql shared by *sql.DB and *sql.Tx.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect captures the per-backend SQL differences the shared repository
// code cannot express portably: placeholder notation, identity retrieval,
// conditional DDL, and pagination syntax.
//
// The query text itself is written once with '?' placeholders; backends
// only rebind and render the few divergent fragments.
type Dialect interface {
	// Name returns the backend kind, e.g. "postgres".
	Name() string

	// Rebind converts '?' placeholders to the backend's notation
	// ($1.. for postgres, @p1.. for mssql, unchanged for sqlite).
	Rebind(query string) string

	// CreateTable renders idempotent DDL for one table spec, including
	// the identity surrogate key and all uniqueness constraints.
	CreateTable(t TableSpec) string

	// LimitOffset renders a pagination clause. Callers guarantee the
	// query carries an ORDER BY (SQL Server requires one).
	LimitOffset(limit, offset int) string

	// InsertReturningID inserts one row and returns the generated
	// identity value.
	InsertReturningID(ctx context.Context, q Queryer, table string, columns []string, values []any) (int64, error)
}

// RebindPositional rewrites '?' placeholders using the given renderer
// (1-based). Shared by backends whose drivers want numbered parameters.
// Quoted string literals are not expected in repository query text, so a
// plain scan is sufficient.
func RebindPositional(query string, render func(n int) string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteString(render(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
