// Package sqlite implements the storage backend on modernc.org/sqlite.
// It is the default for local development and backs the repository-level
// tests; no cgo is required.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"salesdw/internal/storage"
)

func init() {
	storage.Register("sqlite", New)
}

// New opens a SQLite database and wraps it in the shared repository.
//
// SQLite notes:
//   - Calendar days are stored as TEXT in the canonical yyyy-mm-dd form.
//   - Foreign keys are declared but enforcement depends on
//     PRAGMA foreign_keys=ON; the pipeline does not rely on it.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// The modernc driver serializes access per connection; a single
	// connection avoids SQLITE_BUSY under concurrent API handlers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return storage.NewSQL(db, dialect{}), nil
}

type dialect struct{}

func (dialect) Name() string { return "sqlite" }

// Rebind is a no-op: the driver takes '?' placeholders natively.
func (dialect) Rebind(query string) string { return query }

func (dialect) LimitOffset(limit, offset int) string {
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}

func columnType(c storage.ColumnSpec) string {
	switch c.Type {
	case storage.TypeText:
		return "TEXT"
	case storage.TypeInt, storage.TypeBigInt, storage.TypeFlag:
		return "INTEGER"
	case storage.TypeMoney:
		return "NUMERIC"
	case storage.TypeDate:
		// Stored as the canonical day key; see storage.ScanDay.
		return "TEXT"
	default:
		return "TEXT"
	}
}

// CreateTable renders CREATE TABLE IF NOT EXISTS DDL.
// "INTEGER PRIMARY KEY AUTOINCREMENT" makes id the rowid and
// auto-generates monotonically increasing, never-reused values.
func (dialect) CreateTable(t storage.TableSpec) string {
	parts := []string{"id INTEGER PRIMARY KEY AUTOINCREMENT"}

	for _, c := range t.Columns {
		col := c.Name + " " + columnType(c)
		if !c.Nullable {
			col += " NOT NULL"
		}
		if c.References != "" {
			col += " REFERENCES " + c.References + "(id)"
		}
		parts = append(parts, col)
	}

	for _, u := range t.Uniques {
		parts = append(parts, "UNIQUE ("+strings.Join(u, ", ")+")")
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		t.Name, strings.Join(parts, ",\n  "))
}

func (dialect) InsertReturningID(ctx context.Context, q storage.Queryer, table string, columns []string, values []any) (int64, error) {
	ph := strings.TrimRight(strings.Repeat("?,", len(columns)), ",")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), ph)

	res, err := q.ExecContext(ctx, query, values...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
