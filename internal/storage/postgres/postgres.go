// Package postgres implements the storage backend on PostgreSQL via the
// pgx driver's database/sql adapter.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"salesdw/internal/storage"
)

func init() {
	storage.Register("postgres", New)
}

// New opens a Postgres pool and wraps it in the shared repository.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return storage.NewSQL(db, dialect{}), nil
}

type dialect struct{}

func (dialect) Name() string { return "postgres" }

func (dialect) Rebind(query string) string {
	return storage.RebindPositional(query, func(n int) string {
		return fmt.Sprintf("$%d", n)
	})
}

func (dialect) LimitOffset(limit, offset int) string {
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}

func columnType(c storage.ColumnSpec) string {
	switch c.Type {
	case storage.TypeText:
		if c.Len > 0 {
			return fmt.Sprintf("VARCHAR(%d)", c.Len)
		}
		return "TEXT"
	case storage.TypeInt:
		return "INTEGER"
	case storage.TypeBigInt:
		return "BIGINT"
	case storage.TypeMoney:
		return "NUMERIC(10,2)"
	case storage.TypeDate:
		return "DATE"
	case storage.TypeFlag:
		// 0/1 across all backends; SMALLINT keeps int binds portable.
		return "SMALLINT"
	default:
		return "TEXT"
	}
}

// CreateTable renders CREATE TABLE IF NOT EXISTS DDL with a BIGSERIAL
// surrogate key and inline natural-key uniques.
func (dialect) CreateTable(t storage.TableSpec) string {
	parts := []string{"id BIGSERIAL PRIMARY KEY"}

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

func (d dialect) InsertReturningID(ctx context.Context, q storage.Queryer, table string, columns []string, values []any) (int64, error) {
	ph := strings.TrimRight(strings.Repeat("?,", len(columns)), ",")
	query := d.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		table, strings.Join(columns, ", "), ph))

	var id int64
	if err := q.QueryRowContext(ctx, query, values...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
