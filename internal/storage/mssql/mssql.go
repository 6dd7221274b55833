// Package mssql implements the storage backend on Microsoft SQL Server,
// which the original deployment of this warehouse ran on.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"salesdw/internal/storage"
)

func init() {
	storage.Register("mssql", New)
}

// New opens a SQL Server connection pool and wraps it in the shared
// repository.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}

	// Conservative defaults for bursty API + ETL loads.
	db.SetMaxOpenConns(32)
	db.SetMaxIdleConns(32)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return storage.NewSQL(db, dialect{}), nil
}

type dialect struct{}

func (dialect) Name() string { return "mssql" }

func (dialect) Rebind(query string) string {
	return storage.RebindPositional(query, func(n int) string {
		return fmt.Sprintf("@p%d", n)
	})
}

// LimitOffset uses OFFSET/FETCH; every repository query that paginates
// carries the ORDER BY SQL Server requires.
func (dialect) LimitOffset(limit, offset int) string {
	return fmt.Sprintf(" OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", offset, limit)
}

func columnType(c storage.ColumnSpec) string {
	switch c.Type {
	case storage.TypeText:
		if c.Len > 0 {
			return fmt.Sprintf("NVARCHAR(%d)", c.Len)
		}
		return "NVARCHAR(255)"
	case storage.TypeInt:
		return "INT"
	case storage.TypeBigInt:
		return "BIGINT"
	case storage.TypeMoney:
		return "DECIMAL(10,2)"
	case storage.TypeDate:
		return "DATE"
	case storage.TypeFlag:
		return "TINYINT"
	default:
		return "NVARCHAR(255)"
	}
}

// CreateTable renders conditional DDL. SQL Server has no
// CREATE TABLE IF NOT EXISTS, so the statement guards on OBJECT_ID.
func (dialect) CreateTable(t storage.TableSpec) string {
	parts := []string{"id BIGINT IDENTITY(1,1) PRIMARY KEY"}

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

	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (\n  %s\n);",
		t.Name, t.Name, strings.Join(parts, ",\n  "))
}

func (d dialect) InsertReturningID(ctx context.Context, q storage.Queryer, table string, columns []string, values []any) (int64, error) {
	ph := strings.TrimRight(strings.Repeat("?,", len(columns)), ",")
	query := d.Rebind(fmt.Sprintf("INSERT INTO %s (%s) OUTPUT INSERTED.id VALUES (%s)",
		table, strings.Join(columns, ", "), ph))

	var id int64
	if err := q.QueryRowContext(ctx, query, values...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
