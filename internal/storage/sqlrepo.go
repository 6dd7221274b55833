package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"salesdw/internal/warehouse"
)

// sqlRepo is the shared database/sql implementation of Repository. All
// three backends reuse it; per-backend behavior lives in the Dialect.
type sqlRepo struct {
	db *sql.DB
	d  Dialect
}

// NewSQL wraps an open *sql.DB in the shared Repository implementation.
// Backend factories call this after opening and pinging their driver.
func NewSQL(db *sql.DB, d Dialect) Repository {
	return &sqlRepo{db: db, d: d}
}

func (r *sqlRepo) Close() { _ = r.db.Close() }

// q rebinds '?' placeholders for the backend.
func (r *sqlRepo) q(query string) string { return r.d.Rebind(query) }

// EnsureSchema creates all warehouse tables if they do not exist.
func (r *sqlRepo) EnsureSchema(ctx context.Context) error {
	for _, t := range Tables() {
		if _, err := r.db.ExecContext(ctx, r.d.CreateTable(t)); err != nil {
			return fmt.Errorf("%s: create table %s: %w", r.d.Name(), t.Name, err)
		}
	}
	return nil
}

func (r *sqlRepo) Begin(ctx context.Context) (Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin: %w", r.d.Name(), err)
	}
	return &sqlTx{tx: tx, r: r}, nil
}

// sqlTx is the ETL transaction scope over a *sql.Tx.
type sqlTx struct {
	tx *sql.Tx
	r  *sqlRepo
}

func (t *sqlTx) Commit() error   { return t.tx.Commit() }
func (t *sqlTx) Rollback() error { return t.tx.Rollback() }

func (t *sqlTx) AllRegions(ctx context.Context) ([]warehouse.Region, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT id, region_name, city FROM dim_region`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []warehouse.Region
	for rows.Next() {
		var r warehouse.Region
		if err := rows.Scan(&r.ID, &r.RegionName, &r.City); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (t *sqlTx) AllManagers(ctx context.Context) ([]warehouse.Manager, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT id, name FROM dim_manager`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []warehouse.Manager
	for rows.Next() {
		var m warehouse.Manager
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (t *sqlTx) AllSuppliers(ctx context.Context) ([]warehouse.Supplier, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT id, name, country FROM dim_supplier`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []warehouse.Supplier
	for rows.Next() {
		var s warehouse.Supplier
		var country sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &country); err != nil {
			return nil, err
		}
		s.Country = country.String
		out = append(out, s)
	}
	return out, rows.Err()
}

func (t *sqlTx) AllCategories(ctx context.Context) ([]warehouse.Category, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT id, name FROM dim_category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []warehouse.Category
	for rows.Next() {
		var c warehouse.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *sqlTx) AllProducts(ctx context.Context) ([]warehouse.Product, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT id, business_id, name, brand, category_id FROM dim_product`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []warehouse.Product
	for rows.Next() {
		var p warehouse.Product
		var brand sql.NullString
		if err := rows.Scan(&p.ID, &p.BusinessID, &p.Name, &brand, &p.CategoryID); err != nil {
			return nil, err
		}
		p.Brand = brand.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *sqlTx) AllDates(ctx context.Context) ([]warehouse.DateDim, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, date, year, quarter, month, day, month_name, day_name FROM dim_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []warehouse.DateDim
	for rows.Next() {
		var d warehouse.DateDim
		var raw any
		if err := rows.Scan(&d.ID, &raw, &d.Year, &d.Quarter, &d.Month, &d.Day, &d.MonthName, &d.DayName); err != nil {
			return nil, err
		}
		day, err := ScanDay(raw)
		if err != nil {
			return nil, fmt.Errorf("dim_date id=%d: %w", d.ID, err)
		}
		d.Date = day
		out = append(out, d)
	}
	return out, rows.Err()
}

func (t *sqlTx) InsertRegions(ctx context.Context, rows []warehouse.Region) error {
	vals := make([][]any, len(rows))
	for i, r := range rows {
		vals[i] = []any{r.RegionName, r.City}
	}
	return bulkInsert(ctx, t.tx, t.r, "dim_region", []string{"region_name", "city"}, vals)
}

func (t *sqlTx) InsertManagers(ctx context.Context, rows []warehouse.Manager) error {
	vals := make([][]any, len(rows))
	for i, m := range rows {
		vals[i] = []any{m.Name}
	}
	return bulkInsert(ctx, t.tx, t.r, "dim_manager", []string{"name"}, vals)
}

func (t *sqlTx) InsertSuppliers(ctx context.Context, rows []warehouse.Supplier) error {
	vals := make([][]any, len(rows))
	for i, s := range rows {
		vals[i] = []any{s.Name, nullIfEmpty(s.Country)}
	}
	return bulkInsert(ctx, t.tx, t.r, "dim_supplier", []string{"name", "country"}, vals)
}

func (t *sqlTx) InsertCategories(ctx context.Context, rows []warehouse.Category) error {
	vals := make([][]any, len(rows))
	for i, c := range rows {
		vals[i] = []any{c.Name}
	}
	return bulkInsert(ctx, t.tx, t.r, "dim_category", []string{"name"}, vals)
}

func (t *sqlTx) InsertProducts(ctx context.Context, rows []warehouse.Product) error {
	vals := make([][]any, len(rows))
	for i, p := range rows {
		vals[i] = []any{p.BusinessID, p.Name, nullIfEmpty(p.Brand), p.CategoryID}
	}
	return bulkInsert(ctx, t.tx, t.r, "dim_product",
		[]string{"business_id", "name", "brand", "category_id"}, vals)
}

func (t *sqlTx) InsertDates(ctx context.Context, rows []warehouse.DateDim) error {
	vals := make([][]any, len(rows))
	for i, d := range rows {
		vals[i] = []any{d.Key(), d.Year, d.Quarter, d.Month, d.Day, d.MonthName, d.DayName}
	}
	return bulkInsert(ctx, t.tx, t.r, "dim_date",
		[]string{"date", "year", "quarter", "month", "day", "month_name", "day_name"}, vals)
}

func (t *sqlTx) ExistingSaleIDs(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT sale_id FROM fact_sales`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]struct{}{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

var factColumns = []string{
	"sale_id", "date_id", "product_id", "manager_id", "supplier_id", "region_id",
	"quantity", "unit_price", "discount", "revenue", "payment_type", "sales_channel",
}

func (t *sqlTx) InsertFacts(ctx context.Context, rows []warehouse.FactSale) error {
	vals := make([][]any, len(rows))
	for i, f := range rows {
		vals[i] = []any{
			f.SaleID, f.DateID, f.ProductID, f.ManagerID, f.SupplierID, f.RegionID,
			f.Quantity, f.UnitPrice, f.Discount, f.Revenue,
			nullIfEmpty(f.PaymentType), nullIfEmpty(f.SalesChannel),
		}
	}
	return bulkInsert(ctx, t.tx, t.r, "fact_sales", factColumns, vals)
}

// maxRowsPerInsert bounds multi-row VALUES lists. SQL Server caps a
// statement at 2100 parameters; 100 rows of the widest table stays well
// under that on every backend.
const maxRowsPerInsert = 100

// bulkInsert issues chunked multi-row INSERTs. Plain inserts only: the
// callers have already filtered out existing rows, and the schema's
// uniqueness constraints are the backstop that fails loudly on races.
func bulkInsert(ctx context.Context, q Queryer, r *sqlRepo, table string, columns []string, rows [][]any) error {
	for len(rows) > 0 {
		n := len(rows)
		if n > maxRowsPerInsert {
			n = maxRowsPerInsert
		}
		chunk := rows[:n]
		rows = rows[n:]

		var b strings.Builder
		b.WriteString("INSERT INTO ")
		b.WriteString(table)
		b.WriteString(" (")
		b.WriteString(strings.Join(columns, ", "))
		b.WriteString(") VALUES ")

		rowPH := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"
		args := make([]any, 0, n*len(columns))
		for i, row := range chunk {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(rowPH)
			args = append(args, row...)
		}

		if _, err := q.ExecContext(ctx, r.q(b.String()), args...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ScanDay normalizes a DATE column value across backends. Postgres and
// SQL Server drivers return time.Time; SQLite stores the key string.
func ScanDay(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	case string:
		return parseDay(t)
	case []byte:
		return parseDay(string(t))
	default:
		return time.Time{}, fmt.Errorf("unsupported date value %T", v)
	}
}

func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{
		warehouse.DateKeyLayout,
		time.RFC3339,
		"2006-01-02 15:04:05",
	} {
		if ts, err := time.Parse(layout, s); err == nil {
			return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format %q", s)
}
