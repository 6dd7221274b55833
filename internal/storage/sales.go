package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"salesdw/internal/warehouse"
)

const factSelect = `SELECT f.id, f.sale_id, f.date_id, f.product_id, f.manager_id,
	f.supplier_id, f.region_id, f.quantity, f.unit_price, f.discount, f.revenue,
	f.payment_type, f.sales_channel FROM fact_sales f`

func scanFact(scan func(dest ...any) error) (warehouse.FactSale, error) {
	var f warehouse.FactSale
	var payment, channel sql.NullString
	err := scan(&f.ID, &f.SaleID, &f.DateID, &f.ProductID, &f.ManagerID,
		&f.SupplierID, &f.RegionID, &f.Quantity, &f.UnitPrice, &f.Discount,
		&f.Revenue, &payment, &channel)
	if err != nil {
		return f, err
	}
	f.PaymentType = payment.String
	f.SalesChannel = channel.String
	return f, nil
}

func (r *sqlRepo) GetSale(ctx context.Context, id int64) (*warehouse.FactSale, error) {
	row := r.db.QueryRowContext(ctx, r.q(factSelect+` WHERE f.id = ?`), id)
	f, err := scanFact(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// searchJoin joins the dimensions whose display attributes the sales
// search matches against.
const searchJoin = ` JOIN dim_product p ON f.product_id = p.id
	JOIN dim_manager m ON f.manager_id = m.id
	JOIN dim_region r ON f.region_id = r.id`

const searchWhere = ` WHERE (LOWER(p.name) LIKE ? OR LOWER(m.name) LIKE ?
	OR LOWER(r.region_name) LIKE ? OR LOWER(r.city) LIKE ?)`

func (r *sqlRepo) ListSales(ctx context.Context, f SaleFilter) ([]warehouse.FactSale, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	query := factSelect
	var args []any
	if f.Search != "" {
		query += searchJoin + searchWhere
		like := "%" + lowered(f.Search) + "%"
		args = append(args, like, like, like, like)
	}
	query += ` ORDER BY f.id` + r.d.LimitOffset(limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []warehouse.FactSale
	for rows.Next() {
		fs, err := scanFact(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, fs)
	}
	return out, rows.Err()
}

func (r *sqlRepo) CountSales(ctx context.Context, search string) (int64, error) {
	query := `SELECT COUNT(f.id) FROM fact_sales f`
	var args []any
	if search != "" {
		query += searchJoin + searchWhere
		like := "%" + lowered(search) + "%"
		args = append(args, like, like, like, like)
	}

	var n int64
	if err := r.db.QueryRowContext(ctx, r.q(query), args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *sqlRepo) InsertSale(ctx context.Context, s *warehouse.FactSale) error {
	id, err := r.d.InsertReturningID(ctx, r.db, "fact_sales", factColumns, []any{
		s.SaleID, s.DateID, s.ProductID, s.ManagerID, s.SupplierID, s.RegionID,
		s.Quantity, s.UnitPrice, s.Discount, s.Revenue,
		nullIfEmpty(s.PaymentType), nullIfEmpty(s.SalesChannel),
	})
	if err != nil {
		return fmt.Errorf("insert fact_sales: %w", err)
	}
	s.ID = id
	return nil
}

func (r *sqlRepo) UpdateSale(ctx context.Context, s *warehouse.FactSale) error {
	res, err := r.db.ExecContext(ctx, r.q(`UPDATE fact_sales SET date_id = ?,
		product_id = ?, manager_id = ?, supplier_id = ?, region_id = ?,
		quantity = ?, unit_price = ?, discount = ?, revenue = ?,
		payment_type = ?, sales_channel = ? WHERE id = ?`),
		s.DateID, s.ProductID, s.ManagerID, s.SupplierID, s.RegionID,
		s.Quantity, s.UnitPrice, s.Discount, s.Revenue,
		nullIfEmpty(s.PaymentType), nullIfEmpty(s.SalesChannel), s.ID)
	if err != nil {
		return fmt.Errorf("update fact_sales: %w", err)
	}
	return requireAffected(res)
}

func (r *sqlRepo) DeleteSale(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM fact_sales WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete fact_sales: %w", err)
	}
	return requireAffected(res)
}

func (r *sqlRepo) MaxSaleID(ctx context.Context) (int64, error) {
	var max int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sale_id), 0) FROM fact_sales`).Scan(&max)
	return max, err
}

func (r *sqlRepo) EnsureDate(ctx context.Context, d warehouse.DateDim) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		r.q(`SELECT id FROM dim_date WHERE date = ?`), d.Key()).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	return r.d.InsertReturningID(ctx, r.db, "dim_date",
		[]string{"date", "year", "quarter", "month", "day", "month_name", "day_name"},
		[]any{d.Key(), d.Year, d.Quarter, d.Month, d.Day, d.MonthName, d.DayName})
}

func lowered(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
