package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"salesdw/internal/warehouse"
)

var stagedColumns = []string{
	"sale_id", "sale_datetime", "region_name", "city", "manager",
	"product_id", "product_name", "brand", "category",
	"supplier_name", "supplier_country", "quantity", "unit_price",
	"discount", "revenue", "payment_type", "sales_channel", "transferred",
}

const stagedSelect = `SELECT id, sale_id, sale_datetime, region_name, city,
	manager, product_id, product_name, brand, category, supplier_name,
	supplier_country, quantity, unit_price, discount, revenue,
	payment_type, sales_channel, transferred FROM oltp_sales`

func scanStaged(scan func(dest ...any) error) (warehouse.StagedSale, error) {
	var s warehouse.StagedSale
	var brand, country, payment, channel sql.NullString
	var revenue decimal.NullDecimal
	var transferred int
	err := scan(&s.ID, &s.SaleID, &s.SaleDatetime, &s.RegionName, &s.City,
		&s.Manager, &s.ProductID, &s.ProductName, &brand, &s.Category,
		&s.SupplierName, &country, &s.Quantity, &s.UnitPrice, &s.Discount,
		&revenue, &payment, &channel, &transferred)
	if err != nil {
		return s, err
	}
	s.Brand = brand.String
	s.SupplierCountry = country.String
	s.PaymentType = payment.String
	s.SalesChannel = channel.String
	if revenue.Valid {
		v := revenue.Decimal
		s.Revenue = &v
	}
	s.Transferred = transferred != 0
	return s, nil
}

func stagedValues(s *warehouse.StagedSale) []any {
	var revenue any
	if s.Revenue != nil {
		revenue = *s.Revenue
	}
	return []any{
		s.SaleID, s.SaleDatetime, s.RegionName, s.City, s.Manager,
		s.ProductID, s.ProductName, nullIfEmpty(s.Brand), s.Category,
		s.SupplierName, nullIfEmpty(s.SupplierCountry), s.Quantity,
		s.UnitPrice, s.Discount, revenue,
		nullIfEmpty(s.PaymentType), nullIfEmpty(s.SalesChannel),
		boolToFlag(s.Transferred),
	}
}

func (r *sqlRepo) GetStaged(ctx context.Context, id int64) (*warehouse.StagedSale, error) {
	row := r.db.QueryRowContext(ctx, r.q(stagedSelect+` WHERE id = ?`), id)
	s, err := scanStaged(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListStaged returns staged sales newest first.
func (r *sqlRepo) ListStaged(ctx context.Context, offset, limit int) ([]warehouse.StagedSale, error) {
	if limit <= 0 {
		limit = 20
	}
	query := stagedSelect + ` ORDER BY id DESC` + r.d.LimitOffset(limit, offset)

	rows, err := r.db.QueryContext(ctx, r.q(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []warehouse.StagedSale
	for rows.Next() {
		s, err := scanStaged(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sqlRepo) CountStaged(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(id) FROM oltp_sales`).Scan(&n)
	return n, err
}

func (r *sqlRepo) InsertStaged(ctx context.Context, s *warehouse.StagedSale) error {
	id, err := r.d.InsertReturningID(ctx, r.db, "oltp_sales", stagedColumns, stagedValues(s))
	if err != nil {
		return fmt.Errorf("insert oltp_sales: %w", err)
	}
	s.ID = id
	return nil
}

func (r *sqlRepo) UpdateStaged(ctx context.Context, s *warehouse.StagedSale) error {
	var sets []string
	for _, c := range stagedColumns {
		sets = append(sets, c+" = ?")
	}
	args := append(stagedValues(s), s.ID)

	res, err := r.db.ExecContext(ctx,
		r.q(`UPDATE oltp_sales SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return fmt.Errorf("update oltp_sales: %w", err)
	}
	return requireAffected(res)
}

func (r *sqlRepo) DeleteStaged(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM oltp_sales WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete oltp_sales: %w", err)
	}
	return requireAffected(res)
}

func (r *sqlRepo) MaxStagedSaleID(ctx context.Context) (int64, error) {
	var max int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sale_id), 0) FROM oltp_sales`).Scan(&max)
	return max, err
}

func (r *sqlRepo) MaxStagedProductID(ctx context.Context) (int64, error) {
	var max int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(product_id), 0) FROM oltp_sales`).Scan(&max)
	return max, err
}

func (r *sqlRepo) PendingStaged(ctx context.Context, ids []int64) ([]warehouse.StagedSale, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ph, args := idList(ids)
	query := stagedSelect + ` WHERE id IN (` + ph + `) AND transferred = 0 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []warehouse.StagedSale
	for rows.Next() {
		s, err := scanStaged(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sqlRepo) MarkTransferred(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	ph, args := idList(ids)
	_, err := r.db.ExecContext(ctx,
		r.q(`UPDATE oltp_sales SET transferred = 1 WHERE id IN (`+ph+`)`), args...)
	if err != nil {
		return fmt.Errorf("mark transferred: %w", err)
	}
	return nil
}

func idList(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimRight(strings.Repeat("?,", len(ids)), ","), args
}

func boolToFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}
