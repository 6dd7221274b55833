package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"salesdw/internal/warehouse"
)

// ListDimension lists the members of one dimension in the uniform
// id/name shape. The dimension set is closed; every variant is handled.
func (r *sqlRepo) ListDimension(ctx context.Context, dim warehouse.Dimension) ([]warehouse.DimMember, error) {
	var query string
	switch dim {
	case warehouse.DimRegion:
		query = `SELECT id, region_name, city FROM dim_region ORDER BY id`
	case warehouse.DimManager:
		query = `SELECT id, name FROM dim_manager ORDER BY id`
	case warehouse.DimSupplier:
		query = `SELECT id, name FROM dim_supplier ORDER BY id`
	case warehouse.DimCategory:
		query = `SELECT id, name FROM dim_category ORDER BY id`
	case warehouse.DimProduct:
		query = `SELECT id, name FROM dim_product ORDER BY id`
	case warehouse.DimDate:
		query = `SELECT id, date FROM dim_date ORDER BY id`
	default:
		return nil, fmt.Errorf("unknown dimension %v", dim)
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []warehouse.DimMember
	for rows.Next() {
		var m warehouse.DimMember
		switch dim {
		case warehouse.DimRegion:
			var region warehouse.Region
			if err := rows.Scan(&region.ID, &region.RegionName, &region.City); err != nil {
				return nil, err
			}
			m = warehouse.DimMember{ID: region.ID, Name: region.Name()}
		case warehouse.DimDate:
			var id int64
			var raw any
			if err := rows.Scan(&id, &raw); err != nil {
				return nil, err
			}
			day, err := ScanDay(raw)
			if err != nil {
				return nil, err
			}
			m = warehouse.DimMember{ID: id, Name: day.Format(warehouse.DateKeyLayout)}
		default:
			if err := rows.Scan(&m.ID, &m.Name); err != nil {
				return nil, err
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Rankings ranks entities of one type by total revenue, descending.
// Rank numbering starts at 1.
func (r *sqlRepo) Rankings(ctx context.Context, entity warehouse.RankEntity, limit int) ([]warehouse.Ranking, error) {
	if limit <= 0 {
		limit = 5
	}

	var join, name string
	switch entity {
	case warehouse.RankManager:
		join, name = `JOIN dim_manager x ON f.manager_id = x.id`, `x.name`
	case warehouse.RankProduct:
		join, name = `JOIN dim_product x ON f.product_id = x.id`, `x.name`
	case warehouse.RankRegion:
		join, name = `JOIN dim_region x ON f.region_id = x.id`, `x.region_name`
	default:
		return nil, fmt.Errorf("unknown ranking entity %v", entity)
	}

	query := `SELECT ` + name + `, SUM(f.revenue) AS total_revenue FROM fact_sales f ` +
		join + ` GROUP BY ` + name + ` ORDER BY total_revenue DESC` +
		r.d.LimitOffset(limit, 0)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []warehouse.Ranking
	for rows.Next() {
		var rk warehouse.Ranking
		if err := rows.Scan(&rk.Name, &rk.Revenue); err != nil {
			return nil, err
		}
		rk.Rank = len(out) + 1
		out = append(out, rk)
	}
	return out, rows.Err()
}

// axisExpr maps an aggregate axis to its grouping expression. The full
// dimension join below makes every expression reachable.
func axisExpr(a warehouse.AggregateAxis) string {
	switch a {
	case warehouse.AxisRegion:
		return `r.region_name`
	case warehouse.AxisManager:
		return `m.name`
	case warehouse.AxisCategory:
		return `c.name`
	case warehouse.AxisProduct:
		return `p.name`
	case warehouse.AxisSupplier:
		return `s.name`
	case warehouse.AxisYear:
		return `d.year`
	case warehouse.AxisQuarter:
		return `d.quarter`
	case warehouse.AxisMonth:
		return `d.month_name`
	default:
		return ``
	}
}

const aggregateJoins = ` FROM fact_sales f
	JOIN dim_date d ON f.date_id = d.id
	JOIN dim_product p ON f.product_id = p.id
	JOIN dim_category c ON p.category_id = c.id
	JOIN dim_region r ON f.region_id = r.id
	JOIN dim_manager m ON f.manager_id = m.id
	JOIN dim_supplier s ON f.supplier_id = s.id`

// Aggregate sums revenue grouped by two dimension attributes.
func (r *sqlRepo) Aggregate(ctx context.Context, d1, d2 warehouse.AggregateAxis) ([]warehouse.AggregateCell, error) {
	e1, e2 := axisExpr(d1), axisExpr(d2)
	if e1 == "" || e2 == "" {
		return nil, fmt.Errorf("unknown aggregate axis")
	}

	query := `SELECT ` + e1 + `, ` + e2 + `, SUM(f.revenue)` + aggregateJoins +
		` GROUP BY ` + e1 + `, ` + e2

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []warehouse.AggregateCell
	for rows.Next() {
		var v1, v2 any
		var cell warehouse.AggregateCell
		if err := rows.Scan(&v1, &v2, &cell.Value); err != nil {
			return nil, err
		}
		cell.D1 = groupLabel(v1)
		cell.D2 = groupLabel(v2)
		out = append(out, cell)
	}
	return out, rows.Err()
}

// groupLabel renders a grouping value as a string. Year and quarter axes
// come back as integers; everything else is text.
func groupLabel(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(v)
	}
}

// DashboardMetrics computes the headline totals in one scan of the fact
// table. The average check is derived in Go to avoid integer/decimal
// division differences between backends.
func (r *sqlRepo) DashboardMetrics(ctx context.Context) (warehouse.Dashboard, error) {
	var out warehouse.Dashboard
	var revenue decimal.NullDecimal
	var quantity, count int64

	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(revenue), COALESCE(SUM(quantity), 0), COUNT(id) FROM fact_sales`).
		Scan(&revenue, &quantity, &count)
	if err != nil {
		return out, err
	}

	out.TotalRevenue = revenue.Decimal
	out.TotalQuantity = quantity
	out.CountSales = count
	if count > 0 {
		out.AvgCheck = out.TotalRevenue.DivRound(decimal.NewFromInt(count), 2)
	}
	return out, nil
}
