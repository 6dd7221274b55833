package etl

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"salesdw/internal/warehouse"
)

// Table is a parsed source file: canonicalized header plus raw string rows.
// Both the CSV and the xlsx parsers produce this shape.
type Table struct {
	Header []string
	Rows   [][]string
}

// Row is one normalized source record, typed and ready for conforming.
// Revenue is nil when the source did not supply one; the fact loader then
// derives it from quantity, unit price and discount.
type Row struct {
	SaleID int64
	Date   time.Time

	RegionName string
	City       string
	Manager    string

	ProductID   int64
	ProductName string
	Brand       string
	Category    string

	SupplierName    string
	SupplierCountry string

	Quantity  int64
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
	Revenue   *decimal.Decimal

	PaymentType  string
	SalesChannel string
}

// requiredFields are the source columns every row must populate. A row
// missing any of them is a normalization error, not a silent drop.
var requiredFields = []string{
	"sale_id", "sale_datetime", "region_name", "city", "manager",
	"product_id", "product_name", "category", "supplier_name",
	"quantity", "unit_price",
}

var dateLayouts = []string{
	warehouse.DateKeyLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02.01.2006",
	"01/02/2006",
}

// Normalize validates a parsed table and converts its rows to typed Rows.
//
// Edge cases:
//   - A missing required column in the header fails the whole table.
//   - An empty required field or an unparseable value fails with the
//     1-based data row number, so the error points at the source file.
//   - discount defaults to 0; revenue stays nil when absent or empty.
func Normalize(t Table) ([]Row, error) {
	idx := make(map[string]int, len(t.Header))
	for i, name := range t.Header {
		idx[name] = i
	}

	for _, f := range requiredFields {
		if _, ok := idx[f]; !ok {
			return nil, fmt.Errorf("normalize: missing required column %q", f)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	out := make([]Row, 0, len(t.Rows))
	for n, rec := range t.Rows {
		rowNum := n + 1

		for _, f := range requiredFields {
			if field(rec, f) == "" {
				return nil, fmt.Errorf("row %d: empty required field %q", rowNum, f)
			}
		}

		saleID, err := strconv.ParseInt(field(rec, "sale_id"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: sale_id: %w", rowNum, err)
		}
		productID, err := strconv.ParseInt(field(rec, "product_id"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: product_id: %w", rowNum, err)
		}
		quantity, err := strconv.ParseInt(field(rec, "quantity"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: quantity: %w", rowNum, err)
		}

		date, err := parseDate(field(rec, "sale_datetime"))
		if err != nil {
			return nil, fmt.Errorf("row %d: sale_datetime: %w", rowNum, err)
		}

		unitPrice, err := decimal.NewFromString(field(rec, "unit_price"))
		if err != nil {
			return nil, fmt.Errorf("row %d: unit_price: %w", rowNum, err)
		}

		discount := decimal.Zero
		if s := field(rec, "discount"); s != "" {
			discount, err = decimal.NewFromString(s)
			if err != nil {
				return nil, fmt.Errorf("row %d: discount: %w", rowNum, err)
			}
		}

		var revenue *decimal.Decimal
		if s := field(rec, "revenue"); s != "" {
			d, err := decimal.NewFromString(s)
			if err != nil {
				return nil, fmt.Errorf("row %d: revenue: %w", rowNum, err)
			}
			revenue = &d
		}

		out = append(out, Row{
			SaleID:          saleID,
			Date:            date,
			RegionName:      field(rec, "region_name"),
			City:            field(rec, "city"),
			Manager:         field(rec, "manager"),
			ProductID:       productID,
			ProductName:     field(rec, "product_name"),
			Brand:           field(rec, "brand"),
			Category:        field(rec, "category"),
			SupplierName:    field(rec, "supplier_name"),
			SupplierCountry: field(rec, "supplier_country"),
			Quantity:        quantity,
			UnitPrice:       unitPrice,
			Discount:        discount,
			Revenue:         revenue,
			PaymentType:     field(rec, "payment_type"),
			SalesChannel:    field(rec, "sales_channel"),
		})
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// RowFromStaged converts an OLTP staging record into a pipeline Row so a
// transfer runs through the exact same conform/resolve/load stages as a
// file load.
func RowFromStaged(s warehouse.StagedSale) (Row, error) {
	date, err := parseDate(strings.TrimSpace(s.SaleDatetime))
	if err != nil {
		return Row{}, fmt.Errorf("staged id %d: sale_datetime: %w", s.ID, err)
	}
	return Row{
		SaleID:          s.SaleID,
		Date:            date,
		RegionName:      s.RegionName,
		City:            s.City,
		Manager:         s.Manager,
		ProductID:       s.ProductID,
		ProductName:     s.ProductName,
		Brand:           s.Brand,
		Category:        s.Category,
		SupplierName:    s.SupplierName,
		SupplierCountry: s.SupplierCountry,
		Quantity:        s.Quantity,
		UnitPrice:       s.UnitPrice,
		Discount:        s.Discount,
		Revenue:         s.Revenue,
		PaymentType:     s.PaymentType,
		SalesChannel:    s.SalesChannel,
	}, nil
}
