package warehouse

import "github.com/shopspring/decimal"

// FactSale is one measured sale referencing all six dimensions by
// surrogate key. SaleID is the globally unique business key; the
// warehouse never stores two facts with the same SaleID.
type FactSale struct {
	ID     int64 `json:"id"`
	SaleID int64 `json:"sale_id"`

	DateID     int64 `json:"date_id"`
	ProductID  int64 `json:"product_id"`
	ManagerID  int64 `json:"manager_id"`
	SupplierID int64 `json:"supplier_id"`
	RegionID   int64 `json:"region_id"`

	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	Revenue   decimal.Decimal `json:"revenue"`

	PaymentType  string `json:"payment_type,omitempty"`
	SalesChannel string `json:"sales_channel,omitempty"`
}

// DeriveRevenue computes quantity * unit_price - discount.
//
// This is the only revenue formula in the system. It applies whenever the
// source does not supply an explicit revenue value; a supplied value is
// trusted as given and never checked against the formula.
func DeriveRevenue(quantity int64, unitPrice, discount decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(quantity)).Sub(discount)
}

// Ranking is one row of a revenue ranking report.
type Ranking struct {
	Rank    int             `json:"rank"`
	Name    string          `json:"name"`
	Revenue decimal.Decimal `json:"revenue"`
}

// RankEntity enumerates the entity types a ranking can be built over.
type RankEntity int

const (
	RankManager RankEntity = iota
	RankProduct
	RankRegion
)

// ParseRankEntity maps an external entity name to its variant.
func ParseRankEntity(name string) (RankEntity, bool) {
	switch name {
	case "manager":
		return RankManager, true
	case "product":
		return RankProduct, true
	case "region":
		return RankRegion, true
	default:
		return 0, false
	}
}

// AggregateAxis enumerates the attributes an aggregate report can group by.
type AggregateAxis int

const (
	AxisRegion AggregateAxis = iota
	AxisManager
	AxisCategory
	AxisProduct
	AxisSupplier
	AxisYear
	AxisQuarter
	AxisMonth
)

// ParseAggregateAxis maps an external axis name to its variant.
func ParseAggregateAxis(name string) (AggregateAxis, bool) {
	switch name {
	case "region":
		return AxisRegion, true
	case "manager":
		return AxisManager, true
	case "category":
		return AxisCategory, true
	case "product":
		return AxisProduct, true
	case "supplier":
		return AxisSupplier, true
	case "year":
		return AxisYear, true
	case "quarter":
		return AxisQuarter, true
	case "month":
		return AxisMonth, true
	default:
		return 0, false
	}
}

// AggregateCell is one cell of a two-axis revenue aggregate.
type AggregateCell struct {
	D1    string          `json:"d1"`
	D2    string          `json:"d2"`
	Value decimal.Decimal `json:"value"`
}

// Dashboard holds the headline warehouse totals.
type Dashboard struct {
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalQuantity int64           `json:"total_quantity"`
	CountSales    int64           `json:"count_sales"`
	AvgCheck      decimal.Decimal `json:"avg_check"`
}
