package warehouse

import "github.com/shopspring/decimal"

// StagedSale is a provisional sale entry in the OLTP staging table,
// carrying the same flat attribute shape as a source row plus the
// transferred flag. Records with Transferred=false are candidates for
// batch transfer into the warehouse; the transfer flips the flag so a
// record is consumed at most once.
type StagedSale struct {
	ID     int64 `json:"id"`
	SaleID int64 `json:"sale_id"`

	SaleDatetime    string           `json:"sale_datetime"`
	RegionName      string           `json:"region_name"`
	City            string           `json:"city"`
	Manager         string           `json:"manager"`
	ProductID       int64            `json:"product_id"`
	ProductName     string           `json:"product_name"`
	Brand           string           `json:"brand,omitempty"`
	Category        string           `json:"category"`
	SupplierName    string           `json:"supplier_name"`
	SupplierCountry string           `json:"supplier_country,omitempty"`
	Quantity        int64            `json:"quantity"`
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	Discount        decimal.Decimal  `json:"discount"`
	Revenue         *decimal.Decimal `json:"revenue,omitempty"`
	PaymentType     string           `json:"payment_type,omitempty"`
	SalesChannel    string           `json:"sales_channel,omitempty"`

	Transferred bool `json:"transferred"`
}
