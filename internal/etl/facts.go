package etl

import (
	"context"
	"errors"
	"fmt"

	"salesdw/internal/storage"
	"salesdw/internal/warehouse"
)

// ErrLookupMiss reports a dimension key that could not be resolved after
// conforming. The resolver is rebuilt from the same transaction the
// dimensions were just written in, so a miss means the transaction no
// longer reflects what the pipeline wrote; the batch is aborted rather
// than thinned.
var ErrLookupMiss = errors.New("etl: dimension lookup miss")

// loadFacts resolves each row's dimension keys and bulk-inserts the facts.
//
// Idempotence: rows whose sale_id already exists in the warehouse are
// skipped, as is any later duplicate of a sale_id within the batch itself.
// A lookup miss after conforming means the transaction state is not what
// the pipeline just made it, so it is an error, never a drop.
func loadFacts(ctx context.Context, tx storage.Tx, res *resolver, rows []Row) (inserted int, err error) {
	existing, err := tx.ExistingSaleIDs(ctx)
	if err != nil {
		return 0, err
	}

	staged := make([]warehouse.FactSale, 0, len(rows))
	for _, row := range rows {
		if _, dup := existing[row.SaleID]; dup {
			continue
		}
		existing[row.SaleID] = struct{}{}

		dateID, ok := res.dates[warehouse.DateParts(row.Date).Key()]
		if !ok {
			return 0, fmt.Errorf("sale_id %d: unresolved date %s: %w", row.SaleID, row.Date.Format(warehouse.DateKeyLayout), ErrLookupMiss)
		}
		productID, ok := res.products[row.ProductID]
		if !ok {
			return 0, fmt.Errorf("sale_id %d: unresolved product %d: %w", row.SaleID, row.ProductID, ErrLookupMiss)
		}
		managerID, ok := res.managers[row.Manager]
		if !ok {
			return 0, fmt.Errorf("sale_id %d: unresolved manager %q: %w", row.SaleID, row.Manager, ErrLookupMiss)
		}
		supplierID, ok := res.suppliers[row.SupplierName]
		if !ok {
			return 0, fmt.Errorf("sale_id %d: unresolved supplier %q: %w", row.SaleID, row.SupplierName, ErrLookupMiss)
		}
		regionID, ok := res.regions[regionKey{row.RegionName, row.City}]
		if !ok {
			return 0, fmt.Errorf("sale_id %d: unresolved region %q/%q: %w", row.SaleID, row.RegionName, row.City, ErrLookupMiss)
		}

		revenue := warehouse.DeriveRevenue(row.Quantity, row.UnitPrice, row.Discount)
		if row.Revenue != nil {
			revenue = *row.Revenue
		}

		staged = append(staged, warehouse.FactSale{
			SaleID:       row.SaleID,
			DateID:       dateID,
			ProductID:    productID,
			ManagerID:    managerID,
			SupplierID:   supplierID,
			RegionID:     regionID,
			Quantity:     row.Quantity,
			UnitPrice:    row.UnitPrice,
			Discount:     row.Discount,
			Revenue:      revenue,
			PaymentType:  row.PaymentType,
			SalesChannel: row.SalesChannel,
		})
	}

	if len(staged) == 0 {
		return 0, nil
	}
	if err := tx.InsertFacts(ctx, staged); err != nil {
		return 0, err
	}
	return len(staged), nil
}
