package etl

import (
	"context"

	"salesdw/internal/storage"
	"salesdw/internal/warehouse"
)

type regionKey struct {
	RegionName string
	City       string
}

// conformDimensions makes every dimension member referenced by the batch
// exist, inserting only the members the warehouse does not already have.
// Within the batch the first occurrence of a natural key wins; later
// occurrences are ignored.
//
// Categories are conformed strictly before products: a new product needs
// its category's surrogate key at insert time, so the category membership
// (including anything just inserted) is re-selected in between.
func conformDimensions(ctx context.Context, tx storage.Tx, rows []Row) error {
	if err := conformRegions(ctx, tx, rows); err != nil {
		return err
	}
	if err := conformManagers(ctx, tx, rows); err != nil {
		return err
	}
	if err := conformSuppliers(ctx, tx, rows); err != nil {
		return err
	}
	if err := conformCategories(ctx, tx, rows); err != nil {
		return err
	}
	if err := conformProducts(ctx, tx, rows); err != nil {
		return err
	}
	return conformDates(ctx, tx, rows)
}

func conformRegions(ctx context.Context, tx storage.Tx, rows []Row) error {
	existing, err := tx.AllRegions(ctx)
	if err != nil {
		return err
	}
	seen := make(map[regionKey]struct{}, len(existing))
	for _, r := range existing {
		seen[regionKey{r.RegionName, r.City}] = struct{}{}
	}

	var missing []warehouse.Region
	for _, row := range rows {
		k := regionKey{row.RegionName, row.City}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		missing = append(missing, warehouse.Region{RegionName: row.RegionName, City: row.City})
	}
	if len(missing) == 0 {
		return nil
	}
	return tx.InsertRegions(ctx, missing)
}

func conformManagers(ctx context.Context, tx storage.Tx, rows []Row) error {
	existing, err := tx.AllManagers(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		seen[m.Name] = struct{}{}
	}

	var missing []warehouse.Manager
	for _, row := range rows {
		if _, ok := seen[row.Manager]; ok {
			continue
		}
		seen[row.Manager] = struct{}{}
		missing = append(missing, warehouse.Manager{Name: row.Manager})
	}
	if len(missing) == 0 {
		return nil
	}
	return tx.InsertManagers(ctx, missing)
}

func conformSuppliers(ctx context.Context, tx storage.Tx, rows []Row) error {
	existing, err := tx.AllSuppliers(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		seen[s.Name] = struct{}{}
	}

	var missing []warehouse.Supplier
	for _, row := range rows {
		if _, ok := seen[row.SupplierName]; ok {
			continue
		}
		seen[row.SupplierName] = struct{}{}
		missing = append(missing, warehouse.Supplier{Name: row.SupplierName, Country: row.SupplierCountry})
	}
	if len(missing) == 0 {
		return nil
	}
	return tx.InsertSuppliers(ctx, missing)
}

func conformCategories(ctx context.Context, tx storage.Tx, rows []Row) error {
	existing, err := tx.AllCategories(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		seen[c.Name] = struct{}{}
	}

	var missing []warehouse.Category
	for _, row := range rows {
		if _, ok := seen[row.Category]; ok {
			continue
		}
		seen[row.Category] = struct{}{}
		missing = append(missing, warehouse.Category{Name: row.Category})
	}
	if len(missing) == 0 {
		return nil
	}
	return tx.InsertCategories(ctx, missing)
}

func conformProducts(ctx context.Context, tx storage.Tx, rows []Row) error {
	// Re-select categories so just-inserted ones carry surrogate keys.
	cats, err := tx.AllCategories(ctx)
	if err != nil {
		return err
	}
	catID := make(map[string]int64, len(cats))
	for _, c := range cats {
		catID[c.Name] = c.ID
	}

	existing, err := tx.AllProducts(ctx)
	if err != nil {
		return err
	}
	seen := make(map[int64]struct{}, len(existing))
	for _, p := range existing {
		seen[p.BusinessID] = struct{}{}
	}

	var missing []warehouse.Product
	for _, row := range rows {
		if _, ok := seen[row.ProductID]; ok {
			continue
		}
		seen[row.ProductID] = struct{}{}
		missing = append(missing, warehouse.Product{
			BusinessID: row.ProductID,
			Name:       row.ProductName,
			Brand:      row.Brand,
			CategoryID: catID[row.Category],
		})
	}
	if len(missing) == 0 {
		return nil
	}
	return tx.InsertProducts(ctx, missing)
}

func conformDates(ctx context.Context, tx storage.Tx, rows []Row) error {
	existing, err := tx.AllDates(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, d := range existing {
		seen[d.Key()] = struct{}{}
	}

	var missing []warehouse.DateDim
	for _, row := range rows {
		d := warehouse.DateParts(row.Date)
		if _, ok := seen[d.Key()]; ok {
			continue
		}
		seen[d.Key()] = struct{}{}
		missing = append(missing, d)
	}
	if len(missing) == 0 {
		return nil
	}
	return tx.InsertDates(ctx, missing)
}
