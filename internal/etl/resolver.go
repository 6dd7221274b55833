package etl

import (
	"context"

	"salesdw/internal/storage"
)

// resolver maps natural keys to surrogate keys for every dimension. It is
// built after conforming, inside the same transaction, so the maps include
// the members inserted by this run.
type resolver struct {
	regions   map[regionKey]int64
	managers  map[string]int64
	suppliers map[string]int64
	products  map[int64]int64
	dates     map[string]int64
}

func buildResolver(ctx context.Context, tx storage.Tx) (*resolver, error) {
	regions, err := tx.AllRegions(ctx)
	if err != nil {
		return nil, err
	}
	managers, err := tx.AllManagers(ctx)
	if err != nil {
		return nil, err
	}
	suppliers, err := tx.AllSuppliers(ctx)
	if err != nil {
		return nil, err
	}
	products, err := tx.AllProducts(ctx)
	if err != nil {
		return nil, err
	}
	dates, err := tx.AllDates(ctx)
	if err != nil {
		return nil, err
	}

	r := &resolver{
		regions:   make(map[regionKey]int64, len(regions)),
		managers:  make(map[string]int64, len(managers)),
		suppliers: make(map[string]int64, len(suppliers)),
		products:  make(map[int64]int64, len(products)),
		dates:     make(map[string]int64, len(dates)),
	}
	for _, v := range regions {
		r.regions[regionKey{v.RegionName, v.City}] = v.ID
	}
	for _, v := range managers {
		r.managers[v.Name] = v.ID
	}
	for _, v := range suppliers {
		r.suppliers[v.Name] = v.ID
	}
	for _, v := range products {
		r.products[v.BusinessID] = v.ID
	}
	for _, v := range dates {
		r.dates[v.Key()] = v.ID
	}
	return r, nil
}
