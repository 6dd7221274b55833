package server

import (
	"context"

	"salesdw/internal/warehouse"
)

// fakeStore / fakeTx give the pipeline engine an in-memory warehouse so
// upload and transfer handlers run the real conform/resolve/load stages.
type fakeStore struct {
	regions    []warehouse.Region
	managers   []warehouse.Manager
	suppliers  []warehouse.Supplier
	categories []warehouse.Category
	products   []warehouse.Product
	dates      []warehouse.DateDim
	facts      []warehouse.FactSale

	nextID int64
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) Commit() error   { return nil }
func (t *fakeTx) Rollback() error { return nil }

func (t *fakeTx) AllRegions(context.Context) ([]warehouse.Region, error) {
	return t.store.regions, nil
}
func (t *fakeTx) AllManagers(context.Context) ([]warehouse.Manager, error) {
	return t.store.managers, nil
}
func (t *fakeTx) AllSuppliers(context.Context) ([]warehouse.Supplier, error) {
	return t.store.suppliers, nil
}
func (t *fakeTx) AllCategories(context.Context) ([]warehouse.Category, error) {
	return t.store.categories, nil
}
func (t *fakeTx) AllProducts(context.Context) ([]warehouse.Product, error) {
	return t.store.products, nil
}
func (t *fakeTx) AllDates(context.Context) ([]warehouse.DateDim, error) {
	return t.store.dates, nil
}

func (t *fakeTx) InsertRegions(_ context.Context, rows []warehouse.Region) error {
	for _, r := range rows {
		r.ID = t.store.id()
		t.store.regions = append(t.store.regions, r)
	}
	return nil
}
func (t *fakeTx) InsertManagers(_ context.Context, rows []warehouse.Manager) error {
	for _, r := range rows {
		r.ID = t.store.id()
		t.store.managers = append(t.store.managers, r)
	}
	return nil
}
func (t *fakeTx) InsertSuppliers(_ context.Context, rows []warehouse.Supplier) error {
	for _, r := range rows {
		r.ID = t.store.id()
		t.store.suppliers = append(t.store.suppliers, r)
	}
	return nil
}
func (t *fakeTx) InsertCategories(_ context.Context, rows []warehouse.Category) error {
	for _, r := range rows {
		r.ID = t.store.id()
		t.store.categories = append(t.store.categories, r)
	}
	return nil
}
func (t *fakeTx) InsertProducts(_ context.Context, rows []warehouse.Product) error {
	for _, r := range rows {
		r.ID = t.store.id()
		t.store.products = append(t.store.products, r)
	}
	return nil
}
func (t *fakeTx) InsertDates(_ context.Context, rows []warehouse.DateDim) error {
	for _, r := range rows {
		r.ID = t.store.id()
		t.store.dates = append(t.store.dates, r)
	}
	return nil
}

func (t *fakeTx) ExistingSaleIDs(context.Context) (map[int64]struct{}, error) {
	out := make(map[int64]struct{}, len(t.store.facts))
	for _, f := range t.store.facts {
		out[f.SaleID] = struct{}{}
	}
	return out, nil
}

func (t *fakeTx) InsertFacts(_ context.Context, rows []warehouse.FactSale) error {
	for _, f := range rows {
		f.ID = t.store.id()
		t.store.facts = append(t.store.facts, f)
	}
	return nil
}
