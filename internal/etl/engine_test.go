package etl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdw/internal/storage"
	"salesdw/internal/warehouse"
)

// fakeStore is an in-memory warehouse shared across transactions so
// re-running the pipeline exercises idempotence.
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

	commits   int
	rollbacks int

	insertFactsErr error
	staleDates     bool
}

func (t *fakeTx) Commit() error   { t.commits++; return nil }
func (t *fakeTx) Rollback() error { t.rollbacks++; return nil }

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
	if t.staleDates {
		return nil, nil
	}
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
	if t.insertFactsErr != nil {
		return t.insertFactsErr
	}
	for _, f := range rows {
		f.ID = t.store.id()
		t.store.facts = append(t.store.facts, f)
	}
	return nil
}

// fakeRepo hands out transactions over a shared store. The embedded
// Repository stays nil; only Begin is used by the engine.
type fakeRepo struct {
	storage.Repository
	store *fakeStore

	lastTx *fakeTx

	insertFactsErr error
	staleDates     bool
}

func (r *fakeRepo) Begin(context.Context) (storage.Tx, error) {
	r.lastTx = &fakeTx{store: r.store, insertFactsErr: r.insertFactsErr, staleDates: r.staleDates}
	return r.lastTx, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(s string) time.Time {
	t, err := time.Parse(warehouse.DateKeyLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleRow(saleID int64) Row {
	return Row{
		SaleID:       saleID,
		Date:         day("2023-12-03"),
		RegionName:   "North",
		City:         "Oslo",
		Manager:      "Dana",
		ProductID:    101,
		ProductName:  "Widget",
		Brand:        "Acme",
		Category:     "Tools",
		SupplierName: "Acme Corp",
		Quantity:     10,
		UnitPrice:    dec("50"),
		Discount:     dec("5"),
	}
}

func TestProcessInsertsFactsAndDimensions(t *testing.T) {
	store := &fakeStore{}
	repo := &fakeRepo{store: store}
	e := &Engine{Repo: repo}

	res, err := e.Process(context.Background(), []Row{sampleRow(1), sampleRow(2)})
	require.NoError(t, err)

	assert.Equal(t, 2, res.RowsProcessed)
	assert.Equal(t, 2, res.RowsInserted)
	assert.Equal(t, "Success", res.Message)

	// Shared dimension members are conformed once.
	assert.Len(t, store.regions, 1)
	assert.Len(t, store.managers, 1)
	assert.Len(t, store.suppliers, 1)
	assert.Len(t, store.categories, 1)
	assert.Len(t, store.products, 1)
	assert.Len(t, store.dates, 1)
	assert.Len(t, store.facts, 2)

	assert.Equal(t, 1, repo.lastTx.commits)
	assert.Equal(t, 0, repo.lastTx.rollbacks)
}

func TestProcessDerivesRevenue(t *testing.T) {
	store := &fakeStore{}
	e := &Engine{Repo: &fakeRepo{store: store}}

	_, err := e.Process(context.Background(), []Row{sampleRow(1)})
	require.NoError(t, err)

	// 10 * 50 - 5
	require.Len(t, store.facts, 1)
	assert.True(t, store.facts[0].Revenue.Equal(dec("495")),
		"got %s", store.facts[0].Revenue)
}

func TestProcessTrustsSuppliedRevenue(t *testing.T) {
	store := &fakeStore{}
	e := &Engine{Repo: &fakeRepo{store: store}}

	row := sampleRow(1)
	supplied := dec("500")
	row.Revenue = &supplied

	_, err := e.Process(context.Background(), []Row{row})
	require.NoError(t, err)
	assert.True(t, store.facts[0].Revenue.Equal(dec("500")))
}

func TestProcessIsIdempotentOnSaleID(t *testing.T) {
	store := &fakeStore{}
	e := &Engine{Repo: &fakeRepo{store: store}}

	res, err := e.Process(context.Background(), []Row{sampleRow(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowsInserted)

	// Same batch again: processed but nothing inserted.
	res, err = e.Process(context.Background(), []Row{sampleRow(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowsProcessed)
	assert.Equal(t, 0, res.RowsInserted)
	assert.Len(t, store.facts, 1)
}

func TestProcessFailsOnUnresolvedKey(t *testing.T) {
	store := &fakeStore{}
	repo := &fakeRepo{store: store, staleDates: true}
	e := &Engine{Repo: repo}

	// The date dimension reads back empty after conforming, so the
	// resolver cannot map the row's date. The run must fail and roll
	// back; thinning the batch would silently lose the sale.
	_, err := e.Process(context.Background(), []Row{sampleRow(1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLookupMiss)
	assert.Contains(t, err.Error(), "unresolved date")

	assert.Empty(t, store.facts)
	assert.Equal(t, 0, repo.lastTx.commits)
	assert.Equal(t, 1, repo.lastTx.rollbacks)
}

func TestProcessSkipsDuplicateSaleIDWithinBatch(t *testing.T) {
	store := &fakeStore{}
	e := &Engine{Repo: &fakeRepo{store: store}}

	res, err := e.Process(context.Background(), []Row{sampleRow(7), sampleRow(7)})
	require.NoError(t, err)
	assert.Equal(t, 2, res.RowsProcessed)
	assert.Equal(t, 1, res.RowsInserted)
}

func TestProcessDateAttributes(t *testing.T) {
	store := &fakeStore{}
	e := &Engine{Repo: &fakeRepo{store: store}}

	_, err := e.Process(context.Background(), []Row{sampleRow(1)})
	require.NoError(t, err)

	require.Len(t, store.dates, 1)
	d := store.dates[0]
	assert.Equal(t, 2023, d.Year)
	assert.Equal(t, 4, d.Quarter)
	assert.Equal(t, 12, d.Month)
	assert.Equal(t, 3, d.Day)
	assert.Equal(t, "December", d.MonthName)
	assert.Equal(t, "Sunday", d.DayName)
}

func TestProcessResolvesProductCategory(t *testing.T) {
	store := &fakeStore{}
	e := &Engine{Repo: &fakeRepo{store: store}}

	_, err := e.Process(context.Background(), []Row{sampleRow(1)})
	require.NoError(t, err)

	require.Len(t, store.categories, 1)
	require.Len(t, store.products, 1)
	assert.Equal(t, store.categories[0].ID, store.products[0].CategoryID)
	assert.NotZero(t, store.products[0].CategoryID)
}

func TestProcessReusesExistingDimensionMembers(t *testing.T) {
	store := &fakeStore{}
	e := &Engine{Repo: &fakeRepo{store: store}}

	_, err := e.Process(context.Background(), []Row{sampleRow(1)})
	require.NoError(t, err)

	// New sale, every dimension value already conformed.
	_, err = e.Process(context.Background(), []Row{sampleRow(2)})
	require.NoError(t, err)

	assert.Len(t, store.regions, 1)
	assert.Len(t, store.managers, 1)
	assert.Len(t, store.products, 1)
	assert.Len(t, store.facts, 2)
}

func TestProcessRollsBackOnInsertError(t *testing.T) {
	store := &fakeStore{}
	repo := &fakeRepo{store: store, insertFactsErr: errors.New("boom")}
	e := &Engine{Repo: repo}

	_, err := e.Process(context.Background(), []Row{sampleRow(1)})
	require.Error(t, err)
	assert.Equal(t, 0, repo.lastTx.commits)
	assert.Equal(t, 1, repo.lastTx.rollbacks)
}

func TestProcessEmptyBatch(t *testing.T) {
	store := &fakeStore{}
	e := &Engine{Repo: &fakeRepo{store: store}}

	res, err := e.Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.RowsProcessed)
	assert.Equal(t, 0, res.RowsInserted)
	assert.Empty(t, store.facts)
}

func TestProcessRequiresRepo(t *testing.T) {
	e := &Engine{}
	_, err := e.Process(context.Background(), nil)
	assert.Error(t, err)
}
