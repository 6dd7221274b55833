package server

import (
	"context"
	"sort"

	"salesdw/internal/storage"
	"salesdw/internal/warehouse"
)

// fakeRepo is an in-memory Repository for handler tests. The embedded
// interface stays nil; a handler reaching an unimplemented method panics,
// which is exactly what a test wants to see.
type fakeRepo struct {
	storage.Repository

	sales  map[int64]*warehouse.FactSale
	staged map[int64]*warehouse.StagedSale
	nextID int64

	store *fakeStore // warehouse side used by Begin

	members     []warehouse.DimMember
	rankings    []warehouse.Ranking
	cells       []warehouse.AggregateCell
	dashboard   warehouse.Dashboard
	transferred []int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		sales:  map[int64]*warehouse.FactSale{},
		staged: map[int64]*warehouse.StagedSale{},
		store:  &fakeStore{},
	}
}

func (r *fakeRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *fakeRepo) Begin(context.Context) (storage.Tx, error) {
	return &fakeTx{store: r.store}, nil
}

func (r *fakeRepo) GetSale(_ context.Context, id int64) (*warehouse.FactSale, error) {
	s, ok := r.sales[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeRepo) ListSales(_ context.Context, f storage.SaleFilter) ([]warehouse.FactSale, error) {
	ids := make([]int64, 0, len(r.sales))
	for id := range r.sales {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []warehouse.FactSale
	for _, id := range ids {
		out = append(out, *r.sales[id])
	}
	return out, nil
}

func (r *fakeRepo) CountSales(context.Context, string) (int64, error) {
	return int64(len(r.sales)), nil
}

func (r *fakeRepo) InsertSale(_ context.Context, s *warehouse.FactSale) error {
	s.ID = r.id()
	cp := *s
	r.sales[s.ID] = &cp
	return nil
}

func (r *fakeRepo) UpdateSale(_ context.Context, s *warehouse.FactSale) error {
	if _, ok := r.sales[s.ID]; !ok {
		return storage.ErrNotFound
	}
	cp := *s
	r.sales[s.ID] = &cp
	return nil
}

func (r *fakeRepo) DeleteSale(_ context.Context, id int64) error {
	if _, ok := r.sales[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.sales, id)
	return nil
}

func (r *fakeRepo) MaxSaleID(context.Context) (int64, error) {
	var max int64
	for _, s := range r.sales {
		if s.SaleID > max {
			max = s.SaleID
		}
	}
	return max, nil
}

func (r *fakeRepo) EnsureDate(_ context.Context, d warehouse.DateDim) (int64, error) {
	for _, existing := range r.store.dates {
		if existing.Key() == d.Key() {
			return existing.ID, nil
		}
	}
	d.ID = r.store.id()
	r.store.dates = append(r.store.dates, d)
	return d.ID, nil
}

func (r *fakeRepo) ListDimension(context.Context, warehouse.Dimension) ([]warehouse.DimMember, error) {
	return r.members, nil
}

func (r *fakeRepo) Rankings(context.Context, warehouse.RankEntity, int) ([]warehouse.Ranking, error) {
	return r.rankings, nil
}

func (r *fakeRepo) Aggregate(context.Context, warehouse.AggregateAxis, warehouse.AggregateAxis) ([]warehouse.AggregateCell, error) {
	return r.cells, nil
}

func (r *fakeRepo) DashboardMetrics(context.Context) (warehouse.Dashboard, error) {
	return r.dashboard, nil
}

func (r *fakeRepo) GetStaged(_ context.Context, id int64) (*warehouse.StagedSale, error) {
	s, ok := r.staged[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeRepo) ListStaged(context.Context, int, int) ([]warehouse.StagedSale, error) {
	ids := make([]int64, 0, len(r.staged))
	for id := range r.staged {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	var out []warehouse.StagedSale
	for _, id := range ids {
		out = append(out, *r.staged[id])
	}
	return out, nil
}

func (r *fakeRepo) CountStaged(context.Context) (int64, error) {
	return int64(len(r.staged)), nil
}

func (r *fakeRepo) InsertStaged(_ context.Context, s *warehouse.StagedSale) error {
	s.ID = r.id()
	cp := *s
	r.staged[s.ID] = &cp
	return nil
}

func (r *fakeRepo) UpdateStaged(_ context.Context, s *warehouse.StagedSale) error {
	if _, ok := r.staged[s.ID]; !ok {
		return storage.ErrNotFound
	}
	cp := *s
	r.staged[s.ID] = &cp
	return nil
}

func (r *fakeRepo) DeleteStaged(_ context.Context, id int64) error {
	if _, ok := r.staged[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.staged, id)
	return nil
}

func (r *fakeRepo) MaxStagedSaleID(context.Context) (int64, error) {
	var max int64
	for _, s := range r.staged {
		if s.SaleID > max {
			max = s.SaleID
		}
	}
	return max, nil
}

func (r *fakeRepo) MaxStagedProductID(context.Context) (int64, error) {
	var max int64
	for _, s := range r.staged {
		if s.ProductID > max {
			max = s.ProductID
		}
	}
	return max, nil
}

func (r *fakeRepo) PendingStaged(_ context.Context, ids []int64) ([]warehouse.StagedSale, error) {
	var out []warehouse.StagedSale
	for _, id := range ids {
		if s, ok := r.staged[id]; ok && !s.Transferred {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) MarkTransferred(_ context.Context, ids []int64) error {
	for _, id := range ids {
		if s, ok := r.staged[id]; ok {
			s.Transferred = true
		}
	}
	r.transferred = append(r.transferred, ids...)
	return nil
}
