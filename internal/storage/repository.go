// Package storage defines the backend-agnostic warehouse repository
// interface, the schema specification shared by all backends, and the
// kind→factory registry used to select a backend at runtime.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"salesdw/internal/warehouse"
)

// ErrNotFound is returned by single-record accessors when no row matches.
var ErrNotFound = errors.New("storage: not found")

// Config is the minimal configuration needed to create a repository.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is
//     backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Repository is the backend-agnostic interface over the warehouse and the
// OLTP staging table.
//
// IMPORTANT: This interface is intentionally focused on the operations the
// ETL pipeline and the API layer need. Each backend implements these
// semantics in its own idiomatic way (identity generation, pagination
// syntax, conditional DDL).
type Repository interface {
	// Close releases backend resources. Treat as "call once" at shutdown.
	Close()

	// EnsureSchema creates all warehouse tables and their natural-key
	// uniqueness constraints if they do not exist. Idempotent; safe to run
	// on every startup.
	EnsureSchema(ctx context.Context) error

	// Begin opens the exclusive transaction scope for one pipeline run.
	// Dimension and fact writes inside the scope succeed or fail together.
	Begin(ctx context.Context) (Tx, error)

	// Fact CRUD. These operate outside the ETL transaction scope.
	GetSale(ctx context.Context, id int64) (*warehouse.FactSale, error)
	ListSales(ctx context.Context, f SaleFilter) ([]warehouse.FactSale, error)
	CountSales(ctx context.Context, search string) (int64, error)
	InsertSale(ctx context.Context, s *warehouse.FactSale) error
	UpdateSale(ctx context.Context, s *warehouse.FactSale) error
	DeleteSale(ctx context.Context, id int64) error

	// MaxSaleID returns the current maximum fact business key (0 when the
	// fact table is empty). Used to synthesize sale_id on manual creation.
	MaxSaleID(ctx context.Context) (int64, error)

	// EnsureDate returns the surrogate key for a calendar day, inserting
	// the dimension row (with its derived attributes) when absent.
	EnsureDate(ctx context.Context, d warehouse.DateDim) (int64, error)

	// Dimension and report reads.
	ListDimension(ctx context.Context, dim warehouse.Dimension) ([]warehouse.DimMember, error)
	Rankings(ctx context.Context, entity warehouse.RankEntity, limit int) ([]warehouse.Ranking, error)
	Aggregate(ctx context.Context, d1, d2 warehouse.AggregateAxis) ([]warehouse.AggregateCell, error)
	DashboardMetrics(ctx context.Context) (warehouse.Dashboard, error)

	// OLTP staging.
	GetStaged(ctx context.Context, id int64) (*warehouse.StagedSale, error)
	ListStaged(ctx context.Context, offset, limit int) ([]warehouse.StagedSale, error)
	CountStaged(ctx context.Context) (int64, error)
	InsertStaged(ctx context.Context, s *warehouse.StagedSale) error
	UpdateStaged(ctx context.Context, s *warehouse.StagedSale) error
	DeleteStaged(ctx context.Context, id int64) error
	MaxStagedSaleID(ctx context.Context) (int64, error)
	MaxStagedProductID(ctx context.Context) (int64, error)

	// PendingStaged returns the staged records among ids that have not yet
	// been transferred (transferred=0). Already-transferred ids are simply
	// excluded, which is what makes re-invoking a transfer a no-op.
	PendingStaged(ctx context.Context, ids []int64) ([]warehouse.StagedSale, error)

	// MarkTransferred flips transferred=1 for the given staging row ids.
	MarkTransferred(ctx context.Context, ids []int64) error
}

// Tx is the transaction scope of one ETL run. The pipeline conforms
// dimensions, resolves keys, and loads facts through a single Tx; Commit
// makes all of it visible at once, Rollback discards all of it.
type Tx interface {
	Commit() error
	Rollback() error

	// Select the complete current membership of each dimension. The key
	// resolver is rebuilt from these after conforming, so the maps always
	// reflect post-insert state.
	AllRegions(ctx context.Context) ([]warehouse.Region, error)
	AllManagers(ctx context.Context) ([]warehouse.Manager, error)
	AllSuppliers(ctx context.Context) ([]warehouse.Supplier, error)
	AllCategories(ctx context.Context) ([]warehouse.Category, error)
	AllProducts(ctx context.Context) ([]warehouse.Product, error)
	AllDates(ctx context.Context) ([]warehouse.DateDim, error)

	// Batched dimension inserts, one call per dimension per run. Surrogate
	// keys are generated by storage; callers re-select to learn them.
	// A natural-key uniqueness violation (concurrent writer) is fatal.
	InsertRegions(ctx context.Context, rows []warehouse.Region) error
	InsertManagers(ctx context.Context, rows []warehouse.Manager) error
	InsertSuppliers(ctx context.Context, rows []warehouse.Supplier) error
	InsertCategories(ctx context.Context, rows []warehouse.Category) error
	InsertProducts(ctx context.Context, rows []warehouse.Product) error
	InsertDates(ctx context.Context, rows []warehouse.DateDim) error

	// ExistingSaleIDs returns the set of fact business keys already in the
	// warehouse, used to skip duplicates and keep re-runs idempotent.
	ExistingSaleIDs(ctx context.Context) (map[int64]struct{}, error)

	// InsertFacts bulk-inserts the staged fact records.
	InsertFacts(ctx context.Context, rows []warehouse.FactSale) error
}

// SaleFilter controls fact listing.
type SaleFilter struct {
	Offset int
	Limit  int

	// Search matches case-insensitively against product name, manager
	// name, region name and city. Empty means no filter.
	Search string
}

// ---- backend factories ----

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "postgres", "sqlite").
//
// Call Register from an init() function in a backend package. Registering
// the same kind twice panics; this fails fast instead of allowing
// ambiguous backend selection.
func Register(kind string, f factory) {
	regMu.Lock()
	defer regMu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	regMu.RLock()
	f := factories[cfg.Kind]
	regMu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
