package repository

import (
	"context"
	"time"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
)

// BookFilter defines the catalog query. Nil fields are not filtered on.
type BookFilter struct {
	Search   *string
	Category *string
	Page     int
	PerPage  int
}

// BookRepository defines persistence for catalog books.
type BookRepository interface {
	Create(ctx context.Context, book *domain.Book) error
	GetByID(ctx context.Context, id string) (*domain.Book, error)

	// List returns one page of books ordered newest first, plus the total
	// number of matching books.
	List(ctx context.Context, filter BookFilter) ([]domain.Book, int, error)

	Update(ctx context.Context, book *domain.Book) error
	Delete(ctx context.Context, id string) error

	// StockByIDs returns the current stock of each requested book.
	StockByIDs(ctx context.Context, ids []string) (map[string]int, error)

	// Categories returns the distinct, non-empty categories in use by books.
	Categories(ctx context.Context) ([]string, error)
}

// CategoryRepository defines persistence for categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]domain.Category, error)
	Search(ctx context.Context, query string, limit int) ([]domain.Category, error)
	GetByName(ctx context.Context, name string) (*domain.Category, error)
	Create(ctx context.Context, category *domain.Category) error
}

// SupplierFilter defines filter criteria for listing suppliers.
type SupplierFilter struct {
	Search  *string
	Status  *string
	Page    int
	PerPage int
}

// SupplierRepository defines persistence for suppliers.
type SupplierRepository interface {
	Create(ctx context.Context, supplier *domain.Supplier) error
	GetByID(ctx context.Context, id string) (*domain.Supplier, error)
	List(ctx context.Context, filter SupplierFilter) ([]domain.Supplier, int, error)
	Update(ctx context.Context, supplier *domain.Supplier) error

	// Delete fails with a conflict while books still reference the supplier.
	Delete(ctx context.Context, id string) error

	SetStatus(ctx context.Context, id, status string) error
}

// UserRepository defines persistence for operators.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

// SaleFilter defines the sales history query. From and To are inclusive.
type SaleFilter struct {
	From    *time.Time
	To      *time.Time
	Page    int
	PerPage int
}

// SaleRepository reads committed sales.
type SaleRepository interface {
	List(ctx context.Context, filter SaleFilter) ([]domain.Sale, int, error)
	GetByID(ctx context.Context, id string) (*domain.Sale, error)
}

// SaleTransaction atomically records a sale and decrements stock. Either
// the sale header, every line and every decrement are applied, or nothing.
type SaleTransaction interface {
	ProcessSale(ctx context.Context, req domain.SaleRequest) (*domain.SaleResult, error)
}

// ReportRepository runs the read-only reporting aggregations.
type ReportRepository interface {
	InventoryReport(ctx context.Context) ([]domain.InventoryReportRow, error)
	DashboardStats(ctx context.Context) (*domain.DashboardStats, error)
	TopProducts(ctx context.Context, limit int) ([]domain.TopProduct, error)
	RevenueByDay(ctx context.Context, days int) ([]domain.DailyRevenue, error)
	RecentSales(ctx context.Context, limit int) ([]domain.RecentSale, error)
}

// CartRepository defines persistence for operator carts.
type CartRepository interface {
	// Get returns the operator's cart or a not found error.
	Get(ctx context.Context, operatorID string) (*domain.Cart, error)

	// SaveIfVersion stores cart only if the stored version still equals
	// expectedVersion, and bumps cart.Version. It reports false when another
	// writer got there first.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error)

	// DeleteIfVersion removes the cart only if the stored version still
	// equals expectedVersion.
	DeleteIfVersion(ctx context.Context, operatorID string, expectedVersion int) (bool, error)

	Delete(ctx context.Context, operatorID string) error
}

// DashboardCache caches dashboard counters between sales.
type DashboardCache interface {
	Get(ctx context.Context) (*domain.DashboardStats, bool, error)
	Set(ctx context.Context, stats *domain.DashboardStats) error
	Invalidate(ctx context.Context) error
}
