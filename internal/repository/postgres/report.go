package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	"github.com/SkyToti/SistemaLibreria/pkg/database"
)

// ReportRepository implements repository.ReportRepository using PostgreSQL.
type ReportRepository struct {
	db database.DBTX
}

func NewReportRepository(db database.DBTX) *ReportRepository {
	return &ReportRepository{db: db}
}

// InventoryReport values every book at its sale price, ordered by title.
func (r *ReportRepository) InventoryReport(ctx context.Context) ([]domain.InventoryReportRow, error) {
	query := `
		SELECT b.id, b.title, b.category, s.name, b.stock_quantity, b.purchase_price, b.sale_price
		FROM books b
		LEFT JOIN suppliers s ON s.id = b.supplier_id
		ORDER BY b.title, b.id`

	ctx, done := database.TraceQuery(ctx, "books", "inventory_report", query)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("inventory report: %w", err)
	}
	defer rows.Close()

	report := []domain.InventoryReportRow{}
	for rows.Next() {
		var (
			id, title, category string
			supplier            *string
			stock               int
			cost, price         decimal.Decimal
		)
		if err := rows.Scan(&id, &title, &category, &supplier, &stock, &cost, &price); err != nil {
			done(err)
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		report = append(report, domain.NewInventoryReportRow(id, title, category, supplier, stock, cost, price))
	}
	err = rows.Err()
	done(err)
	if err != nil {
		return nil, fmt.Errorf("iterate inventory rows: %w", err)
	}
	return report, nil
}

// DashboardStats computes the dashboard counters in one round trip.
func (r *ReportRepository) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	query := `
		SELECT
			(SELECT count(*) FROM sales),
			(SELECT COALESCE(SUM(total_amount), 0) FROM sales),
			(SELECT count(*) FROM books),
			(SELECT count(*) FROM books WHERE stock_quantity < $1)`

	var stats domain.DashboardStats
	ctx, done := database.TraceQuery(ctx, "sales", "dashboard_stats", query)
	err := r.db.QueryRow(ctx, query, domain.LowStockThreshold).Scan(
		&stats.TotalSales, &stats.TotalRevenue, &stats.TotalBooks, &stats.LowStockCount,
	)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return &stats, nil
}

// TopProducts returns the best sellers by units sold.
func (r *ReportRepository) TopProducts(ctx context.Context, limit int) ([]domain.TopProduct, error) {
	query := `
		SELECT b.title, SUM(si.quantity) AS units, SUM(si.total_price) AS revenue
		FROM sale_items si
		JOIN books b ON b.id = si.book_id
		GROUP BY b.id, b.title
		ORDER BY units DESC, b.title
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()

	products := []domain.TopProduct{}
	for rows.Next() {
		var p domain.TopProduct
		if err := rows.Scan(&p.Title, &p.Sales, &p.Revenue); err != nil {
			return nil, fmt.Errorf("scan top product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top products: %w", err)
	}
	return products, nil
}

// RevenueByDay returns one entry per calendar day for the last days days,
// including days without sales.
func (r *ReportRepository) RevenueByDay(ctx context.Context, days int) ([]domain.DailyRevenue, error) {
	query := `
		SELECT to_char(d.day, 'YYYY-MM-DD'), COALESCE(SUM(s.total_amount), 0)
		FROM generate_series(CURRENT_DATE - ($1::int - 1), CURRENT_DATE, INTERVAL '1 day') AS d(day)
		LEFT JOIN sales s ON s.sale_date::date = d.day::date
		GROUP BY d.day
		ORDER BY d.day`

	rows, err := r.db.Query(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("revenue by day: %w", err)
	}
	defer rows.Close()

	revenue := []domain.DailyRevenue{}
	for rows.Next() {
		var d domain.DailyRevenue
		if err := rows.Scan(&d.Date, &d.Amount); err != nil {
			return nil, fmt.Errorf("scan daily revenue: %w", err)
		}
		revenue = append(revenue, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily revenue: %w", err)
	}
	return revenue, nil
}

// RecentSales returns the latest sale headers with their operator.
func (r *ReportRepository) RecentSales(ctx context.Context, limit int) ([]domain.RecentSale, error) {
	query := `
		SELECT s.id, s.total_amount, s.sale_date, s.payment_method, u.full_name, u.email
		FROM sales s
		LEFT JOIN users u ON u.id = s.user_id
		ORDER BY s.sale_date DESC, s.id DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("recent sales: %w", err)
	}
	defer rows.Close()

	sales := []domain.RecentSale{}
	for rows.Next() {
		var (
			s               domain.RecentSale
			fullName, email *string
		)
		if err := rows.Scan(&s.ID, &s.TotalAmount, &s.SaleDate, &s.PaymentMethod, &fullName, &email); err != nil {
			return nil, fmt.Errorf("scan recent sale: %w", err)
		}
		if fullName != nil {
			s.Operator = &domain.SaleOperator{FullName: *fullName}
			if email != nil {
				s.Operator.Email = *email
			}
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent sales: %w", err)
	}
	return sales, nil
}
