package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// NoSupplier labels books without a supplier in the inventory report.
const NoSupplier = "Sin proveedor"

// InventoryReportRow is the valuation of one book.
type InventoryReportRow struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Category   string          `json:"category"`
	Supplier   string          `json:"supplier"`
	Stock      int             `json:"stock"`
	Cost       decimal.Decimal `json:"cost"`
	Price      decimal.Decimal `json:"price"`
	TotalValue decimal.Decimal `json:"total_value"`
	Status     string          `json:"status"`
}

// NewInventoryReportRow derives value and status from stock and price.
func NewInventoryReportRow(id, title, category string, supplier *string, stock int, cost, price decimal.Decimal) InventoryReportRow {
	name := NoSupplier
	if supplier != nil && *supplier != "" {
		name = *supplier
	}
	if stock < 0 {
		stock = 0
	}
	return InventoryReportRow{
		ID:         id,
		Title:      title,
		Category:   category,
		Supplier:   name,
		Stock:      stock,
		Cost:       cost,
		Price:      price,
		TotalValue: price.Mul(decimal.NewFromInt(int64(stock))),
		Status:     StockStatus(stock),
	}
}

// DashboardStats are the headline counters of the dashboard.
type DashboardStats struct {
	TotalSales    int             `json:"total_sales"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalBooks    int             `json:"total_books"`
	LowStockCount int             `json:"low_stock_count"`
}

// TopProduct is a best seller by units sold.
type TopProduct struct {
	Title   string          `json:"title"`
	Sales   int             `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`
}

// DailyRevenue is the revenue of one calendar day (YYYY-MM-DD).
type DailyRevenue struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// RecentSale is a sale header shown on the dashboard.
type RecentSale struct {
	ID            string          `json:"id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	SaleDate      time.Time       `json:"sale_date"`
	PaymentMethod string          `json:"payment_method"`
	Operator      *SaleOperator   `json:"operator"`
}

// Dashboard aggregates every dashboard widget.
type Dashboard struct {
	Stats        DashboardStats `json:"stats"`
	TopProducts  []TopProduct   `json:"top_products"`
	RevenueByDay []DailyRevenue `json:"revenue_by_day"`
	RecentSales  []RecentSale   `json:"recent_sales"`
}

// EmptyDashboard is the zero-valued dashboard with non-nil lists.
func EmptyDashboard() *Dashboard {
	return &Dashboard{
		Stats:        DashboardStats{TotalRevenue: decimal.Zero},
		TopProducts:  []TopProduct{},
		RevenueByDay: []DailyRevenue{},
		RecentSales:  []RecentSale{},
	}
}
