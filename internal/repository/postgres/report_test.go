package postgres

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	"github.com/SkyToti/SistemaLibreria/pkg/database"
)

func setupReportRepo(t *testing.T) (*ReportRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewReportRepository(mock), mock
}

func TestInventoryReport_ValueAndStatus(t *testing.T) {
	repo, mock := setupReportRepo(t)
	defer mock.Close()

	cols := []string{"id", "title", "category", "name", "stock_quantity", "purchase_price", "sale_price"}
	mock.ExpectQuery("FROM books b LEFT JOIN suppliers s .+ ORDER BY b.title").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("b1", "Aura", "Novela", strPtr("Distribuidora Andina"), 0, decimal.RequireFromString("5"), decimal.RequireFromString("10")).
			AddRow("b2", "Borges esencial", "Cuento", nil, 3, decimal.RequireFromString("8"), decimal.RequireFromString("15.50")).
			AddRow("b3", "Cumbres", "Novela", strPtr("Libros SA"), 12, decimal.RequireFromString("7"), decimal.RequireFromString("20")))

	rows, err := repo.InventoryReport(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, domain.StockStatusOutOfStock, rows[0].Status)
	assert.True(t, rows[0].TotalValue.IsZero())

	assert.Equal(t, domain.NoSupplier, rows[1].Supplier)
	assert.Equal(t, domain.StockStatusLow, rows[1].Status)
	assert.True(t, decimal.RequireFromString("46.50").Equal(rows[1].TotalValue))

	assert.Equal(t, domain.StockStatusActive, rows[2].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardStats(t *testing.T) {
	repo, mock := setupReportRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM sales.+ FROM books WHERE stock_quantity <").
		WithArgs(domain.LowStockThreshold).
		WillReturnRows(pgxmock.NewRows([]string{"sales", "revenue", "books", "low"}).
			AddRow(12, decimal.RequireFromString("480.20"), 40, 3))

	stats, err := repo.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, stats.TotalSales)
	assert.Equal(t, 40, stats.TotalBooks)
	assert.Equal(t, 3, stats.LowStockCount)
	assert.Equal(t, "480.2", stats.TotalRevenue.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopProducts(t *testing.T) {
	repo, mock := setupReportRepo(t)
	defer mock.Close()

	mock.ExpectQuery("FROM sale_items si JOIN books b .+ GROUP BY .+ LIMIT").
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows([]string{"title", "units", "revenue"}).
			AddRow("Rayuela", 9, decimal.RequireFromString("224.10")))

	products, err := repo.TopProducts(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 9, products[0].Sales)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevenueByDay(t *testing.T) {
	repo, mock := setupReportRepo(t)
	defer mock.Close()

	mock.ExpectQuery("FROM generate_series").
		WithArgs(7).
		WillReturnRows(pgxmock.NewRows([]string{"day", "amount"}).
			AddRow("2025-04-11", decimal.Zero).
			AddRow("2025-04-12", decimal.RequireFromString("64.70")))

	revenue, err := repo.RevenueByDay(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, revenue, 2)
	assert.Equal(t, "2025-04-12", revenue[1].Date)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentSales(t *testing.T) {
	repo, mock := setupReportRepo(t)
	defer mock.Close()

	mock.ExpectQuery("FROM sales s LEFT JOIN users u .+ LIMIT").
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "total_amount", "sale_date", "payment_method", "full_name", "email"}).
			AddRow("sale-1", decimal.RequireFromString("10"), saleDate, domain.PaymentCard, strPtr("Marta Gómez"), strPtr("m@x.example")).
			AddRow("sale-2", decimal.RequireFromString("5"), saleDate, domain.PaymentCash, nil, nil))

	sales, err := repo.RecentSales(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	require.NotNil(t, sales[0].Operator)
	assert.Equal(t, "m@x.example", sales[0].Operator.Email)
	assert.Nil(t, sales[1].Operator)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReport_QueryError(t *testing.T) {
	repo, mock := setupReportRepo(t)
	defer mock.Close()

	mock.ExpectQuery("FROM books b").WillReturnError(errors.New("timeout"))

	_, err := repo.InventoryReport(context.Background())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
