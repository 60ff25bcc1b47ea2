package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	"github.com/SkyToti/SistemaLibreria/internal/repository"
	apperrors "github.com/SkyToti/SistemaLibreria/pkg/errors"
)

type reportFixture struct {
	reports *mockReportRepository
	sales   *mockSaleRepository
	cache   *mockDashboardCache
	svc     *ReportService
}

func newReportFixture() *reportFixture {
	f := &reportFixture{
		reports: new(mockReportRepository),
		sales:   new(mockSaleRepository),
		cache:   new(mockDashboardCache),
	}
	f.svc = NewReportService(f.reports, f.sales, f.cache, newTestLogger())
	return f
}

// ---------------------------------------------------------------------------
// Sales history
// ---------------------------------------------------------------------------

func TestListSales_ToIsEndOfDay(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	f.sales.On("List", ctx, mock.MatchedBy(func(fl repository.SaleFilter) bool {
		return fl.From.Equal(from) &&
			fl.To.Equal(time.Date(2026, 3, 31, 23, 59, 59, 999999999, time.UTC)) &&
			fl.Page == 1 && fl.PerPage == 20
	})).Return([]domain.Sale{{ID: "s1"}}, 1, nil)

	sales, total, page, perPage := f.svc.ListSales(ctx, SalesQuery{From: &from, To: &to})

	assert.Len(t, sales, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, perPage)
	f.sales.AssertExpectations(t)
}

func TestListSales_FailureIsEmpty(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()

	f.sales.On("List", ctx, mock.Anything).Return(nil, 0, errors.New("relation does not exist"))

	sales, total, _, _ := f.svc.ListSales(ctx, SalesQuery{Page: 3, PerPage: 500})

	assert.NotNil(t, sales)
	assert.Empty(t, sales)
	assert.Zero(t, total)
}

func TestGetSale_NotFound(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()

	f.sales.On("GetByID", ctx, "s9").Return(nil, apperrors.NotFound("sale", "s9"))

	_, err := f.svc.GetSale(ctx, "s9")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Inventory report
// ---------------------------------------------------------------------------

func TestInventoryReport(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()

	rows := []domain.InventoryReportRow{
		domain.NewInventoryReportRow("b1", "Aura", "Novela", nil, 2, decimal.NewFromInt(4), decimal.NewFromInt(9)),
	}
	f.reports.On("InventoryReport", ctx).Return(rows, nil)

	got := f.svc.InventoryReport(ctx)

	require.Len(t, got, 1)
	assert.Equal(t, domain.NoSupplier, got[0].Supplier)
	assert.Equal(t, domain.StockStatusLow, got[0].Status)
}

func TestInventoryReport_FailureIsEmpty(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()

	f.reports.On("InventoryReport", ctx).Return(nil, errors.New("timeout"))

	got := f.svc.InventoryReport(ctx)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

// ---------------------------------------------------------------------------
// Dashboard
// ---------------------------------------------------------------------------

func TestDashboard_CacheHit(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()

	stats := &domain.DashboardStats{TotalSales: 4, TotalRevenue: decimal.NewFromInt(120), TotalBooks: 30, LowStockCount: 2}
	f.cache.On("Get", mock.Anything).Return(stats, true, nil)
	f.reports.On("TopProducts", mock.Anything, DashboardTopProducts).Return([]domain.TopProduct{{Title: "Aura", Sales: 3}}, nil)
	f.reports.On("RevenueByDay", mock.Anything, DashboardRevenueDays).Return([]domain.DailyRevenue{{Date: "2026-03-01"}}, nil)
	f.reports.On("RecentSales", mock.Anything, DashboardRecentSales).Return([]domain.RecentSale{{ID: "s1"}}, nil)

	d := f.svc.Dashboard(ctx)

	assert.Equal(t, 4, d.Stats.TotalSales)
	assert.Len(t, d.TopProducts, 1)
	assert.Len(t, d.RevenueByDay, 1)
	assert.Len(t, d.RecentSales, 1)
	f.reports.AssertNotCalled(t, "DashboardStats", mock.Anything)
	f.cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
}

func TestDashboard_CacheMissFillsCache(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()

	stats := &domain.DashboardStats{TotalSales: 1, TotalRevenue: decimal.NewFromInt(10)}
	f.cache.On("Get", mock.Anything).Return(nil, false, nil)
	f.reports.On("DashboardStats", mock.Anything).Return(stats, nil)
	f.cache.On("Set", mock.Anything, stats).Return(nil)
	f.reports.On("TopProducts", mock.Anything, mock.Anything).Return([]domain.TopProduct{}, nil)
	f.reports.On("RevenueByDay", mock.Anything, mock.Anything).Return([]domain.DailyRevenue{}, nil)
	f.reports.On("RecentSales", mock.Anything, mock.Anything).Return([]domain.RecentSale{}, nil)

	d := f.svc.Dashboard(ctx)

	assert.Equal(t, 1, d.Stats.TotalSales)
	f.cache.AssertExpectations(t)
}

func TestDashboard_FailuresAreZeros(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()

	boom := errors.New("db down")
	f.cache.On("Get", mock.Anything).Return(nil, false, errors.New("redis down"))
	f.reports.On("DashboardStats", mock.Anything).Return(nil, boom)
	f.reports.On("TopProducts", mock.Anything, mock.Anything).Return(nil, boom)
	f.reports.On("RevenueByDay", mock.Anything, mock.Anything).Return(nil, boom)
	f.reports.On("RecentSales", mock.Anything, mock.Anything).Return(nil, boom)

	d := f.svc.Dashboard(ctx)

	assert.Zero(t, d.Stats.TotalSales)
	assert.True(t, d.Stats.TotalRevenue.IsZero())
	assert.NotNil(t, d.TopProducts)
	assert.Empty(t, d.TopProducts)
	assert.Empty(t, d.RevenueByDay)
	assert.Empty(t, d.RecentSales)
	f.cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
}

func TestEndOfDay(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	got := EndOfDay(time.Date(2026, 5, 4, 13, 12, 0, 0, loc))

	assert.Equal(t, time.Date(2026, 5, 4, 23, 59, 59, 999999999, loc), got)
}
