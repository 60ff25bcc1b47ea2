package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	"github.com/SkyToti/SistemaLibreria/internal/repository"
	"github.com/SkyToti/SistemaLibreria/pkg/pagination"
)

// Dashboard widget sizes.
const (
	DashboardTopProducts = 5
	DashboardRecentSales = 5
	DashboardRevenueDays = 7
)

// SalesQuery filters the sales history. To is inclusive of the whole day.
type SalesQuery struct {
	From    *time.Time
	To      *time.Time
	Page    int
	PerPage int
}

// ReportService runs the read-only reports. Report failures are logged and
// turned into empty results.
type ReportService struct {
	reports repository.ReportRepository
	sales   repository.SaleRepository
	cache   repository.DashboardCache
	logger  *slog.Logger
}

// NewReportService creates a new report service.
func NewReportService(
	reports repository.ReportRepository,
	sales repository.SaleRepository,
	cache repository.DashboardCache,
	logger *slog.Logger,
) *ReportService {
	return &ReportService{
		reports: reports,
		sales:   sales,
		cache:   cache,
		logger:  logger,
	}
}

// ListSales returns a page of sales, newest first.
func (s *ReportService) ListSales(ctx context.Context, q SalesQuery) ([]domain.Sale, int, int, int) {
	page, perPage := pagination.Normalize(q.Page, q.PerPage, pagination.DefaultPerPage)

	filter := repository.SaleFilter{From: q.From, Page: page, PerPage: perPage}
	if q.To != nil {
		end := EndOfDay(*q.To)
		filter.To = &end
	}

	sales, total, err := s.sales.List(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list sales", slog.String("error", err.Error()))
		return []domain.Sale{}, 0, page, perPage
	}
	return sales, total, page, perPage
}

// GetSale returns one sale with its lines.
func (s *ReportService) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	sale, err := s.sales.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return sale, nil
}

// InventoryReport values the stock of every book.
func (s *ReportService) InventoryReport(ctx context.Context) []domain.InventoryReportRow {
	rows, err := s.reports.InventoryReport(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to build inventory report", slog.String("error", err.Error()))
		return []domain.InventoryReportRow{}
	}
	return rows
}

// Dashboard gathers every dashboard widget concurrently. Counters come from
// the cache when present.
func (s *ReportService) Dashboard(ctx context.Context) *domain.Dashboard {
	d := domain.EmptyDashboard()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if stats := s.dashboardStats(gctx); stats != nil {
			d.Stats = *stats
		}
		return nil
	})
	g.Go(func() error {
		products, err := s.reports.TopProducts(gctx, DashboardTopProducts)
		if err != nil {
			s.logger.ErrorContext(gctx, "failed to load top products", slog.String("error", err.Error()))
			return nil
		}
		d.TopProducts = products
		return nil
	})
	g.Go(func() error {
		revenue, err := s.reports.RevenueByDay(gctx, DashboardRevenueDays)
		if err != nil {
			s.logger.ErrorContext(gctx, "failed to load revenue by day", slog.String("error", err.Error()))
			return nil
		}
		d.RevenueByDay = revenue
		return nil
	})
	g.Go(func() error {
		recent, err := s.reports.RecentSales(gctx, DashboardRecentSales)
		if err != nil {
			s.logger.ErrorContext(gctx, "failed to load recent sales", slog.String("error", err.Error()))
			return nil
		}
		d.RecentSales = recent
		return nil
	})
	_ = g.Wait()

	return d
}

func (s *ReportService) dashboardStats(ctx context.Context) *domain.DashboardStats {
	stats, hit, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "dashboard cache read failed", slog.String("error", err.Error()))
	}
	if hit {
		return stats
	}

	stats, err = s.reports.DashboardStats(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load dashboard stats", slog.String("error", err.Error()))
		return nil
	}
	if err := s.cache.Set(ctx, stats); err != nil {
		s.logger.WarnContext(ctx, "dashboard cache write failed", slog.String("error", err.Error()))
	}
	return stats
}

// EndOfDay returns the last instant of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
