package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	"github.com/SkyToti/SistemaLibreria/internal/service"
	"github.com/SkyToti/SistemaLibreria/pkg/health"
	"github.com/SkyToti/SistemaLibreria/pkg/middleware"
)

// Services are the application services exposed over HTTP.
type Services struct {
	Users      *service.UserService
	Catalog    *service.CatalogService
	Categories *service.CategoryService
	Suppliers  *service.SupplierService
	Carts      *service.CartService
	Checkout   *service.CheckoutService
	Reports    *service.ReportService
}

// RouterConfig holds the HTTP policies of the API.
type RouterConfig struct {
	Tokens         middleware.TokenValidator
	CORSOrigins    []string
	LoginRateRPS   float64
	LoginRateBurst int
	RequestTimeout time.Duration
	PprofCIDRs     []string
}

// NewRouter creates a chi router with every POS route registered. ctx
// bounds background work of the login rate limiter.
func NewRouter(
	ctx context.Context,
	svc Services,
	cfg RouterConfig,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing())
	r.Use(middleware.Metrics("pos"))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	users := NewUserHandler(svc.Users, logger)
	books := NewBookHandler(svc.Catalog, logger)
	categories := NewCategoryHandler(svc.Categories, logger)
	suppliers := NewSupplierHandler(svc.Suppliers, logger)
	carts := NewCartHandler(svc.Carts, logger)
	checkout := NewCheckoutHandler(svc.Checkout, logger)
	reports := NewReportHandler(svc.Reports, logger)

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Compress(5))
		r.Use(chimw.Timeout(timeout))

		r.With(
			middleware.RequestLogger(logger),
			middleware.RateLimit(ctx, cfg.LoginRateRPS, cfg.LoginRateBurst, logger),
		).Post("/auth/login", users.Login)

		// Authenticated operator routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Tokens))
			r.Use(middleware.RequestLogger(logger))

			r.Get("/users/me", users.Me)

			r.Get("/books", books.List)
			r.Get("/books/categories", books.Categories)
			r.Get("/books/{id}", books.Get)

			r.Get("/categories", categories.List)
			r.Get("/categories/search", categories.Search)
			r.Post("/categories", categories.Create)

			r.Get("/suppliers", suppliers.List)
			r.Get("/suppliers/{id}", suppliers.Get)

			r.Get("/cart", carts.Get)
			r.Delete("/cart", carts.Clear)
			r.Post("/cart/items", carts.AddItem)
			r.Put("/cart/items/{id}", carts.UpdateItem)
			r.Delete("/cart/items/{id}", carts.RemoveItem)

			r.Post("/checkout", checkout.Submit)
			r.Get("/checkout/status", checkout.Status)

			r.Get("/sales", reports.ListSales)
			r.Get("/sales/{id}", reports.GetSale)

			// Admin routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleAdmin))

				r.Get("/users", users.List)
				r.Post("/users", users.Create)

				r.Post("/books", books.Create)
				r.Put("/books/{id}", books.Update)
				r.Delete("/books/{id}", books.Delete)

				r.Post("/suppliers", suppliers.Create)
				r.Put("/suppliers/{id}", suppliers.Update)
				r.Delete("/suppliers/{id}", suppliers.Delete)
				r.Post("/suppliers/{id}/archive", suppliers.Archive)

				r.Get("/reports/inventory", reports.Inventory)
				r.Get("/reports/dashboard", reports.Dashboard)
			})
		})
	})

	return r
}
