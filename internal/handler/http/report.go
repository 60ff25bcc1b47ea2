package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SkyToti/SistemaLibreria/internal/service"
	"github.com/SkyToti/SistemaLibreria/pkg/httputil"
	"github.com/SkyToti/SistemaLibreria/pkg/pagination"
)

// ReportHandler serves sales history and reports.
type ReportHandler struct {
	service *service.ReportService
	logger  *slog.Logger
}

// NewReportHandler creates a new report HTTP handler.
func NewReportHandler(svc *service.ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{service: svc, logger: logger}
}

// ListSales handles GET /api/v1/sales?from=&to=
func (h *ReportHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateParam(r, "from")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	params := pagination.FromRequest(r, pagination.DefaultPerPage)

	sales, total, page, perPage := h.service.ListSales(r.Context(), service.SalesQuery{
		From:    from,
		To:      to,
		Page:    params.Page,
		PerPage: params.PerPage,
	})

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(sales, total, page, perPage))
}

// GetSale handles GET /api/v1/sales/{id}
func (h *ReportHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	sale, err := h.service.GetSale(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, sale)
}

// Inventory handles GET /api/v1/reports/inventory
func (h *ReportHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.service.InventoryReport(r.Context()))
}

// Dashboard handles GET /api/v1/reports/dashboard
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.service.Dashboard(r.Context()))
}
