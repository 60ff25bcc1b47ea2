package http

import (
	"log/slog"
	"net/http"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	"github.com/SkyToti/SistemaLibreria/internal/service"
	"github.com/SkyToti/SistemaLibreria/pkg/httputil"
)

// CategoryHandler handles category endpoints.
type CategoryHandler struct {
	service *service.CategoryService
	logger  *slog.Logger
}

// NewCategoryHandler creates a new category HTTP handler.
func NewCategoryHandler(svc *service.CategoryService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{service: svc, logger: logger}
}

type createCategoryResponse struct {
	Category *domain.Category `json:"category"`
	Created  bool             `json:"created"`
}

// List handles GET /api/v1/categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, categories)
}

// Search handles GET /api/v1/categories/search?q=
func (h *CategoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, categories)
}

// Create handles POST /api/v1/categories. An existing name answers 200 with
// created=false.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateCategoryInput
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	category, created, err := h.service.Create(r.Context(), req.Name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.WriteData(w, status, createCategoryResponse{Category: category, Created: created})
}
