package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	"github.com/SkyToti/SistemaLibreria/internal/service"
	"github.com/SkyToti/SistemaLibreria/pkg/httputil"
	"github.com/SkyToti/SistemaLibreria/pkg/pagination"
)

// BookHandler handles catalog queries and book administration.
type BookHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewBookHandler creates a new book HTTP handler.
func NewBookHandler(svc *service.CatalogService, logger *slog.Logger) *BookHandler {
	return &BookHandler{service: svc, logger: logger}
}

// catalogResponse is a catalog page stamped with the query sequence number
// it answers.
type catalogResponse struct {
	httputil.PaginatedResponse[domain.Book]
	Seq uint64 `json:"seq"`
}

// List handles GET /api/v1/books
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r, service.CatalogPageSize)
	q := r.URL.Query()

	page, err := h.service.ListBooks(r.Context(), service.CatalogQuery{
		TerminalID: terminalID(r),
		Seq:        parseSeq(r),
		Page:       params.Page,
		PerPage:    params.PerPage,
		Search:     q.Get("search"),
		Category:   q.Get("category"),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, catalogResponse{
		PaginatedResponse: httputil.NewPaginatedResponse(page.Items, page.Total, page.Page, page.PerPage),
		Seq:               page.Seq,
	})
}

// Get handles GET /api/v1/books/{id}
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	book, err := h.service.GetBook(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, book)
}

// Categories handles GET /api/v1/books/categories
func (h *BookHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, categories)
}

// Create handles POST /api/v1/books
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.BookInput
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	book, err := h.service.CreateBook(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, book)
}

// Update handles PUT /api/v1/books/{id}
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req service.BookInput
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	book, err := h.service.UpdateBook(r.Context(), id.String(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, book)
}

// Delete handles DELETE /api/v1/books/{id}
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteBook(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
