package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	"github.com/SkyToti/SistemaLibreria/internal/repository"
	apperrors "github.com/SkyToti/SistemaLibreria/pkg/errors"
	"github.com/SkyToti/SistemaLibreria/pkg/pagination"
)

// CatalogPageSize is the page size of the POS catalog grid.
const CatalogPageSize = 12

// CatalogQuery is one catalog request from a terminal.
type CatalogQuery struct {
	TerminalID string
	Seq        uint64
	Page       int
	PerPage    int
	Search     string
	Category   string
}

// CatalogPage is the answer to a CatalogQuery.
type CatalogPage struct {
	Items   []domain.Book
	Total   int
	Page    int
	PerPage int
	Seq     uint64
}

// BookInput holds the editable fields of a book.
type BookInput struct {
	Title         string          `json:"title" validate:"required,max=300"`
	Author        string          `json:"author" validate:"max=200"`
	Editorial     string          `json:"editorial" validate:"max=200"`
	ISBN          string          `json:"isbn" validate:"required,isbn"`
	Category      string          `json:"category" validate:"max=100"`
	PurchasePrice decimal.Decimal `json:"purchase_price" validate:"gte=0"`
	SalePrice     decimal.Decimal `json:"sale_price" validate:"gte=0"`
	StockQuantity int             `json:"stock_quantity" validate:"gte=0"`
	Description   string          `json:"description" validate:"max=5000"`
	CoverImageURL string          `json:"cover_image_url" validate:"omitempty,url"`
	SupplierID    *string         `json:"supplier_id" validate:"omitempty,uuid"`
}

// CatalogService serves catalog queries and book administration.
type CatalogService struct {
	books     repository.BookRepository
	sequencer *QuerySequencer
	logger    *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(books repository.BookRepository, sequencer *QuerySequencer, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		books:     books,
		sequencer: sequencer,
		logger:    logger,
	}
}

// ListBooks runs a catalog query. When the terminal already received the
// answer to a newer query, the result is discarded with STALE_RESPONSE.
func (s *CatalogService) ListBooks(ctx context.Context, q CatalogQuery) (*CatalogPage, error) {
	page, perPage := pagination.Normalize(q.Page, q.PerPage, CatalogPageSize)
	ticket := s.sequencer.Issue(q.TerminalID, q.Seq)

	filter := repository.BookFilter{Page: page, PerPage: perPage}
	if search := strings.TrimSpace(q.Search); search != "" {
		filter.Search = &search
	}
	if category := strings.TrimSpace(q.Category); category != "" && category != domain.AllCategories {
		filter.Category = &category
	}

	books, total, err := s.books.List(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "catalog query failed",
			slog.String("terminal_id", q.TerminalID),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.ServiceUnavailable("failed to load catalog", err)
	}

	if !s.sequencer.Deliver(q.TerminalID, ticket) {
		staleCatalogResponses.Inc()
		return nil, apperrors.Gone("STALE_RESPONSE", "a newer catalog query has already been answered")
	}

	return &CatalogPage{
		Items:   books,
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Seq:     ticket,
	}, nil
}

// GetBook returns one book.
func (s *CatalogService) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// Categories returns the distinct categories used by books.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.books.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list book categories: %w", err)
	}
	return categories, nil
}

// CreateBook adds a book to the catalog.
func (s *CatalogService) CreateBook(ctx context.Context, input BookInput) (*domain.Book, error) {
	if err := checkBookInput(&input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	book := &domain.Book{ID: uuid.New().String(), CreatedAt: now}
	applyBookInput(book, input, now)

	if err := s.books.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	s.logger.InfoContext(ctx, "book created",
		slog.String("book_id", book.ID),
		slog.String("isbn", book.ISBN),
	)
	return book, nil
}

// UpdateBook replaces the editable fields of a book.
func (s *CatalogService) UpdateBook(ctx context.Context, id string, input BookInput) (*domain.Book, error) {
	if err := checkBookInput(&input); err != nil {
		return nil, err
	}

	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get book for update: %w", err)
	}
	applyBookInput(book, input, time.Now().UTC())

	if err := s.books.Update(ctx, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}

	s.logger.InfoContext(ctx, "book updated",
		slog.String("book_id", book.ID),
		slog.Int("stock_quantity", book.StockQuantity),
	)
	return book, nil
}

// DeleteBook removes a book that was never sold.
func (s *CatalogService) DeleteBook(ctx context.Context, id string) error {
	if err := s.books.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	s.logger.InfoContext(ctx, "book deleted", slog.String("book_id", id))
	return nil
}

func checkBookInput(input *BookInput) error {
	input.Title = strings.TrimSpace(input.Title)
	input.ISBN = strings.TrimSpace(input.ISBN)
	input.Category = strings.TrimSpace(input.Category)

	if input.Title == "" {
		return apperrors.InvalidInput("title is required")
	}
	if input.ISBN == "" {
		return apperrors.InvalidInput("isbn is required")
	}
	if input.SalePrice.IsNegative() || input.PurchasePrice.IsNegative() {
		return apperrors.InvalidInput("prices must not be negative")
	}
	if input.StockQuantity < 0 {
		return apperrors.InvalidInput("stock must not be negative")
	}
	if input.SupplierID != nil && *input.SupplierID == "" {
		input.SupplierID = nil
	}
	return nil
}

func applyBookInput(book *domain.Book, input BookInput, now time.Time) {
	book.Title = input.Title
	book.Author = input.Author
	book.Editorial = input.Editorial
	book.ISBN = input.ISBN
	book.Category = input.Category
	book.PurchasePrice = input.PurchasePrice
	book.SalePrice = input.SalePrice
	book.StockQuantity = input.StockQuantity
	book.Description = input.Description
	book.CoverImageURL = input.CoverImageURL
	book.SupplierID = input.SupplierID
	book.UpdatedAt = now
}
