package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	"github.com/SkyToti/SistemaLibreria/internal/repository"
	"github.com/SkyToti/SistemaLibreria/pkg/database"
	apperrors "github.com/SkyToti/SistemaLibreria/pkg/errors"
)

const bookColumns = `id, title, author, editorial, isbn, category, purchase_price, sale_price,
		stock_quantity, description, cover_image_url, supplier_id, created_at, updated_at`

// BookRepository implements repository.BookRepository using PostgreSQL.
type BookRepository struct {
	db database.DBTX
}

func NewBookRepository(db database.DBTX) *BookRepository {
	return &BookRepository{db: db}
}

// Create inserts a new book.
func (r *BookRepository) Create(ctx context.Context, b *domain.Book) error {
	query := `
		INSERT INTO books (id, title, author, editorial, isbn, category, purchase_price, sale_price,
			stock_quantity, description, cover_image_url, supplier_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	ctx, done := database.TraceQuery(ctx, "books", "insert", query)
	_, err := r.db.Exec(ctx, query,
		b.ID, b.Title, b.Author, b.Editorial, b.ISBN, b.Category,
		b.PurchasePrice, b.SalePrice, b.StockQuantity, b.Description,
		b.CoverImageURL, b.SupplierID, b.CreatedAt, b.UpdatedAt,
	)
	done(err)
	if err != nil {
		return mapBookWriteError(err, b)
	}
	return nil
}

// GetByID retrieves a book by its ID.
func (r *BookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	ctx, done := database.TraceQuery(ctx, "books", "select", query)
	b, err := scanBook(r.db.QueryRow(ctx, query, id))
	done(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("book", id)
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

// List returns books matching filter, newest first with id as tie breaker.
func (r *BookRepository) List(ctx context.Context, filter repository.BookFilter) ([]domain.Book, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR isbn ILIKE $%d)", argIndex, argIndex))
		args = append(args, containsPattern(*filter.Search))
		argIndex++
	}

	if filter.Category != nil && *filter.Category != "" && *filter.Category != domain.AllCategories {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, *filter.Category)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM books
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		bookColumns, whereClause, argIndex, argIndex+1,
	)

	limit, offset := pageBounds(filter.Page, filter.PerPage, 12)
	pageArgs := append(append([]any{}, args...), limit, offset)

	ctx, done := database.TraceQuery(ctx, "books", "list", query)
	rows, err := r.db.Query(ctx, query, pageArgs...)
	if err != nil {
		done(err)
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	books := []domain.Book{}
	total := 0
	for rows.Next() {
		var b domain.Book
		if err := rows.Scan(bookFields(&b, &total)...); err != nil {
			done(err)
			return nil, 0, fmt.Errorf("scan book row: %w", err)
		}
		books = append(books, b)
	}
	err = rows.Err()
	done(err)
	if err != nil {
		return nil, 0, fmt.Errorf("iterate book rows: %w", err)
	}

	// A page past the end has no rows to carry the window count.
	if len(books) == 0 && offset > 0 {
		countQuery := "SELECT count(*) FROM books " + whereClause
		if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count books: %w", err)
		}
	}

	return books, total, nil
}

// Update modifies a book's editable fields.
func (r *BookRepository) Update(ctx context.Context, b *domain.Book) error {
	query := `
		UPDATE books
		SET title = $2, author = $3, editorial = $4, isbn = $5, category = $6, purchase_price = $7,
			sale_price = $8, stock_quantity = $9, description = $10, cover_image_url = $11,
			supplier_id = $12, updated_at = $13
		WHERE id = $1`

	ctx, done := database.TraceQuery(ctx, "books", "update", query)
	tag, err := r.db.Exec(ctx, query,
		b.ID, b.Title, b.Author, b.Editorial, b.ISBN, b.Category,
		b.PurchasePrice, b.SalePrice, b.StockQuantity, b.Description,
		b.CoverImageURL, b.SupplierID, b.UpdatedAt,
	)
	done(err)
	if err != nil {
		return mapBookWriteError(err, b)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("book", b.ID)
	}
	return nil
}

// Delete removes a book that has never been sold.
func (r *BookRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM books WHERE id = $1`

	ctx, done := database.TraceQuery(ctx, "books", "delete", query)
	tag, err := r.db.Exec(ctx, query, id)
	done(err)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.Conflict("book has recorded sales; set its stock to zero instead")
		}
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("book", id)
	}
	return nil
}

// StockByIDs returns the current stock of the requested books. Unknown IDs
// are absent from the result.
func (r *BookRepository) StockByIDs(ctx context.Context, ids []string) (map[string]int, error) {
	stock := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return stock, nil
	}

	query := `SELECT id, stock_quantity FROM books WHERE id = ANY($1::uuid[])`

	ctx, done := database.TraceQuery(ctx, "books", "stock", query)
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("read stock: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  string
			qty int
		)
		if err := rows.Scan(&id, &qty); err != nil {
			done(err)
			return nil, fmt.Errorf("scan stock row: %w", err)
		}
		stock[id] = qty
	}
	err = rows.Err()
	done(err)
	if err != nil {
		return nil, fmt.Errorf("iterate stock rows: %w", err)
	}
	return stock, nil
}

// Categories returns the distinct categories assigned to books.
func (r *BookRepository) Categories(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT category FROM books WHERE category <> '' ORDER BY category`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list book categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

func bookFields(b *domain.Book, extra ...any) []any {
	fields := []any{
		&b.ID, &b.Title, &b.Author, &b.Editorial, &b.ISBN, &b.Category,
		&b.PurchasePrice, &b.SalePrice, &b.StockQuantity, &b.Description,
		&b.CoverImageURL, &b.SupplierID, &b.CreatedAt, &b.UpdatedAt,
	}
	return append(fields, extra...)
}

func scanBook(row scanner) (*domain.Book, error) {
	var b domain.Book
	if err := row.Scan(bookFields(&b)...); err != nil {
		return nil, err
	}
	return &b, nil
}

func mapBookWriteError(err error, b *domain.Book) error {
	switch database.PgErrorCode(err) {
	case database.CodeUniqueViolation:
		return apperrors.AlreadyExists("book", "isbn", b.ISBN)
	case database.CodeForeignKeyViolation:
		return apperrors.InvalidInput("supplier does not exist")
	case database.CodeCheckViolation:
		return apperrors.InvalidInput("prices and stock must not be negative")
	}
	return fmt.Errorf("write book: %w", err)
}
