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

const saleHeaderColumns = `s.id, s.user_id, s.total_amount, s.discount_amount, s.payment_method, s.notes, s.sale_date,
		u.full_name, u.email`

// SaleRepository implements repository.SaleRepository and
// repository.SaleTransaction using PostgreSQL.
type SaleRepository struct {
	db database.DBTX
}

func NewSaleRepository(db database.DBTX) *SaleRepository {
	return &SaleRepository{db: db}
}

// List returns sales newest first, each with its items and operator.
func (r *SaleRepository) List(ctx context.Context, filter repository.SaleFilter) ([]domain.Sale, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("s.sale_date >= $%d", argIndex))
		args = append(args, *filter.From)
		argIndex++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("s.sale_date <= $%d", argIndex))
		args = append(args, *filter.To)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM sales s
		LEFT JOIN users u ON u.id = s.user_id
		%s
		ORDER BY s.sale_date DESC, s.id DESC
		LIMIT $%d OFFSET $%d`,
		saleHeaderColumns, whereClause, argIndex, argIndex+1,
	)

	limit, offset := pageBounds(filter.Page, filter.PerPage, 20)
	pageArgs := append(append([]any{}, args...), limit, offset)

	ctx, done := database.TraceQuery(ctx, "sales", "list", query)
	rows, err := r.db.Query(ctx, query, pageArgs...)
	if err != nil {
		done(err)
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}

	sales := []domain.Sale{}
	total := 0
	for rows.Next() {
		s, err := scanSaleHeader(rows, &total)
		if err != nil {
			rows.Close()
			done(err)
			return nil, 0, fmt.Errorf("scan sale row: %w", err)
		}
		sales = append(sales, *s)
	}
	rows.Close()
	err = rows.Err()
	done(err)
	if err != nil {
		return nil, 0, fmt.Errorf("iterate sale rows: %w", err)
	}

	if len(sales) == 0 {
		if offset > 0 {
			countQuery := "SELECT count(*) FROM sales s " + whereClause
			if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
				return nil, 0, fmt.Errorf("count sales: %w", err)
			}
		}
		return sales, total, nil
	}

	ids := make([]string, len(sales))
	for i := range sales {
		ids[i] = sales[i].ID
	}
	items, err := r.itemsBySale(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range sales {
		sales[i].Items = items[sales[i].ID]
		if sales[i].Items == nil {
			sales[i].Items = []domain.SaleItem{}
		}
	}

	return sales, total, nil
}

// GetByID returns one sale with its items and operator.
func (r *SaleRepository) GetByID(ctx context.Context, id string) (*domain.Sale, error) {
	query := `
		SELECT ` + saleHeaderColumns + `
		FROM sales s
		LEFT JOIN users u ON u.id = s.user_id
		WHERE s.id = $1`

	s, err := scanSaleHeader(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("sale", id)
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}

	items, err := r.itemsBySale(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	s.Items = items[id]
	if s.Items == nil {
		s.Items = []domain.SaleItem{}
	}
	return s, nil
}

func (r *SaleRepository) itemsBySale(ctx context.Context, saleIDs []string) (map[string][]domain.SaleItem, error) {
	query := `
		SELECT si.id, si.sale_id, si.book_id, si.quantity, si.unit_price, si.total_price, b.title, b.isbn
		FROM sale_items si
		JOIN books b ON b.id = si.book_id
		WHERE si.sale_id = ANY($1::uuid[])
		ORDER BY si.sale_id, b.title`

	ctx, done := database.TraceQuery(ctx, "sale_items", "list", query)
	rows, err := r.db.Query(ctx, query, saleIDs)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("list sale items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]domain.SaleItem, len(saleIDs))
	for rows.Next() {
		var it domain.SaleItem
		if err := rows.Scan(
			&it.ID, &it.SaleID, &it.BookID, &it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.Title, &it.ISBN,
		); err != nil {
			done(err)
			return nil, fmt.Errorf("scan sale item row: %w", err)
		}
		items[it.SaleID] = append(items[it.SaleID], it)
	}
	err = rows.Err()
	done(err)
	if err != nil {
		return nil, fmt.Errorf("iterate sale item rows: %w", err)
	}
	return items, nil
}

func scanSaleHeader(row scanner, extra ...any) (*domain.Sale, error) {
	var (
		s        domain.Sale
		fullName *string
		email    *string
	)
	dest := append([]any{
		&s.ID, &s.UserID, &s.TotalAmount, &s.DiscountAmount, &s.PaymentMethod, &s.Notes, &s.SaleDate,
		&fullName, &email,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if fullName != nil || email != nil {
		s.Operator = &domain.SaleOperator{}
		if fullName != nil {
			s.Operator.FullName = *fullName
		}
		if email != nil {
			s.Operator.Email = *email
		}
	}
	return &s, nil
}
