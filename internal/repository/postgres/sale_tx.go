package postgres

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	"github.com/SkyToti/SistemaLibreria/pkg/database"
	apperrors "github.com/SkyToti/SistemaLibreria/pkg/errors"
)

// ErrInsufficientStock is the conflict message when a line exceeds stock.
const ErrInsufficientStock = "insufficient stock"

// ProcessSale records the sale header, its lines and the stock decrements in
// one transaction. Books are locked in id order so concurrent sales cannot
// deadlock on each other.
func (r *SaleRepository) ProcessSale(ctx context.Context, req domain.SaleRequest) (*domain.SaleResult, error) {
	if len(req.Items) == 0 {
		return nil, apperrors.InvalidInput("sale has no items")
	}

	// Merge duplicate lines so each book is locked and decremented once.
	qty := make(map[string]int, len(req.Items))
	price := make(map[string]decimal.Decimal, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, apperrors.InvalidInput("item quantity must be positive")
		}
		if _, ok := price[line.BookID]; !ok {
			price[line.BookID] = line.UnitPrice
		}
		qty[line.BookID] += line.Quantity
	}
	ids := make([]string, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	ctx, done := database.TraceQuery(ctx, "sales", "process", "process_sale_transaction")
	result, err := r.processSale(ctx, req, ids, qty, price)
	done(err)
	return result, err
}

func (r *SaleRepository) processSale(
	ctx context.Context,
	req domain.SaleRequest,
	ids []string,
	qty map[string]int,
	price map[string]decimal.Decimal,
) (*domain.SaleResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin sale transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx,
		`SELECT id, title, stock_quantity FROM books WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, fmt.Errorf("lock books: %w", err)
	}
	stock := make(map[string]int, len(ids))
	titles := make(map[string]string, len(ids))
	for rows.Next() {
		var (
			id, title string
			current   int
		)
		if err := rows.Scan(&id, &title, &current); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan locked book: %w", err)
		}
		stock[id] = current
		titles[id] = title
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locked books: %w", err)
	}

	for _, id := range ids {
		current, ok := stock[id]
		if !ok {
			return nil, apperrors.NotFound("book", id)
		}
		if current < qty[id] {
			return nil, apperrors.Conflict(fmt.Sprintf("%s for %q: requested %d, available %d",
				ErrInsufficientStock, titles[id], qty[id], current))
		}
	}

	sale := &domain.Sale{
		ID:             uuid.New().String(),
		UserID:         req.UserID,
		TotalAmount:    req.TotalAmount,
		DiscountAmount: decimal.Zero,
		PaymentMethod:  req.PaymentMethod,
		SaleDate:       time.Now().UTC(),
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO sales (id, user_id, total_amount, discount_amount, payment_method, sale_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING sale_date`,
		sale.ID, sale.UserID, sale.TotalAmount, sale.DiscountAmount, sale.PaymentMethod, sale.SaleDate,
	).Scan(&sale.SaleDate)
	if err != nil {
		return nil, mapSaleWriteError(err, "insert sale")
	}

	updated := make(map[string]int, len(ids))
	sale.Items = make([]domain.SaleItem, 0, len(ids))
	for _, id := range ids {
		item := domain.SaleItem{
			ID:         uuid.New().String(),
			SaleID:     sale.ID,
			BookID:     id,
			Quantity:   qty[id],
			UnitPrice:  price[id],
			TotalPrice: price[id].Mul(decimal.NewFromInt(int64(qty[id]))),
			Title:      titles[id],
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO sale_items (id, sale_id, book_id, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			item.ID, item.SaleID, item.BookID, item.Quantity, item.UnitPrice, item.TotalPrice,
		); err != nil {
			return nil, mapSaleWriteError(err, "insert sale item")
		}

		var remaining int
		if err := tx.QueryRow(ctx, `
			UPDATE books SET stock_quantity = stock_quantity - $2, updated_at = NOW()
			WHERE id = $1
			RETURNING stock_quantity`,
			id, qty[id],
		).Scan(&remaining); err != nil {
			return nil, mapSaleWriteError(err, "decrement stock")
		}
		updated[id] = remaining
		sale.Items = append(sale.Items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit sale transaction: %w", err)
	}

	return &domain.SaleResult{Sale: sale, UpdatedStock: updated}, nil
}

func mapSaleWriteError(err error, op string) error {
	switch database.PgErrorCode(err) {
	case database.CodeCheckViolation, database.CodeRaiseException:
		return apperrors.Conflict(ErrInsufficientStock)
	case database.CodeForeignKeyViolation:
		return apperrors.InvalidInput("sale references an unknown operator or book")
	}
	return fmt.Errorf("%s: %w", op, err)
}
