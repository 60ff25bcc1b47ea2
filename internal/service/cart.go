package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	"github.com/SkyToti/SistemaLibreria/internal/repository"
	apperrors "github.com/SkyToti/SistemaLibreria/pkg/errors"
)

// Each concurrent writer that wins a version race costs a loser one attempt,
// so the attempt budget bounds how many simultaneous writers always succeed.
const (
	cartSaveAttempts = 32
	cartSaveWait     = 5 * time.Millisecond
)

var errCartVersionMismatch = errors.New("cart version changed")

// BookGetter loads one catalog book.
type BookGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Book, error)
}

// AddItemInput holds the parameters for adding a book to the cart.
type AddItemInput struct {
	BookID string `json:"book_id" validate:"required,uuid"`
}

// UpdateQuantityInput holds the absolute quantity for a cart line. Zero or
// less removes the line.
type UpdateQuantityInput struct {
	Quantity int `json:"quantity"`
}

// CartService implements the operator cart.
type CartService struct {
	repo   repository.CartRepository
	books  BookGetter
	logger *slog.Logger
	now    func() time.Time

	saveAttempts uint
	saveWait     time.Duration
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, books BookGetter, logger *slog.Logger) *CartService {
	return &CartService{
		repo:   repo,
		books:  books,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },

		saveAttempts: cartSaveAttempts,
		saveWait:     cartSaveWait,
	}
}

// GetCart returns the operator's cart, or an empty one.
func (s *CartService) GetCart(ctx context.Context, operatorID string) (*domain.Cart, error) {
	if operatorID == "" {
		return nil, apperrors.Unauthorized("operator identity is required")
	}

	cart, err := s.repo.Get(ctx, operatorID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewCart(operatorID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// AddItem adds one unit of the book to the cart. Stock is not checked; the
// sale transaction is the authority on availability.
func (s *CartService) AddItem(ctx context.Context, operatorID string, input AddItemInput) (*domain.Cart, error) {
	if input.BookID == "" {
		return nil, apperrors.InvalidInput("book id is required")
	}

	book, err := s.books.GetByID(ctx, input.BookID)
	if err != nil {
		return nil, fmt.Errorf("get book for cart: %w", err)
	}

	cart, err := s.mutate(ctx, operatorID, func(c *domain.Cart) {
		c.AddItem(book.CartItem())
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("operator_id", operatorID),
		slog.String("book_id", input.BookID),
	)
	return cart, nil
}

// UpdateQuantity sets the absolute quantity of a line. There is no upper
// bound against live stock.
func (s *CartService) UpdateQuantity(ctx context.Context, operatorID, bookID string, quantity int) (*domain.Cart, error) {
	cart, err := s.mutate(ctx, operatorID, func(c *domain.Cart) {
		c.UpdateQuantity(bookID, quantity)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("operator_id", operatorID),
		slog.String("book_id", bookID),
		slog.Int("quantity", quantity),
	)
	return cart, nil
}

// RemoveItem removes a line; removing an absent line is a no-op.
func (s *CartService) RemoveItem(ctx context.Context, operatorID, bookID string) (*domain.Cart, error) {
	cart, err := s.mutate(ctx, operatorID, func(c *domain.Cart) {
		c.RemoveItem(bookID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("operator_id", operatorID),
		slog.String("book_id", bookID),
	)
	return cart, nil
}

// ClearCart empties the operator's cart unconditionally.
func (s *CartService) ClearCart(ctx context.Context, operatorID string) error {
	if operatorID == "" {
		return apperrors.Unauthorized("operator identity is required")
	}

	if err := s.repo.Delete(ctx, operatorID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}

	s.logger.InfoContext(ctx, "cart cleared", slog.String("operator_id", operatorID))
	return nil
}

// mutate applies fn to the stored cart and persists it with optimistic
// versioning. A version miss re-reads the cart and reapplies fn; Conflict is
// returned only once the attempts run out.
func (s *CartService) mutate(ctx context.Context, operatorID string, fn func(*domain.Cart)) (*domain.Cart, error) {
	if operatorID == "" {
		return nil, apperrors.Unauthorized("operator identity is required")
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.saveWait
	b.MaxInterval = 10 * s.saveWait
	b.RandomizationFactor = 0.5

	cart, err := backoff.Retry(ctx, func() (*domain.Cart, error) {
		cart, err := s.GetCart(ctx, operatorID)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		expectedVersion := cart.Version
		fn(cart)
		cart.UpdatedAt = s.now()

		ok, err := s.repo.SaveIfVersion(ctx, cart, expectedVersion)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("save cart: %w", err))
		}
		if !ok {
			return nil, errCartVersionMismatch
		}
		return cart, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.saveAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			s.logger.DebugContext(ctx, "cart save retry",
				slog.String("operator_id", operatorID),
				slog.Duration("wait", wait),
			)
		}),
	)
	if errors.Is(err, errCartVersionMismatch) {
		return nil, apperrors.Conflict("cart was modified concurrently, please retry")
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}
