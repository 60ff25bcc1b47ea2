package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	"github.com/SkyToti/SistemaLibreria/internal/repository"
	apperrors "github.com/SkyToti/SistemaLibreria/pkg/errors"
)

// CheckoutInput holds the payment method chosen at the terminal.
type CheckoutInput struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash card transfer"`
}

// SaleEventPublisher publishes the events of a committed sale.
type SaleEventPublisher interface {
	PublishSaleCompleted(ctx context.Context, result *domain.SaleResult) error
	PublishLowStock(ctx context.Context, bookID string, stock int) error
}

// CheckoutService submits carts to the sale transaction. Each operator has
// one checkout state machine: idle, processing, then success or failed.
type CheckoutService struct {
	carts     repository.CartRepository
	sales     repository.SaleTransaction
	refresher *StockRefresher
	debouncer *Debouncer
	events    SaleEventPublisher
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	states  map[string]domain.CheckoutStatus
	pending map[string]map[string]int
}

// NewCheckoutService creates a new checkout service. Stock confirmations
// for an operator are debounced through debouncer.
func NewCheckoutService(
	carts repository.CartRepository,
	sales repository.SaleTransaction,
	refresher *StockRefresher,
	debouncer *Debouncer,
	events SaleEventPublisher,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		carts:     carts,
		sales:     sales,
		refresher: refresher,
		debouncer: debouncer,
		events:    events,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		states:    make(map[string]domain.CheckoutStatus),
		pending:   make(map[string]map[string]int),
	}
}

// Status returns the operator's checkout state.
func (s *CheckoutService) Status(operatorID string) domain.CheckoutStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.states[operatorID]; ok {
		return st
	}
	return domain.CheckoutStatus{State: domain.CheckoutIdle}
}

// Submit checks out the operator's cart. On success the sold lines are
// cleared and the result carries the post-sale stock of every sold book. On
// failure the cart is left untouched.
func (s *CheckoutService) Submit(ctx context.Context, operatorID string, input CheckoutInput) (*domain.SaleResult, error) {
	if operatorID == "" {
		return nil, apperrors.Unauthorized("operator identity is required")
	}
	if !domain.IsValidPaymentMethod(input.PaymentMethod) {
		return nil, apperrors.InvalidInput("payment method must be one of: cash, card, transfer")
	}

	cart, err := s.carts.Get(ctx, operatorID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("get cart for checkout: %w", err)
	}
	if cart == nil || cart.IsEmpty() {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	if err := s.begin(operatorID); err != nil {
		checkoutsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	finished := false
	defer func() {
		if !finished {
			s.finish(operatorID, domain.CheckoutStatus{State: domain.CheckoutFailed, Error: "checkout aborted"})
		}
	}()

	req := domain.NewCheckoutPayload(cart, input.PaymentMethod).SaleRequest(operatorID)

	start := time.Now()
	result, err := s.sales.ProcessSale(ctx, req)
	checkoutDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		finished = true
		s.finish(operatorID, domain.CheckoutStatus{State: domain.CheckoutFailed, Error: err.Error()})
		checkoutsTotal.WithLabelValues(string(apperrors.KindOf(err))).Inc()
		s.logger.WarnContext(ctx, "checkout failed",
			slog.String("operator_id", operatorID),
			slog.String("kind", string(apperrors.KindOf(err))),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("process sale: %w", err)
	}

	finished = true
	s.finish(operatorID, domain.CheckoutStatus{State: domain.CheckoutSuccess, SaleID: result.Sale.ID})
	checkoutsTotal.WithLabelValues("success").Inc()
	revenue, _ := result.Sale.TotalAmount.Float64()
	saleRevenue.WithLabelValues(result.Sale.PaymentMethod).Add(revenue)

	if err := s.clearSold(ctx, operatorID, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear cart after sale",
			slog.String("operator_id", operatorID),
			slog.String("sale_id", result.Sale.ID),
			slog.String("error", err.Error()),
		)
	}

	s.publish(ctx, result)
	s.scheduleRefresh(ctx, operatorID, result.UpdatedStock)

	s.logger.InfoContext(ctx, "sale completed",
		slog.String("operator_id", operatorID),
		slog.String("sale_id", result.Sale.ID),
		slog.String("total", result.Sale.TotalAmount.StringFixed(2)),
		slog.String("payment_method", result.Sale.PaymentMethod),
	)
	return result, nil
}

// clearSold empties the cart that was sold. If the cart changed while the
// sale was in flight, only the sold quantities are taken off it so lines
// added in the meantime survive.
func (s *CheckoutService) clearSold(ctx context.Context, operatorID string, sold *domain.Cart) error {
	ok, err := s.carts.DeleteIfVersion(ctx, operatorID, sold.Version)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	if ok {
		return nil
	}

	for attempt := 0; attempt < cartSaveAttempts; attempt++ {
		current, err := s.carts.Get(ctx, operatorID)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get cart: %w", err)
		}

		expected := current.Version
		for _, item := range sold.Items {
			if i := current.FindItemIndex(item.ID); i >= 0 {
				current.UpdateQuantity(item.ID, current.Items[i].Quantity-item.Quantity)
			}
		}

		ok, err := s.carts.SaveIfVersion(ctx, current, expected)
		if err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		if ok {
			return nil
		}
	}
	return errCartVersionMismatch
}

// begin moves the operator into processing, rejecting a second submission
// while one is in flight.
func (s *CheckoutService) begin(operatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.states[operatorID]; ok && st.State == domain.CheckoutProcessing {
		return apperrors.ConflictCode("CHECKOUT_IN_PROGRESS", "a checkout is already in progress for this operator")
	}
	s.states[operatorID] = domain.CheckoutStatus{State: domain.CheckoutProcessing, UpdatedAt: s.now()}
	return nil
}

func (s *CheckoutService) finish(operatorID string, st domain.CheckoutStatus) {
	st.UpdatedAt = s.now()
	s.mu.Lock()
	s.states[operatorID] = st
	s.mu.Unlock()
}

func (s *CheckoutService) publish(ctx context.Context, result *domain.SaleResult) {
	if err := s.events.PublishSaleCompleted(ctx, result); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish sale.completed event",
			slog.String("sale_id", result.Sale.ID),
			slog.String("error", err.Error()),
		)
	}
	for _, bookID := range result.LowStockBooks() {
		if err := s.events.PublishLowStock(ctx, bookID, result.UpdatedStock[bookID]); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish inventory.low_stock event",
				slog.String("book_id", bookID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// scheduleRefresh merges the sale's stock into the operator's pending
// expectations and debounces one confirmation for all of them.
func (s *CheckoutService) scheduleRefresh(ctx context.Context, operatorID string, stock map[string]int) {
	if len(stock) == 0 {
		return
	}

	s.mu.Lock()
	expected, ok := s.pending[operatorID]
	if !ok {
		expected = make(map[string]int, len(stock))
		s.pending[operatorID] = expected
	}
	for id, qty := range stock {
		expected[id] = qty
	}
	s.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	s.debouncer.Trigger(operatorID, func() {
		s.mu.Lock()
		expected := s.pending[operatorID]
		delete(s.pending, operatorID)
		s.mu.Unlock()

		if _, err := s.refresher.Confirm(bg, expected); err != nil {
			s.logger.WarnContext(bg, "catalog stock did not settle after sale",
				slog.String("operator_id", operatorID),
				slog.String("error", err.Error()),
			)
		}
	})
}
