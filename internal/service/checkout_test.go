package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	apperrors "github.com/SkyToti/SistemaLibreria/pkg/errors"
)

type checkoutFixture struct {
	carts  *mockCartRepository
	sales  *mockSaleTransaction
	books  *mockBookRepository
	events *mockEventPublisher
	svc    *CheckoutService
}

func newCheckoutFixture(t *testing.T, debounce time.Duration) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{
		carts:  new(mockCartRepository),
		sales:  new(mockSaleTransaction),
		books:  new(mockBookRepository),
		events: new(mockEventPublisher),
	}
	logger := newTestLogger()
	debouncer := NewDebouncer(debounce)
	t.Cleanup(debouncer.Stop)

	refresher := NewStockRefresher(f.books, 200*time.Millisecond, logger)
	refresher.initial = time.Millisecond
	f.svc = NewCheckoutService(f.carts, f.sales, refresher, debouncer, f.events, logger)
	return f
}

func checkoutCart(operatorID string) *domain.Cart {
	return &domain.Cart{
		OperatorID: operatorID,
		Items: []domain.CartItem{
			{ID: "book-1", Title: "Rayuela", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2},
			{ID: "book-2", Title: "Ficciones", UnitPrice: decimal.RequireFromString("7.50"), Quantity: 1},
		},
		Version: 4,
	}
}

func saleResult(stock map[string]int) *domain.SaleResult {
	return &domain.SaleResult{
		Sale: &domain.Sale{
			ID:            "sale-1",
			UserID:        "op-1",
			TotalAmount:   decimal.RequireFromString("27.50"),
			PaymentMethod: domain.PaymentCash,
		},
		UpdatedStock: stock,
	}
}

// ---------------------------------------------------------------------------
// Submit
// ---------------------------------------------------------------------------

func TestSubmit_Success(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	ctx := context.Background()

	result := saleResult(map[string]int{"book-1": 8, "book-2": 3})
	f.carts.On("Get", ctx, "op-1").Return(checkoutCart("op-1"), nil)
	f.sales.On("ProcessSale", ctx, mock.MatchedBy(func(req domain.SaleRequest) bool {
		return req.UserID == "op-1" &&
			req.PaymentMethod == domain.PaymentCash &&
			req.TotalAmount.Equal(decimal.RequireFromString("27.50")) &&
			len(req.Items) == 2 &&
			req.Items[0].BookID == "book-1" && req.Items[0].Quantity == 2
	})).Return(result, nil)
	f.carts.On("DeleteIfVersion", ctx, "op-1", 4).Return(true, nil)
	f.events.On("PublishSaleCompleted", ctx, result).Return(nil)
	f.events.On("PublishLowStock", ctx, "book-2", 3).Return(nil)

	got, err := f.svc.Submit(ctx, "op-1", CheckoutInput{PaymentMethod: domain.PaymentCash})

	require.NoError(t, err)
	assert.Equal(t, "sale-1", got.Sale.ID)
	assert.Equal(t, map[string]int{"book-1": 8, "book-2": 3}, got.UpdatedStock)

	st := f.svc.Status("op-1")
	assert.Equal(t, domain.CheckoutSuccess, st.State)
	assert.Equal(t, "sale-1", st.SaleID)

	f.carts.AssertExpectations(t)
	f.sales.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestSubmit_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	ctx := context.Background()

	f.carts.On("Get", ctx, "op-1").Return(domain.NewCart("op-1"), nil)

	_, err := f.svc.Submit(ctx, "op-1", CheckoutInput{PaymentMethod: domain.PaymentCard})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "cart is empty")
	assert.Equal(t, domain.CheckoutIdle, f.svc.Status("op-1").State)
	f.sales.AssertNotCalled(t, "ProcessSale", mock.Anything, mock.Anything)
}

func TestSubmit_MissingCart(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	ctx := context.Background()

	f.carts.On("Get", ctx, "op-1").Return(nil, apperrors.NotFound("cart", "op-1"))

	_, err := f.svc.Submit(ctx, "op-1", CheckoutInput{PaymentMethod: domain.PaymentCard})

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSubmit_NoOperator(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)

	_, err := f.svc.Submit(context.Background(), "", CheckoutInput{PaymentMethod: domain.PaymentCash})

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	f.carts.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestSubmit_InvalidPaymentMethod(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)

	_, err := f.svc.Submit(context.Background(), "op-1", CheckoutInput{PaymentMethod: "bitcoin"})

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSubmit_FailureKeepsCart(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	ctx := context.Background()

	f.carts.On("Get", ctx, "op-1").Return(checkoutCart("op-1"), nil)
	f.sales.On("ProcessSale", ctx, mock.Anything).
		Return(nil, apperrors.Conflict(`insufficient stock for "Rayuela": requested 2, available 1`))

	_, err := f.svc.Submit(ctx, "op-1", CheckoutInput{PaymentMethod: domain.PaymentCash})

	require.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	st := f.svc.Status("op-1")
	assert.Equal(t, domain.CheckoutFailed, st.State)
	assert.Contains(t, st.Error, "insufficient stock")

	f.carts.AssertNotCalled(t, "DeleteIfVersion", mock.Anything, mock.Anything, mock.Anything)
	f.events.AssertNotCalled(t, "PublishSaleCompleted", mock.Anything, mock.Anything)
}

func TestSubmit_RetryAfterFailure(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	ctx := context.Background()

	result := saleResult(map[string]int{"book-1": 8, "book-2": 9})
	f.carts.On("Get", ctx, "op-1").Return(checkoutCart("op-1"), nil)
	f.sales.On("ProcessSale", ctx, mock.Anything).Return(nil, apperrors.ServiceUnavailable("sale backend unavailable", errors.New("timeout"))).Once()
	f.sales.On("ProcessSale", ctx, mock.Anything).Return(result, nil).Once()
	f.carts.On("DeleteIfVersion", ctx, "op-1", 4).Return(true, nil)
	f.events.On("PublishSaleCompleted", ctx, result).Return(nil)

	_, err := f.svc.Submit(ctx, "op-1", CheckoutInput{PaymentMethod: domain.PaymentTransfer})
	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))

	_, err = f.svc.Submit(ctx, "op-1", CheckoutInput{PaymentMethod: domain.PaymentTransfer})
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutSuccess, f.svc.Status("op-1").State)
	f.sales.AssertNumberOfCalls(t, "ProcessSale", 2)
}

func TestSubmit_InProgressRejected(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	result := saleResult(map[string]int{"book-1": 8, "book-2": 9})

	f.carts.On("Get", ctx, "op-1").Return(checkoutCart("op-1"), nil)
	f.sales.On("ProcessSale", ctx, mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(result, nil).Once()
	f.carts.On("DeleteIfVersion", ctx, "op-1", 4).Return(true, nil)
	f.events.On("PublishSaleCompleted", ctx, result).Return(nil)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Submit(ctx, "op-1", CheckoutInput{PaymentMethod: domain.PaymentCash})
		done <- err
	}()
	<-started

	assert.Equal(t, domain.CheckoutProcessing, f.svc.Status("op-1").State)

	_, err := f.svc.Submit(ctx, "op-1", CheckoutInput{PaymentMethod: domain.PaymentCash})
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CHECKOUT_IN_PROGRESS", appErr.Code)

	close(release)
	require.NoError(t, <-done)
	f.sales.AssertNumberOfCalls(t, "ProcessSale", 1)
}

func TestSubmit_PublishFailureDoesNotFailSale(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	ctx := context.Background()

	result := saleResult(map[string]int{"book-1": 8})
	f.carts.On("Get", ctx, "op-1").Return(checkoutCart("op-1"), nil)
	f.sales.On("ProcessSale", ctx, mock.Anything).Return(result, nil)
	f.carts.On("DeleteIfVersion", ctx, "op-1", 4).Return(false, errors.New("redis down"))
	f.events.On("PublishSaleCompleted", ctx, result).Return(errors.New("broker down"))

	got, err := f.svc.Submit(ctx, "op-1", CheckoutInput{PaymentMethod: domain.PaymentCash})

	require.NoError(t, err)
	assert.Equal(t, "sale-1", got.Sale.ID)
}

func TestSubmit_SchedulesStockConfirmation(t *testing.T) {
	f := newCheckoutFixture(t, 5*time.Millisecond)
	ctx := context.Background()

	result := saleResult(map[string]int{"book-1": 8})
	confirmed := make(chan struct{})
	f.carts.On("Get", ctx, "op-1").Return(checkoutCart("op-1"), nil)
	f.sales.On("ProcessSale", ctx, mock.Anything).Return(result, nil)
	f.carts.On("DeleteIfVersion", ctx, "op-1", 4).Return(true, nil)
	f.events.On("PublishSaleCompleted", ctx, result).Return(nil)
	f.books.On("StockByIDs", mock.Anything, []string{"book-1"}).Run(func(mock.Arguments) {
		close(confirmed)
	}).Return(map[string]int{"book-1": 8}, nil).Once()

	_, err := f.svc.Submit(ctx, "op-1", CheckoutInput{PaymentMethod: domain.PaymentCash})
	require.NoError(t, err)

	select {
	case <-confirmed:
	case <-time.After(time.Second):
		t.Fatal("stock confirmation was not scheduled")
	}
}

func TestSubmit_KeepsItemsAddedDuringSale(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	ctx := context.Background()

	// Another terminal added book-3 and one more book-1 while the sale ran.
	changed := &domain.Cart{
		OperatorID: "op-1",
		Items: []domain.CartItem{
			{ID: "book-1", Title: "Rayuela", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 3},
			{ID: "book-2", Title: "Ficciones", UnitPrice: decimal.RequireFromString("7.50"), Quantity: 1},
			{ID: "book-3", Title: "Aleph", UnitPrice: decimal.RequireFromString("9.00"), Quantity: 1},
		},
		Version: 6,
	}
	result := saleResult(map[string]int{"book-1": 8, "book-2": 9})
	f.carts.On("Get", ctx, "op-1").Return(checkoutCart("op-1"), nil).Once()
	f.carts.On("Get", ctx, "op-1").Return(changed, nil).Once()
	f.sales.On("ProcessSale", ctx, mock.Anything).Return(result, nil)
	f.carts.On("DeleteIfVersion", ctx, "op-1", 4).Return(false, nil)
	f.carts.On("SaveIfVersion", ctx, mock.MatchedBy(func(c *domain.Cart) bool {
		return len(c.Items) == 2 &&
			c.Items[0].ID == "book-1" && c.Items[0].Quantity == 1 &&
			c.Items[1].ID == "book-3" && c.Items[1].Quantity == 1
	}), 6).Return(true, nil)
	f.events.On("PublishSaleCompleted", ctx, result).Return(nil)

	_, err := f.svc.Submit(ctx, "op-1", CheckoutInput{PaymentMethod: domain.PaymentCash})

	require.NoError(t, err)
	f.carts.AssertExpectations(t)
	f.carts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestSubmit_PanicMarksFailed(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	ctx := context.Background()

	f.carts.On("Get", ctx, "op-1").Return(checkoutCart("op-1"), nil)
	f.sales.On("ProcessSale", ctx, mock.Anything).Run(func(mock.Arguments) {
		panic("driver blew up")
	}).Return(nil, nil)

	assert.Panics(t, func() {
		_, _ = f.svc.Submit(ctx, "op-1", CheckoutInput{PaymentMethod: domain.PaymentCash})
	})

	st := f.svc.Status("op-1")
	assert.Equal(t, domain.CheckoutFailed, st.State)
	assert.Equal(t, "checkout aborted", st.Error)
	f.carts.AssertNotCalled(t, "DeleteIfVersion", mock.Anything, mock.Anything, mock.Anything)
}

func TestStatus_DefaultIdle(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	assert.Equal(t, domain.CheckoutIdle, f.svc.Status("nobody").State)
}
