package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutState is the state of an operator's checkout.
type CheckoutState string

const (
	CheckoutIdle       CheckoutState = "idle"
	CheckoutProcessing CheckoutState = "processing"
	CheckoutSuccess    CheckoutState = "success"
	CheckoutFailed     CheckoutState = "failed"
)

// CheckoutStatus is the last known checkout outcome for an operator.
type CheckoutStatus struct {
	State     CheckoutState `json:"state"`
	SaleID    string        `json:"sale_id,omitempty"`
	Error     string        `json:"error,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// CheckoutPayload is what the orchestrator submits for a cart.
type CheckoutPayload struct {
	Items         []CheckoutLine  `json:"items"`
	PaymentMethod string          `json:"payment_method"`
	Total         decimal.Decimal `json:"total"`
}

// CheckoutLine carries the price the terminal knew when it checked out.
type CheckoutLine struct {
	ID        string          `json:"id"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// NewCheckoutPayload builds the payload for cart using the cart's own total.
func NewCheckoutPayload(cart *Cart, paymentMethod string) CheckoutPayload {
	lines := make([]CheckoutLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, CheckoutLine{ID: item.ID, Qty: item.Quantity, UnitPrice: item.UnitPrice})
	}
	return CheckoutPayload{Items: lines, PaymentMethod: paymentMethod, Total: cart.Total()}
}

// SaleRequest converts the payload into the sale transaction input.
func (p CheckoutPayload) SaleRequest(operatorID string) SaleRequest {
	lines := make([]SaleLine, 0, len(p.Items))
	for _, l := range p.Items {
		lines = append(lines, SaleLine{BookID: l.ID, Quantity: l.Qty, UnitPrice: l.UnitPrice})
	}
	return SaleRequest{
		UserID:        operatorID,
		TotalAmount:   p.Total,
		PaymentMethod: p.PaymentMethod,
		Items:         lines,
	}
}
