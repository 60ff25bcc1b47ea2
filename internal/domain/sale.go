package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods.
const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
)

func IsValidPaymentMethod(m string) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}

// Sale is a committed sale header with its line items.
type Sale struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	PaymentMethod  string          `json:"payment_method"`
	Notes          string          `json:"notes,omitempty"`
	SaleDate       time.Time       `json:"sale_date"`
	Items          []SaleItem      `json:"items"`
	Operator       *SaleOperator   `json:"operator,omitempty"`
}

// SaleItem is one line of a sale.
type SaleItem struct {
	ID         string          `json:"id"`
	SaleID     string          `json:"sale_id"`
	BookID     string          `json:"book_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Title      string          `json:"title,omitempty"`
	ISBN       string          `json:"isbn,omitempty"`
}

// SaleOperator identifies who recorded a sale.
type SaleOperator struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// SaleRequest is the input of the atomic sale transaction.
type SaleRequest struct {
	UserID        string          `json:"user_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	Items         []SaleLine      `json:"items"`
}

// SaleLine is one requested line of a sale.
type SaleLine struct {
	BookID    string          `json:"book_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// SaleResult is what the sale transaction returns on success: the sale and
// the stock of every sold book after the decrement.
type SaleResult struct {
	Sale         *Sale          `json:"sale"`
	UpdatedStock map[string]int `json:"updated_stock"`
}

// LowStockBooks returns the IDs in UpdatedStock that fell below the low
// stock threshold.
func (r *SaleResult) LowStockBooks() []string {
	var ids []string
	for id, stock := range r.UpdatedStock {
		if IsLowStock(stock) {
			ids = append(ids, id)
		}
	}
	return ids
}
