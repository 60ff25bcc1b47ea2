package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LowStockThreshold is the stock level below which a book counts as low.
const LowStockThreshold = 5

// AllCategories is the catalog filter value meaning "no category filter".
const AllCategories = "all"

// Inventory statuses.
const (
	StockStatusOutOfStock = "out_of_stock"
	StockStatusLow        = "low_stock"
	StockStatusActive     = "active"
)

// Book is a sellable catalog item.
type Book struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Author        string          `json:"author"`
	Editorial     string          `json:"editorial"`
	ISBN          string          `json:"isbn"`
	Category      string          `json:"category"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	StockQuantity int             `json:"stock_quantity"`
	Description   string          `json:"description"`
	CoverImageURL string          `json:"cover_image_url"`
	SupplierID    *string         `json:"supplier_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// StockStatus classifies a stock level.
func StockStatus(stock int) string {
	switch {
	case stock <= 0:
		return StockStatusOutOfStock
	case stock < LowStockThreshold:
		return StockStatusLow
	default:
		return StockStatusActive
	}
}

// IsLowStock reports whether stock is below the low stock threshold.
func IsLowStock(stock int) bool {
	return stock < LowStockThreshold
}

// CartItem snapshots b for adding to a cart.
func (b *Book) CartItem() CartItem {
	return CartItem{
		ID:         b.ID,
		Title:      b.Title,
		Author:     b.Author,
		UnitPrice:  b.SalePrice,
		StockAtAdd: b.StockQuantity,
	}
}
