package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the in-progress sale of one operator. Items keep insertion order
// and hold at most one entry per book.
type Cart struct {
	OperatorID string     `json:"operator_id"`
	Items      []CartItem `json:"items"`
	Version    int        `json:"version"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CartItem is one line of the cart. Quantity is always at least 1.
type CartItem struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Author     string          `json:"author"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	StockAtAdd int             `json:"stock_at_add"`
}

// NewCart returns an empty cart for operatorID.
func NewCart(operatorID string) *Cart {
	return &Cart{OperatorID: operatorID, Items: []CartItem{}}
}

// FindItemIndex returns the index of the item with id, or -1.
func (c *Cart) FindItemIndex(id string) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// AddItem increments the quantity of an existing entry by one, or appends
// item with quantity 1. Stock is not checked.
func (c *Cart) AddItem(item CartItem) {
	if i := c.FindItemIndex(item.ID); i >= 0 {
		c.Items[i].Quantity++
		return
	}
	item.Quantity = 1
	c.Items = append(c.Items, item)
}

// RemoveItem deletes the entry with id. Missing ids are ignored.
func (c *Cart) RemoveItem(id string) {
	i := c.FindItemIndex(id)
	if i < 0 {
		return
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

// UpdateQuantity sets the absolute quantity of id. A quantity of zero or
// less removes the entry.
func (c *Cart) UpdateQuantity(id string, qty int) {
	if qty <= 0 {
		c.RemoveItem(id)
		return
	}
	if i := c.FindItemIndex(id); i >= 0 {
		c.Items[i].Quantity = qty
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
}

// Total is the sum of unit price times quantity, computed on every call.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ItemCount returns the number of units in the cart.
func (c *Cart) ItemCount() int {
	var n int
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a deep copy of c.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Items = append([]CartItem(nil), c.Items...)
	return &out
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
