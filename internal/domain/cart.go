package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the stored per-user document. Entries hold weak product references only.
type Cart struct {
	UserID    string     `json:"user_id" bson:"_id"`
	Items     []CartItem `json:"items" bson:"items"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

type CartItem struct {
	ProductID string    `json:"product_id" bson:"product_id"`
	AddedAt   time.Time `json:"added_at" bson:"added_at"`
}

func (c *Cart) Contains(productID string) bool {
	return slices.ContainsFunc(c.Items, func(it CartItem) bool {
		return it.ProductID == productID
	})
}

func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Items = slices.Clone(c.Items)
	return &cp
}

// CartLine is a cart entry hydrated with the current product record.
type CartLine struct {
	ProductID string    `json:"product_id"`
	AddedAt   time.Time `json:"added_at"`
	Product   *Product  `json:"product,omitempty"`
}

// CartView is what readers see: dangling entries are already dropped.
type CartView struct {
	UserID    string     `json:"user_id"`
	Items     []CartLine `json:"items"`
	UpdatedAt *time.Time `json:"updated_at"`
}

func (v *CartView) Count() int {
	return len(v.Items)
}

// Total sums the live prices of hydrated lines.
func (v *CartView) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range v.Items {
		if l.Product != nil {
			total = total.Add(l.Product.Price)
		}
	}
	return total
}

func (v *CartView) Contains(productID string) bool {
	return slices.ContainsFunc(v.Items, func(l CartLine) bool {
		return l.ProductID == productID
	})
}

type CartValidation struct {
	ValidItems   []CartLine `json:"valid_items"`
	RemovedItems []CartLine `json:"removed_items"`
}
