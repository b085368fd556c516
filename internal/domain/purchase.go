package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseStatus string

const PurchaseStatusCompleted PurchaseStatus = "completed"

// ProductSnapshot is the denormalized copy of the product taken at purchase time.
type ProductSnapshot struct {
	Title       string          `json:"title" bson:"title"`
	Description string          `json:"description" bson:"description"`
	Price       decimal.Decimal `json:"price" bson:"price"`
	Images      []string        `json:"images" bson:"images"`
	Category    string          `json:"category" bson:"category"`
	Condition   Condition       `json:"condition" bson:"condition"`
}

// Purchase is append-only: created once per committed item, never updated.
type Purchase struct {
	ID           string          `json:"id" bson:"_id"`
	BuyerID      string          `json:"buyer_id" bson:"buyer_id"`
	SellerID     string          `json:"seller_id" bson:"seller_id"`
	ProductID    string          `json:"product_id" bson:"product_id"`
	Snapshot     ProductSnapshot `json:"product_snapshot" bson:"product_snapshot"`
	Amount       decimal.Decimal `json:"amount" bson:"amount"`
	PurchaseDate time.Time       `json:"purchase_date" bson:"purchase_date"`
	Status       PurchaseStatus  `json:"status" bson:"status"`
}

func NewPurchase(id, buyerID string, p *Product, at time.Time) *Purchase {
	return &Purchase{
		ID:        id,
		BuyerID:   buyerID,
		SellerID:  p.SellerID,
		ProductID: p.ID,
		Snapshot: ProductSnapshot{
			Title:       p.Title,
			Description: p.Description,
			Price:       p.Price,
			Images:      slices.Clone(p.Images),
			Category:    p.Category,
			Condition:   p.Condition,
		},
		Amount:       p.Price,
		PurchaseDate: at,
		Status:       PurchaseStatusCompleted,
	}
}

func (p *Purchase) Clone() *Purchase {
	if p == nil {
		return nil
	}
	c := *p
	c.Snapshot.Images = slices.Clone(p.Snapshot.Images)
	return &c
}

type PurchaseFilter struct {
	BuyerID   string
	SellerID  string
	ProductID string
	Limit     int
}

func (f PurchaseFilter) Match(p *Purchase) bool {
	if f.BuyerID != "" && p.BuyerID != f.BuyerID {
		return false
	}
	if f.SellerID != "" && p.SellerID != f.SellerID {
		return false
	}
	if f.ProductID != "" && p.ProductID != f.ProductID {
		return false
	}
	return true
}

func SortByPurchaseDateDesc(purchases []*Purchase) {
	slices.SortStableFunc(purchases, func(a, b *Purchase) int {
		return b.PurchaseDate.Compare(a.PurchaseDate)
	})
}

// PurchaseResult is returned by a successful checkout. CartClearErr is a soft warning:
// the purchases are committed even when it is set.
type PurchaseResult struct {
	Purchases    []*Purchase `json:"purchases"`
	CartClearErr error       `json:"-"`
}

func (r *PurchaseResult) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range r.Purchases {
		total = total.Add(p.Amount)
	}
	return total
}

func (r *PurchaseResult) ProductIDs() []string {
	ids := make([]string, len(r.Purchases))
	for i, p := range r.Purchases {
		ids[i] = p.ProductID
	}
	return ids
}

func (r *PurchaseResult) PurchaseIDs() []string {
	ids := make([]string, len(r.Purchases))
	for i, p := range r.Purchases {
		ids[i] = p.ID
	}
	return ids
}
