package domain

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductStatusAvailable ProductStatus = "available"
	// ProductStatusReserved is only used by the saga commit mode while a checkout holds the item.
	ProductStatusReserved ProductStatus = "reserved"
	ProductStatusSold     ProductStatus = "sold"
)

func (s ProductStatus) Valid() bool {
	return s == ProductStatusAvailable || s == ProductStatusReserved || s == ProductStatusSold
}

func (s ProductStatus) String() string {
	return string(s)
}

type Product struct {
	ID          string          `json:"id" bson:"_id"`
	Title       string          `json:"title" bson:"title"`
	Description string          `json:"description" bson:"description"`
	Price       decimal.Decimal `json:"price" bson:"price"`
	Category    string          `json:"category" bson:"category"`
	Condition   Condition       `json:"condition" bson:"condition"`
	Location    string          `json:"location" bson:"location"`
	Tags        []string        `json:"tags" bson:"tags"`
	SellerID    string          `json:"seller_id" bson:"seller_id"`
	Images      []string        `json:"images" bson:"images"`
	Status      ProductStatus   `json:"status" bson:"status"`
	CreatedAt   time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" bson:"updated_at"`
	SoldAt      *time.Time      `json:"sold_at,omitempty" bson:"sold_at,omitempty"`
	SoldTo      string          `json:"sold_to,omitempty" bson:"sold_to,omitempty"`
	ReservedBy  string          `json:"-" bson:"reserved_by,omitempty"`
	ReservedAt  *time.Time      `json:"-" bson:"reserved_at,omitempty"`
}

func (p *Product) IsAvailable() bool {
	return p.Status == ProductStatusAvailable
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	c.Tags = slices.Clone(p.Tags)
	c.Images = slices.Clone(p.Images)
	if p.SoldAt != nil {
		t := *p.SoldAt
		c.SoldAt = &t
	}
	if p.ReservedAt != nil {
		t := *p.ReservedAt
		c.ReservedAt = &t
	}
	return &c
}

// ProductUpdate is a partial update. Nil fields are left untouched.
type ProductUpdate struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Condition   *Condition       `json:"condition,omitempty"`
	Location    *string          `json:"location,omitempty"`
	Tags        *[]string        `json:"tags,omitempty"`
	Images      *[]string        `json:"images,omitempty"`
	Status      *ProductStatus   `json:"status,omitempty"`
}

func (u ProductUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Price == nil && u.Category == nil &&
		u.Condition == nil && u.Location == nil && u.Tags == nil && u.Images == nil && u.Status == nil
}

// Apply merges the update into p and stamps UpdatedAt.
func (u ProductUpdate) Apply(p *Product, now time.Time) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Condition != nil {
		p.Condition = *u.Condition
	}
	if u.Location != nil {
		p.Location = *u.Location
	}
	if u.Tags != nil {
		p.Tags = slices.Clone(*u.Tags)
	}
	if u.Images != nil {
		p.Images = slices.Clone(*u.Images)
	}
	if u.Status != nil {
		p.Status = *u.Status
		if *u.Status == ProductStatusSold && p.SoldAt == nil {
			soldAt := now
			p.SoldAt = &soldAt
		}
	}
	p.UpdatedAt = now
}

type ProductFilter struct {
	Category string
	SellerID string
	Status   ProductStatus
	Limit    int
}

func (f ProductFilter) Match(p *Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.SellerID != "" && p.SellerID != f.SellerID {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	return true
}

// SortNewestFirst orders products by CreatedAt descending, then ID ascending. This is the
// same order the Mongo query uses, so both paths page identically.
func SortNewestFirst(products []*Product) {
	slices.SortFunc(products, func(a, b *Product) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// FilterProducts is the in-memory query path: filter, newest first, then limit.
func FilterProducts(all []*Product, f ProductFilter) []*Product {
	out := make([]*Product, 0, len(all))
	for _, p := range all {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	SortNewestFirst(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}
