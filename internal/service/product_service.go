package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fjod/ecofinds/internal/domain"
	"github.com/fjod/ecofinds/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductInput is the seller-supplied part of a new listing.
type ProductInput struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Price       decimal.Decimal      `json:"price"`
	Category    string               `json:"category"`
	Condition   domain.Condition     `json:"condition"`
	Location    string               `json:"location"`
	Tags        []string             `json:"tags"`
	Images      []string             `json:"images"`
	Status      domain.ProductStatus `json:"status,omitempty"`
}

type ProductService struct {
	repo   repository.ProductRepository
	lister ProductLister
	now    func() time.Time
}

func NewProductService(repo repository.ProductRepository, lister ProductLister) *ProductService {
	return &ProductService{
		repo:   repo,
		lister: lister,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new listing owned by sellerID. An empty id gets a generated one.
func (s *ProductService) Create(ctx context.Context, sellerID, id string, in ProductInput) (*domain.Product, error) {
	if err := validateInput(sellerID, in); err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.NewString()
	}
	status := in.Status
	if status == "" {
		status = domain.ProductStatusAvailable
	}

	now := s.now()
	p := &domain.Product{
		ID:          id,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Condition:   in.Condition,
		Location:    in.Location,
		Tags:        nonNil(in.Tags),
		SellerID:    sellerID,
		Images:      nonNil(in.Images),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if status == domain.ProductStatusSold {
		p.SoldAt = &now
	}

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, productGuardErr("create product", id, err)
	}
	slog.InfoContext(ctx, "product created", "product_id", p.ID, "seller_id", sellerID)
	return p, nil
}

func validateInput(sellerID string, in ProductInput) error {
	switch {
	case sellerID == "":
		return domain.InvalidInputf("seller is required")
	case strings.TrimSpace(in.Title) == "":
		return domain.InvalidInputf("title is required")
	case !in.Price.IsPositive():
		return domain.InvalidInputf("price must be positive")
	case !in.Condition.Valid():
		return domain.InvalidInputf("unknown condition %q", in.Condition)
	case in.Status != "" && in.Status != domain.ProductStatusAvailable && in.Status != domain.ProductStatusSold:
		return domain.InvalidInputf("invalid status %q", in.Status)
	}
	return nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, productReadErr(id, err)
	}
	return p, nil
}

// Update applies a seller edit. Only the owner may edit, and sold or reserved listings
// are frozen.
func (s *ProductService) Update(ctx context.Context, actorID, id string, upd domain.ProductUpdate) (*domain.Product, error) {
	if err := validateUpdate(upd); err != nil {
		return nil, err
	}
	p, err := s.repo.UpdateProduct(ctx, id, actorID, upd, s.now())
	if err != nil {
		return nil, productGuardErr("update product", id, err)
	}
	return p, nil
}

func validateUpdate(upd domain.ProductUpdate) error {
	switch {
	case upd.IsEmpty():
		return domain.InvalidInputf("no fields to update")
	case upd.Title != nil && strings.TrimSpace(*upd.Title) == "":
		return domain.InvalidInputf("title is required")
	case upd.Price != nil && !upd.Price.IsPositive():
		return domain.InvalidInputf("price must be positive")
	case upd.Condition != nil && !upd.Condition.Valid():
		return domain.InvalidInputf("unknown condition %q", *upd.Condition)
	case upd.Status != nil && *upd.Status != domain.ProductStatusAvailable && *upd.Status != domain.ProductStatusSold:
		return domain.InvalidInputf("invalid status %q", *upd.Status)
	}
	return nil
}

func (s *ProductService) Delete(ctx context.Context, actorID, id string) error {
	if err := s.repo.DeleteProduct(ctx, id, actorID); err != nil {
		return productGuardErr("delete product", id, err)
	}
	slog.InfoContext(ctx, "product deleted", "product_id", id, "seller_id", actorID)
	return nil
}

// MarkSold is the seller flagging an offline sale.
func (s *ProductService) MarkSold(ctx context.Context, actorID, id string) (*domain.Product, error) {
	sold := domain.ProductStatusSold
	return s.Update(ctx, actorID, id, domain.ProductUpdate{Status: &sold})
}

func (s *ProductService) List(ctx context.Context, f domain.ProductFilter) ([]*domain.Product, error) {
	if f.Limit < 0 {
		return nil, domain.InvalidInputf("limit must not be negative")
	}
	return s.lister.List(ctx, f)
}

// Search matches query case-insensitively against title, description and tags of the
// listings selected by f. The limit applies after matching.
func (s *ProductService) Search(ctx context.Context, query string, f domain.ProductFilter) ([]*domain.Product, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return s.List(ctx, f)
	}

	limit := f.Limit
	f.Limit = 0
	products, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}

	matched := make([]*domain.Product, 0, len(products))
	for _, p := range products {
		if matches(p, query) {
			matched = append(matched, p)
			if limit > 0 && len(matched) == limit {
				break
			}
		}
	}
	return matched, nil
}

func matches(p *domain.Product, query string) bool {
	if strings.Contains(strings.ToLower(p.Title), query) || strings.Contains(strings.ToLower(p.Description), query) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

func (s *ProductService) ByCategory(ctx context.Context, category string, limit int) ([]*domain.Product, error) {
	return s.List(ctx, domain.ProductFilter{Category: category, Status: domain.ProductStatusAvailable, Limit: limit})
}

func (s *ProductService) BySeller(ctx context.Context, sellerID string) ([]*domain.Product, error) {
	return s.List(ctx, domain.ProductFilter{SellerID: sellerID})
}

func (s *ProductService) Available(ctx context.Context, limit int) ([]*domain.Product, error) {
	return s.List(ctx, domain.ProductFilter{Status: domain.ProductStatusAvailable, Limit: limit})
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
