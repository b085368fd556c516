package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/fjod/ecofinds/internal/domain"
)

// MemoryStore implements every repository interface in process memory. All records are
// copied on the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	products  map[string]*domain.Product
	carts     map[string]*domain.Cart
	purchases map[string]*domain.Purchase
	profiles  map[string]*domain.Profile
}

var (
	_ ProductRepository  = (*MemoryStore)(nil)
	_ CartRepository     = (*MemoryStore)(nil)
	_ PurchaseRepository = (*MemoryStore)(nil)
	_ ProfileRepository  = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:  make(map[string]*domain.Product),
		carts:     make(map[string]*domain.Cart),
		purchases: make(map[string]*domain.Purchase),
		profiles:  make(map[string]*domain.Profile),
	}
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Products

func (s *MemoryStore) CreateProduct(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.ID]; exists {
		return ErrProductExists
	}
	s.products[p.ID] = p.Clone()
	return nil
}

func (s *MemoryStore) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.products[id]
	if !exists {
		return nil, ErrProductNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) UpdateProduct(_ context.Context, id, sellerID string, upd domain.ProductUpdate, now time.Time) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.guardLocked(id, sellerID)
	if err != nil {
		return nil, err
	}
	upd.Apply(p, now)
	return p.Clone(), nil
}

func (s *MemoryStore) DeleteProduct(_ context.Context, id, sellerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.guardLocked(id, sellerID); err != nil {
		return err
	}
	delete(s.products, id)
	return nil
}

func (s *MemoryStore) guardLocked(id, sellerID string) (*domain.Product, error) {
	p, exists := s.products[id]
	if !exists {
		return nil, ErrProductNotFound
	}
	if p.SellerID != sellerID {
		return nil, ErrNotOwner
	}
	if p.Status != domain.ProductStatusAvailable {
		return nil, ErrProductNotAvailable
	}
	return p, nil
}

func (s *MemoryStore) ListProducts(_ context.Context, f domain.ProductFilter) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.FilterProducts(s.snapshotProductsLocked(), f), nil
}

func (s *MemoryStore) ScanProducts(_ context.Context) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotProductsLocked(), nil
}

func (s *MemoryStore) snapshotProductsLocked() []*domain.Product {
	out := make([]*domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p.Clone())
	}
	return out
}

func (s *MemoryStore) ReserveProduct(_ context.Context, id, buyerID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.products[id]
	if !exists {
		return ErrProductNotFound
	}
	if p.Status != domain.ProductStatusAvailable || p.SellerID == buyerID {
		return ErrProductNotAvailable
	}
	reservedAt := now
	p.Status = domain.ProductStatusReserved
	p.ReservedBy = buyerID
	p.ReservedAt = &reservedAt
	return nil
}

func (s *MemoryStore) ReleaseProduct(_ context.Context, id, buyerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.products[id]
	if !exists || p.Status != domain.ProductStatusReserved || p.ReservedBy != buyerID {
		return ErrReservationNotFound
	}
	release(p)
	return nil
}

func (s *MemoryStore) ReleaseExpiredReservations(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var released int64
	for _, p := range s.products {
		if p.Status == domain.ProductStatusReserved && p.ReservedAt != nil && p.ReservedAt.Before(before) {
			release(p)
			released++
		}
	}
	return released, nil
}

func release(p *domain.Product) {
	p.Status = domain.ProductStatusAvailable
	p.ReservedBy = ""
	p.ReservedAt = nil
}

// Carts

func (s *MemoryStore) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart, exists := s.carts[userID]
	if !exists {
		return nil, ErrCartNotFound
	}
	return cart.Clone(), nil
}

func (s *MemoryStore) AddItem(_ context.Context, userID string, item domain.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if item.AddedAt.IsZero() {
		item.AddedAt = now
	}

	cart, exists := s.carts[userID]
	if !exists {
		s.carts[userID] = &domain.Cart{
			UserID:    userID,
			Items:     []domain.CartItem{item},
			CreatedAt: now,
			UpdatedAt: now,
		}
		return nil
	}
	if cart.Contains(item.ProductID) {
		return ErrDuplicateItem
	}
	cart.Items = append(cart.Items, item)
	cart.UpdatedAt = now
	return nil
}

func (s *MemoryStore) RemoveItem(_ context.Context, userID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, exists := s.carts[userID]
	if !exists {
		return ErrCartNotFound
	}
	idx := slices.IndexFunc(cart.Items, func(it domain.CartItem) bool {
		return it.ProductID == productID
	})
	if idx < 0 {
		return ErrItemNotFound
	}
	cart.Items = slices.Delete(cart.Items, idx, idx+1)
	cart.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) RemoveItems(_ context.Context, userID string, productIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, exists := s.carts[userID]
	if !exists {
		return ErrCartNotFound
	}
	cart.Items = slices.DeleteFunc(cart.Items, func(it domain.CartItem) bool {
		return slices.Contains(productIDs, it.ProductID)
	})
	cart.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) DeleteCart(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.carts[userID]; !exists {
		return ErrCartNotFound
	}
	delete(s.carts, userID)
	return nil
}

// Purchases

func (s *MemoryStore) CommitPurchase(_ context.Context, req CommitRequest) (*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.products[req.ProductID]
	if !exists {
		return nil, ErrProductNotFound
	}
	if p.Status != req.From || p.SellerID == req.BuyerID {
		return nil, ErrProductNotAvailable
	}
	if req.From == domain.ProductStatusReserved && p.ReservedBy != req.BuyerID {
		return nil, ErrProductNotAvailable
	}
	for _, existing := range s.purchases {
		if existing.ProductID == req.ProductID {
			return nil, ErrAlreadyPurchased
		}
	}

	purchase := domain.NewPurchase(req.PurchaseID, req.BuyerID, p, req.At)

	soldAt := req.At
	release(p)
	p.Status = domain.ProductStatusSold
	p.SoldAt = &soldAt
	p.SoldTo = req.BuyerID
	p.UpdatedAt = req.At

	s.purchases[purchase.ID] = purchase
	return purchase.Clone(), nil
}

func (s *MemoryStore) GetPurchase(_ context.Context, id string) (*domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.purchases[id]
	if !exists {
		return nil, ErrPurchaseNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) ListPurchases(_ context.Context, f domain.PurchaseFilter) ([]*domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Purchase, 0)
	for _, p := range s.purchases {
		if f.Match(p) {
			out = append(out, p.Clone())
		}
	}
	domain.SortByPurchaseDateDesc(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Profiles

func (s *MemoryStore) GetProfile(_ context.Context, uid string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.profiles[uid]
	if !exists {
		return nil, ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) CreateProfile(_ context.Context, p *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[p.UID]; exists {
		return ErrProfileExists
	}
	cp := *p
	s.profiles[p.UID] = &cp
	return nil
}

func (s *MemoryStore) UpdateProfile(_ context.Context, uid string, upd domain.ProfileUpdate, now time.Time) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.profiles[uid]
	if !exists {
		return nil, ErrProfileNotFound
	}
	upd.Apply(p, now)
	cp := *p
	return &cp, nil
}
