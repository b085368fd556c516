package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/ecofinds/internal/cache"
	"github.com/fjod/ecofinds/internal/domain"
	"github.com/fjod/ecofinds/internal/repository"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const hydrateConcurrency = 8

type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	cache    cache.CartCache
	sfg      singleflight.Group // Prevents cache stampede
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, c cache.CartCache) *CartService {
	if c == nil {
		c = cache.NopCache{}
	}
	return &CartService{
		carts:    carts,
		products: products,
		cache:    c,
	}
}

// loadCart returns the stored cart, going through the cache. A user without a cart gets
// an empty one.
func (s *CartService) loadCart(ctx context.Context, userID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			slog.WarnContext(ctx, "cache get error", "user_id", userID, "error", err)
		}

		cart, err = s.carts.GetCart(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return &domain.Cart{UserID: userID}, nil
		}
		if err != nil {
			return nil, readErr("get cart", err)
		}

		setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := s.cache.Set(setCtx, userID, cart); err != nil {
			slog.WarnContext(ctx, "cache set error", "user_id", userID, "error", err)
			return cart, nil
		}
		// A mutation may have invalidated between our read and the Set. Drop the entry
		// if storage has moved on so the old snapshot does not outlive it.
		if current, err := s.carts.GetCart(setCtx, userID); err != nil || !sameItems(current, cart) {
			if err := s.cache.Delete(setCtx, userID); err != nil {
				slog.WarnContext(ctx, "cache delete error", "user_id", userID, "error", err)
			}
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart).Clone(), nil
}

// GetCart returns the hydrated cart. Entries whose product no longer exists are left out
// of the view but stay in storage until ValidateCart runs.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.CartView, error) {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines, err := s.hydrate(ctx, cart.Items)
	if err != nil {
		return nil, err
	}

	view := &domain.CartView{UserID: userID, Items: make([]domain.CartLine, 0, len(lines))}
	if !cart.UpdatedAt.IsZero() {
		updatedAt := cart.UpdatedAt
		view.UpdatedAt = &updatedAt
	}
	for _, l := range lines {
		if l.Product == nil {
			slog.WarnContext(ctx, "dropping dangling cart entry", "user_id", userID, "product_id", l.ProductID)
			continue
		}
		view.Items = append(view.Items, l)
	}
	return view, nil
}

// hydrate fetches the current product for every entry, preserving order. Missing products
// leave Product nil; any other read failure aborts.
func (s *CartService) hydrate(ctx context.Context, items []domain.CartItem) ([]domain.CartLine, error) {
	lines := make([]domain.CartLine, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hydrateConcurrency)
	for i, it := range items {
		lines[i] = domain.CartLine{ProductID: it.ProductID, AddedAt: it.AddedAt}
		g.Go(func() error {
			p, err := s.products.GetProduct(gctx, it.ProductID)
			if errors.Is(err, repository.ErrProductNotFound) {
				return nil
			}
			if err != nil {
				return readErr("get product", err)
			}
			lines[i].Product = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lines, nil
}

// AddItem puts productID into userID's cart. Checks run in order: the product must exist
// and be available, must not be the user's own listing, and must not already be in the cart.
func (s *CartService) AddItem(ctx context.Context, userID, productID string) error {
	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return productReadErr(productID, err)
	}
	if !p.IsAvailable() {
		return fmt.Errorf("%w: product %s is %s", domain.ErrUnavailable, productID, p.Status)
	}
	if p.SellerID == userID {
		return fmt.Errorf("%w: cannot add your own product %s to cart", domain.ErrOwnership, productID)
	}

	err = s.carts.AddItem(ctx, userID, domain.CartItem{ProductID: productID, AddedAt: time.Now().UTC()})
	if errors.Is(err, repository.ErrDuplicateItem) {
		return fmt.Errorf("%w: product %s", domain.ErrDuplicate, productID)
	}
	if err != nil {
		return writeErr("add cart item", err)
	}

	s.invalidateCache(ctx, userID)
	return nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) error {
	err := s.carts.RemoveItem(ctx, userID, productID)
	switch {
	case errors.Is(err, repository.ErrCartNotFound):
		return domain.NotFoundf("cart for user %s", userID)
	case errors.Is(err, repository.ErrItemNotFound):
		return domain.NotFoundf("product %s is not in the cart", productID)
	case err != nil:
		return writeErr("remove cart item", err)
	}

	s.invalidateCache(ctx, userID)
	return nil
}

// RemoveItems drops the given products from the cart. A missing cart is not an error.
func (s *CartService) RemoveItems(ctx context.Context, userID string, productIDs []string) error {
	err := s.carts.RemoveItems(ctx, userID, productIDs)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		return writeErr("remove cart items", err)
	}

	s.invalidateCache(ctx, userID)
	return nil
}

// ClearCart deletes the whole cart document. Clearing an absent cart succeeds.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	err := s.carts.DeleteCart(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		return writeErr("delete cart", err)
	}

	s.invalidateCache(ctx, userID)
	return nil
}

// ValidateCart splits the cart into purchasable and stale entries and persists the
// pruned list when anything was removed.
func (s *CartService) ValidateCart(ctx context.Context, userID string) (*domain.CartValidation, error) {
	result := &domain.CartValidation{
		ValidItems:   []domain.CartLine{},
		RemovedItems: []domain.CartLine{},
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, readErr("get cart", err)
	}

	lines, err := s.hydrate(ctx, cart.Items)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, l := range lines {
		if l.Product != nil && l.Product.IsAvailable() {
			result.ValidItems = append(result.ValidItems, l)
		} else {
			result.RemovedItems = append(result.RemovedItems, l)
			removed = append(removed, l.ProductID)
		}
	}

	// Remove only what was judged stale; entries added meanwhile stay.
	if len(removed) > 0 {
		if err := s.carts.RemoveItems(ctx, userID, removed); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
			return nil, writeErr("prune cart", err)
		}
		s.invalidateCache(ctx, userID)
		slog.InfoContext(ctx, "pruned cart", "user_id", userID, "removed", len(result.RemovedItems))
	}
	return result, nil
}

// ProductIDs lists the raw stored entries, dangling ones included. It reads storage
// directly since checkout must not act on a cached snapshot.
func (s *CartService) ProductIDs(ctx context.Context, userID string) ([]string, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, readErr("get cart", err)
	}
	ids := make([]string, len(cart.Items))
	for i, it := range cart.Items {
		ids[i] = it.ProductID
	}
	return ids, nil
}

func (s *CartService) Count(ctx context.Context, userID string) (int, error) {
	view, err := s.GetCart(ctx, userID)
	if err != nil {
		return 0, err
	}
	return view.Count(), nil
}

func (s *CartService) Contains(ctx context.Context, userID, productID string) (bool, error) {
	view, err := s.GetCart(ctx, userID)
	if err != nil {
		return false, err
	}
	return view.Contains(productID), nil
}

func (s *CartService) Total(ctx context.Context, userID string) (decimal.Decimal, error) {
	view, err := s.GetCart(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return view.Total(), nil
}

func (s *CartService) invalidateCache(ctx context.Context, userID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		slog.WarnContext(ctx, "cache invalidate error", "user_id", userID, "error", err)
	}
}

func sameItems(a, b *domain.Cart) bool {
	if len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if a.Items[i].ProductID != b.Items[i].ProductID {
			return false
		}
	}
	return true
}
