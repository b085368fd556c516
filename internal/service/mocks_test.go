package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/ecofinds/internal/cache"
	"github.com/fjod/ecofinds/internal/domain"
	"github.com/fjod/ecofinds/internal/events"
	"github.com/fjod/ecofinds/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("simulated backend fault")

// failingPurchases wraps a purchase repository and fails CommitPurchase for chosen products.
type failingPurchases struct {
	repository.PurchaseRepository
	m        sync.Mutex
	failOn   map[string]bool
	attempts []string
}

func (f *failingPurchases) CommitPurchase(ctx context.Context, req repository.CommitRequest) (*domain.Purchase, error) {
	f.m.Lock()
	f.attempts = append(f.attempts, req.ProductID)
	fail := f.failOn[req.ProductID]
	f.m.Unlock()
	if fail {
		return nil, errBackend
	}
	return f.PurchaseRepository.CommitPurchase(ctx, req)
}

// failingProducts wraps a product repository with injectable read and reserve faults.
type failingProducts struct {
	repository.ProductRepository
	getErr     error
	reserveErr map[string]error
}

func (f *failingProducts) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.ProductRepository.GetProduct(ctx, id)
}

func (f *failingProducts) ReserveProduct(ctx context.Context, id, buyerID string, now time.Time) error {
	if err := f.reserveErr[id]; err != nil {
		return err
	}
	return f.ProductRepository.ReserveProduct(ctx, id, buyerID, now)
}

type failingCarts struct {
	repository.CartRepository
	deleteErr error
}

func (f *failingCarts) DeleteCart(ctx context.Context, userID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.CartRepository.DeleteCart(ctx, userID)
}

// hookedProducts runs onGet before every product read.
type hookedProducts struct {
	repository.ProductRepository
	onGet func(ctx context.Context)
}

func (h *hookedProducts) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if h.onGet != nil {
		h.onGet(ctx)
	}
	return h.ProductRepository.GetProduct(ctx, id)
}

type mockCache struct {
	m       sync.RWMutex
	carts   map[string]*domain.Cart
	deletes int
	getErr  error
}

func newMockCache() *mockCache {
	return &mockCache{carts: make(map[string]*domain.Cart)}
}

func (m *mockCache) Get(_ context.Context, userID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	cart, ok := m.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart.Clone(), nil
}

func (m *mockCache) Set(_ context.Context, userID string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.carts[userID] = cart.Clone()
	return nil
}

func (m *mockCache) Delete(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.carts, userID)
	m.deletes++
	return nil
}

func (m *mockCache) has(userID string) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	_, ok := m.carts[userID]
	return ok
}

// gatedCache parks the first Set until release is closed.
type gatedCache struct {
	*mockCache
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedCache() *gatedCache {
	return &gatedCache{
		mockCache: newMockCache(),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
}

func (g *gatedCache) Set(ctx context.Context, userID string, cart *domain.Cart) error {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.mockCache.Set(ctx, userID, cart)
}

type mockPublisher struct {
	m      sync.Mutex
	events []events.CheckoutCompleted
	err    error
}

func (p *mockPublisher) PublishCheckoutCompleted(_ context.Context, evt events.CheckoutCompleted) error {
	p.m.Lock()
	defer p.m.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

// fixture wires every service over one in-memory store.
type fixture struct {
	store     *repository.MemoryStore
	cache     *mockCache
	products  *ProductService
	carts     *CartService
	purchases *PurchaseService
	publisher *mockPublisher
}

func newFixture(t *testing.T, mode CommitMode) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	c := newMockCache()
	lister, err := NewProductLister(QueryNative, store)
	require.NoError(t, err)

	carts := NewCartService(store, store, c)
	pub := &mockPublisher{}
	return &fixture{
		store:     store,
		cache:     c,
		products:  NewProductService(store, lister),
		carts:     carts,
		purchases: NewPurchaseService(store, store, carts, pub, mode),
		publisher: pub,
	}
}

func (f *fixture) listing(t *testing.T, sellerID, id string, price int64) *domain.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), sellerID, id, ProductInput{
		Title:     "listing " + id,
		Price:     decimal.NewFromInt(price),
		Category:  "home",
		Condition: domain.ConditionGood,
		Images:    []string{"https://img/" + id},
	})
	require.NoError(t, err)
	return p
}
