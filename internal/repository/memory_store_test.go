package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fjod/ecofinds/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, repo ProductRepository, id, seller string) *domain.Product {
	t.Helper()
	now := time.Now().UTC()
	p := &domain.Product{
		ID:        id,
		Title:     "item " + id,
		Price:     decimal.NewFromInt(50),
		Category:  "home",
		Condition: domain.ConditionGood,
		SellerID:  seller,
		Images:    []string{"https://img/" + id},
		Status:    domain.ProductStatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.CreateProduct(context.Background(), p))
	return p
}

func TestMemoryStore_CreateProduct_Duplicate(t *testing.T) {
	s := NewMemoryStore()
	seedProduct(t, s, "p1", "A")

	err := s.CreateProduct(context.Background(), &domain.Product{ID: "p1"})
	assert.ErrorIs(t, err, ErrProductExists)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	seedProduct(t, s, "p1", "A")
	ctx := context.Background()

	p, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	p.Title = "mutated"
	p.Images[0] = "mutated"

	again, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "item p1", again.Title)
	assert.Equal(t, "https://img/p1", again.Images[0])
}

func TestMemoryStore_UpdateProduct_Guards(t *testing.T) {
	s := NewMemoryStore()
	seedProduct(t, s, "p1", "A")
	ctx := context.Background()
	title := "new"

	_, err := s.UpdateProduct(ctx, "missing", "A", domain.ProductUpdate{Title: &title}, time.Now())
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = s.UpdateProduct(ctx, "p1", "B", domain.ProductUpdate{Title: &title}, time.Now())
	assert.ErrorIs(t, err, ErrNotOwner)

	sold := domain.ProductStatusSold
	p, err := s.UpdateProduct(ctx, "p1", "A", domain.ProductUpdate{Status: &sold}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.ProductStatusSold, p.Status)

	_, err = s.UpdateProduct(ctx, "p1", "A", domain.ProductUpdate{Title: &title}, time.Now())
	assert.ErrorIs(t, err, ErrProductNotAvailable)

	assert.ErrorIs(t, s.DeleteProduct(ctx, "p1", "A"), ErrProductNotAvailable)
}

func TestMemoryStore_DeleteProduct(t *testing.T) {
	s := NewMemoryStore()
	seedProduct(t, s, "p1", "A")
	ctx := context.Background()

	require.NoError(t, s.DeleteProduct(ctx, "p1", "A"))
	assert.ErrorIs(t, s.DeleteProduct(ctx, "p1", "A"), ErrProductNotFound)
}

func TestMemoryStore_Cart(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetCart(ctx, "u1")
	assert.ErrorIs(t, err, ErrCartNotFound)

	require.NoError(t, s.AddItem(ctx, "u1", domain.CartItem{ProductID: "p1"}))
	require.NoError(t, s.AddItem(ctx, "u1", domain.CartItem{ProductID: "p2"}))
	assert.ErrorIs(t, s.AddItem(ctx, "u1", domain.CartItem{ProductID: "p1"}), ErrDuplicateItem)

	cart, err := s.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.False(t, cart.Items[0].AddedAt.IsZero())

	assert.ErrorIs(t, s.RemoveItem(ctx, "u1", "p9"), ErrItemNotFound)
	assert.ErrorIs(t, s.RemoveItem(ctx, "u2", "p1"), ErrCartNotFound)
	require.NoError(t, s.RemoveItem(ctx, "u1", "p1"))

	require.NoError(t, s.AddItem(ctx, "u1", domain.CartItem{ProductID: "p3"}))
	require.NoError(t, s.AddItem(ctx, "u1", domain.CartItem{ProductID: "p4"}))
	require.NoError(t, s.RemoveItems(ctx, "u1", []string{"p2", "p3"}))
	cart, err = s.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "p4", cart.Items[0].ProductID)

	require.NoError(t, s.DeleteCart(ctx, "u1"))
	assert.ErrorIs(t, s.DeleteCart(ctx, "u1"), ErrCartNotFound)
}

func TestMemoryStore_AddItem_ConcurrentSameProduct(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.AddItem(ctx, "u1", domain.CartItem{ProductID: "p1"})
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrDuplicateItem)
		}
	}
	assert.Equal(t, 1, ok)

	cart, err := s.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestMemoryStore_CommitPurchase(t *testing.T) {
	s := NewMemoryStore()
	seedProduct(t, s, "p1", "A")
	ctx := context.Background()
	at := time.Now().UTC()

	_, err := s.CommitPurchase(ctx, CommitRequest{PurchaseID: "x", ProductID: "p1", BuyerID: "A", From: domain.ProductStatusAvailable, At: at})
	assert.ErrorIs(t, err, ErrProductNotAvailable)

	pur, err := s.CommitPurchase(ctx, CommitRequest{PurchaseID: "x", ProductID: "p1", BuyerID: "B", From: domain.ProductStatusAvailable, At: at})
	require.NoError(t, err)
	assert.Equal(t, "A", pur.SellerID)
	assert.Equal(t, "item p1", pur.Snapshot.Title)

	p, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ProductStatusSold, p.Status)
	assert.Equal(t, "B", p.SoldTo)
	require.NotNil(t, p.SoldAt)

	_, err = s.CommitPurchase(ctx, CommitRequest{PurchaseID: "y", ProductID: "p1", BuyerID: "C", From: domain.ProductStatusAvailable, At: at})
	assert.ErrorIs(t, err, ErrProductNotAvailable)

	_, err = s.CommitPurchase(ctx, CommitRequest{PurchaseID: "z", ProductID: "nope", BuyerID: "C", From: domain.ProductStatusAvailable, At: at})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestMemoryStore_CommitPurchase_ConcurrentBuyers(t *testing.T) {
	s := NewMemoryStore()
	seedProduct(t, s, "p1", "A")
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.CommitPurchase(ctx, CommitRequest{
				PurchaseID: fmt.Sprintf("pur-%d", i),
				ProductID:  "p1",
				BuyerID:    fmt.Sprintf("buyer-%d", i),
				From:       domain.ProductStatusAvailable,
				At:         time.Now(),
			})
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	purchases, err := s.ListPurchases(ctx, domain.PurchaseFilter{ProductID: "p1"})
	require.NoError(t, err)
	assert.Len(t, purchases, 1)
}

func TestMemoryStore_Reservations(t *testing.T) {
	s := NewMemoryStore()
	seedProduct(t, s, "p1", "A")
	seedProduct(t, s, "p2", "A")
	ctx := context.Background()
	now := time.Now()

	assert.ErrorIs(t, s.ReserveProduct(ctx, "p1", "A", now), ErrProductNotAvailable)
	require.NoError(t, s.ReserveProduct(ctx, "p1", "B", now.Add(-time.Hour)))
	require.NoError(t, s.ReserveProduct(ctx, "p2", "B", now))
	assert.ErrorIs(t, s.ReserveProduct(ctx, "p1", "C", now), ErrProductNotAvailable)

	// only the reserving buyer may finalize
	_, err := s.CommitPurchase(ctx, CommitRequest{PurchaseID: "x", ProductID: "p2", BuyerID: "C", From: domain.ProductStatusReserved, At: now})
	assert.ErrorIs(t, err, ErrProductNotAvailable)

	released, err := s.ReleaseExpiredReservations(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	p1, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ProductStatusAvailable, p1.Status)
	assert.Empty(t, p1.ReservedBy)

	assert.ErrorIs(t, s.ReleaseProduct(ctx, "p2", "C"), ErrReservationNotFound)
	require.NoError(t, s.ReleaseProduct(ctx, "p2", "B"))
}

func TestMemoryStore_ListPurchases(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Now().UTC()
	for i, id := range []string{"p1", "p2", "p3"} {
		seedProduct(t, s, id, "A")
		_, err := s.CommitPurchase(ctx, CommitRequest{
			PurchaseID: "pur-" + id, ProductID: id, BuyerID: "B",
			From: domain.ProductStatusAvailable, At: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	got, err := s.ListPurchases(ctx, domain.PurchaseFilter{BuyerID: "B", Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p3", got[0].ProductID)
	assert.Equal(t, "p2", got[1].ProductID)

	got, err = s.ListPurchases(ctx, domain.PurchaseFilter{SellerID: "B"})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.GetPurchase(ctx, "nope")
	assert.ErrorIs(t, err, ErrPurchaseNotFound)
}

func TestMemoryStore_Profiles(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetProfile(ctx, "u1")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	require.NoError(t, s.CreateProfile(ctx, &domain.Profile{UID: "u1", DisplayName: "Ann"}))
	assert.ErrorIs(t, s.CreateProfile(ctx, &domain.Profile{UID: "u1"}), ErrProfileExists)

	name := "Anna"
	p, err := s.UpdateProfile(ctx, "u1", domain.ProfileUpdate{DisplayName: &name}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Anna", p.DisplayName)

	_, err = s.UpdateProfile(ctx, "u2", domain.ProfileUpdate{DisplayName: &name}, time.Now())
	assert.ErrorIs(t, err, ErrProfileNotFound)
}
