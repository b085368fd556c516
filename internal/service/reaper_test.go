package service

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/ecofinds/internal/domain"
	"github.com/fjod/ecofinds/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationReaper_ReapOnce(t *testing.T) {
	f := newFixture(t, CommitSaga)
	ctx := context.Background()
	f.listing(t, "A", "old", 10)
	f.listing(t, "A", "fresh", 10)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, f.store.ReserveProduct(ctx, "old", "B", now.Add(-10*time.Minute)))
	require.NoError(t, f.store.ReserveProduct(ctx, "fresh", "B", now.Add(-time.Minute)))

	r := NewReservationReaper(f.store, 5*time.Minute, time.Hour)
	r.now = func() time.Time { return now }

	released, err := r.ReapOnce(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, released)

	p := requireStatus(t, f.store, "old", domain.ProductStatusAvailable)
	assert.Empty(t, p.ReservedBy)
	assert.Nil(t, p.ReservedAt)
	requireStatus(t, f.store, "fresh", domain.ProductStatusReserved)
}

func TestReservationReaper_Loop(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateProduct(ctx, &domain.Product{
		ID: "X", SellerID: "A", Status: domain.ProductStatusAvailable, Condition: domain.ConditionGood,
	}))
	require.NoError(t, store.ReserveProduct(ctx, "X", "B", time.Now().Add(-time.Hour)))

	r := NewReservationReaper(store, time.Minute, 10*time.Millisecond)
	r.Start(ctx)
	defer r.Stop()

	require.Eventually(t, func() bool {
		p, err := store.GetProduct(ctx, "X")
		return err == nil && p.Status == domain.ProductStatusAvailable
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReservationReaper_StopsOnContextCancel(t *testing.T) {
	r := NewReservationReaper(repository.NewMemoryStore(), 0, time.Millisecond)
	assert.Equal(t, DefaultReservationTTL, r.ttl)

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not exit after cancel")
	}
}
