package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/ecofinds/internal/repository"
)

const (
	DefaultReservationTTL = 5 * time.Minute
	DefaultReapInterval   = 30 * time.Second
)

// ReservationReaper periodically returns reservations older than ttl to available. It
// cleans up after saga checkouts that died between reserve and finalize.
type ReservationReaper struct {
	products repository.ProductRepository
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewReservationReaper(products repository.ProductRepository, ttl, interval time.Duration) *ReservationReaper {
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	return &ReservationReaper{
		products: products,
		ttl:      ttl,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
		stop:     make(chan struct{}),
	}
}

func (r *ReservationReaper) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.loop(ctx)
}

// Stop blocks until the loop has exited.
func (r *ReservationReaper) Stop() {
	close(r.stop)
	r.wg.Wait()
}

func (r *ReservationReaper) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.ReapOnce(ctx); err != nil {
				slog.WarnContext(ctx, "reservation reap failed", "error", err)
			}
		case <-r.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *ReservationReaper) ReapOnce(ctx context.Context) (int64, error) {
	released, err := r.products.ReleaseExpiredReservations(ctx, r.now().Add(-r.ttl))
	if err != nil {
		return 0, writeErr("release expired reservations", err)
	}
	if released > 0 {
		slog.InfoContext(ctx, "released expired reservations", "count", released)
	}
	return released, nil
}
