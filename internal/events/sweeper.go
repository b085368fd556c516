package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// CartCleaner removes purchased products from a cart and drops its cached copy.
type CartCleaner interface {
	RemoveItems(ctx context.Context, userID string, productIDs []string) error
}

const defaultRetryDelay = time.Second

// errMalformed marks a message that can never be applied. It is committed and skipped.
var errMalformed = errors.New("malformed checkout event")

// CartSweeper consumes checkout events and removes the purchased products from the buyer's
// cart. It catches carts whose synchronous clear failed after a purchase.
//
// The offset is committed only after the cart was swept. A failed sweep keeps the message
// pending and retries it before fetching the next one.
type CartSweeper struct {
	reader     messageReader
	carts      CartCleaner
	retryDelay time.Duration
	pending    *kafka.Message
}

func NewCartSweeper(carts CartCleaner, topic, groupID string, brokers ...string) *CartSweeper {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return &CartSweeper{reader: reader, carts: carts, retryDelay: defaultRetryDelay}
}

func (s *CartSweeper) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		err := s.sweepNext(ctx)
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return
		}
		slog.WarnContext(ctx, "cart sweep failed", "error", err)
		if s.pending != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.retryDelay):
			}
		}
	}
}

func (s *CartSweeper) Close() {
	if err := s.reader.Close(); err != nil {
		slog.Warn("error closing reader", "error", err)
	}
}

func (s *CartSweeper) sweepNext(ctx context.Context) error {
	if s.pending == nil {
		m, err := s.reader.FetchMessage(ctx)
		if err != nil {
			return fmt.Errorf("error fetching message: %w", err)
		}
		s.pending = &m
	}
	m := *s.pending

	err := s.sweep(ctx, m)
	if err != nil && !errors.Is(err, errMalformed) {
		return err
	}
	if cerr := s.reader.CommitMessages(ctx, m); cerr != nil {
		return fmt.Errorf("error committing offset %d: %w", m.Offset, cerr)
	}
	s.pending = nil
	return err
}

func (s *CartSweeper) sweep(ctx context.Context, m kafka.Message) error {
	if t := header(m, eventTypeHeader); t != "" && t != EventTypeCheckoutCompleted {
		return nil
	}

	var evt CheckoutCompleted
	if err := json.Unmarshal(m.Value, &evt); err != nil {
		return fmt.Errorf("%w at offset %d: %w", errMalformed, m.Offset, err)
	}
	if evt.BuyerID == "" || len(evt.ProductIDs) == 0 {
		return fmt.Errorf("%w: event %s has no buyer or products", errMalformed, evt.EventID)
	}

	if err := s.carts.RemoveItems(ctx, evt.BuyerID, evt.ProductIDs); err != nil {
		return fmt.Errorf("failed to sweep cart of %s: %w", evt.BuyerID, err)
	}
	slog.DebugContext(ctx, "swept cart", "user_id", evt.BuyerID, "products", len(evt.ProductIDs))
	return nil
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
