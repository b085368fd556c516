package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventTypeCheckoutCompleted = "checkout.completed"
	eventTypeHeader            = "event_type"
)

// CheckoutCompleted is emitted once per successful purchase request.
type CheckoutCompleted struct {
	EventID     string          `json:"event_id"`
	BuyerID     string          `json:"buyer_id"`
	PurchaseIDs []string        `json:"purchase_ids"`
	ProductIDs  []string        `json:"product_ids"`
	Total       decimal.Decimal `json:"total"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

type Publisher interface {
	PublishCheckoutCompleted(ctx context.Context, evt CheckoutCompleted) error
}

// NopPublisher drops events. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishCheckoutCompleted(context.Context, CheckoutCompleted) error {
	return nil
}
