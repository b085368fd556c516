package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/ecofinds/internal/domain"
	"github.com/fjod/ecofinds/internal/events"
	"github.com/fjod/ecofinds/internal/repository"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type CommitMode string

const (
	// CommitPerItem commits each item in its own transaction, in request order. Items
	// committed before a failure stay sold.
	CommitPerItem CommitMode = "per-item"
	// CommitSaga reserves every item first and only then finalizes them.
	CommitSaga CommitMode = "saga"

	DefaultRecentLimit = 5

	validateConcurrency = 8
	compensateTimeout   = 5 * time.Second
)

func ParseCommitMode(s string) (CommitMode, error) {
	switch CommitMode(s) {
	case CommitPerItem, "":
		return CommitPerItem, nil
	case CommitSaga:
		return CommitSaga, nil
	}
	return "", fmt.Errorf("unknown purchase commit mode %q", s)
}

var tracer = otel.Tracer("github.com/fjod/ecofinds/internal/service")

// CartClearer is the slice of the cart store the purchase workflow needs.
type CartClearer interface {
	ProductIDs(ctx context.Context, userID string) ([]string, error)
	ClearCart(ctx context.Context, userID string) error
}

type PurchaseService struct {
	products  repository.ProductRepository
	purchases repository.PurchaseRepository
	carts     CartClearer
	publisher events.Publisher
	mode      CommitMode
	now       func() time.Time
}

func NewPurchaseService(
	products repository.ProductRepository,
	purchases repository.PurchaseRepository,
	carts CartClearer,
	publisher events.Publisher,
	mode CommitMode,
) *PurchaseService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if mode == "" {
		mode = CommitPerItem
	}
	return &PurchaseService{
		products:  products,
		purchases: purchases,
		carts:     carts,
		publisher: publisher,
		mode:      mode,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CheckoutCart buys every entry of the buyer's cart, dangling entries included, so a
// deleted product fails validation instead of being silently skipped.
func (s *PurchaseService) CheckoutCart(ctx context.Context, buyerID string) (*domain.PurchaseResult, error) {
	ids, err := s.carts.ProductIDs(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, domain.InvalidInputf("cart is empty")
	}
	return s.CreatePurchase(ctx, buyerID, ids)
}

// CreatePurchase runs validate, commit and cleanup for productIDs.
//
// Validation is all-or-nothing: a *domain.ValidationError means nothing was written.
// A commit failure returns *domain.TransactionError listing what was already committed.
// A cart clear failure after a successful commit is reported in PurchaseResult.CartClearErr.
func (s *PurchaseService) CreatePurchase(ctx context.Context, buyerID string, productIDs []string) (*domain.PurchaseResult, error) {
	ctx, span := tracer.Start(ctx, "purchase.create", trace.WithAttributes(
		attribute.String("buyer_id", buyerID),
		attribute.Int("items", len(productIDs)),
		attribute.String("mode", string(s.mode)),
	))
	defer span.End()

	result, err := s.createPurchase(ctx, buyerID, productIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

func (s *PurchaseService) createPurchase(ctx context.Context, buyerID string, productIDs []string) (*domain.PurchaseResult, error) {
	if buyerID == "" {
		return nil, domain.InvalidInputf("buyer is required")
	}
	if len(productIDs) == 0 {
		return nil, domain.InvalidInputf("no items to purchase")
	}

	products, err := s.validate(ctx, buyerID, productIDs)
	if err != nil {
		return nil, err
	}

	var committed []*domain.Purchase
	switch s.mode {
	case CommitSaga:
		committed, err = s.commitSaga(ctx, buyerID, products)
	default:
		committed, err = s.commitPerItem(ctx, buyerID, products)
	}
	if err != nil {
		return nil, err
	}

	result := &domain.PurchaseResult{Purchases: committed}
	if err := s.carts.ClearCart(ctx, buyerID); err != nil {
		result.CartClearErr = fmt.Errorf("%w: %w", domain.ErrCartClear, err)
		slog.WarnContext(ctx, "purchase committed but cart clear failed", "buyer_id", buyerID, "error", err)
	}

	s.publish(ctx, buyerID, result)
	slog.InfoContext(ctx, "purchase completed", "buyer_id", buyerID, "items", len(committed), "total", result.Total().String())
	return result, nil
}

// validate fetches every product concurrently. Any not-found, unavailable, self-owned or
// duplicated item fails the whole batch; backend read errors are returned as is.
func (s *PurchaseService) validate(ctx context.Context, buyerID string, productIDs []string) ([]*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "purchase.validate")
	defer span.End()

	products := make([]*domain.Product, len(productIDs))
	reasons := make([]string, len(productIDs))

	seen := make(map[string]bool, len(productIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(validateConcurrency)
	for i, id := range productIDs {
		if seen[id] {
			reasons[i] = domain.ReasonDuplicate
			continue
		}
		seen[id] = true

		g.Go(func() error {
			p, err := s.products.GetProduct(gctx, id)
			switch {
			case errors.Is(err, repository.ErrProductNotFound):
				reasons[i] = domain.ReasonNotFound
				return nil
			case err != nil:
				return readErr("get product", err)
			case !p.IsAvailable():
				reasons[i] = domain.ReasonUnavailable
			case p.SellerID == buyerID:
				reasons[i] = domain.ReasonOwnProduct
			}
			products[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var invalid []domain.InvalidItem
	for i, reason := range reasons {
		if reason != "" {
			invalid = append(invalid, domain.InvalidItem{ProductID: productIDs[i], Reason: reason})
		}
	}
	if len(invalid) > 0 {
		return nil, &domain.ValidationError{Items: invalid}
	}
	return products, nil
}

// commitPerItem runs one transaction per item, sequentially, stopping at the first failure.
func (s *PurchaseService) commitPerItem(ctx context.Context, buyerID string, products []*domain.Product) ([]*domain.Purchase, error) {
	committed := make([]*domain.Purchase, 0, len(products))
	for _, p := range products {
		purchase, err := s.purchases.CommitPurchase(ctx, repository.CommitRequest{
			PurchaseID: uuid.NewString(),
			ProductID:  p.ID,
			BuyerID:    buyerID,
			From:       domain.ProductStatusAvailable,
			At:         s.now(),
		})
		if err != nil {
			slog.ErrorContext(ctx, "purchase transaction failed", "buyer_id", buyerID, "product_id", p.ID, "committed", len(committed), "error", err)
			return nil, &domain.TransactionError{ProductID: p.ID, Committed: committed, Err: commitErr(p.ID, err)}
		}
		committed = append(committed, purchase)
	}
	return committed, nil
}

// commitSaga reserves every item, then finalizes each reservation. A reserve failure
// releases all reservations so nothing is sold. A finalize failure releases the
// reservations not yet finalized.
func (s *PurchaseService) commitSaga(ctx context.Context, buyerID string, products []*domain.Product) ([]*domain.Purchase, error) {
	reserved := make([]string, 0, len(products))
	for _, p := range products {
		err := s.products.ReserveProduct(ctx, p.ID, buyerID, s.now())
		if err == nil {
			reserved = append(reserved, p.ID)
			continue
		}

		s.release(ctx, buyerID, reserved)
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			return nil, &domain.ValidationError{Items: []domain.InvalidItem{{ProductID: p.ID, Reason: domain.ReasonNotFound}}}
		case errors.Is(err, repository.ErrProductNotAvailable):
			return nil, &domain.ValidationError{Items: []domain.InvalidItem{{ProductID: p.ID, Reason: domain.ReasonUnavailable}}}
		}
		return nil, &domain.TransactionError{ProductID: p.ID, Err: writeErr("reserve product", err)}
	}

	committed := make([]*domain.Purchase, 0, len(reserved))
	for i, id := range reserved {
		purchase, err := s.purchases.CommitPurchase(ctx, repository.CommitRequest{
			PurchaseID: uuid.NewString(),
			ProductID:  id,
			BuyerID:    buyerID,
			From:       domain.ProductStatusReserved,
			At:         s.now(),
		})
		if err != nil {
			s.release(ctx, buyerID, reserved[i:])
			slog.ErrorContext(ctx, "purchase finalize failed", "buyer_id", buyerID, "product_id", id, "committed", len(committed), "error", err)
			return nil, &domain.TransactionError{ProductID: id, Committed: committed, Err: commitErr(id, err)}
		}
		committed = append(committed, purchase)
	}
	return committed, nil
}

// release is the saga compensation. It runs detached from ctx cancellation; leftovers
// are picked up by the reservation reaper.
func (s *PurchaseService) release(ctx context.Context, buyerID string, productIDs []string) {
	if len(productIDs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()

	for _, id := range productIDs {
		err := s.products.ReleaseProduct(ctx, id, buyerID)
		if err != nil && !errors.Is(err, repository.ErrReservationNotFound) {
			slog.WarnContext(ctx, "failed to release reservation", "product_id", id, "buyer_id", buyerID, "error", err)
		}
	}
}

func (s *PurchaseService) publish(ctx context.Context, buyerID string, result *domain.PurchaseResult) {
	evt := events.CheckoutCompleted{
		EventID:     uuid.NewString(),
		BuyerID:     buyerID,
		PurchaseIDs: result.PurchaseIDs(),
		ProductIDs:  result.ProductIDs(),
		Total:       result.Total(),
		OccurredAt:  s.now(),
	}
	if err := s.publisher.PublishCheckoutCompleted(ctx, evt); err != nil {
		slog.WarnContext(ctx, "failed to publish checkout event", "buyer_id", buyerID, "error", err)
	}
}

// GetPurchase returns a purchase visible to actorID as its buyer or seller.
func (s *PurchaseService) GetPurchase(ctx context.Context, actorID, id string) (*domain.Purchase, error) {
	p, err := s.purchases.GetPurchase(ctx, id)
	if errors.Is(err, repository.ErrPurchaseNotFound) {
		return nil, domain.NotFoundf("purchase %s", id)
	}
	if err != nil {
		return nil, readErr("get purchase", err)
	}
	if p.BuyerID != actorID && p.SellerID != actorID {
		return nil, domain.NotFoundf("purchase %s", id)
	}
	return p, nil
}

func (s *PurchaseService) list(ctx context.Context, f domain.PurchaseFilter) ([]*domain.Purchase, error) {
	purchases, err := s.purchases.ListPurchases(ctx, f)
	if err != nil {
		return nil, readErr("list purchases", err)
	}
	return purchases, nil
}

func (s *PurchaseService) PurchaseHistory(ctx context.Context, buyerID string) ([]*domain.Purchase, error) {
	return s.list(ctx, domain.PurchaseFilter{BuyerID: buyerID})
}

func (s *PurchaseService) SalesHistory(ctx context.Context, sellerID string) ([]*domain.Purchase, error) {
	return s.list(ctx, domain.PurchaseFilter{SellerID: sellerID})
}

func (s *PurchaseService) RecentPurchases(ctx context.Context, buyerID string, limit int) ([]*domain.Purchase, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.list(ctx, domain.PurchaseFilter{BuyerID: buyerID, Limit: limit})
}

func (s *PurchaseService) HasPurchased(ctx context.Context, buyerID, productID string) (bool, error) {
	purchases, err := s.list(ctx, domain.PurchaseFilter{BuyerID: buyerID, ProductID: productID, Limit: 1})
	if err != nil {
		return false, err
	}
	return len(purchases) > 0, nil
}

func (s *PurchaseService) PurchaseStats(ctx context.Context, buyerID string) (domain.Stats, error) {
	purchases, err := s.PurchaseHistory(ctx, buyerID)
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.ComputeStats(purchases), nil
}

func (s *PurchaseService) SalesStats(ctx context.Context, sellerID string) (domain.Stats, error) {
	sales, err := s.SalesHistory(ctx, sellerID)
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.ComputeStats(sales), nil
}
