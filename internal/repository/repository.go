package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/ecofinds/internal/domain"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrProductExists       = errors.New("product already exists")
	ErrNotOwner            = errors.New("product belongs to another seller")
	ErrProductNotAvailable = errors.New("product is not available")
	ErrReservationNotFound = errors.New("reservation not found")

	ErrCartNotFound  = errors.New("cart not found")
	ErrItemNotFound  = errors.New("item not found in cart")
	ErrDuplicateItem = errors.New("item already in cart")

	ErrPurchaseNotFound = errors.New("purchase not found")
	ErrAlreadyPurchased = errors.New("product already purchased")

	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists")
)

// ProductRepository stores listings. Mutations are guarded: UpdateProduct and DeleteProduct
// only touch an available product owned by sellerID and report which guard failed otherwise.
type ProductRepository interface {
	CreateProduct(ctx context.Context, p *domain.Product) error
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id, sellerID string, upd domain.ProductUpdate, now time.Time) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id, sellerID string) error
	// ListProducts uses the store's native query (filter, newest first, limit).
	ListProducts(ctx context.Context, f domain.ProductFilter) ([]*domain.Product, error)
	// ScanProducts returns the whole collection unordered.
	ScanProducts(ctx context.Context) ([]*domain.Product, error)
	ReserveProduct(ctx context.Context, id, buyerID string, now time.Time) error
	ReleaseProduct(ctx context.Context, id, buyerID string) error
	ReleaseExpiredReservations(ctx context.Context, before time.Time) (int64, error)
}

type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	// AddItem appends item, creating the cart on first use. Fails with ErrDuplicateItem
	// if the product is already present; the check and the write are one atomic step.
	AddItem(ctx context.Context, userID string, item domain.CartItem) error
	RemoveItem(ctx context.Context, userID, productID string) error
	RemoveItems(ctx context.Context, userID string, productIDs []string) error
	DeleteCart(ctx context.Context, userID string) error
}

// CommitRequest describes one per-item purchase transaction.
type CommitRequest struct {
	PurchaseID string
	ProductID  string
	BuyerID    string
	// From is the status the product must be in: available, or reserved by BuyerID.
	From domain.ProductStatus
	At   time.Time
}

type PurchaseRepository interface {
	// CommitPurchase atomically flips the product to sold and inserts the purchase built
	// from the product state read inside the same transaction.
	CommitPurchase(ctx context.Context, req CommitRequest) (*domain.Purchase, error)
	GetPurchase(ctx context.Context, id string) (*domain.Purchase, error)
	ListPurchases(ctx context.Context, f domain.PurchaseFilter) ([]*domain.Purchase, error)
}

type ProfileRepository interface {
	GetProfile(ctx context.Context, uid string) (*domain.Profile, error)
	CreateProfile(ctx context.Context, p *domain.Profile) error
	UpdateProfile(ctx context.Context, uid string, upd domain.ProfileUpdate, now time.Time) (*domain.Profile, error)
}
