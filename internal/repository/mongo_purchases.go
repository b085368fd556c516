package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/ecofinds/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoPurchaseRepository struct {
	client    *mongo.Client
	purchases *mongo.Collection
	products  *mongo.Collection
}

// NewMongoPurchaseRepository needs a replica set: CommitPurchase runs in a session transaction.
func NewMongoPurchaseRepository(db *mongo.Database) PurchaseRepository {
	return &mongoPurchaseRepository{
		client:    db.Client(),
		purchases: db.Collection("purchases"),
		products:  db.Collection("products"),
	}
}

func (m *mongoPurchaseRepository) CommitPurchase(ctx context.Context, req CommitRequest) (*domain.Purchase, error) {
	session, err := m.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		filter := bson.M{
			"_id":       req.ProductID,
			"status":    req.From,
			"seller_id": bson.M{"$ne": req.BuyerID},
		}
		if req.From == domain.ProductStatusReserved {
			filter["reserved_by"] = req.BuyerID
		}
		update := bson.M{
			"$set": bson.M{
				"status":     domain.ProductStatusSold,
				"sold_at":    req.At,
				"sold_to":    req.BuyerID,
				"updated_at": req.At,
			},
			"$unset": bson.M{"reserved_by": "", "reserved_at": ""},
		}

		// the pre-image is the state the snapshot is taken from
		var product domain.Product
		err := m.products.FindOneAndUpdate(sc, filter, update).Decode(&product)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, m.commitConflict(sc, req.ProductID)
			}
			return nil, fmt.Errorf("failed to mark product sold: %w", err)
		}

		purchase := domain.NewPurchase(req.PurchaseID, req.BuyerID, &product, req.At)
		if _, err := m.purchases.InsertOne(sc, purchase); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, ErrAlreadyPurchased
			}
			return nil, fmt.Errorf("failed to insert purchase: %w", err)
		}
		return purchase, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Purchase), nil
}

func (m *mongoPurchaseRepository) commitConflict(ctx context.Context, productID string) error {
	err := m.products.FindOne(ctx, bson.M{"_id": productID}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get product: %w", err)
	}
	return ErrProductNotAvailable
}

func (m *mongoPurchaseRepository) GetPurchase(ctx context.Context, id string) (*domain.Purchase, error) {
	var p domain.Purchase
	err := m.purchases.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	return &p, nil
}

func (m *mongoPurchaseRepository) ListPurchases(ctx context.Context, f domain.PurchaseFilter) ([]*domain.Purchase, error) {
	filter := bson.M{}
	if f.BuyerID != "" {
		filter["buyer_id"] = f.BuyerID
	}
	if f.SellerID != "" {
		filter["seller_id"] = f.SellerID
	}
	if f.ProductID != "" {
		filter["product_id"] = f.ProductID
	}

	opts := options.Find().SetSort(bson.D{{Key: "purchase_date", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cursor, err := m.purchases.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer cursor.Close(ctx)

	purchases := make([]*domain.Purchase, 0)
	if err := cursor.All(ctx, &purchases); err != nil {
		return nil, fmt.Errorf("failed to decode purchases: %w", err)
	}
	return purchases, nil
}
