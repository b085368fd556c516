package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/ecofinds/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoProductRepository struct {
	collection *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{
		collection: db.Collection("products"),
	}
}

func (m *mongoProductRepository) CreateProduct(ctx context.Context, p *domain.Product) error {
	if _, err := m.collection.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrProductExists
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (m *mongoProductRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (m *mongoProductRepository) UpdateProduct(ctx context.Context, id, sellerID string, upd domain.ProductUpdate, now time.Time) (*domain.Product, error) {
	set := bson.M{"updated_at": now}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Price != nil {
		set["price"] = *upd.Price
	}
	if upd.Category != nil {
		set["category"] = *upd.Category
	}
	if upd.Condition != nil {
		set["condition"] = *upd.Condition
	}
	if upd.Location != nil {
		set["location"] = *upd.Location
	}
	if upd.Tags != nil {
		set["tags"] = *upd.Tags
	}
	if upd.Images != nil {
		set["images"] = *upd.Images
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
		if *upd.Status == domain.ProductStatusSold {
			set["sold_at"] = now
		}
	}

	filter := bson.M{"_id": id, "seller_id": sellerID, "status": domain.ProductStatusAvailable}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p domain.Product
	err := m.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, m.guardError(ctx, id, sellerID)
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &p, nil
}

func (m *mongoProductRepository) DeleteProduct(ctx context.Context, id, sellerID string) error {
	filter := bson.M{"_id": id, "seller_id": sellerID, "status": domain.ProductStatusAvailable}
	result, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.DeletedCount == 0 {
		return m.guardError(ctx, id, sellerID)
	}
	return nil
}

// guardError explains why a guarded write matched nothing.
func (m *mongoProductRepository) guardError(ctx context.Context, id, sellerID string) error {
	p, err := m.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if p.SellerID != sellerID {
		return ErrNotOwner
	}
	return ErrProductNotAvailable
}

func (m *mongoProductRepository) ListProducts(ctx context.Context, f domain.ProductFilter) ([]*domain.Product, error) {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.SellerID != "" {
		filter["seller_id"] = f.SellerID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	return m.find(ctx, filter, opts)
}

func (m *mongoProductRepository) ScanProducts(ctx context.Context) ([]*domain.Product, error) {
	return m.find(ctx, bson.M{})
}

func (m *mongoProductRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*domain.Product, error) {
	cursor, err := m.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	products := make([]*domain.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

func (m *mongoProductRepository) ReserveProduct(ctx context.Context, id, buyerID string, now time.Time) error {
	filter := bson.M{
		"_id":       id,
		"status":    domain.ProductStatusAvailable,
		"seller_id": bson.M{"$ne": buyerID},
	}
	update := bson.M{"$set": bson.M{
		"status":      domain.ProductStatusReserved,
		"reserved_by": buyerID,
		"reserved_at": now,
	}}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to reserve product: %w", err)
	}
	if result.MatchedCount == 0 {
		if _, err := m.GetProduct(ctx, id); err != nil {
			return err
		}
		return ErrProductNotAvailable
	}
	return nil
}

func (m *mongoProductRepository) ReleaseProduct(ctx context.Context, id, buyerID string) error {
	filter := bson.M{"_id": id, "status": domain.ProductStatusReserved, "reserved_by": buyerID}
	result, err := m.collection.UpdateOne(ctx, filter, releaseUpdate())
	if err != nil {
		return fmt.Errorf("failed to release product: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrReservationNotFound
	}
	return nil
}

func (m *mongoProductRepository) ReleaseExpiredReservations(ctx context.Context, before time.Time) (int64, error) {
	filter := bson.M{"status": domain.ProductStatusReserved, "reserved_at": bson.M{"$lt": before}}
	result, err := m.collection.UpdateMany(ctx, filter, releaseUpdate())
	if err != nil {
		return 0, fmt.Errorf("failed to release expired reservations: %w", err)
	}
	return result.ModifiedCount, nil
}

func releaseUpdate() bson.M {
	return bson.M{
		"$set":   bson.M{"status": domain.ProductStatusAvailable},
		"$unset": bson.M{"reserved_by": "", "reserved_at": ""},
	}
}
