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

// Carts are keyed by user id, so _id doubles as the unique user index.
type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection("carts"),
	}
}

func (m *mongoCartRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart
	err := m.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &cart, nil
}

func (m *mongoCartRepository) AddItem(ctx context.Context, userID string, item domain.CartItem) error {
	now := time.Now().UTC()
	if item.AddedAt.IsZero() {
		item.AddedAt = now
	}

	// A cart that already holds the product does not match, so the upsert collides on _id.
	filter := bson.M{
		"_id":              userID,
		"items.product_id": bson.M{"$ne": item.ProductID},
	}
	update := bson.M{
		"$push":        bson.M{"items": item},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}

	_, err := m.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateItem
		}
		return fmt.Errorf("failed to add item: %w", err)
	}
	return nil
}

func (m *mongoCartRepository) RemoveItem(ctx context.Context, userID, productID string) error {
	filter := bson.M{
		"_id":              userID,
		"items.product_id": productID,
	}
	update := bson.M{
		"$pull": bson.M{"items": bson.M{"product_id": productID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}
	if result.MatchedCount == 0 {
		if _, err := m.GetCart(ctx, userID); err != nil {
			return err
		}
		return ErrItemNotFound
	}
	return nil
}

func (m *mongoCartRepository) RemoveItems(ctx context.Context, userID string, productIDs []string) error {
	update := bson.M{
		"$pull": bson.M{"items": bson.M{"product_id": bson.M{"$in": productIDs}}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to remove items: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *mongoCartRepository) DeleteCart(ctx context.Context, userID string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}
