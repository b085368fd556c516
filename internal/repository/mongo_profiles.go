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

type mongoProfileRepository struct {
	collection *mongo.Collection
}

func NewMongoProfileRepository(db *mongo.Database) ProfileRepository {
	return &mongoProfileRepository{
		collection: db.Collection("users"),
	}
}

func (m *mongoProfileRepository) GetProfile(ctx context.Context, uid string) (*domain.Profile, error) {
	var p domain.Profile
	err := m.collection.FindOne(ctx, bson.M{"_id": uid}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

func (m *mongoProfileRepository) CreateProfile(ctx context.Context, p *domain.Profile) error {
	if _, err := m.collection.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrProfileExists
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (m *mongoProfileRepository) UpdateProfile(ctx context.Context, uid string, upd domain.ProfileUpdate, now time.Time) (*domain.Profile, error) {
	set := bson.M{"updated_at": now}
	if upd.DisplayName != nil {
		set["display_name"] = *upd.DisplayName
	}
	if upd.PhotoURL != nil {
		set["photo_url"] = *upd.PhotoURL
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p domain.Profile
	err := m.collection.FindOneAndUpdate(ctx, bson.M{"_id": uid}, bson.M{"$set": set}, opts).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return &p, nil
}
