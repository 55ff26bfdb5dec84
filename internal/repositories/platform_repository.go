package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/white/campaign-manager/internal/models"
	"github.com/white/campaign-manager/pkg/mongodb"
	"github.com/white/campaign-manager/pkg/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const platformsCollection = "platforms"

type MongoPlatformRepository struct {
	client     *mongodb.Client
	collection *mongo.Collection
}

func NewMongoPlatformRepository(client *mongodb.Client) *MongoPlatformRepository {
	return &MongoPlatformRepository{
		client:     client,
		collection: client.Collection(platformsCollection),
	}
}

func PlatformIndexes() []mongodb.Index {
	return []mongodb.Index{
		{Collection: platformsCollection, Keys: bson.D{{Key: "name", Value: 1}}, Unique: true, Name: "name_unique"},
	}
}

func (r *MongoPlatformRepository) List(ctx context.Context) ([]models.Platform, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing platforms: %w", err)
	}
	defer cursor.Close(ctx)

	platforms := []models.Platform{}
	if err := cursor.All(ctx, &platforms); err != nil {
		return nil, fmt.Errorf("error decoding platforms: %w", err)
	}
	return platforms, nil
}

func (r *MongoPlatformRepository) GetByID(ctx context.Context, id string) (*models.Platform, error) {
	var platform models.Platform

	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&platform)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, WrapNotFound(err, ErrPlatformNotFound)
		}
		return nil, fmt.Errorf("error finding platform: %w", err)
	}
	return &platform, nil
}

// Upsert inserts the catalog entry or refreshes it by name, keeping its id.
func (r *MongoPlatformRepository) Upsert(ctx context.Context, platform *models.Platform) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"description":          platform.Description,
			"api_endpoints":        platform.APIEndpoints,
			"required_credentials": platform.RequiredCredentials,
			"capabilities":         platform.Capabilities,
			"status":               platform.Status,
			"updated_at":           now,
		},
		"$setOnInsert": bson.M{
			"_id":        uuid.MustNewUUID(),
			"created_at": now,
		},
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"name": platform.Name}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error upserting platform %s: %w", platform.Name, err)
	}
	return nil
}
