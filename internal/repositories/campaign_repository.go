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

const campaignsCollection = "campaigns"

type MongoCampaignRepository struct {
	client     *mongodb.Client
	collection *mongo.Collection
}

func NewMongoCampaignRepository(client *mongodb.Client) *MongoCampaignRepository {
	return &MongoCampaignRepository{
		client:     client,
		collection: client.Collection(campaignsCollection),
	}
}

// CampaignIndexes are the indexes the campaign queries rely on.
func CampaignIndexes() []mongodb.Index {
	return []mongodb.Index{
		{Collection: campaignsCollection, Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}, Name: "user_created"},
	}
}

// Create inserts a new campaign, assigning its id and timestamps.
func (r *MongoCampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	now := time.Now().UTC()
	campaign.ID = uuid.MustNewUUID()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now
	if campaign.Platforms == nil {
		campaign.Platforms = []models.PlatformLink{}
	}

	if _, err := r.collection.InsertOne(ctx, campaign); err != nil {
		return fmt.Errorf("error creating campaign: %w", err)
	}
	return nil
}

func (r *MongoCampaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	var campaign models.Campaign

	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&campaign)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, WrapNotFound(err, ErrCampaignNotFound)
		}
		return nil, fmt.Errorf("error finding campaign: %w", err)
	}
	return &campaign, nil
}

// List returns campaigns newest first. An empty userID lists every campaign.
func (r *MongoCampaignRepository) List(ctx context.Context, userID string) ([]models.Campaign, error) {
	filter := bson.M{}
	if userID != "" {
		filter["user_id"] = userID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing campaigns: %w", err)
	}
	defer cursor.Close(ctx)

	campaigns := []models.Campaign{}
	if err := cursor.All(ctx, &campaigns); err != nil {
		return nil, fmt.Errorf("error decoding campaigns: %w", err)
	}
	return campaigns, nil
}

// Update writes every mutable field of the campaign.
func (r *MongoCampaignRepository) Update(ctx context.Context, campaign *models.Campaign) error {
	campaign.UpdatedAt = time.Now().UTC()

	update := bson.M{
		"$set": bson.M{
			"name":            campaign.Name,
			"description":     campaign.Description,
			"objective":       campaign.Objective,
			"budget":          campaign.Budget,
			"start_date":      campaign.StartDate,
			"end_date":        campaign.EndDate,
			"target_audience": campaign.TargetAudience,
			"creative_assets": campaign.CreativeAssets,
			"status":          campaign.Status,
			"platforms":       campaign.Platforms,
			"updated_at":      campaign.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": campaign.ID}, update)
	if err != nil {
		return fmt.Errorf("error updating campaign: %w", err)
	}
	if result.MatchedCount == 0 {
		return WrapNotFound(mongo.ErrNoDocuments, ErrCampaignNotFound)
	}
	return nil
}

// SavePlatforms persists the platforms array and aggregate status in one write.
func (r *MongoCampaignRepository) SavePlatforms(ctx context.Context, campaign *models.Campaign) error {
	campaign.UpdatedAt = time.Now().UTC()

	update := bson.M{
		"$set": bson.M{
			"platforms":  campaign.Platforms,
			"status":     campaign.Status,
			"updated_at": campaign.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": campaign.ID}, update)
	if err != nil {
		return fmt.Errorf("error saving campaign platforms: %w", err)
	}
	if result.MatchedCount == 0 {
		return WrapNotFound(mongo.ErrNoDocuments, ErrCampaignNotFound)
	}
	return nil
}

func (r *MongoCampaignRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("error deleting campaign: %w", err)
	}
	if result.DeletedCount == 0 {
		return WrapNotFound(mongo.ErrNoDocuments, ErrCampaignNotFound)
	}
	return nil
}
