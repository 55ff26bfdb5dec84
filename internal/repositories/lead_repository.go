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

const leadsCollection = "leads"

type MongoLeadRepository struct {
	client     *mongodb.Client
	collection *mongo.Collection
}

func NewMongoLeadRepository(client *mongodb.Client) *MongoLeadRepository {
	return &MongoLeadRepository{
		client:     client,
		collection: client.Collection(leadsCollection),
	}
}

// LeadFilter narrows List; empty fields are ignored.
type LeadFilter struct {
	UserID     string
	CampaignID string
	Status     models.LeadStatus
}

// LeadIndexes includes the unique sync key (email, campaign, source platform).
func LeadIndexes() []mongodb.Index {
	return []mongodb.Index{
		{Collection: leadsCollection, Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}, Name: "user_created"},
		{
			Collection: leadsCollection,
			Keys:       bson.D{{Key: "email", Value: 1}, {Key: "campaign_id", Value: 1}, {Key: "source.platform", Value: 1}},
			Unique:     true,
			Name:       "lead_sync_key",
		},
	}
}

// Create inserts a lead. A collision on the sync key is reported as ErrDuplicateKey.
func (r *MongoLeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	now := time.Now().UTC()
	lead.ID = uuid.MustNewUUID()
	lead.CreatedAt = now
	lead.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, lead); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("lead %s for campaign %s: %w", lead.Email, lead.CampaignID, ErrDuplicateKey)
		}
		return fmt.Errorf("error creating lead: %w", err)
	}
	return nil
}

func (r *MongoLeadRepository) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead

	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&lead)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, WrapNotFound(err, ErrLeadNotFound)
		}
		return nil, fmt.Errorf("error finding lead: %w", err)
	}
	return &lead, nil
}

// Exists reports whether a lead with the sync key is already stored.
func (r *MongoLeadRepository) Exists(ctx context.Context, email, campaignID string, platform models.PlatformName) (bool, error) {
	filter := bson.M{
		"email":           email,
		"campaign_id":     campaignID,
		"source.platform": platform,
	}
	n, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("error checking lead: %w", err)
	}
	return n > 0, nil
}

func (r *MongoLeadRepository) List(ctx context.Context, f LeadFilter) ([]models.Lead, error) {
	filter := bson.M{}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.CampaignID != "" {
		filter["campaign_id"] = f.CampaignID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing leads: %w", err)
	}
	defer cursor.Close(ctx)

	leads := []models.Lead{}
	if err := cursor.All(ctx, &leads); err != nil {
		return nil, fmt.Errorf("error decoding leads: %w", err)
	}
	return leads, nil
}

func (r *MongoLeadRepository) Update(ctx context.Context, lead *models.Lead) error {
	lead.UpdatedAt = time.Now().UTC()

	update := bson.M{
		"$set": bson.M{
			"first_name":      lead.FirstName,
			"last_name":       lead.LastName,
			"email":           lead.Email,
			"phone":           lead.Phone,
			"status":          lead.Status,
			"additional_info": lead.AdditionalInfo,
			"updated_at":      lead.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": lead.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("lead %s for campaign %s: %w", lead.Email, lead.CampaignID, ErrDuplicateKey)
		}
		return fmt.Errorf("error updating lead: %w", err)
	}
	if result.MatchedCount == 0 {
		return WrapNotFound(mongo.ErrNoDocuments, ErrLeadNotFound)
	}
	return nil
}

func (r *MongoLeadRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("error deleting lead: %w", err)
	}
	if result.DeletedCount == 0 {
		return WrapNotFound(mongo.ErrNoDocuments, ErrLeadNotFound)
	}
	return nil
}
