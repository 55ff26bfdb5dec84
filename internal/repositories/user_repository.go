package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/white/campaign-manager/internal/models"
	"github.com/white/campaign-manager/pkg/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoUserRepository reads users owned by the auth service and maintains
// their platform credentials.
type MongoUserRepository struct {
	client     *mongodb.Client
	collection *mongo.Collection
}

func NewMongoUserRepository(client *mongodb.Client) *MongoUserRepository {
	return &MongoUserRepository{
		client:     client,
		collection: client.Collection("users"),
	}
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User

	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, WrapNotFound(err, ErrUserNotFound)
		}
		return nil, fmt.Errorf("error finding user: %w", err)
	}
	return &user, nil
}

// SetPlatformCredential replaces the credential slot of a connectable platform.
// Passing a cleared credential disconnects the platform.
func (r *MongoUserRepository) SetPlatformCredential(ctx context.Context, userID string, platform models.PlatformName, cred models.PlatformCredential) error {
	if !models.IsConnectable(platform) {
		return fmt.Errorf("platform %s has no credential slot", platform)
	}

	update := bson.M{
		"$set": bson.M{
			"platform_credentials." + platform.Key(): cred,
			"updated_at":                             time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("error updating %s credential: %w", platform.Key(), err)
	}
	if result.MatchedCount == 0 {
		return WrapNotFound(mongo.ErrNoDocuments, ErrUserNotFound)
	}
	return nil
}
