// Package bootstrap wires the stores, vendor adapters and services shared by
// the API server and the sync processor.
package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/white/campaign-manager/config"
	"github.com/white/campaign-manager/internal/cache"
	"github.com/white/campaign-manager/internal/events"
	"github.com/white/campaign-manager/internal/handlers"
	"github.com/white/campaign-manager/internal/platforms"
	"github.com/white/campaign-manager/internal/repositories"
	"github.com/white/campaign-manager/internal/services"
	"github.com/white/campaign-manager/pkg/kafka"
	"github.com/white/campaign-manager/pkg/mongodb"
)

type App struct {
	Config    *config.Config
	Mongo     *mongodb.Client
	Redis     *redis.Client
	Producer  *kafka.Producer
	Campaigns *services.CampaignService
	Leads     *services.LeadService
	Platforms *services.PlatformService
	SyncQueue *events.SyncQueue
}

// Build connects to MongoDB (required), Redis and Kafka (optional) and
// constructs the services.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	mongoClient, err := mongodb.NewClient(mongodb.Config{
		URI:         cfg.MongoDB.URI,
		Database:    cfg.MongoDB.Database,
		MaxPoolSize: cfg.MongoDB.MaxPoolSize,
		MinPoolSize: cfg.MongoDB.MinPoolSize,
		MaxRetries:  cfg.MongoDB.MaxRetries,
		TLSCAFile:   cfg.MongoDB.TLSCAFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	app.Mongo = mongoClient

	var indexes []mongodb.Index
	indexes = append(indexes, repositories.CampaignIndexes()...)
	indexes = append(indexes, repositories.LeadIndexes()...)
	indexes = append(indexes, repositories.PlatformIndexes()...)
	if err := mongoClient.EnsureIndexes(ctx, indexes); err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	if cfg.Redis.URL != "" {
		client, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			log.Printf("Redis unavailable, ad account caching disabled: %v", err)
		} else {
			app.Redis = client
		}
	}

	// The interface stays nil unless a producer exists, so the publisher logs only.
	var producer events.JSONProducer
	if len(cfg.Kafka.Brokers) > 0 {
		p, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			log.Printf("Kafka unavailable, events will only be logged: %v", err)
		} else {
			app.Producer = p
			producer = p
		}
	}

	publisher := events.NewCampaignPublisher(producer, cfg.Kafka.Topics.CampaignEvents)
	app.SyncQueue = events.NewSyncQueue(producer, cfg.Kafka.Topics.SyncRequests)

	accounts := cache.NewAdAccountCache(app.Redis, cfg.Redis.AdAccountTTL)
	registry := platforms.NewDefaultRegistry(platforms.RegistryOptions{
		Transport:      platforms.NewTransport(cfg.Platforms.HTTPTimeout),
		Accounts:       accounts,
		Facebook:       platforms.Options{App: cfg.Platforms.Facebook},
		Google:         platforms.Options{App: cfg.Platforms.Google},
		LinkedIn:       platforms.Options{App: cfg.Platforms.LinkedIn},
		Twitter:        platforms.Options{App: cfg.Platforms.Twitter},
		Snapchat:       platforms.Options{App: cfg.Platforms.Snapchat},
		DeveloperToken: cfg.Platforms.DeveloperToken,
	})

	campaignRepo := repositories.NewMongoCampaignRepository(mongoClient)
	leadRepo := repositories.NewMongoLeadRepository(mongoClient)
	userRepo := repositories.NewMongoUserRepository(mongoClient)
	platformRepo := repositories.NewMongoPlatformRepository(mongoClient)

	app.Campaigns = services.NewCampaignService(campaignRepo, userRepo, registry, publisher)
	app.Leads = services.NewLeadService(leadRepo, campaignRepo, userRepo, registry, publisher)
	app.Platforms = services.NewPlatformService(platformRepo, userRepo, registry, cfg.Platforms, accounts, publisher)

	return app, nil
}

// HealthChecks returns a probe per connected dependency.
func (a *App) HealthChecks() map[string]handlers.CheckFunc {
	checks := map[string]handlers.CheckFunc{
		"mongodb": a.Mongo.Ping,
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}
	}
	return checks
}

// Close flushes pending events and releases connections.
func (a *App) Close(ctx context.Context) {
	if a.Producer != nil {
		a.Producer.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.Printf("Error closing Redis: %v", err)
		}
	}
	if err := a.Mongo.Close(ctx); err != nil {
		log.Printf("Error closing MongoDB: %v", err)
	}
}
