package services

import (
	"context"

	"github.com/white/campaign-manager/internal/events"
	"github.com/white/campaign-manager/internal/models"
	"github.com/white/campaign-manager/internal/platforms"
	"github.com/white/campaign-manager/internal/repositories"
)

// CampaignRepository is the campaign persistence the services need.
type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	List(ctx context.Context, userID string) ([]models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	SavePlatforms(ctx context.Context, campaign *models.Campaign) error
	Delete(ctx context.Context, id string) error
}

type LeadRepository interface {
	Create(ctx context.Context, lead *models.Lead) error
	GetByID(ctx context.Context, id string) (*models.Lead, error)
	Exists(ctx context.Context, email, campaignID string, platform models.PlatformName) (bool, error)
	List(ctx context.Context, f repositories.LeadFilter) ([]models.Lead, error)
	Update(ctx context.Context, lead *models.Lead) error
	Delete(ctx context.Context, id string) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	SetPlatformCredential(ctx context.Context, userID string, platform models.PlatformName, cred models.PlatformCredential) error
}

type PlatformRepository interface {
	List(ctx context.Context) ([]models.Platform, error)
	GetByID(ctx context.Context, id string) (*models.Platform, error)
	Upsert(ctx context.Context, platform *models.Platform) error
}

// AdapterRegistry resolves platform names to vendor adapters.
type AdapterRegistry interface {
	Lookup(name string) (platforms.Adapter, bool)
	Launcher(name string) (platforms.Launcher, bool)
}

// EventPublisher receives domain events. It may be nil.
type EventPublisher interface {
	Publish(event *events.CampaignEvent)
}

// AccountInvalidator drops cached ad accounts when a credential changes.
type AccountInvalidator interface {
	Invalidate(ctx context.Context, owner models.PlatformName, userID string) error
}

// PlatformFailure is one platform's error inside an otherwise successful result.
type PlatformFailure struct {
	Platform models.PlatformName `json:"platform"`
	Error    string              `json:"error"`
}

func publish(p EventPublisher, event *events.CampaignEvent) {
	if p != nil {
		p.Publish(event)
	}
}
