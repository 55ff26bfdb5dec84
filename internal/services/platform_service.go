package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/white/campaign-manager/config"
	"github.com/white/campaign-manager/internal/events"
	"github.com/white/campaign-manager/internal/models"
	"github.com/white/campaign-manager/internal/repositories"
)

// ConnectionStatus is what a connect or disconnect leaves behind.
type ConnectionStatus struct {
	Platform    models.PlatformName `json:"platform"`
	IsConnected bool                `json:"isConnected"`
	ExpiresAt   *time.Time          `json:"expiresAt,omitempty"`
}

// AppConfigStatus tells whether the OAuth app of a platform is configured.
// Secrets themselves are never returned.
type AppConfigStatus struct {
	Platform               models.PlatformName `json:"platform"`
	ClientIDConfigured     bool                `json:"clientIdConfigured"`
	ClientSecretConfigured bool                `json:"clientSecretConfigured"`
	Configured             bool                `json:"configured"`
}

// PlatformService connects users to ad platforms and serves the platform catalog.
type PlatformService struct {
	catalog  PlatformRepository
	users    UserRepository
	registry AdapterRegistry
	apps     config.PlatformsConfig
	accounts AccountInvalidator
	events   EventPublisher
}

// NewPlatformService creates a PlatformService. accounts and publisher may be nil.
func NewPlatformService(catalog PlatformRepository, users UserRepository, registry AdapterRegistry, apps config.PlatformsConfig, accounts AccountInvalidator, publisher EventPublisher) *PlatformService {
	return &PlatformService{
		catalog:  catalog,
		users:    users,
		registry: registry,
		apps:     apps,
		accounts: accounts,
		events:   publisher,
	}
}

func (s *PlatformService) ListCatalog(ctx context.Context) ([]models.Platform, error) {
	return s.catalog.List(ctx)
}

func (s *PlatformService) GetCatalogEntry(ctx context.Context, id string) (*models.Platform, error) {
	p, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, notFoundError("Platform not found")
		}
		return nil, err
	}
	return p, nil
}

// SeedCatalog writes one catalog entry per supported platform.
func (s *PlatformService) SeedCatalog(ctx context.Context) error {
	for _, p := range models.AllPlatforms {
		entry := s.catalogEntry(p)
		if err := s.catalog.Upsert(ctx, &entry); err != nil {
			return err
		}
	}
	log.Printf("Platform catalog seeded with %d platforms", len(models.AllPlatforms))
	return nil
}

func (s *PlatformService) catalogEntry(p models.PlatformName) models.Platform {
	caps := []models.Capability{
		models.CapabilityCreateCampaign, models.CapabilityReadCampaign,
		models.CapabilityUpdateCampaign, models.CapabilityDeleteCampaign,
		models.CapabilityReadMetrics,
	}
	switch p.CredentialOwner() {
	case models.PlatformFacebook:
		caps = append(caps, models.CapabilityCreateAd, models.CapabilityReadAd, models.CapabilityReadLeads, models.CapabilityExportLeads)
	case models.PlatformGoogle, models.PlatformLinkedIn:
		caps = append(caps, models.CapabilityReadLeads, models.CapabilityExportLeads)
	}

	owner := p.CredentialOwner()
	entry := models.Platform{
		Name:         p,
		Description:  fmt.Sprintf("%s advertising", p.DisplayName()),
		Capabilities: caps,
		Status:       models.PlatformStatusActive,
		RequiredCredentials: []models.RequiredCredential{
			{Name: "accessToken", Description: fmt.Sprintf("%s OAuth access token", owner.DisplayName()), IsRequired: true},
		},
	}
	if owner == models.PlatformTwitter {
		entry.RequiredCredentials = append(entry.RequiredCredentials,
			models.RequiredCredential{Name: "accessTokenSecret", Description: "Twitter OAuth 1.0a token secret", IsRequired: true})
	}
	if app, ok := s.apps.App(owner.Key()); ok && app.APIURL != "" {
		entry.APIEndpoints = map[string]string{"base": app.APIURL}
	}
	return entry
}

// Connect exchanges an authorization code and stores the credential on the user.
func (s *PlatformService) Connect(ctx context.Context, req Requester, platform, code, redirectURI string) (*ConnectionStatus, error) {
	p, err := connectablePlatform(platform)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, validationError("Authorization code is required")
	}

	adapter, ok := s.registry.Lookup(p.Key())
	if !ok {
		return nil, validationError("Integration not available for %s", p)
	}
	cred, err := adapter.ExchangeCodeForTokens(ctx, code, redirectURI)
	if err != nil {
		log.Printf("Error connecting %s for user %s: %v", p, req.UserID, err)
		return nil, err
	}
	cred.IsConnected = true

	if err := s.saveCredential(ctx, req, p, *cred); err != nil {
		return nil, err
	}

	s.emit(events.EventPlatformConnected, req, p)
	return &ConnectionStatus{Platform: p, IsConnected: true, ExpiresAt: cred.ExpiresAt}, nil
}

// Disconnect clears the user's credential for the platform.
func (s *PlatformService) Disconnect(ctx context.Context, req Requester, platform string) (*ConnectionStatus, error) {
	p, err := connectablePlatform(platform)
	if err != nil {
		return nil, err
	}
	if err := s.saveCredential(ctx, req, p, models.PlatformCredential{}); err != nil {
		return nil, err
	}

	s.emit(events.EventPlatformDisconnected, req, p)
	return &ConnectionStatus{Platform: p, IsConnected: false}, nil
}

// ConnectedPlatforms maps each connectable platform key to its connection state.
func (s *PlatformService) ConnectedPlatforms(ctx context.Context, req Requester) (map[string]bool, error) {
	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, notFoundError("User not found")
		}
		return nil, err
	}

	connected := make(map[string]bool, len(models.ConnectablePlatforms))
	for _, p := range models.ConnectablePlatforms {
		connected[p.Key()] = user.IsConnected(p)
	}
	return connected, nil
}

// ConfigStatus reports whether the OAuth app used by a platform is configured.
func (s *PlatformService) ConfigStatus(platform string) (*AppConfigStatus, error) {
	p, ok := models.ParsePlatformName(platform)
	if !ok {
		return nil, validationError("Invalid platform: %s", platform)
	}
	app, _ := s.apps.App(p.CredentialOwner().Key())
	return &AppConfigStatus{
		Platform:               p,
		ClientIDConfigured:     app.ClientID != "",
		ClientSecretConfigured: app.ClientSecret != "",
		Configured:             app.Configured(),
	}, nil
}

func (s *PlatformService) saveCredential(ctx context.Context, req Requester, p models.PlatformName, cred models.PlatformCredential) error {
	if err := s.users.SetPlatformCredential(ctx, req.UserID, p, cred); err != nil {
		if repositories.IsNotFound(err) {
			return notFoundError("User not found")
		}
		return fmt.Errorf("failed to save %s credential: %w", p.Key(), err)
	}
	if s.accounts != nil {
		if err := s.accounts.Invalidate(ctx, p, req.UserID); err != nil {
			log.Printf("Failed to invalidate cached ad accounts for %s: %v", p, err)
		}
	}
	return nil
}

func (s *PlatformService) emit(t events.EventType, req Requester, p models.PlatformName) {
	publish(s.events, &events.CampaignEvent{
		Type:     t,
		UserID:   req.UserID,
		Platform: string(p),
	})
}

// connectablePlatform accepts only platforms that own a credential;
// Instagram, WhatsApp and YouTube connect through their parent platform.
func connectablePlatform(name string) (models.PlatformName, error) {
	p, ok := models.ParsePlatformName(name)
	if !ok || !models.IsConnectable(p) {
		return "", validationError("Invalid platform: %s", name)
	}
	return p, nil
}
