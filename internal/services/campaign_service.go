package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/white/campaign-manager/internal/events"
	"github.com/white/campaign-manager/internal/models"
	"github.com/white/campaign-manager/internal/platforms"
	"github.com/white/campaign-manager/internal/repositories"
)

// CampaignResult is a campaign plus the platforms that failed while it was
// being changed. The operation itself succeeded.
type CampaignResult struct {
	Campaign       *models.Campaign  `json:"campaign"`
	PlatformErrors []PlatformFailure `json:"platformErrors,omitempty"`
}

// CampaignService keeps local campaigns and their vendor copies in step.
// Platforms are processed one at a time in the order of the campaign's
// platform list, and one platform's failure never stops the others.
type CampaignService struct {
	campaigns CampaignRepository
	users     UserRepository
	registry  AdapterRegistry
	events    EventPublisher
}

// NewCampaignService creates a CampaignService. publisher may be nil.
func NewCampaignService(campaigns CampaignRepository, users UserRepository, registry AdapterRegistry, publisher EventPublisher) *CampaignService {
	return &CampaignService{
		campaigns: campaigns,
		users:     users,
		registry:  registry,
		events:    publisher,
	}
}

// List returns the requester's campaigns. Admins may ask for all of them.
func (s *CampaignService) List(ctx context.Context, req Requester, all bool) ([]models.Campaign, error) {
	owner := req.UserID
	if all && req.IsAdmin() {
		owner = ""
	}
	return s.campaigns.List(ctx, owner)
}

func (s *CampaignService) Get(ctx context.Context, req Requester, id string) (*models.Campaign, error) {
	return s.load(ctx, req, id)
}

// Create saves the campaign locally, then creates it on every requested
// platform. A successful vendor create marks the link ACTIVE right away;
// a failed one marks it ERROR with the vendor message.
func (s *CampaignService) Create(ctx context.Context, req Requester, in CampaignInput) (*CampaignResult, error) {
	campaign, err := newCampaign(req.UserID, in)
	if err != nil {
		return nil, err
	}
	owner, err := s.owner(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to save campaign: %w", err)
	}

	if len(campaign.Platforms) == 0 {
		s.emit(events.EventCampaignCreated, req, campaign, "", nil)
		return &CampaignResult{Campaign: campaign}, nil
	}

	var failures []PlatformFailure
	for i := range campaign.Platforms {
		link := &campaign.Platforms[i]

		adapter, ok := s.registry.Lookup(link.Platform.Key())
		if !ok {
			msg := fmt.Sprintf("Integration not available for %s", link.Platform)
			link.Status = models.LinkStatusError
			link.Error = &msg
			failures = append(failures, PlatformFailure{Platform: link.Platform, Error: msg})
			continue
		}

		vendorID, err := adapter.CreateCampaign(ctx, campaign, owner)
		if err != nil {
			log.Printf("Error creating campaign on %s: %v", link.Platform, err)
			msg := err.Error()
			link.Status = models.LinkStatusError
			link.Error = &msg
			failures = append(failures, PlatformFailure{Platform: link.Platform, Error: msg})
			continue
		}
		if vendorID == "" {
			continue
		}
		link.PlatformCampaignID = &vendorID
		link.Status = models.LinkStatusActive
		link.Error = nil
	}

	if err := s.campaigns.SavePlatforms(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to save campaign platforms: %w", err)
	}

	s.emit(events.EventCampaignCreated, req, campaign, "", map[string]interface{}{
		"platforms":       len(campaign.Platforms),
		"platform_errors": len(failures),
	})
	return &CampaignResult{Campaign: campaign, PlatformErrors: failures}, nil
}

// Update changes the local fields, then pushes them to every platform the
// campaign was created on. Vendor failures are reported, not returned.
func (s *CampaignService) Update(ctx context.Context, req Requester, id string, in CampaignUpdate) (*CampaignResult, error) {
	campaign, err := s.load(ctx, req, id)
	if err != nil {
		return nil, err
	}

	in.apply(campaign)
	if err := validateCampaign(campaign); err != nil {
		return nil, err
	}

	owner, err := s.owner(ctx, campaign.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.campaigns.Update(ctx, campaign); err != nil {
		return nil, s.storeError(err, "update")
	}

	failures := s.eachRemote(ctx, campaign, "updating", func(a platforms.Adapter, link *models.PlatformLink) error {
		return a.UpdateCampaign(ctx, link.RemoteID(), campaign, owner)
	})

	s.emit(events.EventCampaignUpdated, req, campaign, "", nil)
	return &CampaignResult{Campaign: campaign, PlatformErrors: failures}, nil
}

// Delete removes the campaign from every platform it was created on, then
// deletes it locally even if some vendor deletes failed.
func (s *CampaignService) Delete(ctx context.Context, req Requester, id string) error {
	campaign, err := s.load(ctx, req, id)
	if err != nil {
		return err
	}
	owner, err := s.owner(ctx, campaign.UserID)
	if err != nil {
		return err
	}

	s.eachRemote(ctx, campaign, "deleting", func(a platforms.Adapter, link *models.PlatformLink) error {
		return a.DeleteCampaign(ctx, link.RemoteID(), owner)
	})

	if err := s.campaigns.Delete(ctx, campaign.ID); err != nil {
		return s.storeError(err, "delete")
	}

	s.emit(events.EventCampaignDeleted, req, campaign, "", nil)
	return nil
}

// SyncMetrics replaces the stored metrics of every created platform with the
// vendor's current numbers.
func (s *CampaignService) SyncMetrics(ctx context.Context, req Requester, id string) (*CampaignResult, error) {
	campaign, err := s.load(ctx, req, id)
	if err != nil {
		return nil, err
	}
	owner, err := s.owner(ctx, campaign.UserID)
	if err != nil {
		return nil, err
	}

	failures := s.eachRemote(ctx, campaign, "syncing metrics for", func(a platforms.Adapter, link *models.PlatformLink) error {
		metrics, err := a.GetCampaignMetrics(ctx, link.RemoteID(), owner)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		link.Metrics = metrics
		link.LastSynced = &now
		return nil
	})

	if err := s.campaigns.SavePlatforms(ctx, campaign); err != nil {
		return nil, s.storeError(err, "save metrics of")
	}

	s.emit(events.EventMetricsSynced, req, campaign, "", map[string]interface{}{
		"platform_errors": len(failures),
	})
	return &CampaignResult{Campaign: campaign, PlatformErrors: failures}, nil
}

// Launch activates the campaign on one platform after the vendor confirms it
// has ads to serve. The campaign becomes ACTIVE once every platform is.
func (s *CampaignService) Launch(ctx context.Context, req Requester, id, platformName string) (*models.Campaign, error) {
	p, ok := models.ParsePlatformName(platformName)
	if !ok {
		return nil, validationError("Invalid platform: %s", platformName)
	}
	campaign, err := s.load(ctx, req, id)
	if err != nil {
		return nil, err
	}
	if !campaign.Status.Launchable() {
		return nil, conflictError("Campaign is already %s", campaign.Status)
	}

	link := findLink(campaign, p)
	if link == nil {
		return nil, notFoundError("Platform %s not found in campaign", p)
	}
	if !link.HasRemoteID() {
		return nil, validationError("Campaign not yet created on %s", p)
	}
	if link.Status == models.LinkStatusActive {
		return nil, conflictError("Campaign already active on %s", p)
	}

	owner, err := s.owner(ctx, campaign.UserID)
	if err != nil {
		return nil, err
	}
	if !owner.IsConnected(p) {
		return nil, validationError("%s account not connected", p.DisplayName())
	}

	launcher, ok := s.registry.Launcher(p.Key())
	if !ok {
		return nil, validationError("Launch functionality not available for %s", p)
	}
	if err := launcher.LaunchCampaign(ctx, link.RemoteID(), owner); err != nil {
		log.Printf("Error launching campaign on %s: %v", p, err)
		if platforms.IsNotReady(err) {
			return nil, validationError("%s", err.Error())
		}
		return nil, err
	}

	link.Status = models.LinkStatusActive
	link.Error = nil
	if allActive(campaign.Platforms) {
		campaign.Status = models.CampaignStatusActive
	}

	if adapter, ok := s.registry.Lookup(p.Key()); ok {
		if metrics, err := adapter.GetCampaignMetrics(ctx, link.RemoteID(), owner); err != nil {
			log.Printf("Error fetching metrics after launch on %s: %v", p, err)
		} else {
			now := time.Now().UTC()
			link.Metrics = metrics
			link.LastSynced = &now
		}
	}

	if err := s.campaigns.SavePlatforms(ctx, campaign); err != nil {
		return nil, s.storeError(err, "save launch of")
	}

	s.emit(events.EventCampaignLaunched, req, campaign, p, nil)
	return campaign, nil
}

// eachRemote runs fn for every link that has a vendor id, in list order.
// Failures are logged and collected.
func (s *CampaignService) eachRemote(ctx context.Context, campaign *models.Campaign, action string, fn func(platforms.Adapter, *models.PlatformLink) error) []PlatformFailure {
	var failures []PlatformFailure
	for i := range campaign.Platforms {
		link := &campaign.Platforms[i]
		if !link.HasRemoteID() {
			continue
		}
		if ctx.Err() != nil {
			failures = append(failures, PlatformFailure{Platform: link.Platform, Error: ctx.Err().Error()})
			continue
		}

		adapter, ok := s.registry.Lookup(link.Platform.Key())
		if !ok {
			msg := fmt.Sprintf("Integration not available for %s", link.Platform)
			log.Printf("Error %s campaign on %s: %s", action, link.Platform, msg)
			failures = append(failures, PlatformFailure{Platform: link.Platform, Error: msg})
			continue
		}
		if err := fn(adapter, link); err != nil {
			log.Printf("Error %s campaign on %s: %v", action, link.Platform, err)
			failures = append(failures, PlatformFailure{Platform: link.Platform, Error: err.Error()})
		}
	}
	return failures
}

func (s *CampaignService) load(ctx context.Context, req Requester, id string) (*models.Campaign, error) {
	return loadCampaign(ctx, s.campaigns, req, id)
}

// owner loads the campaign owner whose credentials the adapters use. A
// missing user has no credentials, so every platform reports not connected.
func (s *CampaignService) owner(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return &models.User{ID: userID}, nil
		}
		return nil, fmt.Errorf("failed to load campaign owner: %w", err)
	}
	return user, nil
}

func (s *CampaignService) storeError(err error, action string) error {
	if repositories.IsNotFound(err) {
		return notFoundError("Campaign not found")
	}
	return fmt.Errorf("failed to %s campaign: %w", action, err)
}

func (s *CampaignService) emit(t events.EventType, req Requester, c *models.Campaign, p models.PlatformName, meta map[string]interface{}) {
	publish(s.events, &events.CampaignEvent{
		Type:       t,
		UserID:     req.UserID,
		CampaignID: c.ID,
		Platform:   string(p),
		Metadata:   meta,
	})
}

func findLink(c *models.Campaign, p models.PlatformName) *models.PlatformLink {
	for i := range c.Platforms {
		if c.Platforms[i].Platform == p {
			return &c.Platforms[i]
		}
	}
	return nil
}

func allActive(links []models.PlatformLink) bool {
	if len(links) == 0 {
		return false
	}
	for _, l := range links {
		if l.Status != models.LinkStatusActive {
			return false
		}
	}
	return true
}

// IsPlatformError reports whether err came from a vendor call.
func IsPlatformError(err error) bool {
	var pe *platforms.PlatformError
	return errors.As(err, &pe)
}
