package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/white/campaign-manager/internal/events"
	"github.com/white/campaign-manager/internal/models"
	"github.com/white/campaign-manager/internal/platforms"
	"github.com/white/campaign-manager/internal/repositories"
)

// LeadQuery filters a lead listing. All is honored for admins only.
type LeadQuery struct {
	CampaignID string
	Status     models.LeadStatus
	All        bool
}

// LeadInput is the payload of a manual lead create.
type LeadInput struct {
	CampaignID     string            `json:"campaignId"`
	FirstName      string            `json:"firstName"`
	LastName       string            `json:"lastName"`
	Email          string            `json:"email"`
	Phone          string            `json:"phone,omitempty"`
	Source         models.LeadSource `json:"source"`
	Status         models.LeadStatus `json:"status,omitempty"`
	AdditionalInfo map[string]string `json:"additionalInfo,omitempty"`
}

// LeadUpdate carries the lead fields to change; nil fields are left alone.
type LeadUpdate struct {
	FirstName      *string            `json:"firstName,omitempty"`
	LastName       *string            `json:"lastName,omitempty"`
	Email          *string            `json:"email,omitempty"`
	Phone          *string            `json:"phone,omitempty"`
	Status         *models.LeadStatus `json:"status,omitempty"`
	AdditionalInfo map[string]string  `json:"additionalInfo,omitempty"`
}

// LeadSyncResult reports how many leads a sync stored.
type LeadSyncResult struct {
	NewLeads       int               `json:"newLeads"`
	PlatformErrors []PlatformFailure `json:"platformErrors,omitempty"`
}

// LeadService manages leads and pulls new ones from the ad platforms.
type LeadService struct {
	leads     LeadRepository
	campaigns CampaignRepository
	users     UserRepository
	registry  AdapterRegistry
	events    EventPublisher
}

func NewLeadService(leads LeadRepository, campaigns CampaignRepository, users UserRepository, registry AdapterRegistry, publisher EventPublisher) *LeadService {
	return &LeadService{
		leads:     leads,
		campaigns: campaigns,
		users:     users,
		registry:  registry,
		events:    publisher,
	}
}

func (s *LeadService) List(ctx context.Context, req Requester, q LeadQuery) ([]models.Lead, error) {
	if q.Status != "" && !q.Status.IsValid() {
		return nil, validationError("Invalid lead status: %s", q.Status)
	}
	filter := repositories.LeadFilter{CampaignID: q.CampaignID, Status: q.Status}
	if !(q.All && req.IsAdmin()) {
		filter.UserID = req.UserID
	}
	return s.leads.List(ctx, filter)
}

func (s *LeadService) Get(ctx context.Context, req Requester, id string) (*models.Lead, error) {
	return s.load(ctx, req, id)
}

// Create stores a lead entered by hand against one of the requester's campaigns.
func (s *LeadService) Create(ctx context.Context, req Requester, in LeadInput) (*models.Lead, error) {
	if in.CampaignID == "" {
		return nil, validationError("Campaign is required")
	}
	lead := &models.Lead{
		CampaignID:     in.CampaignID,
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Email:          strings.TrimSpace(in.Email),
		Phone:          in.Phone,
		Source:         in.Source,
		Status:         in.Status,
		AdditionalInfo: in.AdditionalInfo,
	}
	if lead.Status == "" {
		lead.Status = models.LeadStatusNew
	}
	p, ok := models.ParsePlatformName(string(in.Source.Platform))
	if !ok {
		return nil, validationError("Invalid lead source platform: %s", in.Source.Platform)
	}
	lead.Source.Platform = p
	if err := validateLead(lead); err != nil {
		return nil, err
	}

	campaign, err := loadCampaign(ctx, s.campaigns, req, in.CampaignID)
	if err != nil {
		return nil, err
	}
	lead.UserID = campaign.UserID

	exists, err := s.leads.Exists(ctx, lead.Email, lead.CampaignID, lead.Source.Platform)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, conflictError("Lead with email %s already exists for this campaign and platform", lead.Email)
	}
	if err := s.leads.Create(ctx, lead); err != nil {
		if repositories.IsDuplicateKey(err) {
			return nil, conflictError("Lead with email %s already exists for this campaign and platform", lead.Email)
		}
		return nil, fmt.Errorf("failed to save lead: %w", err)
	}
	return lead, nil
}

func (s *LeadService) Update(ctx context.Context, req Requester, id string, in LeadUpdate) (*models.Lead, error) {
	lead, err := s.load(ctx, req, id)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		lead.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		lead.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Email != nil {
		lead.Email = strings.TrimSpace(*in.Email)
	}
	if in.Phone != nil {
		lead.Phone = *in.Phone
	}
	if in.Status != nil {
		lead.Status = *in.Status
	}
	if in.AdditionalInfo != nil {
		lead.AdditionalInfo = in.AdditionalInfo
	}
	if err := validateLead(lead); err != nil {
		return nil, err
	}

	if err := s.leads.Update(ctx, lead); err != nil {
		if repositories.IsNotFound(err) {
			return nil, notFoundError("Lead not found")
		}
		if repositories.IsDuplicateKey(err) {
			return nil, conflictError("Lead with email %s already exists for this campaign and platform", lead.Email)
		}
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}
	return lead, nil
}

func (s *LeadService) Delete(ctx context.Context, req Requester, id string) error {
	lead, err := s.load(ctx, req, id)
	if err != nil {
		return err
	}
	if err := s.leads.Delete(ctx, lead.ID); err != nil {
		if repositories.IsNotFound(err) {
			return notFoundError("Lead not found")
		}
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	return nil
}

// SyncCampaignLeads pulls leads from every platform the campaign was created
// on and stores those not seen before. A lead is known by its email, the
// campaign and the source platform.
func (s *LeadService) SyncCampaignLeads(ctx context.Context, req Requester, campaignID string) (*LeadSyncResult, error) {
	campaign, err := loadCampaign(ctx, s.campaigns, req, campaignID)
	if err != nil {
		return nil, err
	}
	owner, err := s.users.GetByID(ctx, campaign.UserID)
	if err != nil {
		if !repositories.IsNotFound(err) {
			return nil, fmt.Errorf("failed to load campaign owner: %w", err)
		}
		owner = &models.User{ID: campaign.UserID}
	}

	result := &LeadSyncResult{}
	for _, link := range campaign.Platforms {
		if !link.HasRemoteID() {
			continue
		}

		adapter, ok := s.registry.Lookup(link.Platform.Key())
		if !ok {
			msg := fmt.Sprintf("Integration not available for %s", link.Platform)
			log.Printf("Error syncing leads on %s: %s", link.Platform, msg)
			result.PlatformErrors = append(result.PlatformErrors, PlatformFailure{Platform: link.Platform, Error: msg})
			continue
		}

		raw, err := adapter.GetCampaignLeads(ctx, link.RemoteID(), owner)
		if err != nil {
			log.Printf("Error syncing leads on %s: %v", link.Platform, err)
			result.PlatformErrors = append(result.PlatformErrors, PlatformFailure{Platform: link.Platform, Error: err.Error()})
			continue
		}

		added, err := s.storeNew(ctx, campaign, link, raw)
		result.NewLeads += added
		if err != nil {
			log.Printf("Error storing leads from %s: %v", link.Platform, err)
			result.PlatformErrors = append(result.PlatformErrors, PlatformFailure{Platform: link.Platform, Error: err.Error()})
		}
	}

	publish(s.events, &events.CampaignEvent{
		Type:       events.EventLeadsSynced,
		UserID:     req.UserID,
		CampaignID: campaign.ID,
		Metadata:   map[string]interface{}{"new_leads": result.NewLeads},
	})
	return result, nil
}

// storeNew checks each lead before inserting it so a repeat later in the
// same batch is skipped too. Rows that would fail manual validation are
// logged and dropped.
func (s *LeadService) storeNew(ctx context.Context, campaign *models.Campaign, link models.PlatformLink, raw []platforms.RawLead) (int, error) {
	added := 0
	for _, r := range raw {
		email := strings.TrimSpace(r.Email)
		if email == "" {
			continue
		}

		lead := &models.Lead{
			UserID:     campaign.UserID,
			CampaignID: campaign.ID,
			FirstName:  strings.TrimSpace(r.FirstName),
			LastName:   strings.TrimSpace(r.LastName),
			Email:      email,
			Phone:      r.Phone,
			Source: models.LeadSource{
				Platform:   link.Platform,
				CampaignID: link.RemoteID(),
				AdID:       r.AdID,
			},
			Status:         models.LeadStatusNew,
			AdditionalInfo: r.AdditionalInfo,
		}
		if err := validateLead(lead); err != nil {
			log.Printf("Skipping %s lead %q for campaign %s: %v", link.Platform, email, campaign.ID, err)
			continue
		}

		exists, err := s.leads.Exists(ctx, email, campaign.ID, link.Platform)
		if err != nil {
			return added, err
		}
		if exists {
			continue
		}

		if err := s.leads.Create(ctx, lead); err != nil {
			if repositories.IsDuplicateKey(err) {
				continue
			}
			return added, err
		}
		added++
	}
	return added, nil
}

func (s *LeadService) load(ctx context.Context, req Requester, id string) (*models.Lead, error) {
	lead, err := s.leads.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, notFoundError("Lead not found")
		}
		return nil, fmt.Errorf("failed to load lead: %w", err)
	}
	if !req.CanAccess(lead.UserID) {
		return nil, unauthorizedError("Not authorized to access this lead")
	}
	return lead, nil
}

func validateLead(l *models.Lead) error {
	if l.FirstName == "" {
		return validationError("First name is required")
	}
	if l.LastName == "" {
		return validationError("Last name is required")
	}
	if !models.ValidEmail(l.Email) {
		return validationError("Please provide a valid email")
	}
	if !l.Status.IsValid() {
		return validationError("Invalid lead status: %s", l.Status)
	}
	return nil
}

// loadCampaign fetches a campaign the requester may act on.
func loadCampaign(ctx context.Context, repo CampaignRepository, req Requester, id string) (*models.Campaign, error) {
	campaign, err := repo.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, notFoundError("Campaign not found")
		}
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	if !req.CanAccess(campaign.UserID) {
		return nil, unauthorizedError("Not authorized to access this campaign")
	}
	return campaign, nil
}
