package services

import (
	"strings"
	"time"

	"github.com/white/campaign-manager/internal/models"
)

const (
	minAudienceAge  = 13
	maxAudienceAge  = 65
	defaultCurrency = "USD"
)

// PlatformSelection is one platform requested on create.
type PlatformSelection struct {
	Platform string  `json:"platform"`
	Budget   float64 `json:"budget,omitempty"`
}

// CampaignInput is the payload of a campaign create.
type CampaignInput struct {
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	Objective      models.Objective       `json:"objective"`
	Budget         models.Budget          `json:"budget"`
	StartDate      *time.Time             `json:"startDate"`
	EndDate        *time.Time             `json:"endDate,omitempty"`
	TargetAudience *models.TargetAudience `json:"targetAudience,omitempty"`
	CreativeAssets []models.CreativeAsset `json:"creativeAssets,omitempty"`
	Status         models.CampaignStatus  `json:"status,omitempty"`
	Platforms      []PlatformSelection    `json:"platforms"`
}

// CampaignUpdate carries the fields to change; nil fields are left alone.
// Platforms cannot be changed after create.
type CampaignUpdate struct {
	Name           *string                 `json:"name,omitempty"`
	Description    *string                 `json:"description,omitempty"`
	Objective      *models.Objective       `json:"objective,omitempty"`
	Budget         *models.Budget          `json:"budget,omitempty"`
	StartDate      *time.Time              `json:"startDate,omitempty"`
	EndDate        *time.Time              `json:"endDate,omitempty"`
	TargetAudience *models.TargetAudience  `json:"targetAudience,omitempty"`
	CreativeAssets *[]models.CreativeAsset `json:"creativeAssets,omitempty"`
	Status         *models.CampaignStatus  `json:"status,omitempty"`
}

func (u CampaignUpdate) apply(c *models.Campaign) {
	if u.Name != nil {
		c.Name = strings.TrimSpace(*u.Name)
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
	if u.Objective != nil {
		c.Objective = *u.Objective
	}
	if u.Budget != nil {
		c.Budget = *u.Budget
	}
	if u.StartDate != nil {
		c.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		end := *u.EndDate
		c.EndDate = &end
	}
	if u.TargetAudience != nil {
		c.TargetAudience = u.TargetAudience
	}
	if u.CreativeAssets != nil {
		c.CreativeAssets = *u.CreativeAssets
	}
	if u.Status != nil {
		c.Status = *u.Status
	}
}

// newCampaign validates the input and builds an unsaved campaign with
// one PENDING link per requested platform.
func newCampaign(ownerID string, in CampaignInput) (*models.Campaign, error) {
	if in.StartDate == nil {
		return nil, validationError("Start date is required")
	}

	c := &models.Campaign{
		UserID:         ownerID,
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		Objective:      in.Objective,
		Budget:         in.Budget,
		StartDate:      *in.StartDate,
		EndDate:        in.EndDate,
		TargetAudience: in.TargetAudience,
		CreativeAssets: in.CreativeAssets,
		Status:         in.Status,
	}
	if c.Status == "" {
		c.Status = models.CampaignStatusDraft
	}
	if err := validateCampaign(c); err != nil {
		return nil, err
	}

	links, err := platformLinks(in.Platforms)
	if err != nil {
		return nil, err
	}
	c.Platforms = links
	return c, nil
}

func platformLinks(selected []PlatformSelection) ([]models.PlatformLink, error) {
	links := make([]models.PlatformLink, 0, len(selected))
	seen := make(map[models.PlatformName]bool, len(selected))
	for _, sel := range selected {
		p, ok := models.ParsePlatformName(sel.Platform)
		if !ok {
			return nil, validationError("Invalid platform: %s", sel.Platform)
		}
		if seen[p] {
			return nil, validationError("Duplicate platform: %s", p)
		}
		if sel.Budget < 0 {
			return nil, validationError("Budget for %s cannot be negative", p)
		}
		seen[p] = true
		links = append(links, models.PlatformLink{
			Platform: p,
			Status:   models.LinkStatusPending,
			Budget:   sel.Budget,
		})
	}
	return links, nil
}

// validateCampaign checks the local fields of a campaign and fills the
// default currency.
func validateCampaign(c *models.Campaign) error {
	if c.Name == "" {
		return validationError("Campaign name is required")
	}
	if !c.Objective.IsValid() {
		if c.Objective == "" {
			return validationError("Objective is required")
		}
		return validationError("Invalid objective: %s", c.Objective)
	}
	if !c.Status.IsValid() {
		return validationError("Invalid status: %s", c.Status)
	}
	if c.Budget.Daily < 0 || c.Budget.Lifetime < 0 {
		return validationError("Budget cannot be negative")
	}
	if c.Budget.Currency == "" {
		c.Budget.Currency = defaultCurrency
	}
	if c.StartDate.IsZero() {
		return validationError("Start date is required")
	}
	if c.EndDate != nil && !c.EndDate.After(c.StartDate) {
		return validationError("End date must be after start date")
	}
	if err := validateAudience(c.TargetAudience); err != nil {
		return err
	}
	for _, asset := range c.CreativeAssets {
		if !asset.Type.IsValid() {
			return validationError("Invalid creative asset type: %s", asset.Type)
		}
		if strings.TrimSpace(asset.URL) == "" {
			return validationError("Creative asset URL is required")
		}
	}
	return nil
}

func validateAudience(a *models.TargetAudience) error {
	if a == nil {
		return nil
	}
	if r := a.AgeRange; r != nil {
		if r.Min < minAudienceAge || r.Max > maxAudienceAge {
			return validationError("Age range must be between %d and %d", minAudienceAge, maxAudienceAge)
		}
		if r.Min > r.Max {
			return validationError("Minimum age cannot be greater than maximum age")
		}
	}
	for _, g := range a.Genders {
		switch g {
		case "MALE", "FEMALE", "ALL":
		default:
			return validationError("Invalid gender: %s", g)
		}
	}
	return nil
}
