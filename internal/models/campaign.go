package models

import (
	"strings"
	"time"
)

// Campaign is a user's advertising campaign and its per-platform fan-out.
// Collection: campaigns
type Campaign struct {
	ID             string          `bson:"_id,omitempty" json:"id"`
	UserID         string          `bson:"user_id" json:"userId"`
	Name           string          `bson:"name" json:"name"`
	Description    string          `bson:"description,omitempty" json:"description,omitempty"`
	Objective      Objective       `bson:"objective" json:"objective"`
	Budget         Budget          `bson:"budget" json:"budget"`
	StartDate      time.Time       `bson:"start_date" json:"startDate"`
	EndDate        *time.Time      `bson:"end_date,omitempty" json:"endDate,omitempty"`
	TargetAudience *TargetAudience `bson:"target_audience,omitempty" json:"targetAudience,omitempty"`
	CreativeAssets []CreativeAsset `bson:"creative_assets,omitempty" json:"creativeAssets,omitempty"`
	Status         CampaignStatus  `bson:"status" json:"status"`
	Platforms      []PlatformLink  `bson:"platforms" json:"platforms"`
	CreatedAt      time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time       `bson:"updated_at" json:"updatedAt"`
}

type Budget struct {
	Daily    float64 `bson:"daily,omitempty" json:"daily,omitempty"`
	Lifetime float64 `bson:"lifetime,omitempty" json:"lifetime,omitempty"`
	Currency string  `bson:"currency" json:"currency"`
}

type AgeRange struct {
	Min int `bson:"min" json:"min"`
	Max int `bson:"max" json:"max"`
}

type TargetAudience struct {
	Locations []string  `bson:"locations,omitempty" json:"locations,omitempty"`
	AgeRange  *AgeRange `bson:"age_range,omitempty" json:"ageRange,omitempty"`
	Genders   []string  `bson:"genders,omitempty" json:"genders,omitempty"` // MALE, FEMALE, ALL
	Interests []string  `bson:"interests,omitempty" json:"interests,omitempty"`
	Languages []string  `bson:"languages,omitempty" json:"languages,omitempty"`
}

type CreativeAsset struct {
	Type         AssetType `bson:"type" json:"type"`
	URL          string    `bson:"url" json:"url"`
	Title        string    `bson:"title,omitempty" json:"title,omitempty"`
	Description  string    `bson:"description,omitempty" json:"description,omitempty"`
	CallToAction string    `bson:"call_to_action,omitempty" json:"callToAction,omitempty"`
}

// PlatformLink is the state of a campaign on one ad platform.
type PlatformLink struct {
	Platform           PlatformName `bson:"platform" json:"platform"`
	PlatformCampaignID *string      `bson:"platform_campaign_id,omitempty" json:"platformCampaignId,omitempty"`
	Status             LinkStatus   `bson:"status" json:"status"`
	Error              *string      `bson:"error,omitempty" json:"error,omitempty"`
	Budget             float64      `bson:"budget,omitempty" json:"budget,omitempty"`
	Metrics            Metrics      `bson:"metrics" json:"metrics"`
	LastSynced         *time.Time   `bson:"last_synced,omitempty" json:"lastSynced,omitempty"`
}

// HasRemoteID reports whether the campaign exists on the vendor side.
func (l PlatformLink) HasRemoteID() bool {
	return l.PlatformCampaignID != nil && *l.PlatformCampaignID != ""
}

// RemoteID returns the vendor campaign id or "".
func (l PlatformLink) RemoteID() string {
	if l.PlatformCampaignID == nil {
		return ""
	}
	return *l.PlatformCampaignID
}

// Metrics is the normalized snapshot: spend and cost ratios in currency units.
type Metrics struct {
	Impressions         int64   `bson:"impressions" json:"impressions"`
	Clicks              int64   `bson:"clicks" json:"clicks"`
	Conversions         int64   `bson:"conversions" json:"conversions"`
	Spend               float64 `bson:"spend" json:"spend"`
	CTR                 float64 `bson:"ctr" json:"ctr"`
	CPC                 float64 `bson:"cpc" json:"cpc"`
	CPM                 float64 `bson:"cpm" json:"cpm"`
	VideoViews          int64   `bson:"video_views,omitempty" json:"videoViews,omitempty"`
	VideoCompletionRate float64 `bson:"video_completion_rate,omitempty" json:"videoCompletionRate,omitempty"`
}

type Objective string

const (
	ObjectiveBrandAwareness Objective = "BRAND_AWARENESS"
	ObjectiveReach          Objective = "REACH"
	ObjectiveTraffic        Objective = "TRAFFIC"
	ObjectiveEngagement     Objective = "ENGAGEMENT"
	ObjectiveAppInstalls    Objective = "APP_INSTALLS"
	ObjectiveVideoViews     Objective = "VIDEO_VIEWS"
	ObjectiveLeadGeneration Objective = "LEAD_GENERATION"
	ObjectiveConversions    Objective = "CONVERSIONS"
	ObjectiveCatalogSales   Objective = "CATALOG_SALES"
	ObjectiveStoreTraffic   Objective = "STORE_TRAFFIC"
)

func (o Objective) IsValid() bool {
	switch o {
	case ObjectiveBrandAwareness, ObjectiveReach, ObjectiveTraffic, ObjectiveEngagement,
		ObjectiveAppInstalls, ObjectiveVideoViews, ObjectiveLeadGeneration, ObjectiveConversions,
		ObjectiveCatalogSales, ObjectiveStoreTraffic:
		return true
	}
	return false
}

type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "DRAFT"
	CampaignStatusActive    CampaignStatus = "ACTIVE"
	CampaignStatusPaused    CampaignStatus = "PAUSED"
	CampaignStatusCompleted CampaignStatus = "COMPLETED"
	CampaignStatusArchived  CampaignStatus = "ARCHIVED"
)

func (s CampaignStatus) IsValid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusActive, CampaignStatusPaused,
		CampaignStatusCompleted, CampaignStatusArchived:
		return true
	}
	return false
}

// Launchable reports whether a campaign in this status may still be launched.
func (s CampaignStatus) Launchable() bool {
	return s != CampaignStatusActive && s != CampaignStatusCompleted && s != CampaignStatusArchived
}

type LinkStatus string

const (
	LinkStatusPending   LinkStatus = "PENDING"
	LinkStatusActive    LinkStatus = "ACTIVE"
	LinkStatusPaused    LinkStatus = "PAUSED"
	LinkStatusCompleted LinkStatus = "COMPLETED"
	LinkStatusError     LinkStatus = "ERROR"
)

type AssetType string

const (
	AssetTypeImage    AssetType = "IMAGE"
	AssetTypeVideo    AssetType = "VIDEO"
	AssetTypeCarousel AssetType = "CAROUSEL"
	AssetTypeText     AssetType = "TEXT"
)

func (t AssetType) IsValid() bool {
	switch t {
	case AssetTypeImage, AssetTypeVideo, AssetTypeCarousel, AssetTypeText:
		return true
	}
	return false
}

// PlatformName identifies an ad platform in its upper-case stored form.
type PlatformName string

const (
	PlatformFacebook  PlatformName = "FACEBOOK"
	PlatformInstagram PlatformName = "INSTAGRAM"
	PlatformWhatsApp  PlatformName = "WHATSAPP"
	PlatformGoogle    PlatformName = "GOOGLE"
	PlatformYouTube   PlatformName = "YOUTUBE"
	PlatformLinkedIn  PlatformName = "LINKEDIN"
	PlatformTwitter   PlatformName = "TWITTER"
	PlatformSnapchat  PlatformName = "SNAPCHAT"
)

// AllPlatforms lists every platform a campaign may target.
var AllPlatforms = []PlatformName{
	PlatformFacebook, PlatformInstagram, PlatformWhatsApp, PlatformGoogle,
	PlatformYouTube, PlatformLinkedIn, PlatformTwitter, PlatformSnapchat,
}

// ParsePlatformName accepts any casing of a known platform.
func ParsePlatformName(s string) (PlatformName, bool) {
	p := PlatformName(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllPlatforms {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// Key is the lower-case identifier used for registry lookups and credential fields.
func (p PlatformName) Key() string {
	return strings.ToLower(string(p))
}

// CredentialOwner is the platform whose stored credential this platform uses.
func (p PlatformName) CredentialOwner() PlatformName {
	switch p {
	case PlatformInstagram, PlatformWhatsApp:
		return PlatformFacebook
	case PlatformYouTube:
		return PlatformGoogle
	}
	return p
}

// DisplayName is the vendor's own spelling, used in user-facing messages.
func (p PlatformName) DisplayName() string {
	switch p {
	case PlatformFacebook:
		return "Facebook"
	case PlatformInstagram:
		return "Instagram"
	case PlatformWhatsApp:
		return "WhatsApp"
	case PlatformGoogle:
		return "Google"
	case PlatformYouTube:
		return "YouTube"
	case PlatformLinkedIn:
		return "LinkedIn"
	case PlatformTwitter:
		return "Twitter"
	case PlatformSnapchat:
		return "Snapchat"
	}
	return string(p)
}
