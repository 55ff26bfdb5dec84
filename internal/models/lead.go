package models

import (
	"regexp"
	"time"
)

// Lead is a prospect captured from an ad platform or entered by hand.
// Collection: leads
type Lead struct {
	ID             string            `bson:"_id,omitempty" json:"id"`
	UserID         string            `bson:"user_id" json:"userId"`
	CampaignID     string            `bson:"campaign_id" json:"campaignId"`
	FirstName      string            `bson:"first_name" json:"firstName"`
	LastName       string            `bson:"last_name" json:"lastName"`
	Email          string            `bson:"email" json:"email"`
	Phone          string            `bson:"phone,omitempty" json:"phone,omitempty"`
	Source         LeadSource        `bson:"source" json:"source"`
	Status         LeadStatus        `bson:"status" json:"status"`
	AdditionalInfo map[string]string `bson:"additional_info,omitempty" json:"additionalInfo,omitempty"`
	CreatedAt      time.Time         `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time         `bson:"updated_at" json:"updatedAt"`
}

type LeadSource struct {
	Platform   PlatformName `bson:"platform" json:"platform"`
	CampaignID string       `bson:"campaign_id,omitempty" json:"campaignId,omitempty"`
	AdID       string       `bson:"ad_id,omitempty" json:"adId,omitempty"`
}

type LeadStatus string

const (
	LeadStatusNew          LeadStatus = "NEW"
	LeadStatusContacted    LeadStatus = "CONTACTED"
	LeadStatusQualified    LeadStatus = "QUALIFIED"
	LeadStatusConverted    LeadStatus = "CONVERTED"
	LeadStatusDisqualified LeadStatus = "DISQUALIFIED"
)

func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusConverted, LeadStatusDisqualified:
		return true
	}
	return false
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}
