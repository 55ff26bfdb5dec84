package models

import "time"

// Platform is a catalog entry describing an ad platform integration.
// Collection: platforms
type Platform struct {
	ID                  string               `bson:"_id,omitempty" json:"id"`
	Name                PlatformName         `bson:"name" json:"name"`
	Description         string               `bson:"description,omitempty" json:"description,omitempty"`
	APIEndpoints        map[string]string    `bson:"api_endpoints,omitempty" json:"apiEndpoints,omitempty"`
	RequiredCredentials []RequiredCredential `bson:"required_credentials,omitempty" json:"requiredCredentials,omitempty"`
	Capabilities        []Capability         `bson:"capabilities,omitempty" json:"capabilities,omitempty"`
	Status              PlatformStatus       `bson:"status" json:"status"`
	CreatedAt           time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt           time.Time            `bson:"updated_at" json:"updatedAt"`
}

type RequiredCredential struct {
	Name        string `bson:"name" json:"name"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	IsRequired  bool   `bson:"is_required" json:"isRequired"`
}

type Capability string

const (
	CapabilityCreateCampaign Capability = "CREATE_CAMPAIGN"
	CapabilityReadCampaign   Capability = "READ_CAMPAIGN"
	CapabilityUpdateCampaign Capability = "UPDATE_CAMPAIGN"
	CapabilityDeleteCampaign Capability = "DELETE_CAMPAIGN"
	CapabilityCreateAd       Capability = "CREATE_AD"
	CapabilityReadAd         Capability = "READ_AD"
	CapabilityUpdateAd       Capability = "UPDATE_AD"
	CapabilityDeleteAd       Capability = "DELETE_AD"
	CapabilityReadMetrics    Capability = "READ_METRICS"
	CapabilityReadLeads      Capability = "READ_LEADS"
	CapabilityExportLeads    Capability = "EXPORT_LEADS"
)

type PlatformStatus string

const (
	PlatformStatusActive      PlatformStatus = "ACTIVE"
	PlatformStatusMaintenance PlatformStatus = "MAINTENANCE"
	PlatformStatusDeprecated  PlatformStatus = "DEPRECATED"
)
