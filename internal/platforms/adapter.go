// Package platforms talks to the ad vendors. Each vendor has one Adapter
// that maps the local campaign model onto the vendor's REST API and
// normalizes what comes back.
package platforms

import (
	"context"

	"github.com/white/campaign-manager/internal/models"
)

// Adapter is the contract every ad vendor integration implements.
// Every method except ExchangeCodeForTokens requires the user to have a
// connected credential for the adapter's platform and fails without a
// network call otherwise.
type Adapter interface {
	Platform() models.PlatformName

	// ExchangeCodeForTokens turns an OAuth authorization code into a credential.
	// Failures are *AuthExchangeError.
	ExchangeCodeForTokens(ctx context.Context, code, redirectURI string) (*models.PlatformCredential, error)

	// CreateCampaign creates the campaign in the user's first ad account and
	// returns the vendor campaign id.
	CreateCampaign(ctx context.Context, campaign *models.Campaign, user *models.User) (string, error)

	// UpdateCampaign pushes name, status and end date only.
	UpdateCampaign(ctx context.Context, vendorID string, campaign *models.Campaign, user *models.User) error

	// DeleteCampaign moves the vendor campaign to its terminal state.
	DeleteCampaign(ctx context.Context, vendorID string, user *models.User) error

	GetCampaignMetrics(ctx context.Context, vendorID string, user *models.User) (models.Metrics, error)

	// GetCampaignLeads returns leads that have an email. Vendors without a
	// lead API return an empty slice.
	GetCampaignLeads(ctx context.Context, vendorID string, user *models.User) ([]RawLead, error)
}

// Launcher is implemented by adapters that can activate a campaign after
// checking that it has ads to serve.
type Launcher interface {
	LaunchCampaign(ctx context.Context, vendorID string, user *models.User) error
}

// RawLead is a lead as a vendor reports it, before dedup and persistence.
type RawLead struct {
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	AdID           string
	AdditionalInfo map[string]string
}
