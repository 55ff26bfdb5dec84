package platforms

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/white/campaign-manager/internal/models"
	"golang.org/x/oauth2"
)

var snapchatObjectives = map[models.Objective]string{
	models.ObjectiveBrandAwareness: "AWARENESS",
	models.ObjectiveReach:          "AWARENESS",
	models.ObjectiveTraffic:        "TRAFFIC",
	models.ObjectiveEngagement:     "ENGAGEMENT",
	models.ObjectiveAppInstalls:    "APP_INSTALLS",
	models.ObjectiveVideoViews:     "VIDEO_VIEWS",
	models.ObjectiveLeadGeneration: "LEAD_GENERATION",
	models.ObjectiveConversions:    "CONVERSIONS",
	models.ObjectiveCatalogSales:   "CATALOG_SALES",
	models.ObjectiveStoreTraffic:   "TRAFFIC",
}

func snapchatObjective(o models.Objective) string {
	if v, ok := snapchatObjectives[o]; ok {
		return v
	}
	return "AWARENESS"
}

func snapchatStatus(s models.CampaignStatus) string {
	if s == models.CampaignStatusActive {
		return "ACTIVE"
	}
	return "PAUSED"
}

// SnapchatAdapter drives the Snap Marketing API.
type SnapchatAdapter struct {
	base
}

func NewSnapchatAdapter(opts Options) *SnapchatAdapter {
	return &SnapchatAdapter{base: newBase(models.PlatformSnapchat, opts)}
}

type snapNode struct {
	ID flexID `json:"id"`
}

type snapStats struct {
	TimeseriesStats []struct {
		Impressions number `json:"impressions"`
		Swipes      number `json:"swipes"`
		Spend       number `json:"spend"`
		SwipeRate   number `json:"swipe_rate"`
		ECPC        number `json:"ecpc"`
		ECPM        number `json:"ecpm"`
	} `json:"timeseries_stats"`
}

func (a *SnapchatAdapter) url(parts ...string) string {
	return strings.TrimRight(a.app.APIURL, "/") + "/" + strings.Join(parts, "/")
}

func (a *SnapchatAdapter) send(ctx context.Context, token, method, target string, query url.Values, body, out interface{}) error {
	return a.http.do(ctx, call{Method: method, URL: target, Query: query, Bearer: token, JSON: body}, out)
}

func (a *SnapchatAdapter) putCampaign(ctx context.Context, token, vendorID string, fields map[string]interface{}) error {
	return a.send(ctx, token, http.MethodPut, a.url("campaigns", vendorID), nil, map[string]interface{}{"campaign": fields}, nil)
}

func (a *SnapchatAdapter) ExchangeCodeForTokens(ctx context.Context, code, redirectURI string) (*models.PlatformCredential, error) {
	tok, err := a.exchange(ctx, code, redirectURI, oauth2.AuthStyleInParams)
	if err != nil {
		return nil, err
	}
	return credentialFromToken(tok), nil
}

// adAccountID picks the first ad account of the user's first organization.
func (a *SnapchatAdapter) adAccountID(ctx context.Context, user *models.User, token string) (string, error) {
	return a.adAccount(ctx, user, func(ctx context.Context) (string, error) {
		var orgs struct {
			Organizations []snapNode `json:"organizations"`
		}
		if err := a.send(ctx, token, http.MethodGet, a.url("me", "organizations"), nil, nil, &orgs); err != nil {
			return "", err
		}
		if len(orgs.Organizations) == 0 {
			return "", &kindError{msg: "No organizations found for this user", kind: ErrNoAdAccount}
		}

		var accounts struct {
			AdAccounts []snapNode `json:"adaccounts"`
		}
		if err := a.send(ctx, token, http.MethodGet, a.url("organizations", orgs.Organizations[0].ID.String(), "adaccounts"), nil, nil, &accounts); err != nil {
			return "", err
		}
		if len(accounts.AdAccounts) == 0 {
			return "", &kindError{msg: "No ad accounts found for this organization", kind: ErrNoAdAccount}
		}
		return accounts.AdAccounts[0].ID.String(), nil
	})
}

func (a *SnapchatAdapter) CreateCampaign(ctx context.Context, campaign *models.Campaign, user *models.User) (id string, err error) {
	defer a.observe(opCreate, time.Now(), &err)

	cred, err := a.credential(user)
	if err != nil {
		return "", err
	}
	accountID, err := a.adAccountID(ctx, user, cred.AccessToken)
	if err != nil {
		return "", err
	}

	fields := map[string]interface{}{
		"name":               campaign.Name,
		"status":             snapchatStatus(campaign.Status),
		"objective":          snapchatObjective(campaign.Objective),
		"start_time":         campaign.StartDate.UTC().Format(time.RFC3339),
		"daily_budget_micro": toMicros(campaign.Budget.Daily),
	}
	if campaign.EndDate != nil {
		fields["end_time"] = campaign.EndDate.UTC().Format(time.RFC3339)
	}

	var created struct {
		Campaign snapNode `json:"campaign"`
	}
	if err := a.send(ctx, cred.AccessToken, http.MethodPost, a.url("adaccounts", accountID, "campaigns"), nil, map[string]interface{}{"campaign": fields}, &created); err != nil {
		return "", err
	}
	return created.Campaign.ID.String(), nil
}

func (a *SnapchatAdapter) UpdateCampaign(ctx context.Context, vendorID string, campaign *models.Campaign, user *models.User) (err error) {
	defer a.observe(opUpdate, time.Now(), &err)

	cred, err := a.credential(user)
	if err != nil {
		return err
	}
	fields := map[string]interface{}{
		"name":   campaign.Name,
		"status": snapchatStatus(campaign.Status),
	}
	if campaign.EndDate != nil {
		fields["end_time"] = campaign.EndDate.UTC().Format(time.RFC3339)
	}
	return a.putCampaign(ctx, cred.AccessToken, vendorID, fields)
}

func (a *SnapchatAdapter) DeleteCampaign(ctx context.Context, vendorID string, user *models.User) (err error) {
	defer a.observe(opDelete, time.Now(), &err)

	cred, err := a.credential(user)
	if err != nil {
		return err
	}
	return a.putCampaign(ctx, cred.AccessToken, vendorID, map[string]interface{}{"status": "ARCHIVED"})
}

// GetCampaignMetrics reads the last 30 days. Swipes count as clicks and
// money fields arrive in micro-currency.
func (a *SnapchatAdapter) GetCampaignMetrics(ctx context.Context, vendorID string, user *models.User) (m models.Metrics, err error) {
	defer a.observe(opMetrics, time.Now(), &err)

	cred, err := a.credential(user)
	if err != nil {
		return m, err
	}

	now := time.Now().UTC()
	q := url.Values{
		"fields":      {"impressions,swipes,spend,swipe_rate,ecpm,ecpc"},
		"start_time":  {now.AddDate(0, 0, -30).Format(time.RFC3339)},
		"end_time":    {now.Format(time.RFC3339)},
		"granularity": {"TOTAL"},
	}

	var stats snapStats
	if err := a.send(ctx, cred.AccessToken, http.MethodGet, a.url("campaigns", vendorID, "stats"), q, nil, &stats); err != nil {
		return m, err
	}
	if len(stats.TimeseriesStats) == 0 {
		return m, nil
	}

	row := stats.TimeseriesStats[0]
	return models.Metrics{
		Impressions: row.Impressions.Int(),
		Clicks:      row.Swipes.Int(),
		Spend:       micros(row.Spend),
		CTR:         row.SwipeRate.Float(),
		CPC:         micros(row.ECPC),
		CPM:         micros(row.ECPM),
	}, nil
}

// GetCampaignLeads returns no leads: lead forms are not exposed by the API.
func (a *SnapchatAdapter) GetCampaignLeads(ctx context.Context, vendorID string, user *models.User) (leads []RawLead, err error) {
	defer a.observe(opLeads, time.Now(), &err)

	if _, err := a.credential(user); err != nil {
		return nil, err
	}
	return []RawLead{}, nil
}

// LaunchCampaign requires an ad squad with ads, then activates the campaign
// and its ad squads.
func (a *SnapchatAdapter) LaunchCampaign(ctx context.Context, vendorID string, user *models.User) (err error) {
	defer a.observe(opLaunch, time.Now(), &err)

	cred, err := a.credential(user)
	if err != nil {
		return err
	}
	token := cred.AccessToken

	var remote struct {
		Campaign *snapNode `json:"campaign"`
	}
	if err := a.send(ctx, token, http.MethodGet, a.url("campaigns", vendorID), nil, nil, &remote); err != nil {
		return err
	}
	if remote.Campaign == nil {
		return notReady("Campaign with ID " + vendorID + " not found")
	}

	var squads struct {
		AdSquads []snapNode `json:"adsquads"`
	}
	if err := a.send(ctx, token, http.MethodGet, a.url("campaigns", vendorID, "adsquads"), nil, nil, &squads); err != nil {
		return err
	}
	if len(squads.AdSquads) == 0 {
		return notReady("Campaign does not have any ad squads (ad groups)")
	}

	hasAds := false
	for _, squad := range squads.AdSquads {
		var ads struct {
			Ads []snapNode `json:"ads"`
		}
		if err := a.send(ctx, token, http.MethodGet, a.url("adsquads", squad.ID.String(), "ads"), nil, nil, &ads); err != nil {
			return err
		}
		if len(ads.Ads) > 0 {
			hasAds = true
			break
		}
	}
	if !hasAds {
		return notReady("Campaign does not have any ads")
	}

	if err := a.putCampaign(ctx, token, vendorID, map[string]interface{}{"status": "ACTIVE"}); err != nil {
		return err
	}
	for _, squad := range squads.AdSquads {
		body := map[string]interface{}{"adsquad": map[string]string{"status": "ACTIVE"}}
		if err := a.send(ctx, token, http.MethodPut, a.url("adsquads", squad.ID.String()), nil, body, nil); err != nil {
			return err
		}
	}
	return nil
}
