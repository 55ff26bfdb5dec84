package platforms

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/white/campaign-manager/internal/models"
	"golang.org/x/oauth2"
)

// twitterCodeVerifier is the plain PKCE verifier the authorize step sends.
const twitterCodeVerifier = "challenge"

var twitterObjectives = map[models.Objective]string{
	models.ObjectiveBrandAwareness: "AWARENESS",
	models.ObjectiveReach:          "REACH",
	models.ObjectiveTraffic:        "WEBSITE_CLICKS",
	models.ObjectiveEngagement:     "ENGAGEMENTS",
	models.ObjectiveAppInstalls:    "APP_INSTALLS",
	models.ObjectiveVideoViews:     "VIDEO_VIEWS",
	models.ObjectiveLeadGeneration: "LEAD_GENERATION",
	models.ObjectiveConversions:    "WEBSITE_CONVERSIONS",
	models.ObjectiveCatalogSales:   "WEBSITE_CONVERSIONS",
	models.ObjectiveStoreTraffic:   "WEBSITE_CONVERSIONS",
}

func twitterObjective(o models.Objective) string {
	if v, ok := twitterObjectives[o]; ok {
		return v
	}
	return "AWARENESS"
}

func twitterStatus(s models.CampaignStatus) string {
	if s == models.CampaignStatusActive {
		return "ACTIVE"
	}
	return "PAUSED"
}

// TwitterAdapter drives the X Ads API. Requests are signed with OAuth 1.0a
// using the app's consumer key and the user's token pair.
type TwitterAdapter struct {
	base
}

func NewTwitterAdapter(opts Options) *TwitterAdapter {
	return &TwitterAdapter{base: newBase(models.PlatformTwitter, opts)}
}

type twList struct {
	Data []struct {
		ID flexID `json:"id"`
	} `json:"data"`
}

type twStats struct {
	Data []struct {
		IDData []struct {
			Metrics struct {
				Impressions            number `json:"impressions"`
				Clicks                 number `json:"clicks"`
				Conversions            number `json:"conversions"`
				BilledChargeLocalMicro number `json:"billed_charge_local_micro"`
			} `json:"metrics"`
		} `json:"id_data"`
	} `json:"data"`
}

// signedClient returns an HTTP client that signs every request for the user.
func (a *TwitterAdapter) signedClient(ctx context.Context, cred *models.PlatformCredential) *http.Client {
	secret := ""
	if cred.AccessTokenSecret != nil {
		secret = *cred.AccessTokenSecret
	}
	base := a.http.HTTPClient()
	cfg := oauth1.NewConfig(a.app.ClientID, a.app.ClientSecret)
	client := cfg.Client(context.WithValue(ctx, oauth1.HTTPClient, base), oauth1.NewToken(cred.AccessToken, secret))
	client.Timeout = base.Timeout
	return client
}

func (a *TwitterAdapter) url(parts ...string) string {
	return strings.TrimRight(a.app.APIURL, "/") + "/" + strings.Join(parts, "/")
}

func (a *TwitterAdapter) send(ctx context.Context, client *http.Client, method, target string, query url.Values, body, out interface{}) error {
	return a.http.doWith(ctx, client, call{Method: method, URL: target, Query: query, JSON: body}, out)
}

func (a *TwitterAdapter) ExchangeCodeForTokens(ctx context.Context, code, redirectURI string) (*models.PlatformCredential, error) {
	tok, err := a.exchange(ctx, code, redirectURI, oauth2.AuthStyleInHeader,
		oauth2.SetAuthURLParam("code_verifier", twitterCodeVerifier),
		oauth2.SetAuthURLParam("client_id", a.app.ClientID),
	)
	if err != nil {
		return nil, err
	}
	// The refresh token doubles as the signing secret and the grant does not expire.
	return &models.PlatformCredential{
		AccessToken:       tok.AccessToken,
		AccessTokenSecret: strPtr(tok.RefreshToken),
		IsConnected:       true,
	}, nil
}

func (a *TwitterAdapter) adAccountID(ctx context.Context, user *models.User, client *http.Client) (string, error) {
	return a.adAccount(ctx, user, func(ctx context.Context) (string, error) {
		var accounts twList
		if err := a.send(ctx, client, http.MethodGet, a.url("accounts"), nil, nil, &accounts); err != nil {
			return "", err
		}
		if len(accounts.Data) == 0 {
			return "", noAdAccount()
		}
		return accounts.Data[0].ID.String(), nil
	})
}

// session resolves the signed client and ad account shared by every call.
func (a *TwitterAdapter) session(ctx context.Context, user *models.User) (*http.Client, string, error) {
	cred, err := a.credential(user)
	if err != nil {
		return nil, "", err
	}
	client := a.signedClient(ctx, cred)
	accountID, err := a.adAccountID(ctx, user, client)
	if err != nil {
		return nil, "", err
	}
	return client, accountID, nil
}

func (a *TwitterAdapter) CreateCampaign(ctx context.Context, campaign *models.Campaign, user *models.User) (id string, err error) {
	defer a.observe(opCreate, time.Now(), &err)

	client, accountID, err := a.session(ctx, user)
	if err != nil {
		return "", err
	}

	body := map[string]interface{}{
		"name":                            campaign.Name,
		"objective":                       twitterObjective(campaign.Objective),
		"daily_budget_amount_local_micro": toMicros(campaign.Budget.Daily),
		"start_time":                      campaign.StartDate.UTC().Format(time.RFC3339),
		"standard_delivery":               true,
		"frequency_cap":                   2,
		"duration_in_days":                30,
	}
	if campaign.EndDate != nil {
		body["end_time"] = campaign.EndDate.UTC().Format(time.RFC3339)
	}

	var created struct {
		Data struct {
			ID flexID `json:"id"`
		} `json:"data"`
	}
	if err := a.send(ctx, client, http.MethodPost, a.url("accounts", accountID, "campaigns"), nil, body, &created); err != nil {
		return "", err
	}
	return created.Data.ID.String(), nil
}

func (a *TwitterAdapter) UpdateCampaign(ctx context.Context, vendorID string, campaign *models.Campaign, user *models.User) (err error) {
	defer a.observe(opUpdate, time.Now(), &err)

	client, accountID, err := a.session(ctx, user)
	if err != nil {
		return err
	}
	body := map[string]interface{}{
		"name":          campaign.Name,
		"entity_status": twitterStatus(campaign.Status),
	}
	if campaign.EndDate != nil {
		body["end_time"] = campaign.EndDate.UTC().Format(time.RFC3339)
	}
	return a.send(ctx, client, http.MethodPut, a.url("accounts", accountID, "campaigns", vendorID), nil, body, nil)
}

func (a *TwitterAdapter) DeleteCampaign(ctx context.Context, vendorID string, user *models.User) (err error) {
	defer a.observe(opDelete, time.Now(), &err)

	client, accountID, err := a.session(ctx, user)
	if err != nil {
		return err
	}
	body := map[string]string{"entity_status": "DELETED"}
	return a.send(ctx, client, http.MethodPut, a.url("accounts", accountID, "campaigns", vendorID), nil, body, nil)
}

// GetCampaignMetrics reads the last 30 days; ratios are derived from totals.
func (a *TwitterAdapter) GetCampaignMetrics(ctx context.Context, vendorID string, user *models.User) (m models.Metrics, err error) {
	defer a.observe(opMetrics, time.Now(), &err)

	client, accountID, err := a.session(ctx, user)
	if err != nil {
		return m, err
	}

	now := time.Now().UTC()
	q := url.Values{
		"entity":        {"CAMPAIGN"},
		"entity_ids":    {vendorID},
		"metric_groups": {"ENGAGEMENT,BILLING"},
		"start_time":    {now.AddDate(0, 0, -30).Format(time.RFC3339)},
		"end_time":      {now.Format(time.RFC3339)},
		"granularity":   {"TOTAL"},
	}

	var stats twStats
	if err := a.send(ctx, client, http.MethodGet, a.url("stats", "accounts", accountID), q, nil, &stats); err != nil {
		return m, err
	}
	if len(stats.Data) == 0 || len(stats.Data[0].IDData) == 0 {
		return m, nil
	}

	row := stats.Data[0].IDData[0].Metrics
	m = models.Metrics{
		Impressions: row.Impressions.Int(),
		Clicks:      row.Clicks.Int(),
		Conversions: row.Conversions.Int(),
		Spend:       micros(row.BilledChargeLocalMicro),
	}
	if m.Impressions > 0 {
		m.CTR = float64(m.Clicks) / float64(m.Impressions)
		m.CPM = m.Spend / float64(m.Impressions) * 1000
	}
	if m.Clicks > 0 {
		m.CPC = m.Spend / float64(m.Clicks)
	}
	return m, nil
}

// GetCampaignLeads returns no leads: the Ads API has no lead retrieval.
func (a *TwitterAdapter) GetCampaignLeads(ctx context.Context, vendorID string, user *models.User) (leads []RawLead, err error) {
	defer a.observe(opLeads, time.Now(), &err)

	if _, err := a.credential(user); err != nil {
		return nil, err
	}
	return []RawLead{}, nil
}

// LaunchCampaign requires line items with promoted tweets, then activates
// the campaign and its line items.
func (a *TwitterAdapter) LaunchCampaign(ctx context.Context, vendorID string, user *models.User) (err error) {
	defer a.observe(opLaunch, time.Now(), &err)

	client, accountID, err := a.session(ctx, user)
	if err != nil {
		return err
	}

	var remote struct {
		Data *struct {
			ID flexID `json:"id"`
		} `json:"data"`
	}
	if err := a.send(ctx, client, http.MethodGet, a.url("accounts", accountID, "campaigns", vendorID), nil, nil, &remote); err != nil {
		return err
	}
	if remote.Data == nil {
		return notReady("Campaign with ID " + vendorID + " not found")
	}

	var lineItems twList
	if err := a.send(ctx, client, http.MethodGet, a.url("accounts", accountID, "line_items"), url.Values{"campaign_ids": {vendorID}}, nil, &lineItems); err != nil {
		return err
	}
	if len(lineItems.Data) == 0 {
		return notReady("Campaign does not have any line items (ad groups)")
	}

	ids := make([]string, 0, len(lineItems.Data))
	for _, li := range lineItems.Data {
		ids = append(ids, li.ID.String())
	}
	var tweets twList
	if err := a.send(ctx, client, http.MethodGet, a.url("accounts", accountID, "promoted_tweets"), url.Values{"line_item_ids": {strings.Join(ids, ",")}}, nil, &tweets); err != nil {
		return err
	}
	if len(tweets.Data) == 0 {
		return notReady("Campaign does not have any promoted tweets (ads)")
	}

	active := map[string]string{"entity_status": "ACTIVE"}
	if err := a.send(ctx, client, http.MethodPut, a.url("accounts", accountID, "campaigns", vendorID), nil, active, nil); err != nil {
		return err
	}
	for _, id := range ids {
		if err := a.send(ctx, client, http.MethodPut, a.url("accounts", accountID, "line_items", id), nil, active, nil); err != nil {
			return err
		}
	}
	return nil
}
