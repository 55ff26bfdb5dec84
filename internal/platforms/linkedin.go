package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/white/campaign-manager/internal/models"
	"golang.org/x/oauth2"
)

var linkedinObjectives = map[models.Objective]string{
	models.ObjectiveBrandAwareness: "BRAND_AWARENESS",
	models.ObjectiveReach:          "BRAND_AWARENESS",
	models.ObjectiveTraffic:        "WEBSITE_VISITS",
	models.ObjectiveEngagement:     "ENGAGEMENT",
	models.ObjectiveAppInstalls:    "APP_INSTALLS",
	models.ObjectiveVideoViews:     "VIDEO_VIEWS",
	models.ObjectiveLeadGeneration: "LEAD_GENERATION",
	models.ObjectiveConversions:    "WEBSITE_CONVERSIONS",
	models.ObjectiveCatalogSales:   "WEBSITE_CONVERSIONS",
	models.ObjectiveStoreTraffic:   "WEBSITE_CONVERSIONS",
}

func linkedinObjective(o models.Objective) string {
	if v, ok := linkedinObjectives[o]; ok {
		return v
	}
	return "BRAND_AWARENESS"
}

// LinkedInAdapter drives the LinkedIn Marketing API (adAccountsV2).
type LinkedInAdapter struct {
	base
}

func NewLinkedInAdapter(opts Options) *LinkedInAdapter {
	return &LinkedInAdapter{base: newBase(models.PlatformLinkedIn, opts)}
}

type liDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

func linkedinDate(t time.Time) liDate {
	t = t.UTC()
	return liDate{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

type liElements struct {
	Elements []struct {
		ID flexID `json:"id"`
	} `json:"elements"`
}

type liAnalytics struct {
	Elements []struct {
		Impressions      number `json:"impressions"`
		Clicks           number `json:"clicks"`
		Conversions      number `json:"conversions"`
		CostInUsd        number `json:"costInUsd"`
		ClickThroughRate number `json:"clickThroughRate"`
		AverageCpc       number `json:"averageCpc"`
		AverageCpm       number `json:"averageCpm"`
	} `json:"elements"`
}

type liSubmissions struct {
	Elements []struct {
		FirstName         string `json:"firstName"`
		LastName          string `json:"lastName"`
		Email             string `json:"email"`
		PhoneNumber       string `json:"phoneNumber"`
		CreativeID        string `json:"creativeId"`
		CustomFieldValues []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"customFieldValues"`
	} `json:"elements"`
}

func (a *LinkedInAdapter) accountsURL(parts ...string) string {
	u := strings.TrimRight(a.app.APIURL, "/") + "/adAccountsV2"
	for _, p := range parts {
		u += "/" + p
	}
	return u
}

func (a *LinkedInAdapter) send(ctx context.Context, token, method, target string, query url.Values, body, out interface{}) error {
	return a.http.do(ctx, call{
		Method: method,
		URL:    target,
		Query:  query,
		Bearer: token,
		Header: map[string]string{"X-Restli-Protocol-Version": "2.0.0"},
		JSON:   body,
	}, out)
}

// patch applies a Rest.li partial update.
func (a *LinkedInAdapter) patch(ctx context.Context, token, target string, set map[string]interface{}) error {
	body := map[string]interface{}{"patch": map[string]interface{}{"$set": set}}
	return a.send(ctx, token, http.MethodPost, target, nil, body, nil)
}

func campaignURN(id string) string {
	return "urn:li:sponsoredCampaign:" + id
}

func (a *LinkedInAdapter) ExchangeCodeForTokens(ctx context.Context, code, redirectURI string) (*models.PlatformCredential, error) {
	tok, err := a.exchange(ctx, code, redirectURI, oauth2.AuthStyleInParams)
	if err != nil {
		return nil, err
	}
	return credentialFromToken(tok), nil
}

func (a *LinkedInAdapter) adAccountID(ctx context.Context, user *models.User, token string) (string, error) {
	return a.adAccount(ctx, user, func(ctx context.Context) (string, error) {
		var accounts liElements
		if err := a.send(ctx, token, http.MethodGet, a.accountsURL(), nil, nil, &accounts); err != nil {
			return "", err
		}
		if len(accounts.Elements) == 0 {
			return "", noAdAccount()
		}
		return accounts.Elements[0].ID.String(), nil
	})
}

func linkedinStatus(s models.CampaignStatus) string {
	if s == models.CampaignStatusActive {
		return "ACTIVE"
	}
	return "PAUSED"
}

func (a *LinkedInAdapter) CreateCampaign(ctx context.Context, campaign *models.Campaign, user *models.User) (id string, err error) {
	defer a.observe(opCreate, time.Now(), &err)

	cred, err := a.credential(user)
	if err != nil {
		return "", err
	}
	accountID, err := a.adAccountID(ctx, user, cred.AccessToken)
	if err != nil {
		return "", err
	}

	money := map[string]interface{}{
		"amount":       toCents(campaign.Budget.Daily),
		"currencyCode": campaign.Budget.Currency,
	}
	body := map[string]interface{}{
		"account":     "urn:li:sponsoredAccount:" + accountID,
		"name":        campaign.Name,
		"objective":   linkedinObjective(campaign.Objective),
		"status":      linkedinStatus(campaign.Status),
		"type":        "SPONSORED_UPDATES",
		"costType":    "CPC",
		"unitCost":    money,
		"dailyBudget": money,
		"startDate":   linkedinDate(campaign.StartDate),
	}
	if campaign.EndDate != nil {
		body["endDate"] = linkedinDate(*campaign.EndDate)
	}

	var created struct {
		ID flexID `json:"id"`
	}
	if err := a.send(ctx, cred.AccessToken, http.MethodPost, a.accountsURL(accountID, "campaigns"), nil, body, &created); err != nil {
		return "", err
	}
	return created.ID.String(), nil
}

func (a *LinkedInAdapter) UpdateCampaign(ctx context.Context, vendorID string, campaign *models.Campaign, user *models.User) (err error) {
	defer a.observe(opUpdate, time.Now(), &err)

	cred, err := a.credential(user)
	if err != nil {
		return err
	}
	accountID, err := a.adAccountID(ctx, user, cred.AccessToken)
	if err != nil {
		return err
	}

	set := map[string]interface{}{
		"name":   campaign.Name,
		"status": linkedinStatus(campaign.Status),
	}
	if campaign.EndDate != nil {
		set["endDate"] = linkedinDate(*campaign.EndDate)
	}
	return a.patch(ctx, cred.AccessToken, a.accountsURL(accountID, "campaigns", vendorID), set)
}

func (a *LinkedInAdapter) DeleteCampaign(ctx context.Context, vendorID string, user *models.User) (err error) {
	defer a.observe(opDelete, time.Now(), &err)

	cred, err := a.credential(user)
	if err != nil {
		return err
	}
	accountID, err := a.adAccountID(ctx, user, cred.AccessToken)
	if err != nil {
		return err
	}
	return a.patch(ctx, cred.AccessToken, a.accountsURL(accountID, "campaigns", vendorID), map[string]interface{}{"status": "ARCHIVED"})
}

// GetCampaignMetrics reads the trailing year of analytics.
func (a *LinkedInAdapter) GetCampaignMetrics(ctx context.Context, vendorID string, user *models.User) (m models.Metrics, err error) {
	defer a.observe(opMetrics, time.Now(), &err)

	cred, err := a.credential(user)
	if err != nil {
		return m, err
	}
	accountID, err := a.adAccountID(ctx, user, cred.AccessToken)
	if err != nil {
		return m, err
	}

	now := time.Now().UTC()
	start, end := linkedinDate(now.AddDate(-1, 0, 0)), linkedinDate(now)
	q := url.Values{
		"q":         {"analytics"},
		"dateRange": {fmt.Sprintf("(start:(year:%d,month:%d,day:%d),end:(year:%d,month:%d,day:%d))", start.Year, start.Month, start.Day, end.Year, end.Month, end.Day)},
		"campaigns": {"List(" + campaignURN(vendorID) + ")"},
		"fields":    {"impressions,clicks,conversions,costInUsd,clickThroughRate,averageCpc,averageCpm"},
	}

	var analytics liAnalytics
	if err := a.send(ctx, cred.AccessToken, http.MethodGet, a.accountsURL(accountID, "analytics"), q, nil, &analytics); err != nil {
		return m, err
	}
	if len(analytics.Elements) == 0 {
		return m, nil
	}

	row := analytics.Elements[0]
	return models.Metrics{
		Impressions: row.Impressions.Int(),
		Clicks:      row.Clicks.Int(),
		Conversions: row.Conversions.Int(),
		Spend:       row.CostInUsd.Float(),
		CTR:         row.ClickThroughRate.Float(),
		CPC:         row.AverageCpc.Float(),
		CPM:         row.AverageCpm.Float(),
	}, nil
}

func (a *LinkedInAdapter) searchByCampaign(vendorID string) url.Values {
	return url.Values{
		"q":      {"search"},
		"search": {"(campaigns:List(" + campaignURN(vendorID) + "))"},
	}
}

// GetCampaignLeads reads submissions of the campaign's lead gen forms.
func (a *LinkedInAdapter) GetCampaignLeads(ctx context.Context, vendorID string, user *models.User) (leads []RawLead, err error) {
	defer a.observe(opLeads, time.Now(), &err)

	cred, err := a.credential(user)
	if err != nil {
		return nil, err
	}
	accountID, err := a.adAccountID(ctx, user, cred.AccessToken)
	if err != nil {
		return nil, err
	}

	var forms liElements
	if err := a.send(ctx, cred.AccessToken, http.MethodGet, a.accountsURL(accountID, "adLeadGenForms"), a.searchByCampaign(vendorID), nil, &forms); err != nil {
		return nil, err
	}

	leads = []RawLead{}
	for _, form := range forms.Elements {
		formID := form.ID.String()
		var subs liSubmissions
		if err := a.send(ctx, cred.AccessToken, http.MethodGet, a.accountsURL(accountID, "adLeadGenForms", formID, "submissions"), nil, nil, &subs); err != nil {
			return nil, err
		}
		for _, s := range subs.Elements {
			if s.Email == "" {
				continue
			}
			lead := RawLead{
				FirstName:      s.FirstName,
				LastName:       s.LastName,
				Email:          s.Email,
				Phone:          s.PhoneNumber,
				AdID:           s.CreativeID,
				AdditionalInfo: map[string]string{},
			}
			for _, f := range s.CustomFieldValues {
				lead.AdditionalInfo[f.Name] = f.Value
			}
			leads = append(leads, lead)
		}
	}
	return leads, nil
}

// LaunchCampaign requires at least one creative, then activates the
// campaign and every creative attached to it.
func (a *LinkedInAdapter) LaunchCampaign(ctx context.Context, vendorID string, user *models.User) (err error) {
	defer a.observe(opLaunch, time.Now(), &err)

	cred, err := a.credential(user)
	if err != nil {
		return err
	}
	token := cred.AccessToken
	accountID, err := a.adAccountID(ctx, user, token)
	if err != nil {
		return err
	}

	var remote struct {
		ID flexID `json:"id"`
	}
	if err := a.send(ctx, token, http.MethodGet, a.accountsURL(accountID, "campaigns", vendorID), nil, nil, &remote); err != nil {
		return err
	}

	var creatives liElements
	if err := a.send(ctx, token, http.MethodGet, a.accountsURL(accountID, "creatives"), a.searchByCampaign(vendorID), nil, &creatives); err != nil {
		return err
	}
	if len(creatives.Elements) == 0 {
		return notReady("Campaign does not have any creatives or ads")
	}

	active := map[string]interface{}{"status": "ACTIVE"}
	if err := a.patch(ctx, token, a.accountsURL(accountID, "campaigns", vendorID), active); err != nil {
		return err
	}
	for _, c := range creatives.Elements {
		creativeID := c.ID.String()
		if err := a.patch(ctx, token, a.accountsURL(accountID, "creatives", creativeID), active); err != nil {
			return err
		}
	}
	return nil
}
