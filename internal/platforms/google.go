package platforms

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/white/campaign-manager/internal/models"
	"golang.org/x/oauth2"
)

var googleChannelTypes = map[models.Objective]string{
	models.ObjectiveBrandAwareness: "DISPLAY",
	models.ObjectiveReach:          "DISPLAY",
	models.ObjectiveTraffic:        "SEARCH",
	models.ObjectiveEngagement:     "DISPLAY",
	models.ObjectiveAppInstalls:    "MULTI_CHANNEL",
	models.ObjectiveVideoViews:     "VIDEO",
	models.ObjectiveLeadGeneration: "SEARCH",
	models.ObjectiveConversions:    "SEARCH",
	models.ObjectiveCatalogSales:   "SHOPPING",
	models.ObjectiveStoreTraffic:   "SEARCH",
}

func googleChannelType(o models.Objective) string {
	if v, ok := googleChannelTypes[o]; ok {
		return v
	}
	return "SEARCH"
}

func googleStatus(s models.CampaignStatus) string {
	if s == models.CampaignStatusActive {
		return "ENABLED"
	}
	return "PAUSED"
}

func googleDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

const googleMetricsFields = "metrics.impressions, metrics.clicks, metrics.conversions, metrics.cost_micros, " +
	"metrics.ctr, metrics.average_cpc, metrics.average_cpm"

const youtubeMetricsFields = googleMetricsFields + ", metrics.video_views, metrics.video_quartile_p100_rate"

// GoogleAdapter drives the Google Ads REST API. The YouTube variant creates
// VIDEO / YOUTUBE_WATCH campaigns and also reports video metrics. Google
// has no launch step: campaigns are enabled through updates.
type GoogleAdapter struct {
	base
	developerToken string
	video          bool
}

func NewGoogleAdapter(opts Options, developerToken string) *GoogleAdapter {
	return &GoogleAdapter{base: newBase(models.PlatformGoogle, opts), developerToken: developerToken}
}

func NewYouTubeAdapter(opts Options, developerToken string) *GoogleAdapter {
	return &GoogleAdapter{base: newBase(models.PlatformYouTube, opts), developerToken: developerToken, video: true}
}

type gMutateResponse struct {
	Results []struct {
		ResourceName string `json:"resourceName"`
	} `json:"results"`
}

type gMetrics struct {
	Impressions       number `json:"impressions"`
	Clicks            number `json:"clicks"`
	Conversions       number `json:"conversions"`
	CostMicros        number `json:"costMicros"`
	CTR               number `json:"ctr"`
	AverageCpc        number `json:"averageCpc"`
	AverageCpm        number `json:"averageCpm"`
	VideoViews        number `json:"videoViews"`
	VideoQuartileP100 number `json:"videoQuartileP100Rate"`
}

type gLeadRows struct {
	Results []struct {
		LeadFormSubmissionData struct {
			AdGroupAd                string `json:"adGroupAd"`
			LeadFormSubmissionFields []struct {
				FieldType  string `json:"fieldType"`
				FieldValue string `json:"fieldValue"`
			} `json:"leadFormSubmissionFields"`
			CustomLeadFormSubmissionFields []struct {
				QuestionText string `json:"questionText"`
				FieldValue   string `json:"fieldValue"`
			} `json:"customLeadFormSubmissionFields"`
		} `json:"leadFormSubmissionData"`
	} `json:"results"`
}

func (a *GoogleAdapter) url(path string) string {
	return strings.TrimRight(a.app.APIURL, "/") + "/" + path
}

func (a *GoogleAdapter) send(ctx context.Context, token, method, path string, body, out interface{}) error {
	return a.http.do(ctx, call{
		Method: method,
		URL:    a.url(path),
		Bearer: token,
		Header: map[string]string{"developer-token": a.developerToken},
		JSON:   body,
	}, out)
}

func (a *GoogleAdapter) ExchangeCodeForTokens(ctx context.Context, code, redirectURI string) (*models.PlatformCredential, error) {
	tok, err := a.exchange(ctx, code, redirectURI, oauth2.AuthStyleInParams)
	if err != nil {
		return nil, err
	}
	return credentialFromToken(tok), nil
}

// customerID picks the first customer the token can access.
func (a *GoogleAdapter) customerID(ctx context.Context, user *models.User, token string) (string, error) {
	return a.adAccount(ctx, user, func(ctx context.Context) (string, error) {
		var customers struct {
			ResourceNames []string `json:"resourceNames"`
		}
		if err := a.send(ctx, token, http.MethodGet, "customers:listAccessibleCustomers", nil, &customers); err != nil {
			return "", err
		}
		if len(customers.ResourceNames) == 0 {
			return "", noAdAccount()
		}
		return lastSegment(customers.ResourceNames[0]), nil
	})
}

func (a *GoogleAdapter) session(ctx context.Context, user *models.User) (string, string, error) {
	cred, err := a.credential(user)
	if err != nil {
		return "", "", err
	}
	customerID, err := a.customerID(ctx, user, cred.AccessToken)
	if err != nil {
		return "", "", err
	}
	return cred.AccessToken, customerID, nil
}

func lastSegment(resourceName string) string {
	parts := strings.Split(resourceName, "/")
	return parts[len(parts)-1]
}

func (a *GoogleAdapter) mutate(ctx context.Context, token, customerID, resource string, operation map[string]interface{}) (string, error) {
	var resp gMutateResponse
	body := map[string]interface{}{"operations": []interface{}{operation}}
	if err := a.send(ctx, token, http.MethodPost, fmt.Sprintf("customers/%s/%s:mutate", customerID, resource), body, &resp); err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "", fmt.Errorf("empty %s mutate response", resource)
	}
	return resp.Results[0].ResourceName, nil
}

func (a *GoogleAdapter) CreateCampaign(ctx context.Context, campaign *models.Campaign, user *models.User) (id string, err error) {
	defer a.observe(opCreate, time.Now(), &err)

	token, customerID, err := a.session(ctx, user)
	if err != nil {
		return "", err
	}

	budget, err := a.mutate(ctx, token, customerID, "campaignBudgets", map[string]interface{}{
		"create": map[string]interface{}{
			"name":           fmt.Sprintf("%s budget %d", campaign.Name, time.Now().Unix()),
			"amountMicros":   fmt.Sprintf("%d", toMicros(campaign.Budget.Daily)),
			"deliveryMethod": "STANDARD",
		},
	})
	if err != nil {
		return "", err
	}

	fields := map[string]interface{}{
		"name":           campaign.Name,
		"status":         googleStatus(campaign.Status),
		"campaignBudget": budget,
		"startDate":      googleDate(campaign.StartDate),
	}
	if a.video {
		fields["advertisingChannelType"] = "VIDEO"
		fields["advertisingChannelSubType"] = "YOUTUBE_WATCH"
	} else {
		fields["advertisingChannelType"] = googleChannelType(campaign.Objective)
		fields["targetSpend"] = map[string]string{"cpcBidCeilingMicros": "1000000"}
	}
	if campaign.EndDate != nil {
		fields["endDate"] = googleDate(*campaign.EndDate)
	}

	resource, err := a.mutate(ctx, token, customerID, "campaigns", map[string]interface{}{"create": fields})
	if err != nil {
		return "", err
	}
	return lastSegment(resource), nil
}

func (a *GoogleAdapter) campaignResource(customerID, vendorID string) string {
	return fmt.Sprintf("customers/%s/campaigns/%s", customerID, vendorID)
}

func (a *GoogleAdapter) UpdateCampaign(ctx context.Context, vendorID string, campaign *models.Campaign, user *models.User) (err error) {
	defer a.observe(opUpdate, time.Now(), &err)

	token, customerID, err := a.session(ctx, user)
	if err != nil {
		return err
	}

	fields := map[string]interface{}{
		"resourceName": a.campaignResource(customerID, vendorID),
		"name":         campaign.Name,
		"status":       googleStatus(campaign.Status),
	}
	mask := "name,status"
	if campaign.EndDate != nil {
		fields["endDate"] = googleDate(*campaign.EndDate)
		mask += ",end_date"
	}
	_, err = a.mutate(ctx, token, customerID, "campaigns", map[string]interface{}{"update": fields, "updateMask": mask})
	return err
}

func (a *GoogleAdapter) DeleteCampaign(ctx context.Context, vendorID string, user *models.User) (err error) {
	defer a.observe(opDelete, time.Now(), &err)

	token, customerID, err := a.session(ctx, user)
	if err != nil {
		return err
	}
	_, err = a.mutate(ctx, token, customerID, "campaigns", map[string]interface{}{
		"update":     map[string]interface{}{"resourceName": a.campaignResource(customerID, vendorID), "status": "REMOVED"},
		"updateMask": "status",
	})
	return err
}

func (a *GoogleAdapter) search(ctx context.Context, token, customerID, query string, out interface{}) error {
	return a.send(ctx, token, http.MethodPost, fmt.Sprintf("customers/%s/googleAds:search", customerID), map[string]string{"query": query}, out)
}

// GetCampaignMetrics converts cost, CPC and CPM from micros.
func (a *GoogleAdapter) GetCampaignMetrics(ctx context.Context, vendorID string, user *models.User) (m models.Metrics, err error) {
	defer a.observe(opMetrics, time.Now(), &err)

	token, customerID, err := a.session(ctx, user)
	if err != nil {
		return m, err
	}

	fields := googleMetricsFields
	if a.video {
		fields = youtubeMetricsFields
	}
	query := fmt.Sprintf("SELECT campaign.id, %s FROM campaign WHERE campaign.id = %s", fields, vendorID)

	var resp struct {
		Results []struct {
			Metrics gMetrics `json:"metrics"`
		} `json:"results"`
	}
	if err := a.search(ctx, token, customerID, query, &resp); err != nil {
		return m, err
	}
	if len(resp.Results) == 0 {
		return m, nil
	}

	row := resp.Results[0].Metrics
	m = models.Metrics{
		Impressions: row.Impressions.Int(),
		Clicks:      row.Clicks.Int(),
		Conversions: row.Conversions.Int(),
		Spend:       micros(row.CostMicros),
		CTR:         row.CTR.Float(),
		CPC:         micros(row.AverageCpc),
		CPM:         micros(row.AverageCpm),
	}
	if a.video {
		m.VideoViews = row.VideoViews.Int()
		m.VideoCompletionRate = row.VideoQuartileP100.Float()
	}
	return m, nil
}

// GetCampaignLeads reads lead form submissions attached to the campaign.
func (a *GoogleAdapter) GetCampaignLeads(ctx context.Context, vendorID string, user *models.User) (leads []RawLead, err error) {
	defer a.observe(opLeads, time.Now(), &err)

	token, customerID, err := a.session(ctx, user)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT lead_form_submission_data.ad_group_ad, "+
		"lead_form_submission_data.lead_form_submission_fields, "+
		"lead_form_submission_data.custom_lead_form_submission_fields "+
		"FROM lead_form_submission_data WHERE lead_form_submission_data.campaign = '%s'",
		a.campaignResource(customerID, vendorID))

	var rows gLeadRows
	if err := a.search(ctx, token, customerID, query, &rows); err != nil {
		return nil, err
	}

	leads = []RawLead{}
	for _, row := range rows.Results {
		data := row.LeadFormSubmissionData
		lead := RawLead{AdID: lastSegment(data.AdGroupAd), AdditionalInfo: map[string]string{}}
		for _, f := range data.LeadFormSubmissionFields {
			switch f.FieldType {
			case "FIRST_NAME":
				lead.FirstName = f.FieldValue
			case "LAST_NAME":
				lead.LastName = f.FieldValue
			case "FULL_NAME":
				first, last, _ := strings.Cut(f.FieldValue, " ")
				if lead.FirstName == "" {
					lead.FirstName = first
				}
				if lead.LastName == "" {
					lead.LastName = last
				}
			case "EMAIL":
				lead.Email = f.FieldValue
			case "PHONE_NUMBER":
				lead.Phone = f.FieldValue
			default:
				lead.AdditionalInfo[strings.ToLower(f.FieldType)] = f.FieldValue
			}
		}
		for _, f := range data.CustomLeadFormSubmissionFields {
			lead.AdditionalInfo[f.QuestionText] = f.FieldValue
		}
		if lead.Email != "" {
			leads = append(leads, lead)
		}
	}
	return leads, nil
}
