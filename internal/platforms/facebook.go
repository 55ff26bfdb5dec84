package platforms

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/white/campaign-manager/internal/models"
	"golang.org/x/oauth2"
)

var facebookObjectives = map[models.Objective]string{
	models.ObjectiveBrandAwareness: "OUTCOME_AWARENESS",
	models.ObjectiveReach:          "OUTCOME_AWARENESS",
	models.ObjectiveTraffic:        "OUTCOME_TRAFFIC",
	models.ObjectiveEngagement:     "OUTCOME_ENGAGEMENT",
	models.ObjectiveAppInstalls:    "OUTCOME_APP_PROMOTION",
	models.ObjectiveVideoViews:     "OUTCOME_AWARENESS",
	models.ObjectiveLeadGeneration: "OUTCOME_LEADS",
	models.ObjectiveConversions:    "OUTCOME_SALES",
	models.ObjectiveCatalogSales:   "OUTCOME_SALES",
	models.ObjectiveStoreTraffic:   "OUTCOME_TRAFFIC",
}

var facebookOptimizationGoals = map[models.Objective]string{
	models.ObjectiveBrandAwareness: "BRAND_AWARENESS",
	models.ObjectiveReach:          "REACH",
	models.ObjectiveTraffic:        "LINK_CLICKS",
	models.ObjectiveEngagement:     "POST_ENGAGEMENT",
	models.ObjectiveAppInstalls:    "APP_INSTALLS",
	models.ObjectiveVideoViews:     "VIDEO_VIEWS",
	models.ObjectiveLeadGeneration: "LEAD_GENERATION",
	models.ObjectiveConversions:    "OFFSITE_CONVERSIONS",
	models.ObjectiveCatalogSales:   "PRODUCT_CATALOG_SALES",
	models.ObjectiveStoreTraffic:   "STORE_VISITS",
}

var facebookCallsToAction = map[string]bool{
	"LEARN_MORE": true, "SIGN_UP": true, "DOWNLOAD": true, "SHOP_NOW": true, "BOOK_TRAVEL": true,
	"CONTACT_US": true, "DONATE_NOW": true, "GET_OFFER": true, "GET_QUOTE": true, "SUBSCRIBE": true,
}

func facebookObjective(o models.Objective) string {
	if v, ok := facebookObjectives[o]; ok {
		return v
	}
	return "OUTCOME_AWARENESS"
}

func facebookOptimizationGoal(o models.Objective) string {
	if v, ok := facebookOptimizationGoals[o]; ok {
		return v
	}
	return "REACH"
}

func facebookCallToAction(cta string) string {
	if facebookCallsToAction[cta] {
		return cta
	}
	return "LEARN_MORE"
}

// facebookStatus pushes ACTIVE only for active campaigns; everything else is paused.
func facebookStatus(s models.CampaignStatus) string {
	if s == models.CampaignStatusActive {
		return "ACTIVE"
	}
	return "PAUSED"
}

// FacebookAdapter drives the Marketing API on the Graph API. It also serves
// Instagram and WhatsApp placements.
type FacebookAdapter struct {
	base
}

func NewFacebookAdapter(opts Options) *FacebookAdapter {
	return &FacebookAdapter{base: newBase(models.PlatformFacebook, opts)}
}

type fbNode struct {
	ID string `json:"id"`
}

type fbList struct {
	Data []fbNode `json:"data"`
}

type fbInsights struct {
	Data []struct {
		Impressions number `json:"impressions"`
		Clicks      number `json:"clicks"`
		Spend       number `json:"spend"`
		CTR         number `json:"ctr"`
		CPC         number `json:"cpc"`
		CPM         number `json:"cpm"`
	} `json:"data"`
}

type fbLeads struct {
	Data []struct {
		FieldData []struct {
			Name   string   `json:"name"`
			Values []string `json:"values"`
		} `json:"field_data"`
	} `json:"data"`
}

func (a *FacebookAdapter) url(path string) string {
	return strings.TrimRight(a.app.APIURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (a *FacebookAdapter) get(ctx context.Context, token, path string, fields string, out interface{}) error {
	q := url.Values{"access_token": {token}}
	if fields != "" {
		q.Set("fields", fields)
	}
	return a.http.do(ctx, call{Method: http.MethodGet, URL: a.url(path), Query: q}, out)
}

func (a *FacebookAdapter) post(ctx context.Context, token, path string, body interface{}, out interface{}) error {
	q := url.Values{"access_token": {token}}
	return a.http.do(ctx, call{Method: http.MethodPost, URL: a.url(path), Query: q, JSON: body}, out)
}

func (a *FacebookAdapter) ExchangeCodeForTokens(ctx context.Context, code, redirectURI string) (*models.PlatformCredential, error) {
	tok, err := a.exchange(ctx, code, redirectURI, oauth2.AuthStyleInParams)
	if err != nil {
		return nil, err
	}
	cred := credentialFromToken(tok)
	// Graph API tokens are long-lived and carry no refresh token.
	cred.RefreshToken = nil
	return cred, nil
}

func (a *FacebookAdapter) adAccountID(ctx context.Context, user *models.User, token string) (string, error) {
	return a.adAccount(ctx, user, func(ctx context.Context) (string, error) {
		var accounts fbList
		if err := a.get(ctx, token, "me/adaccounts", "id,name", &accounts); err != nil {
			return "", err
		}
		if len(accounts.Data) == 0 {
			return "", noAdAccount()
		}
		return accounts.Data[0].ID, nil
	})
}

func (a *FacebookAdapter) CreateCampaign(ctx context.Context, campaign *models.Campaign, user *models.User) (id string, err error) {
	defer a.observe(opCreate, time.Now(), &err)

	cred, err := a.credential(user)
	if err != nil {
		return "", err
	}
	accountID, err := a.adAccountID(ctx, user, cred.AccessToken)
	if err != nil {
		return "", err
	}

	var created fbNode
	err = a.post(ctx, cred.AccessToken, accountID+"/campaigns", map[string]interface{}{
		"name":                  campaign.Name,
		"objective":             facebookObjective(campaign.Objective),
		"status":                facebookStatus(campaign.Status),
		"special_ad_categories": []string{},
	}, &created)
	if err != nil {
		return "", err
	}

	if campaign.TargetAudience != nil && len(campaign.CreativeAssets) > 0 {
		if err := a.createAdSetWithAds(ctx, cred.AccessToken, accountID, created.ID, campaign); err != nil {
			log.Printf("Error creating Facebook ad sets or ads for campaign %s: %v", campaign.ID, err)
		}
	}

	return created.ID, nil
}

func (a *FacebookAdapter) createAdSetWithAds(ctx context.Context, token, accountID, campaignID string, campaign *models.Campaign) error {
	body := map[string]interface{}{
		"name":              campaign.Name + " - Ad Set",
		"campaign_id":       campaignID,
		"daily_budget":      toCents(campaign.Budget.Daily),
		"bid_amount":        500,
		"billing_event":     "IMPRESSIONS",
		"optimization_goal": facebookOptimizationGoal(campaign.Objective),
		"targeting":         facebookTargeting(campaign.TargetAudience),
		"status":            facebookStatus(campaign.Status),
		"start_time":        campaign.StartDate.UTC().Format(time.RFC3339),
	}
	if campaign.EndDate != nil {
		body["end_time"] = campaign.EndDate.UTC().Format(time.RFC3339)
	}

	var adSet fbNode
	if err := a.post(ctx, token, accountID+"/adsets", body, &adSet); err != nil {
		return fmt.Errorf("failed to create ad set: %w", err)
	}

	pageID := ""
	for _, asset := range campaign.CreativeAssets {
		if asset.URL == "" || asset.Title == "" {
			continue
		}
		if asset.Type != models.AssetTypeImage && asset.Type != models.AssetTypeVideo {
			continue
		}
		if pageID == "" {
			var pages fbList
			if err := a.get(ctx, token, "me/accounts", "id,name", &pages); err != nil {
				return fmt.Errorf("failed to get page: %w", err)
			}
			if len(pages.Data) == 0 {
				return fmt.Errorf("no Facebook Pages found for this user")
			}
			pageID = pages.Data[0].ID
		}
		if err := a.createAd(ctx, token, accountID, adSet.ID, pageID, campaign, asset); err != nil {
			return fmt.Errorf("failed to create ad %q: %w", asset.Title, err)
		}
	}
	return nil
}

func (a *FacebookAdapter) createAd(ctx context.Context, token, accountID, adSetID, pageID string, campaign *models.Campaign, asset models.CreativeAsset) error {
	linkData := map[string]interface{}{
		"message":        asset.Description,
		"link":           asset.URL,
		"call_to_action": map[string]string{"type": facebookCallToAction(asset.CallToAction)},
	}

	switch asset.Type {
	case models.AssetTypeImage:
		var uploaded struct {
			Images map[string]struct {
				Hash string `json:"hash"`
			} `json:"images"`
		}
		parts := strings.Split(asset.URL, "/")
		if err := a.post(ctx, token, accountID+"/adimages", map[string]string{"filename": parts[len(parts)-1], "url": asset.URL}, &uploaded); err != nil {
			return err
		}
		for _, img := range uploaded.Images {
			linkData["image_hash"] = img.Hash
			break
		}
	case models.AssetTypeVideo:
		var video fbNode
		if err := a.post(ctx, token, accountID+"/advideos", map[string]string{"file_url": asset.URL, "name": asset.Title}, &video); err != nil {
			return err
		}
		linkData["video_id"] = video.ID
	}

	var creative fbNode
	err := a.post(ctx, token, accountID+"/adcreatives", map[string]interface{}{
		"name": asset.Title,
		"object_story_spec": map[string]interface{}{
			"page_id":   pageID,
			"link_data": linkData,
		},
	}, &creative)
	if err != nil {
		return err
	}

	return a.post(ctx, token, accountID+"/ads", map[string]interface{}{
		"name":     campaign.Name + " - " + asset.Title,
		"adset_id": adSetID,
		"creative": map[string]string{"creative_id": creative.ID},
		"status":   facebookStatus(campaign.Status),
	}, nil)
}

func facebookTargeting(t *models.TargetAudience) map[string]interface{} {
	targeting := map[string]interface{}{
		"age_min": 18,
		"age_max": 65,
	}
	if t.AgeRange != nil {
		if t.AgeRange.Min > 0 {
			targeting["age_min"] = t.AgeRange.Min
		}
		if t.AgeRange.Max > 0 {
			targeting["age_max"] = t.AgeRange.Max
		}
	}
	if len(t.Genders) > 0 {
		switch t.Genders[0] {
		case "MALE":
			targeting["genders"] = []int{1}
		case "FEMALE":
			targeting["genders"] = []int{2}
		default:
			targeting["genders"] = []int{1, 2}
		}
	}
	countries := t.Locations
	if len(countries) == 0 {
		countries = []string{"US"}
	}
	targeting["geo_locations"] = map[string]interface{}{"countries": countries}
	if len(t.Interests) > 0 {
		interests := make([]map[string]string, 0, len(t.Interests))
		for _, in := range t.Interests {
			interests = append(interests, map[string]string{"id": in, "name": in})
		}
		targeting["interests"] = interests
	}
	return targeting
}

func (a *FacebookAdapter) UpdateCampaign(ctx context.Context, vendorID string, campaign *models.Campaign, user *models.User) (err error) {
	defer a.observe(opUpdate, time.Now(), &err)

	cred, err := a.credential(user)
	if err != nil {
		return err
	}
	body := map[string]interface{}{
		"name":   campaign.Name,
		"status": facebookStatus(campaign.Status),
	}
	if campaign.EndDate != nil {
		body["stop_time"] = campaign.EndDate.UTC().Format(time.RFC3339)
	}
	return a.post(ctx, cred.AccessToken, vendorID, body, nil)
}

func (a *FacebookAdapter) DeleteCampaign(ctx context.Context, vendorID string, user *models.User) (err error) {
	defer a.observe(opDelete, time.Now(), &err)

	cred, err := a.credential(user)
	if err != nil {
		return err
	}
	return a.post(ctx, cred.AccessToken, vendorID, map[string]string{"status": "DELETED"}, nil)
}

func (a *FacebookAdapter) GetCampaignMetrics(ctx context.Context, vendorID string, user *models.User) (m models.Metrics, err error) {
	defer a.observe(opMetrics, time.Now(), &err)

	cred, err := a.credential(user)
	if err != nil {
		return m, err
	}

	var insights fbInsights
	q := url.Values{
		"access_token": {cred.AccessToken},
		"fields":       {"impressions,clicks,spend,ctr,cpc,cpm"},
		"date_preset":  {"lifetime"},
	}
	if err := a.http.do(ctx, call{Method: http.MethodGet, URL: a.url(vendorID + "/insights"), Query: q}, &insights); err != nil {
		return m, err
	}
	if len(insights.Data) == 0 {
		return m, nil
	}

	row := insights.Data[0]
	// Conversions need separate pixel tracking and are not reported here.
	return models.Metrics{
		Impressions: row.Impressions.Int(),
		Clicks:      row.Clicks.Int(),
		Spend:       row.Spend.Float(),
		CTR:         row.CTR.Float(),
		CPC:         row.CPC.Float(),
		CPM:         row.CPM.Float(),
	}, nil
}

// GetCampaignLeads walks ad sets, ads, lead forms and their leads.
func (a *FacebookAdapter) GetCampaignLeads(ctx context.Context, vendorID string, user *models.User) (leads []RawLead, err error) {
	defer a.observe(opLeads, time.Now(), &err)

	cred, err := a.credential(user)
	if err != nil {
		return nil, err
	}
	token := cred.AccessToken

	var adSets fbList
	if err := a.get(ctx, token, vendorID+"/adsets", "id", &adSets); err != nil {
		return nil, err
	}

	leads = []RawLead{}
	for _, adSet := range adSets.Data {
		var ads fbList
		if err := a.get(ctx, token, adSet.ID+"/ads", "id", &ads); err != nil {
			return nil, err
		}
		for _, ad := range ads.Data {
			var forms fbList
			if err := a.get(ctx, token, ad.ID+"/leadgen_forms", "", &forms); err != nil {
				return nil, err
			}
			for _, form := range forms.Data {
				var page fbLeads
				if err := a.get(ctx, token, form.ID+"/leads", "field_data,created_time", &page); err != nil {
					return nil, err
				}
				for _, entry := range page.Data {
					lead := RawLead{AdID: ad.ID, AdditionalInfo: map[string]string{}}
					for _, field := range entry.FieldData {
						value := ""
						if len(field.Values) > 0 {
							value = field.Values[0]
						}
						switch strings.ToLower(field.Name) {
						case "first_name":
							lead.FirstName = value
						case "last_name":
							lead.LastName = value
						case "email":
							lead.Email = value
						case "phone", "phone_number":
							lead.Phone = value
						default:
							lead.AdditionalInfo[field.Name] = value
						}
					}
					if lead.Email != "" {
						leads = append(leads, lead)
					}
				}
			}
		}
	}
	return leads, nil
}

// LaunchCampaign requires at least one ad set with at least one ad, then
// activates the campaign, its ad sets and their ads.
func (a *FacebookAdapter) LaunchCampaign(ctx context.Context, vendorID string, user *models.User) (err error) {
	defer a.observe(opLaunch, time.Now(), &err)

	cred, err := a.credential(user)
	if err != nil {
		return err
	}
	token := cred.AccessToken

	var remote fbNode
	if err := a.get(ctx, token, vendorID, "id,name,status,objective", &remote); err != nil {
		return err
	}
	if remote.ID == "" {
		return notReady(fmt.Sprintf("Campaign with ID %s not found", vendorID))
	}

	var adSets fbList
	if err := a.get(ctx, token, vendorID+"/adsets", "id,name,status", &adSets); err != nil {
		return err
	}
	if len(adSets.Data) == 0 {
		return notReady("Campaign does not have any ad sets")
	}

	adsBySet := make(map[string][]fbNode, len(adSets.Data))
	hasAds := false
	for _, adSet := range adSets.Data {
		var ads fbList
		if err := a.get(ctx, token, adSet.ID+"/ads", "id,name,status", &ads); err != nil {
			return err
		}
		adsBySet[adSet.ID] = ads.Data
		if len(ads.Data) > 0 {
			hasAds = true
		}
	}
	if !hasAds {
		return notReady("Campaign does not have any ads")
	}

	active := map[string]string{"status": "ACTIVE"}
	if err := a.post(ctx, token, vendorID, active, nil); err != nil {
		return err
	}
	for _, adSet := range adSets.Data {
		if err := a.post(ctx, token, adSet.ID, active, nil); err != nil {
			return err
		}
		for _, ad := range adsBySet[adSet.ID] {
			if err := a.post(ctx, token, ad.ID, active, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
