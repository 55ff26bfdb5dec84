package platforms

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/white/campaign-manager/internal/models"
)

func TestFacebookCreateCampaign(t *testing.T) {
	v := newVendor(t, map[string]http.HandlerFunc{
		"GET /me/adaccounts":     ok(`{"data":[{"id":"act_42","name":"Main"}]}`),
		"POST /act_42/campaigns": ok(`{"id":"fb-1"}`),
	})
	a := NewFacebookAdapter(v.options())

	id, err := a.CreateCampaign(context.Background(), sampleCampaign(), userWith(models.PlatformFacebook))
	require.NoError(t, err)
	assert.Equal(t, "fb-1", id)

	req := v.last(http.MethodPost, "/act_42/campaigns")
	require.NotNil(t, req)
	assert.Equal(t, "user-token", req.Query["access_token"][0])
	assert.Equal(t, "Spring Sale", req.Body["name"])
	assert.Equal(t, "OUTCOME_LEADS", req.Body["objective"])
	assert.Equal(t, "ACTIVE", req.Body["status"])
	assert.Zero(t, v.count(http.MethodPost, "/act_42/adsets"), "no audience means no ad set")
}

func TestFacebookCreateCampaignWithAdSetAndAds(t *testing.T) {
	v := newVendor(t, map[string]http.HandlerFunc{
		"GET /me/adaccounts":       ok(`{"data":[{"id":"act_42"}]}`),
		"POST /act_42/campaigns":   ok(`{"id":"fb-1"}`),
		"POST /act_42/adsets":      ok(`{"id":"set-1"}`),
		"GET /me/accounts":         ok(`{"data":[{"id":"page-1"}]}`),
		"POST /act_42/adimages":    ok(`{"images":{"banner.png":{"hash":"abc123"}}}`),
		"POST /act_42/adcreatives": ok(`{"id":"creative-1"}`),
		"POST /act_42/ads":         ok(`{"id":"ad-1"}`),
	})
	a := NewFacebookAdapter(v.options())

	c := sampleCampaign()
	c.TargetAudience = &models.TargetAudience{
		Locations: []string{"DE"},
		AgeRange:  &models.AgeRange{Min: 21, Max: 45},
		Genders:   []string{"FEMALE"},
	}
	c.CreativeAssets = []models.CreativeAsset{
		{Type: models.AssetTypeImage, URL: "https://cdn.example.com/banner.png", Title: "Banner", CallToAction: "SHOP_NOW"},
		{Type: models.AssetTypeText, URL: "https://example.com", Title: "Skipped"},
	}

	id, err := a.CreateCampaign(context.Background(), c, userWith(models.PlatformFacebook))
	require.NoError(t, err)
	assert.Equal(t, "fb-1", id)

	adSet := v.last(http.MethodPost, "/act_42/adsets")
	require.NotNil(t, adSet)
	assert.Equal(t, float64(2550), adSet.Body["daily_budget"])
	assert.Equal(t, "LEAD_GENERATION", adSet.Body["optimization_goal"])
	targeting := adSet.Body["targeting"].(map[string]interface{})
	assert.Equal(t, float64(21), targeting["age_min"])
	assert.Equal(t, []interface{}{float64(2)}, targeting["genders"])

	creative := v.last(http.MethodPost, "/act_42/adcreatives")
	require.NotNil(t, creative)
	spec := creative.Body["object_story_spec"].(map[string]interface{})
	assert.Equal(t, "page-1", spec["page_id"])
	link := spec["link_data"].(map[string]interface{})
	assert.Equal(t, "abc123", link["image_hash"])

	assert.Equal(t, 1, v.count(http.MethodPost, "/act_42/ads"))
}

func TestFacebookCreateCampaignAdSetFailureKeepsCampaign(t *testing.T) {
	v := newVendor(t, map[string]http.HandlerFunc{
		"GET /me/adaccounts":     ok(`{"data":[{"id":"act_42"}]}`),
		"POST /act_42/campaigns": ok(`{"id":"fb-1"}`),
		"POST /act_42/adsets":    reply(http.StatusBadRequest, `{"error":{"message":"Invalid targeting"}}`),
	})
	a := NewFacebookAdapter(v.options())

	c := sampleCampaign()
	c.TargetAudience = &models.TargetAudience{}
	c.CreativeAssets = []models.CreativeAsset{{Type: models.AssetTypeImage, URL: "https://x/y.png", Title: "Y"}}

	id, err := a.CreateCampaign(context.Background(), c, userWith(models.PlatformFacebook))
	require.NoError(t, err)
	assert.Equal(t, "fb-1", id)
}

func TestFacebookNotConnected(t *testing.T) {
	v := newVendor(t, nil)
	a := NewFacebookAdapter(v.options())
	user := &models.User{ID: "user-1"}

	_, err := a.CreateCampaign(context.Background(), sampleCampaign(), user)
	requirePlatformError(t, err, "Failed to create Facebook campaign: Facebook account not connected")
	assert.True(t, errors.Is(err, ErrNotConnected))

	user.PlatformCredentials.Facebook = &models.PlatformCredential{AccessToken: "tok", IsConnected: false}
	_, err = a.GetCampaignMetrics(context.Background(), "fb-1", user)
	requirePlatformError(t, err, "Failed to get Facebook campaign metrics: Facebook account not connected")

	assert.Zero(t, v.total(), "no vendor call without a credential")
}

func TestFacebookVendorError(t *testing.T) {
	v := newVendor(t, map[string]http.HandlerFunc{
		"GET /me/adaccounts":     ok(`{"data":[{"id":"act_42"}]}`),
		"POST /act_42/campaigns": reply(http.StatusBadRequest, `{"error":{"message":"Invalid parameter","code":100}}`),
	})
	a := NewFacebookAdapter(v.options())

	_, err := a.CreateCampaign(context.Background(), sampleCampaign(), userWith(models.PlatformFacebook))
	pe := requirePlatformError(t, err, "Failed to create Facebook campaign: Invalid parameter")
	assert.Equal(t, models.PlatformFacebook, pe.Platform)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestFacebookNoAdAccounts(t *testing.T) {
	v := newVendor(t, map[string]http.HandlerFunc{
		"GET /me/adaccounts": ok(`{"data":[]}`),
	})
	a := NewFacebookAdapter(v.options())

	_, err := a.CreateCampaign(context.Background(), sampleCampaign(), userWith(models.PlatformFacebook))
	requirePlatformError(t, err, "Failed to create Facebook campaign: No ad accounts found for this user")
	assert.True(t, errors.Is(err, ErrNoAdAccount))
}

func TestFacebookAdAccountIsCached(t *testing.T) {
	v := newVendor(t, map[string]http.HandlerFunc{
		"GET /me/adaccounts":     ok(`{"data":[{"id":"act_42"}]}`),
		"POST /act_42/campaigns": ok(`{"id":"fb-1"}`),
	})
	opts := v.options()
	opts.Accounts = newMemoryAccounts()
	a := NewFacebookAdapter(opts)
	user := userWith(models.PlatformFacebook)

	for i := 0; i < 3; i++ {
		_, err := a.CreateCampaign(context.Background(), sampleCampaign(), user)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, v.count(http.MethodGet, "/me/adaccounts"))
}

func TestFacebookUpdateAndDelete(t *testing.T) {
	v := newVendor(t, map[string]http.HandlerFunc{
		"POST /fb-1": ok(`{"success":true}`),
	})
	a := NewFacebookAdapter(v.options())
	user := userWith(models.PlatformFacebook)

	c := sampleCampaign()
	c.Status = models.CampaignStatusDraft
	require.NoError(t, a.UpdateCampaign(context.Background(), "fb-1", c, user))
	req := v.last(http.MethodPost, "/fb-1")
	assert.Equal(t, "PAUSED", req.Body["status"])
	assert.Equal(t, "2026-12-31T00:00:00Z", req.Body["stop_time"])

	require.NoError(t, a.DeleteCampaign(context.Background(), "fb-1", user))
	req = v.last(http.MethodPost, "/fb-1")
	assert.Equal(t, "DELETED", req.Body["status"])
}

func TestFacebookMetrics(t *testing.T) {
	v := newVendor(t, map[string]http.HandlerFunc{
		"GET /fb-1/insights": ok(`{"data":[{"impressions":"1000","clicks":"50","spend":"12.50","ctr":"5.0","cpc":"0.25","cpm":"12.5"}]}`),
	})
	a := NewFacebookAdapter(v.options())

	m, err := a.GetCampaignMetrics(context.Background(), "fb-1", userWith(models.PlatformFacebook))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), m.Impressions)
	assert.Equal(t, int64(50), m.Clicks)
	assert.Zero(t, m.Conversions)
	assert.InDelta(t, 12.5, m.Spend, 1e-9)
	assert.InDelta(t, 0.25, m.CPC, 1e-9)
	assert.Equal(t, "lifetime", v.last(http.MethodGet, "/fb-1/insights").Query["date_preset"][0])
}

func TestFacebookMetricsEmpty(t *testing.T) {
	v := newVendor(t, map[string]http.HandlerFunc{
		"GET /fb-1/insights": ok(`{"data":[]}`),
	})
	a := NewFacebookAdapter(v.options())

	m, err := a.GetCampaignMetrics(context.Background(), "fb-1", userWith(models.PlatformFacebook))
	require.NoError(t, err)
	assert.Equal(t, models.Metrics{}, m)
}

func TestFacebookLeads(t *testing.T) {
	v := newVendor(t, map[string]http.HandlerFunc{
		"GET /fb-1/adsets":        ok(`{"data":[{"id":"set-1"}]}`),
		"GET /set-1/ads":          ok(`{"data":[{"id":"ad-1"}]}`),
		"GET /ad-1/leadgen_forms": ok(`{"data":[{"id":"form-1"}]}`),
		"GET /form-1/leads": ok(`{"data":[
			{"field_data":[{"name":"first_name","values":["Jane"]},{"name":"last_name","values":["Doe"]},
				{"name":"email","values":["jane@example.com"]},{"name":"phone_number","values":["+1555"]},
				{"name":"company","values":["Acme"]}]},
			{"field_data":[{"name":"first_name","values":["NoEmail"]}]}
		]}`),
	})
	a := NewFacebookAdapter(v.options())

	leads, err := a.GetCampaignLeads(context.Background(), "fb-1", userWith(models.PlatformFacebook))
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, RawLead{
		FirstName:      "Jane",
		LastName:       "Doe",
		Email:          "jane@example.com",
		Phone:          "+1555",
		AdID:           "ad-1",
		AdditionalInfo: map[string]string{"company": "Acme"},
	}, leads[0])
}

func TestFacebookLaunch(t *testing.T) {
	t.Run("activates campaign, ad sets and ads", func(t *testing.T) {
		v := newVendor(t, map[string]http.HandlerFunc{
			"GET /fb-1":        ok(`{"id":"fb-1","status":"PAUSED"}`),
			"GET /fb-1/adsets": ok(`{"data":[{"id":"set-1"}]}`),
			"GET /set-1/ads":   ok(`{"data":[{"id":"ad-1"}]}`),
			"POST /fb-1":       ok(`{"success":true}`),
			"POST /set-1":      ok(`{"success":true}`),
			"POST /ad-1":       ok(`{"success":true}`),
		})
		a := NewFacebookAdapter(v.options())

		require.NoError(t, a.LaunchCampaign(context.Background(), "fb-1", userWith(models.PlatformFacebook)))
		for _, path := range []string{"/fb-1", "/set-1", "/ad-1"} {
			req := v.last(http.MethodPost, path)
			require.NotNil(t, req, path)
			assert.Equal(t, "ACTIVE", req.Body["status"])
		}
	})

	t.Run("no ad sets", func(t *testing.T) {
		v := newVendor(t, map[string]http.HandlerFunc{
			"GET /fb-1":        ok(`{"id":"fb-1"}`),
			"GET /fb-1/adsets": ok(`{"data":[]}`),
		})
		a := NewFacebookAdapter(v.options())

		err := a.LaunchCampaign(context.Background(), "fb-1", userWith(models.PlatformFacebook))
		requirePlatformError(t, err, "Failed to launch Facebook campaign: Campaign does not have any ad sets")
		assert.True(t, IsNotReady(err))
		assert.Zero(t, v.count(http.MethodPost, "/fb-1"))
	})

	t.Run("ad sets without ads", func(t *testing.T) {
		v := newVendor(t, map[string]http.HandlerFunc{
			"GET /fb-1":        ok(`{"id":"fb-1"}`),
			"GET /fb-1/adsets": ok(`{"data":[{"id":"set-1"}]}`),
			"GET /set-1/ads":   ok(`{"data":[]}`),
		})
		a := NewFacebookAdapter(v.options())

		err := a.LaunchCampaign(context.Background(), "fb-1", userWith(models.PlatformFacebook))
		requirePlatformError(t, err, "Failed to launch Facebook campaign: Campaign does not have any ads")
		assert.True(t, IsNotReady(err))
	})
}

func TestFacebookExchangeCode(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		v := newVendor(t, map[string]http.HandlerFunc{
			"POST /token": ok(`{"access_token":"long-lived","token_type":"bearer","expires_in":3600}`),
		})
		a := NewFacebookAdapter(v.options())

		before := time.Now()
		cred, err := a.ExchangeCodeForTokens(context.Background(), "auth-code", "https://app.example.com/callback")
		require.NoError(t, err)
		assert.Equal(t, "long-lived", cred.AccessToken)
		assert.True(t, cred.IsConnected)
		assert.Nil(t, cred.RefreshToken)
		require.NotNil(t, cred.ExpiresAt)
		assert.WithinDuration(t, before.Add(time.Hour), *cred.ExpiresAt, 5*time.Second)
	})

	t.Run("missing code", func(t *testing.T) {
		v := newVendor(t, nil)
		a := NewFacebookAdapter(v.options())

		_, err := a.ExchangeCodeForTokens(context.Background(), "", "https://app.example.com/callback")
		var ae *AuthExchangeError
		require.ErrorAs(t, err, &ae)
		assert.Zero(t, v.total())
	})

	t.Run("rejected code", func(t *testing.T) {
		v := newVendor(t, map[string]http.HandlerFunc{
			"POST /token": reply(http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Code has expired"}`),
		})
		a := NewFacebookAdapter(v.options())

		_, err := a.ExchangeCodeForTokens(context.Background(), "stale", "https://app.example.com/callback")
		var ae *AuthExchangeError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "Failed to exchange code for Facebook tokens: Code has expired", ae.Error())
	})
}
