package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/white/campaign-manager/internal/models"
	"github.com/white/campaign-manager/internal/platforms"
	"github.com/white/campaign-manager/internal/services"
)

func TestPlatformRoutes(t *testing.T) {
	s := newTestServer()
	s.platforms.On("ListCatalog").Return([]models.Platform{{ID: "p-1", Name: models.PlatformFacebook}}, nil).Once()
	s.platforms.On("ConnectedPlatforms", testRequester).Return(map[string]bool{"facebook": true, "google": false}, nil).Once()
	s.platforms.On("GetCatalogEntry", "p-1").Return(&models.Platform{ID: "p-1", Name: models.PlatformFacebook}, nil).Once()

	rr := s.do(t, http.MethodGet, "/api/v1/platforms", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/v1/platforms/connected", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"data":{"facebook":true,"google":false}}`, rr.Body.String())

	rr = s.do(t, http.MethodGet, "/api/v1/platforms/p-1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	s.platforms.AssertExpectations(t)
}

func TestGetConfigStatus_IsPublic(t *testing.T) {
	s := newTestServer()
	s.platforms.On("ConfigStatus", "facebook").Return(&services.AppConfigStatus{
		Platform: models.PlatformFacebook, ClientIDConfigured: true, ClientSecretConfigured: true, Configured: true,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/platforms/facebook/config-status", nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"data":{"platform":"FACEBOOK","clientIdConfigured":true,"clientSecretConfigured":true,"configured":true}}`, rr.Body.String())
}

func TestConnectPlatform(t *testing.T) {
	t.Run("exchanges the code", func(t *testing.T) {
		s := newTestServer()
		s.platforms.On("Connect", testRequester, "google", "auth-code", "https://app.example.com/cb").
			Return(&services.ConnectionStatus{Platform: models.PlatformGoogle, IsConnected: true}, nil).Once()

		rr := s.do(t, http.MethodPost, "/api/v1/platforms/google/connect", `{"code":"auth-code","redirectUri":"https://app.example.com/cb"}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Contains(t, rr.Body.String(), `"isConnected":true`)
	})

	t.Run("failed exchange is a bad request", func(t *testing.T) {
		s := newTestServer()
		s.platforms.On("Connect", testRequester, "facebook", "bad", "").
			Return(nil, &platforms.AuthExchangeError{Platform: models.PlatformFacebook, Message: "Invalid verification code format."}).Once()

		rr := s.do(t, http.MethodPost, "/api/v1/platforms/facebook/connect", `{"code":"bad"}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		env := decodeEnvelope(t, rr)
		assert.Equal(t, "AUTH_EXCHANGE_FAILED", env.Error.Code)
		assert.Equal(t, "Invalid verification code format.", env.Error.Message)
	})
}

func TestDisconnectPlatform(t *testing.T) {
	s := newTestServer()
	s.platforms.On("Disconnect", testRequester, "linkedin").
		Return(&services.ConnectionStatus{Platform: models.PlatformLinkedIn}, nil).Once()

	rr := s.do(t, http.MethodPost, "/api/v1/platforms/linkedin/disconnect", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"isConnected":false`)
}

func TestWriteServiceError_VendorFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	writeServiceError(rr, &platforms.PlatformError{Platform: models.PlatformSnapchat, Op: "launch", Message: "Snapchat API error: rate limited"})

	require.Equal(t, http.StatusBadGateway, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.Equal(t, "PLATFORM_ERROR", env.Error.Code)
	assert.Equal(t, "Snapchat API error: rate limited", env.Error.Message)
}

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler("campaign-manager", "1.0.0", map[string]CheckFunc{
		"mongodb": func(ctx context.Context) error { return nil },
		"redis":   func(ctx context.Context) error { return errors.New("connection refused") },
	})

	rr := httptest.NewRecorder()
	h.GetOverallHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"unhealthy"`)
	assert.Contains(t, rr.Body.String(), "connection refused")

	rr = httptest.NewRecorder()
	NewHealthHandler("campaign-manager", "1.0.0", nil).GetOverallHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
