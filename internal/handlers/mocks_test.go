package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/white/campaign-manager/internal/events"
	"github.com/white/campaign-manager/internal/middleware"
	"github.com/white/campaign-manager/internal/models"
	"github.com/white/campaign-manager/internal/services"
)

var testRequester = services.Requester{UserID: "0192f3a4-5b6c-7d8e-9f01-23456789abcd", Role: models.UserRoleUser}

type mockCampaignService struct {
	mock.Mock
}

func (m *mockCampaignService) List(ctx context.Context, req services.Requester, all bool) ([]models.Campaign, error) {
	args := m.Called(req, all)
	campaigns, _ := args.Get(0).([]models.Campaign)
	return campaigns, args.Error(1)
}

func (m *mockCampaignService) Get(ctx context.Context, req services.Requester, id string) (*models.Campaign, error) {
	args := m.Called(req, id)
	campaign, _ := args.Get(0).(*models.Campaign)
	return campaign, args.Error(1)
}

func (m *mockCampaignService) Create(ctx context.Context, req services.Requester, in services.CampaignInput) (*services.CampaignResult, error) {
	args := m.Called(req, in)
	result, _ := args.Get(0).(*services.CampaignResult)
	return result, args.Error(1)
}

func (m *mockCampaignService) Update(ctx context.Context, req services.Requester, id string, in services.CampaignUpdate) (*services.CampaignResult, error) {
	args := m.Called(req, id, in)
	result, _ := args.Get(0).(*services.CampaignResult)
	return result, args.Error(1)
}

func (m *mockCampaignService) Delete(ctx context.Context, req services.Requester, id string) error {
	return m.Called(req, id).Error(0)
}

func (m *mockCampaignService) SyncMetrics(ctx context.Context, req services.Requester, id string) (*services.CampaignResult, error) {
	args := m.Called(req, id)
	result, _ := args.Get(0).(*services.CampaignResult)
	return result, args.Error(1)
}

func (m *mockCampaignService) Launch(ctx context.Context, req services.Requester, id, platform string) (*models.Campaign, error) {
	args := m.Called(req, id, platform)
	campaign, _ := args.Get(0).(*models.Campaign)
	return campaign, args.Error(1)
}

type mockLeadService struct {
	mock.Mock
}

func (m *mockLeadService) List(ctx context.Context, req services.Requester, q services.LeadQuery) ([]models.Lead, error) {
	args := m.Called(req, q)
	leads, _ := args.Get(0).([]models.Lead)
	return leads, args.Error(1)
}

func (m *mockLeadService) Get(ctx context.Context, req services.Requester, id string) (*models.Lead, error) {
	args := m.Called(req, id)
	lead, _ := args.Get(0).(*models.Lead)
	return lead, args.Error(1)
}

func (m *mockLeadService) Create(ctx context.Context, req services.Requester, in services.LeadInput) (*models.Lead, error) {
	args := m.Called(req, in)
	lead, _ := args.Get(0).(*models.Lead)
	return lead, args.Error(1)
}

func (m *mockLeadService) Update(ctx context.Context, req services.Requester, id string, in services.LeadUpdate) (*models.Lead, error) {
	args := m.Called(req, id, in)
	lead, _ := args.Get(0).(*models.Lead)
	return lead, args.Error(1)
}

func (m *mockLeadService) Delete(ctx context.Context, req services.Requester, id string) error {
	return m.Called(req, id).Error(0)
}

func (m *mockLeadService) SyncCampaignLeads(ctx context.Context, req services.Requester, campaignID string) (*services.LeadSyncResult, error) {
	args := m.Called(req, campaignID)
	result, _ := args.Get(0).(*services.LeadSyncResult)
	return result, args.Error(1)
}

type mockPlatformService struct {
	mock.Mock
}

func (m *mockPlatformService) ListCatalog(ctx context.Context) ([]models.Platform, error) {
	args := m.Called()
	entries, _ := args.Get(0).([]models.Platform)
	return entries, args.Error(1)
}

func (m *mockPlatformService) GetCatalogEntry(ctx context.Context, id string) (*models.Platform, error) {
	args := m.Called(id)
	entry, _ := args.Get(0).(*models.Platform)
	return entry, args.Error(1)
}

func (m *mockPlatformService) Connect(ctx context.Context, req services.Requester, platform, code, redirectURI string) (*services.ConnectionStatus, error) {
	args := m.Called(req, platform, code, redirectURI)
	status, _ := args.Get(0).(*services.ConnectionStatus)
	return status, args.Error(1)
}

func (m *mockPlatformService) Disconnect(ctx context.Context, req services.Requester, platform string) (*services.ConnectionStatus, error) {
	args := m.Called(req, platform)
	status, _ := args.Get(0).(*services.ConnectionStatus)
	return status, args.Error(1)
}

func (m *mockPlatformService) ConnectedPlatforms(ctx context.Context, req services.Requester) (map[string]bool, error) {
	args := m.Called(req)
	connected, _ := args.Get(0).(map[string]bool)
	return connected, args.Error(1)
}

func (m *mockPlatformService) ConfigStatus(platform string) (*services.AppConfigStatus, error) {
	args := m.Called(platform)
	status, _ := args.Get(0).(*services.AppConfigStatus)
	return status, args.Error(1)
}

type mockSyncQueue struct {
	mock.Mock
	enabled bool
}

func (m *mockSyncQueue) Enabled() bool {
	return m.enabled
}

func (m *mockSyncQueue) Enqueue(ctx context.Context, req events.SyncRequest) (events.SyncRequest, error) {
	args := m.Called(req)
	return args.Get(0).(events.SyncRequest), args.Error(1)
}

// fakeAuth authenticates any request carrying an Authorization header as testRequester.
func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(middleware.WithRequester(r.Context(), testRequester)))
	})
}

type testServer struct {
	router    *mux.Router
	campaigns *mockCampaignService
	leads     *mockLeadService
	platforms *mockPlatformService
	queue     *mockSyncQueue
}

func newTestServer() *testServer {
	s := &testServer{
		router:    mux.NewRouter(),
		campaigns: &mockCampaignService{},
		leads:     &mockLeadService{},
		platforms: &mockPlatformService{},
		queue:     &mockSyncQueue{},
	}
	RegisterRoutes(s.router,
		NewCampaignHandler(s.campaigns, s.leads, s.queue),
		NewLeadHandler(s.leads),
		NewPlatformHandler(s.platforms),
		fakeAuth,
	)
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer test")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Success        bool                       `json:"success"`
	Data           json.RawMessage            `json:"data"`
	PlatformErrors []services.PlatformFailure `json:"platformErrors"`
	Error          *ErrorDetail               `json:"error"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env
}
