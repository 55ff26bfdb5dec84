package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/white/campaign-manager/config"
	"github.com/white/campaign-manager/internal/models"
)

// vendor is a fake ad API that records every request it serves.
type vendor struct {
	*httptest.Server
	mu       sync.Mutex
	requests []*recorded
}

type recorded struct {
	Method string
	Path   string
	Query  map[string][]string
	Header http.Header
	Body   map[string]interface{}
}

func newVendor(t *testing.T, routes map[string]http.HandlerFunc) *vendor {
	t.Helper()
	v := &vendor{}
	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.HandleFunc(pattern, h)
	}
	v.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		rec := &recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Header: r.Header.Clone()}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.Body)
		}
		v.mu.Lock()
		v.requests = append(v.requests, rec)
		v.mu.Unlock()
		r.Body = io.NopCloser(bytes.NewReader(raw))
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(v.Close)
	return v
}

// last returns the most recent request to method+path.
func (v *vendor) last(method, path string) *recorded {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := len(v.requests) - 1; i >= 0; i-- {
		if r := v.requests[i]; r.Method == method && r.Path == path {
			return r
		}
	}
	return nil
}

func (v *vendor) count(method, path string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, r := range v.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (v *vendor) total() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.requests)
}

func (v *vendor) options() Options {
	return Options{
		App: config.OAuthAppConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			APIURL:       v.URL,
			TokenURL:     v.URL + "/token",
		},
		Transport: NewTransportWithClient(v.Client()),
	}
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func ok(body string) http.HandlerFunc {
	return reply(http.StatusOK, body)
}

// userWith returns a user holding a connected credential for owner.
func userWith(owner models.PlatformName) *models.User {
	cred := &models.PlatformCredential{AccessToken: "user-token", IsConnected: true}
	u := &models.User{ID: "user-1", Name: "Ada", Email: "ada@example.com", Role: models.UserRoleUser}
	switch owner {
	case models.PlatformFacebook:
		u.PlatformCredentials.Facebook = cred
	case models.PlatformGoogle:
		u.PlatformCredentials.Google = cred
	case models.PlatformLinkedIn:
		u.PlatformCredentials.LinkedIn = cred
	case models.PlatformTwitter:
		secret := "token-secret"
		cred.AccessTokenSecret = &secret
		u.PlatformCredentials.Twitter = cred
	case models.PlatformSnapchat:
		u.PlatformCredentials.Snapchat = cred
	}
	return u
}

func sampleCampaign() *models.Campaign {
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	return &models.Campaign{
		ID:        "camp-1",
		UserID:    "user-1",
		Name:      "Spring Sale",
		Objective: models.ObjectiveLeadGeneration,
		Budget:    models.Budget{Daily: 25.5, Currency: "USD"},
		StartDate: time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   &end,
		Status:    models.CampaignStatusActive,
	}
}

// memoryAccounts is an in-process AccountCache.
type memoryAccounts struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{data: map[string]string{}}
}

func (m *memoryAccounts) GetAccount(_ context.Context, p models.PlatformName, userID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, found := m.data[p.Key()+":"+userID]
	return id, found
}

func (m *memoryAccounts) SetAccount(_ context.Context, p models.PlatformName, userID, accountID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[p.Key()+":"+userID] = accountID
}

func requirePlatformError(t *testing.T, err error, message string) *PlatformError {
	t.Helper()
	require.Error(t, err)
	var pe *PlatformError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, message, pe.Error())
	return pe
}
