package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/white/campaign-manager/internal/events"
	"github.com/white/campaign-manager/internal/models"
	"github.com/white/campaign-manager/internal/platforms"
	"github.com/white/campaign-manager/internal/repositories"
	"go.mongodb.org/mongo-driver/mongo"
)

// memoryCampaigns stores copies so tests see only what was written.
type memoryCampaigns struct {
	mu        sync.Mutex
	items     map[string]models.Campaign
	seq       int
	creates   int
	updates   int
	saves     int
	deletes   int
	createErr error
}

func newMemoryCampaigns() *memoryCampaigns {
	return &memoryCampaigns{items: map[string]models.Campaign{}}
}

func cloneCampaign(c models.Campaign) models.Campaign {
	c.Platforms = append([]models.PlatformLink(nil), c.Platforms...)
	return c
}

func (r *memoryCampaigns) put(c models.Campaign) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c.ID] = cloneCampaign(c)
}

func (r *memoryCampaigns) stored(id string) models.Campaign {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneCampaign(r.items[id])
}

func (r *memoryCampaigns) Create(ctx context.Context, c *models.Campaign) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.creates++
	c.ID = fmt.Sprintf("campaign-%d", r.seq)
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	r.items[c.ID] = cloneCampaign(*c)
	return nil
}

func (r *memoryCampaigns) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, repositories.WrapNotFound(mongo.ErrNoDocuments, repositories.ErrCampaignNotFound)
	}
	out := cloneCampaign(c)
	return &out, nil
}

func (r *memoryCampaigns) List(ctx context.Context, userID string) ([]models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Campaign{}
	for _, c := range r.items {
		if userID == "" || c.UserID == userID {
			out = append(out, cloneCampaign(c))
		}
	}
	return out, nil
}

func (r *memoryCampaigns) Update(ctx context.Context, c *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[c.ID]; !ok {
		return repositories.WrapNotFound(mongo.ErrNoDocuments, repositories.ErrCampaignNotFound)
	}
	r.updates++
	r.items[c.ID] = cloneCampaign(*c)
	return nil
}

func (r *memoryCampaigns) SavePlatforms(ctx context.Context, c *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[c.ID]
	if !ok {
		return repositories.WrapNotFound(mongo.ErrNoDocuments, repositories.ErrCampaignNotFound)
	}
	r.saves++
	stored.Platforms = append([]models.PlatformLink(nil), c.Platforms...)
	stored.Status = c.Status
	r.items[c.ID] = stored
	return nil
}

func (r *memoryCampaigns) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return repositories.WrapNotFound(mongo.ErrNoDocuments, repositories.ErrCampaignNotFound)
	}
	r.deletes++
	delete(r.items, id)
	return nil
}

// memoryLeads enforces the (email, campaign, platform) unique key like the
// Mongo index does.
type memoryLeads struct {
	mu    sync.Mutex
	items map[string]models.Lead
	seq   int
}

func newMemoryLeads() *memoryLeads {
	return &memoryLeads{items: map[string]models.Lead{}}
}

func (r *memoryLeads) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *memoryLeads) Create(ctx context.Context, l *models.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.Email == l.Email && existing.CampaignID == l.CampaignID && existing.Source.Platform == l.Source.Platform {
			return repositories.ErrDuplicateKey
		}
	}
	r.seq++
	l.ID = fmt.Sprintf("lead-%d", r.seq)
	r.items[l.ID] = *l
	return nil
}

func (r *memoryLeads) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.items[id]
	if !ok {
		return nil, repositories.WrapNotFound(mongo.ErrNoDocuments, repositories.ErrLeadNotFound)
	}
	return &l, nil
}

func (r *memoryLeads) Exists(ctx context.Context, email, campaignID string, platform models.PlatformName) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.items {
		if l.Email == email && l.CampaignID == campaignID && l.Source.Platform == platform {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryLeads) List(ctx context.Context, f repositories.LeadFilter) ([]models.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Lead{}
	for _, l := range r.items {
		if f.UserID != "" && l.UserID != f.UserID {
			continue
		}
		if f.CampaignID != "" && l.CampaignID != f.CampaignID {
			continue
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *memoryLeads) Update(ctx context.Context, l *models.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[l.ID]; !ok {
		return repositories.WrapNotFound(mongo.ErrNoDocuments, repositories.ErrLeadNotFound)
	}
	r.items[l.ID] = *l
	return nil
}

func (r *memoryLeads) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return repositories.WrapNotFound(mongo.ErrNoDocuments, repositories.ErrLeadNotFound)
	}
	delete(r.items, id)
	return nil
}

type memoryUsers struct {
	mu    sync.Mutex
	items map[string]models.User
}

func newMemoryUsers(users ...models.User) *memoryUsers {
	r := &memoryUsers{items: map[string]models.User{}}
	for _, u := range users {
		r.items[u.ID] = u
	}
	return r
}

func (r *memoryUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[id]
	if !ok {
		return nil, repositories.WrapNotFound(mongo.ErrNoDocuments, repositories.ErrUserNotFound)
	}
	return &u, nil
}

func (r *memoryUsers) SetPlatformCredential(ctx context.Context, userID string, p models.PlatformName, cred models.PlatformCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[userID]
	if !ok {
		return repositories.WrapNotFound(mongo.ErrNoDocuments, repositories.ErrUserNotFound)
	}
	c := cred
	switch p {
	case models.PlatformFacebook:
		u.PlatformCredentials.Facebook = &c
	case models.PlatformGoogle:
		u.PlatformCredentials.Google = &c
	case models.PlatformLinkedIn:
		u.PlatformCredentials.LinkedIn = &c
	case models.PlatformTwitter:
		u.PlatformCredentials.Twitter = &c
	case models.PlatformSnapchat:
		u.PlatformCredentials.Snapchat = &c
	default:
		return fmt.Errorf("platform %s has no credential slot", p)
	}
	r.items[userID] = u
	return nil
}

type memoryCatalog struct {
	mu    sync.Mutex
	items map[models.PlatformName]models.Platform
}

func newMemoryCatalog() *memoryCatalog {
	return &memoryCatalog{items: map[models.PlatformName]models.Platform{}}
}

func (r *memoryCatalog) List(ctx context.Context) ([]models.Platform, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Platform{}
	for _, p := range models.AllPlatforms {
		if entry, ok := r.items[p]; ok {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *memoryCatalog) GetByID(ctx context.Context, id string) (*models.Platform, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.items {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, repositories.WrapNotFound(mongo.ErrNoDocuments, repositories.ErrPlatformNotFound)
}

func (r *memoryCatalog) Upsert(ctx context.Context, p *models.Platform) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := *p
	if existing, ok := r.items[p.Name]; ok {
		entry.ID = existing.ID
	} else {
		entry.ID = "platform-" + p.Name.Key()
	}
	r.items[p.Name] = entry
	return nil
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.CampaignEvent
}

func (r *recordedEvents) Publish(e *events.CampaignEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
}

func (r *recordedEvents) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type invalidations struct {
	calls []string
}

func (i *invalidations) Invalidate(ctx context.Context, owner models.PlatformName, userID string) error {
	i.calls = append(i.calls, string(owner)+":"+userID)
	return nil
}

// mockAdapter is a vendor adapter driven by testify expectations.
type mockAdapter struct {
	mock.Mock
	platform models.PlatformName
}

func newMockAdapter(p models.PlatformName) *mockAdapter {
	return &mockAdapter{platform: p}
}

func (m *mockAdapter) Platform() models.PlatformName {
	return m.platform
}

func (m *mockAdapter) ExchangeCodeForTokens(ctx context.Context, code, redirectURI string) (*models.PlatformCredential, error) {
	args := m.Called(code, redirectURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlatformCredential), args.Error(1)
}

func (m *mockAdapter) CreateCampaign(ctx context.Context, c *models.Campaign, u *models.User) (string, error) {
	args := m.Called(c.Name, u.ID)
	return args.String(0), args.Error(1)
}

func (m *mockAdapter) UpdateCampaign(ctx context.Context, vendorID string, c *models.Campaign, u *models.User) error {
	args := m.Called(vendorID, c.Name, u.ID)
	return args.Error(0)
}

func (m *mockAdapter) DeleteCampaign(ctx context.Context, vendorID string, u *models.User) error {
	args := m.Called(vendorID, u.ID)
	return args.Error(0)
}

func (m *mockAdapter) GetCampaignMetrics(ctx context.Context, vendorID string, u *models.User) (models.Metrics, error) {
	args := m.Called(vendorID, u.ID)
	return args.Get(0).(models.Metrics), args.Error(1)
}

func (m *mockAdapter) GetCampaignLeads(ctx context.Context, vendorID string, u *models.User) ([]platforms.RawLead, error) {
	args := m.Called(vendorID, u.ID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]platforms.RawLead), args.Error(1)
}

// mockLauncher adds the launch capability.
type mockLauncher struct {
	*mockAdapter
}

func (m mockLauncher) LaunchCampaign(ctx context.Context, vendorID string, u *models.User) error {
	args := m.Called(vendorID, u.ID)
	return args.Error(0)
}

func platformFailure(p models.PlatformName, op, msg string) error {
	return &platforms.PlatformError{
		Platform: p,
		Op:       op,
		Message:  msg,
		Err:      fmt.Errorf("%s", msg),
	}
}

func connectedUser(id string, role models.UserRole, owners ...models.PlatformName) models.User {
	u := models.User{ID: id, Name: "Test " + id, Email: id + "@example.com", Role: role}
	for _, p := range owners {
		cred := &models.PlatformCredential{AccessToken: "token-" + p.Key(), IsConnected: true}
		switch p {
		case models.PlatformFacebook:
			u.PlatformCredentials.Facebook = cred
		case models.PlatformGoogle:
			u.PlatformCredentials.Google = cred
		case models.PlatformLinkedIn:
			u.PlatformCredentials.LinkedIn = cred
		case models.PlatformTwitter:
			u.PlatformCredentials.Twitter = cred
		case models.PlatformSnapchat:
			u.PlatformCredentials.Snapchat = cred
		}
	}
	return u
}

func strp(s string) *string {
	return &s
}
