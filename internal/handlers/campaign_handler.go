package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/white/campaign-manager/internal/events"
	"github.com/white/campaign-manager/internal/models"
	"github.com/white/campaign-manager/internal/services"
)

type CampaignService interface {
	List(ctx context.Context, req services.Requester, all bool) ([]models.Campaign, error)
	Get(ctx context.Context, req services.Requester, id string) (*models.Campaign, error)
	Create(ctx context.Context, req services.Requester, in services.CampaignInput) (*services.CampaignResult, error)
	Update(ctx context.Context, req services.Requester, id string, in services.CampaignUpdate) (*services.CampaignResult, error)
	Delete(ctx context.Context, req services.Requester, id string) error
	SyncMetrics(ctx context.Context, req services.Requester, id string) (*services.CampaignResult, error)
	Launch(ctx context.Context, req services.Requester, id, platform string) (*models.Campaign, error)
}

type LeadSyncer interface {
	SyncCampaignLeads(ctx context.Context, req services.Requester, campaignID string) (*services.LeadSyncResult, error)
}

type SyncQueue interface {
	Enabled() bool
	Enqueue(ctx context.Context, req events.SyncRequest) (events.SyncRequest, error)
}

// CampaignHandler handles campaign HTTP requests
type CampaignHandler struct {
	campaigns CampaignService
	leads     LeadSyncer
	queue     SyncQueue
}

func NewCampaignHandler(campaigns CampaignService, leads LeadSyncer, queue SyncQueue) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns, leads: leads, queue: queue}
}

type createCampaignRequest struct {
	services.CampaignInput
	StartDate *jsonDate `json:"startDate"`
	EndDate   *jsonDate `json:"endDate,omitempty"`
}

type updateCampaignRequest struct {
	services.CampaignUpdate
	StartDate *jsonDate `json:"startDate,omitempty"`
	EndDate   *jsonDate `json:"endDate,omitempty"`
}

type leadSyncResponse struct {
	NewLeads int `json:"newLeads"`
}

// ListCampaigns godoc
// @Summary List campaigns
// @Description Lists the caller's campaigns. Admins may pass all=true to list every campaign.
// @Tags Campaigns
// @Produce json
// @Param all query bool false "List campaigns of all users (admin only)"
// @Success 200 {object} Response
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/campaigns [get]
// @Security BearerAuth
func (h *CampaignHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(w, r)
	if !ok {
		return
	}

	campaigns, err := h.campaigns.List(r.Context(), req, r.URL.Query().Get("all") == "true")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if campaigns == nil {
		campaigns = []models.Campaign{}
	}
	respondWithData(w, http.StatusOK, campaigns, nil)
}

// GetCampaign godoc
// @Summary Get a campaign
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} Response
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/campaigns/{id} [get]
// @Security BearerAuth
func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(w, r)
	if !ok {
		return
	}

	campaign, err := h.campaigns.Get(r.Context(), req, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, campaign, nil)
}

// CreateCampaign godoc
// @Summary Create a campaign
// @Description Stores the campaign and creates it on every selected platform. Platforms that fail are reported in platformErrors.
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param campaign body services.CampaignInput true "Campaign"
// @Success 201 {object} Response
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/campaigns [post]
// @Security BearerAuth
func (h *CampaignHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(w, r)
	if !ok {
		return
	}

	var body createCampaignRequest
	if !decodeBody(w, r, &body) {
		return
	}
	in := body.CampaignInput
	in.StartDate = body.StartDate.ptr()
	in.EndDate = body.EndDate.ptr()

	result, err := h.campaigns.Create(r.Context(), req, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusCreated, result.Campaign, result.PlatformErrors)
}

// UpdateCampaign godoc
// @Summary Update a campaign
// @Description Applies the changes locally and pushes them to every platform the campaign exists on.
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param campaign body services.CampaignUpdate true "Changes"
// @Success 200 {object} Response
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/campaigns/{id} [put]
// @Security BearerAuth
func (h *CampaignHandler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(w, r)
	if !ok {
		return
	}

	var body updateCampaignRequest
	if !decodeBody(w, r, &body) {
		return
	}
	in := body.CampaignUpdate
	in.StartDate = body.StartDate.ptr()
	in.EndDate = body.EndDate.ptr()

	result, err := h.campaigns.Update(r.Context(), req, mux.Vars(r)["id"], in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, result.Campaign, result.PlatformErrors)
}

// DeleteCampaign godoc
// @Summary Delete a campaign
// @Description Deletes the campaign on each platform (best effort) and then locally.
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} Response
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/campaigns/{id} [delete]
// @Security BearerAuth
func (h *CampaignHandler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.campaigns.Delete(r.Context(), req, id); err != nil {
		writeServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, map[string]string{"id": id}, nil)
}

// SyncCampaign godoc
// @Summary Sync campaign metrics
// @Description Pulls metrics from every platform the campaign exists on. With async=true the sync is queued.
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Param async query bool false "Queue the sync"
// @Success 200 {object} Response
// @Success 202 {object} Response
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/campaigns/{id}/sync [post]
// @Security BearerAuth
func (h *CampaignHandler) SyncCampaign(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if h.enqueued(w, r, req, id, events.SyncMetrics) {
		return
	}

	result, err := h.campaigns.SyncMetrics(r.Context(), req, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, result.Campaign, result.PlatformErrors)
}

// SyncCampaignLeads godoc
// @Summary Sync campaign leads
// @Description Pulls leads from every platform the campaign exists on and stores the new ones.
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Param async query bool false "Queue the sync"
// @Success 200 {object} Response
// @Success 202 {object} Response
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/campaigns/{id}/sync-leads [post]
// @Security BearerAuth
func (h *CampaignHandler) SyncCampaignLeads(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if h.enqueued(w, r, req, id, events.SyncLeads) {
		return
	}

	result, err := h.leads.SyncCampaignLeads(r.Context(), req, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, leadSyncResponse{NewLeads: result.NewLeads}, result.PlatformErrors)
}

// LaunchCampaign godoc
// @Summary Launch a campaign on one platform
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Param platform path string true "Platform name"
// @Success 200 {object} Response
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/campaigns/{id}/launch/{platform} [post]
// @Security BearerAuth
func (h *CampaignHandler) LaunchCampaign(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	campaign, err := h.campaigns.Launch(r.Context(), req, vars["id"], vars["platform"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, campaign, nil)
}

// enqueued hands the sync to the processor when the caller asked for it and
// the queue is available. It reports whether a response was written.
func (h *CampaignHandler) enqueued(w http.ResponseWriter, r *http.Request, req services.Requester, id string, kind events.SyncKind) bool {
	if r.URL.Query().Get("async") != "true" {
		return false
	}
	if h.queue == nil || !h.queue.Enabled() {
		log.Printf("Async %s sync requested for campaign %s but the queue is disabled, running inline", kind, id)
		return false
	}

	// Access is checked before queueing.
	if _, err := h.campaigns.Get(r.Context(), req, id); err != nil {
		writeServiceError(w, err)
		return true
	}

	queued, err := h.queue.Enqueue(r.Context(), events.SyncRequest{
		CampaignID:  id,
		RequesterID: req.UserID,
		Role:        string(req.Role),
		Kind:        kind,
	})
	if err != nil {
		if errors.Is(err, events.ErrQueueDisabled) {
			return false
		}
		log.Printf("Error queueing %s sync for campaign %s: %v", kind, id, err)
		respondWithError(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "Sync could not be queued")
		return true
	}
	respondWithData(w, http.StatusAccepted, queued, nil)
	return true
}
