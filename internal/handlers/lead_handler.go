package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/white/campaign-manager/internal/models"
	"github.com/white/campaign-manager/internal/services"
)

type LeadService interface {
	List(ctx context.Context, req services.Requester, q services.LeadQuery) ([]models.Lead, error)
	Get(ctx context.Context, req services.Requester, id string) (*models.Lead, error)
	Create(ctx context.Context, req services.Requester, in services.LeadInput) (*models.Lead, error)
	Update(ctx context.Context, req services.Requester, id string, in services.LeadUpdate) (*models.Lead, error)
	Delete(ctx context.Context, req services.Requester, id string) error
}

// LeadHandler handles lead HTTP requests
type LeadHandler struct {
	leads LeadService
}

func NewLeadHandler(leads LeadService) *LeadHandler {
	return &LeadHandler{leads: leads}
}

// ListLeads godoc
// @Summary List leads
// @Tags Leads
// @Produce json
// @Param campaignId query string false "Only leads of this campaign"
// @Param status query string false "Lead status"
// @Param all query bool false "Leads of all users (admin only)"
// @Success 200 {object} Response
// @Router /api/v1/leads [get]
// @Security BearerAuth
func (h *LeadHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	leads, err := h.leads.List(r.Context(), req, services.LeadQuery{
		CampaignID: query.Get("campaignId"),
		Status:     models.LeadStatus(query.Get("status")),
		All:        query.Get("all") == "true",
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	respondWithData(w, http.StatusOK, leads, nil)
}

// GetLead godoc
// @Summary Get a lead
// @Tags Leads
// @Produce json
// @Param id path string true "Lead ID"
// @Success 200 {object} Response
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/leads/{id} [get]
// @Security BearerAuth
func (h *LeadHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(w, r)
	if !ok {
		return
	}

	lead, err := h.leads.Get(r.Context(), req, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, lead, nil)
}

// CreateLead godoc
// @Summary Create a lead manually
// @Tags Leads
// @Accept json
// @Produce json
// @Param lead body services.LeadInput true "Lead"
// @Success 201 {object} Response
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/leads [post]
// @Security BearerAuth
func (h *LeadHandler) CreateLead(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(w, r)
	if !ok {
		return
	}

	var in services.LeadInput
	if !decodeBody(w, r, &in) {
		return
	}

	lead, err := h.leads.Create(r.Context(), req, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusCreated, lead, nil)
}

// UpdateLead godoc
// @Summary Update a lead
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID"
// @Param lead body services.LeadUpdate true "Changes"
// @Success 200 {object} Response
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/leads/{id} [put]
// @Security BearerAuth
func (h *LeadHandler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(w, r)
	if !ok {
		return
	}

	var in services.LeadUpdate
	if !decodeBody(w, r, &in) {
		return
	}

	lead, err := h.leads.Update(r.Context(), req, mux.Vars(r)["id"], in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, lead, nil)
}

// DeleteLead godoc
// @Summary Delete a lead
// @Tags Leads
// @Produce json
// @Param id path string true "Lead ID"
// @Success 200 {object} Response
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/leads/{id} [delete]
// @Security BearerAuth
func (h *LeadHandler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.leads.Delete(r.Context(), req, id); err != nil {
		writeServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, map[string]string{"id": id}, nil)
}
