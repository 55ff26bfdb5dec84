package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/white/campaign-manager/internal/models"
	"github.com/white/campaign-manager/internal/services"
)

func TestListLeads_Filters(t *testing.T) {
	s := newTestServer()
	s.leads.On("List", testRequester, services.LeadQuery{CampaignID: "c-1", Status: models.LeadStatusNew}).
		Return([]models.Lead{{ID: "l-1", Email: "a@example.com"}}, nil).Once()

	rr := s.do(t, http.MethodGet, "/api/v1/leads?campaignId=c-1&status=NEW", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"a@example.com"`)
	s.leads.AssertExpectations(t)
}

func TestCreateLead(t *testing.T) {
	s := newTestServer()
	in := services.LeadInput{
		CampaignID: "c-1",
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Source:     models.LeadSource{Platform: models.PlatformFacebook},
	}
	s.leads.On("Create", testRequester, in).Return(&models.Lead{ID: "l-1", Email: in.Email}, nil).Once()
	s.leads.On("Create", testRequester, mock.MatchedBy(func(in services.LeadInput) bool { return in.Email == "dup@example.com" })).
		Return(nil, &services.ServiceError{Kind: services.ErrConflict, Message: "Lead already exists"}).Once()

	rr := s.do(t, http.MethodPost, "/api/v1/leads", in)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	in.Email = "dup@example.com"
	rr = s.do(t, http.MethodPost, "/api/v1/leads", in)
	require.Equal(t, http.StatusConflict, rr.Code)
	s.leads.AssertExpectations(t)
}

func TestUpdateAndDeleteLead(t *testing.T) {
	s := newTestServer()
	status := models.LeadStatusContacted
	s.leads.On("Update", testRequester, "l-1", services.LeadUpdate{Status: &status}).
		Return(&models.Lead{ID: "l-1", Status: status}, nil).Once()
	s.leads.On("Delete", testRequester, "l-1").Return(nil).Once()
	s.leads.On("Get", testRequester, "l-1").
		Return(nil, &services.ServiceError{Kind: services.ErrNotFound, Message: "Lead not found"}).Once()

	rr := s.do(t, http.MethodPut, "/api/v1/leads/l-1", `{"status":"CONTACTED"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(t, http.MethodDelete, "/api/v1/leads/l-1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/v1/leads/l-1", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	s.leads.AssertExpectations(t)
}
