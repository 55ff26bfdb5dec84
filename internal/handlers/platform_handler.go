package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/white/campaign-manager/internal/models"
	"github.com/white/campaign-manager/internal/services"
)

type PlatformService interface {
	ListCatalog(ctx context.Context) ([]models.Platform, error)
	GetCatalogEntry(ctx context.Context, id string) (*models.Platform, error)
	Connect(ctx context.Context, req services.Requester, platform, code, redirectURI string) (*services.ConnectionStatus, error)
	Disconnect(ctx context.Context, req services.Requester, platform string) (*services.ConnectionStatus, error)
	ConnectedPlatforms(ctx context.Context, req services.Requester) (map[string]bool, error)
	ConfigStatus(platform string) (*services.AppConfigStatus, error)
}

// PlatformHandler handles the platform catalog and account connections
type PlatformHandler struct {
	platforms PlatformService
}

func NewPlatformHandler(platforms PlatformService) *PlatformHandler {
	return &PlatformHandler{platforms: platforms}
}

type connectRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirectUri,omitempty"`
}

// ListPlatforms godoc
// @Summary List supported platforms
// @Tags Platforms
// @Produce json
// @Success 200 {object} Response
// @Router /api/v1/platforms [get]
// @Security BearerAuth
func (h *PlatformHandler) ListPlatforms(w http.ResponseWriter, r *http.Request) {
	entries, err := h.platforms.ListCatalog(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []models.Platform{}
	}
	respondWithData(w, http.StatusOK, entries, nil)
}

// GetPlatform godoc
// @Summary Get a catalog entry
// @Tags Platforms
// @Produce json
// @Param id path string true "Platform ID"
// @Success 200 {object} Response
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/platforms/{id} [get]
// @Security BearerAuth
func (h *PlatformHandler) GetPlatform(w http.ResponseWriter, r *http.Request) {
	entry, err := h.platforms.GetCatalogEntry(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, entry, nil)
}

// GetConnectedPlatforms godoc
// @Summary Connection state of the caller's ad accounts
// @Tags Platforms
// @Produce json
// @Success 200 {object} Response
// @Router /api/v1/platforms/connected [get]
// @Security BearerAuth
func (h *PlatformHandler) GetConnectedPlatforms(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(w, r)
	if !ok {
		return
	}

	connected, err := h.platforms.ConnectedPlatforms(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, connected, nil)
}

// GetConfigStatus godoc
// @Summary OAuth app configuration of a platform
// @Description Reports whether the client id and secret of the platform's app are configured. Secrets are never returned.
// @Tags Platforms
// @Produce json
// @Param platform path string true "Platform name"
// @Success 200 {object} Response
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/platforms/{platform}/config-status [get]
func (h *PlatformHandler) GetConfigStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.platforms.ConfigStatus(mux.Vars(r)["platform"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, status, nil)
}

// ConnectPlatform godoc
// @Summary Connect an ad account
// @Description Exchanges an OAuth authorization code and stores the credential on the caller.
// @Tags Platforms
// @Accept json
// @Produce json
// @Param platform path string true "Platform name"
// @Param body body connectRequest true "Authorization code"
// @Success 200 {object} Response
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/platforms/{platform}/connect [post]
// @Security BearerAuth
func (h *PlatformHandler) ConnectPlatform(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(w, r)
	if !ok {
		return
	}

	var body connectRequest
	if !decodeBody(w, r, &body) {
		return
	}

	status, err := h.platforms.Connect(r.Context(), req, mux.Vars(r)["platform"], body.Code, body.RedirectURI)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, status, nil)
}

// DisconnectPlatform godoc
// @Summary Disconnect an ad account
// @Tags Platforms
// @Produce json
// @Param platform path string true "Platform name"
// @Success 200 {object} Response
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/platforms/{platform}/disconnect [post]
// @Security BearerAuth
func (h *PlatformHandler) DisconnectPlatform(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(w, r)
	if !ok {
		return
	}

	status, err := h.platforms.Disconnect(r.Context(), req, mux.Vars(r)["platform"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, status, nil)
}
