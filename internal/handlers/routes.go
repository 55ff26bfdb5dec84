package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the /api/v1 routes. auth guards every route except
// the platform config status.
func RegisterRoutes(router *mux.Router, campaigns *CampaignHandler, leads *LeadHandler, platforms *PlatformHandler, auth func(http.Handler) http.Handler) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/platforms/{platform}/config-status", platforms.GetConfigStatus).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(auth)

	protected.HandleFunc("/campaigns", campaigns.ListCampaigns).Methods(http.MethodGet)
	protected.HandleFunc("/campaigns", campaigns.CreateCampaign).Methods(http.MethodPost)
	protected.HandleFunc("/campaigns/{id}", campaigns.GetCampaign).Methods(http.MethodGet)
	protected.HandleFunc("/campaigns/{id}", campaigns.UpdateCampaign).Methods(http.MethodPut)
	protected.HandleFunc("/campaigns/{id}", campaigns.DeleteCampaign).Methods(http.MethodDelete)
	protected.HandleFunc("/campaigns/{id}/sync", campaigns.SyncCampaign).Methods(http.MethodPost)
	protected.HandleFunc("/campaigns/{id}/sync-leads", campaigns.SyncCampaignLeads).Methods(http.MethodPost)
	protected.HandleFunc("/campaigns/{id}/launch/{platform}", campaigns.LaunchCampaign).Methods(http.MethodPost)

	protected.HandleFunc("/leads", leads.ListLeads).Methods(http.MethodGet)
	protected.HandleFunc("/leads", leads.CreateLead).Methods(http.MethodPost)
	protected.HandleFunc("/leads/{id}", leads.GetLead).Methods(http.MethodGet)
	protected.HandleFunc("/leads/{id}", leads.UpdateLead).Methods(http.MethodPut)
	protected.HandleFunc("/leads/{id}", leads.DeleteLead).Methods(http.MethodDelete)

	protected.HandleFunc("/platforms", platforms.ListPlatforms).Methods(http.MethodGet)
	protected.HandleFunc("/platforms/connected", platforms.GetConnectedPlatforms).Methods(http.MethodGet)
	protected.HandleFunc("/platforms/{platform}/connect", platforms.ConnectPlatform).Methods(http.MethodPost)
	protected.HandleFunc("/platforms/{platform}/disconnect", platforms.DisconnectPlatform).Methods(http.MethodPost)
	protected.HandleFunc("/platforms/{id}", platforms.GetPlatform).Methods(http.MethodGet)
}
