package handlers

import (
	"context"
	"net/http"
	"time"
)

type HealthResponse struct {
	Status  string                 `json:"status"`
	Service string                 `json:"service"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks,omitempty"`
}

type HealthCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

type HealthHandler struct {
	service string
	version string
	checks  map[string]CheckFunc
}

func NewHealthHandler(service, version string, checks map[string]CheckFunc) *HealthHandler {
	return &HealthHandler{service: service, version: version, checks: checks}
}

// GetOverallHealth godoc
// @Summary Service health
// @Description Pings every dependency and reports per-check status
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) GetOverallHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Service: h.service,
		Version: h.version,
		Checks:  make(map[string]HealthCheck),
	}

	allHealthy := true
	for name, check := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		start := time.Now()
		err := check(ctx)
		cancel()

		result := HealthCheck{Status: "healthy", Latency: time.Since(start).String()}
		if err != nil {
			allHealthy = false
			result.Status = "unhealthy"
			result.Error = err.Error()
		}
		response.Checks[name] = result
	}

	if allHealthy {
		response.Status = "healthy"
		respondWithJSON(w, http.StatusOK, response)
		return
	}
	response.Status = "unhealthy"
	respondWithJSON(w, http.StatusServiceUnavailable, response)
}
