package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/white/campaign-manager/internal/middleware"
	"github.com/white/campaign-manager/internal/platforms"
	"github.com/white/campaign-manager/internal/services"
)

// Response is the success envelope. PlatformErrors is set on partial success.
type Response struct {
	Success        bool                       `json:"success"`
	Data           interface{}                `json:"data,omitempty"`
	PlatformErrors []services.PlatformFailure `json:"platformErrors,omitempty"`
}

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondWithJSON writes a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"error":{"code":"INTERNAL_ERROR","message":"Internal server error"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithData(w http.ResponseWriter, code int, data interface{}, platformErrors []services.PlatformFailure) {
	respondWithJSON(w, code, Response{Success: true, Data: data, PlatformErrors: platformErrors})
}

// respondWithError writes an error response
func respondWithError(w http.ResponseWriter, code int, errCode, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: ErrorDetail{Code: errCode, Message: message}})
}

// writeServiceError maps service and vendor errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	var exchangeErr *platforms.AuthExchangeError
	var platformErr *platforms.PlatformError

	switch {
	case errors.Is(err, services.ErrValidation):
		respondWithError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		respondWithError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, services.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, services.ErrConflict):
		respondWithError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.As(err, &exchangeErr):
		respondWithError(w, http.StatusBadRequest, "AUTH_EXCHANGE_FAILED", exchangeErr.Error())
	case errors.As(err, &platformErr):
		respondWithError(w, http.StatusBadGateway, "PLATFORM_ERROR", platformErr.Error())
	default:
		log.Printf("Unhandled error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func requesterFrom(w http.ResponseWriter, r *http.Request) (services.Requester, bool) {
	req, ok := middleware.GetRequester(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
	}
	return req, ok
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

// jsonDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
type jsonDate time.Time

func (d *jsonDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			*d = jsonDate(t)
			return nil
		}
	}
	return fmt.Errorf("invalid date %q, use YYYY-MM-DD or RFC 3339", s)
}

func (d *jsonDate) ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := time.Time(*d)
	return &t
}
