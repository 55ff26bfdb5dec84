package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/white/campaign-manager/internal/models"
	"github.com/white/campaign-manager/internal/services"
	"github.com/white/campaign-manager/internal/utils"
	"github.com/white/campaign-manager/pkg/uuid"
)

type contextKey string

const requesterKey contextKey = "requester"

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondWithError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	ValidateAccessToken(token string) (*utils.AccessTokenClaims, error)
}

// JWTAuth validates the bearer token and stores the caller in the request context.
func JWTAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondWithError(w, http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header is required")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				respondWithError(w, http.StatusUnauthorized, "INVALID_TOKEN_FORMAT", "Authorization header must be in format: Bearer <token>")
				return
			}

			claims, err := validator.ValidateAccessToken(parts[1])
			if err != nil {
				log.Printf("Rejected access token: %v", err)
				respondWithError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired access token")
				return
			}

			if err := uuid.ValidateUUID(claims.UserID()); err != nil {
				log.Printf("Invalid user ID format in token: %v", err)
				respondWithError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid user ID in token")
				return
			}

			requester := services.Requester{
				UserID: claims.UserID(),
				Role:   models.UserRole(strings.ToLower(claims.PrimaryRole())),
			}
			next.ServeHTTP(w, r.WithContext(WithRequester(r.Context(), requester)))
		})
	}
}

// WithRequester returns a copy of ctx carrying the caller.
func WithRequester(ctx context.Context, requester services.Requester) context.Context {
	return context.WithValue(ctx, requesterKey, requester)
}

// GetRequester returns the caller stored by JWTAuth.
func GetRequester(ctx context.Context) (services.Requester, bool) {
	requester, ok := ctx.Value(requesterKey).(services.Requester)
	return requester, ok
}
