package services

import "github.com/white/campaign-manager/internal/models"

// Requester is the authenticated caller of a service operation.
type Requester struct {
	UserID string
	Role   models.UserRole
}

func (r Requester) IsAdmin() bool {
	return r.Role == models.UserRoleAdmin
}

// CanAccess reports whether the requester may act on a resource owned by ownerID.
func (r Requester) CanAccess(ownerID string) bool {
	return r.IsAdmin() || (r.UserID != "" && r.UserID == ownerID)
}
