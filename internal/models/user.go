package models

import (
	"time"
)

// User is an account of the external auth service. This service reads users
// and writes only their platform credentials.
// Collection: users
type User struct {
	ID                  string              `bson:"_id,omitempty" json:"id"`
	Name                string              `bson:"name" json:"name"`
	Email               string              `bson:"email" json:"email"`
	Role                UserRole            `bson:"role" json:"role"`
	PlatformCredentials PlatformCredentials `bson:"platform_credentials" json:"-"`
	CreatedAt           time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt           time.Time           `bson:"updated_at" json:"updatedAt"`
}

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// PlatformCredential is one user's OAuth grant for one vendor.
type PlatformCredential struct {
	AccessToken       string     `bson:"access_token,omitempty" json:"-"`
	RefreshToken      *string    `bson:"refresh_token,omitempty" json:"-"`
	AccessTokenSecret *string    `bson:"access_token_secret,omitempty" json:"-"` // Twitter only
	ExpiresAt         *time.Time `bson:"expires_at,omitempty" json:"expiresAt,omitempty"`
	IsConnected       bool       `bson:"is_connected" json:"isConnected"`
}

// Usable reports whether the credential can authorize vendor calls.
func (c *PlatformCredential) Usable() bool {
	return c != nil && c.IsConnected && c.AccessToken != ""
}

type PlatformCredentials struct {
	Facebook *PlatformCredential `bson:"facebook,omitempty"`
	Google   *PlatformCredential `bson:"google,omitempty"`
	LinkedIn *PlatformCredential `bson:"linkedin,omitempty"`
	Twitter  *PlatformCredential `bson:"twitter,omitempty"`
	Snapchat *PlatformCredential `bson:"snapchat,omitempty"`
}

// ConnectablePlatforms are the platforms that own a stored credential.
var ConnectablePlatforms = []PlatformName{
	PlatformFacebook, PlatformGoogle, PlatformLinkedIn, PlatformTwitter, PlatformSnapchat,
}

// IsConnectable reports whether p owns a credential slot.
func IsConnectable(p PlatformName) bool {
	for _, c := range ConnectablePlatforms {
		if c == p {
			return true
		}
	}
	return false
}

// Credential returns the credential used for p, following aliases
// (Instagram and WhatsApp use Facebook, YouTube uses Google).
func (u *User) Credential(p PlatformName) *PlatformCredential {
	if u == nil {
		return nil
	}
	creds := u.PlatformCredentials
	switch p.CredentialOwner() {
	case PlatformFacebook:
		return creds.Facebook
	case PlatformGoogle:
		return creds.Google
	case PlatformLinkedIn:
		return creds.LinkedIn
	case PlatformTwitter:
		return creds.Twitter
	case PlatformSnapchat:
		return creds.Snapchat
	}
	return nil
}

// IsConnected reports whether the user has a usable credential for p.
func (u *User) IsConnected(p PlatformName) bool {
	return u.Credential(p).Usable()
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}
