package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePlatformName(t *testing.T) {
	tests := []struct {
		in   string
		want PlatformName
		ok   bool
	}{
		{"facebook", PlatformFacebook, true},
		{" YouTube ", PlatformYouTube, true},
		{"WHATSAPP", PlatformWhatsApp, true},
		{"tiktok", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParsePlatformName(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlatformName_CredentialOwner(t *testing.T) {
	assert.Equal(t, PlatformFacebook, PlatformInstagram.CredentialOwner())
	assert.Equal(t, PlatformFacebook, PlatformWhatsApp.CredentialOwner())
	assert.Equal(t, PlatformGoogle, PlatformYouTube.CredentialOwner())
	assert.Equal(t, PlatformSnapchat, PlatformSnapchat.CredentialOwner())
	assert.Equal(t, "linkedin", PlatformLinkedIn.Key())
	assert.Equal(t, "LinkedIn", PlatformLinkedIn.DisplayName())
}

func TestUser_Credential(t *testing.T) {
	fb := &PlatformCredential{AccessToken: "fb-token", IsConnected: true}
	u := &User{ID: "u-1", PlatformCredentials: PlatformCredentials{
		Facebook: fb,
		Google:   &PlatformCredential{AccessToken: "g", IsConnected: false},
		LinkedIn: &PlatformCredential{IsConnected: true},
	}}

	assert.Same(t, fb, u.Credential(PlatformInstagram))
	assert.True(t, u.IsConnected(PlatformWhatsApp))
	assert.False(t, u.IsConnected(PlatformYouTube), "disconnected credential")
	assert.False(t, u.IsConnected(PlatformLinkedIn), "no access token")
	assert.False(t, u.IsConnected(PlatformTwitter), "no credential")

	var nobody *User
	assert.False(t, nobody.IsConnected(PlatformFacebook))
	assert.False(t, nobody.IsAdmin())
}

func TestCampaignStatus(t *testing.T) {
	assert.True(t, CampaignStatusDraft.Launchable())
	assert.True(t, CampaignStatusPaused.Launchable())
	assert.False(t, CampaignStatusActive.Launchable())
	assert.False(t, CampaignStatusArchived.Launchable())
	assert.False(t, CampaignStatus("LIVE").IsValid())
}

func TestPlatformLink_RemoteID(t *testing.T) {
	empty := ""
	id := "fb123"
	assert.False(t, PlatformLink{}.HasRemoteID())
	assert.False(t, PlatformLink{PlatformCampaignID: &empty}.HasRemoteID())
	assert.True(t, PlatformLink{PlatformCampaignID: &id}.HasRemoteID())
	assert.Equal(t, "fb123", PlatformLink{PlatformCampaignID: &id}.RemoteID())
	assert.Equal(t, "", PlatformLink{}.RemoteID())
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("ada@example.com"))
	assert.False(t, ValidEmail("ada@example"))
	assert.False(t, ValidEmail("ada example.com"))
	assert.False(t, IsConnectable(PlatformInstagram))
	assert.True(t, IsConnectable(PlatformTwitter))
}
