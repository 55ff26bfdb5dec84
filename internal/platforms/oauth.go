package platforms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/white/campaign-manager/internal/models"
	"golang.org/x/oauth2"
)

// exchange trades an authorization code at the app's token endpoint.
func (b *base) exchange(ctx context.Context, code, redirectURI string, style oauth2.AuthStyle, opts ...oauth2.AuthCodeOption) (tok *oauth2.Token, err error) {
	started := time.Now()
	defer func() { recordCall(b.platform, opExchange, time.Since(started), err) }()

	if code == "" {
		return nil, &AuthExchangeError{Platform: b.platform, Message: "Authorization code is required"}
	}
	if !b.app.Configured() {
		return nil, &AuthExchangeError{
			Platform: b.platform,
			Message:  fmt.Sprintf("%s app credentials are not configured", b.platform.DisplayName()),
		}
	}

	cfg := oauth2.Config{
		ClientID:     b.app.ClientID,
		ClientSecret: b.app.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  b.app.TokenURL,
			AuthStyle: style,
		},
		RedirectURL: redirectURI,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.http.HTTPClient())
	tok, err = cfg.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, &AuthExchangeError{
			Platform: b.platform,
			Message:  fmt.Sprintf("Failed to exchange code for %s tokens: %s", b.platform.DisplayName(), oauthMessage(err)),
			Err:      err,
		}
	}
	return tok, nil
}

func oauthMessage(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		switch {
		case re.ErrorDescription != "":
			return re.ErrorDescription
		case re.ErrorCode != "":
			return re.ErrorCode
		case re.Response != nil:
			return vendorMessage(re.Body)
		}
	}
	return err.Error()
}

// credentialFromToken keeps the absolute expiry computed from expires_in.
func credentialFromToken(tok *oauth2.Token) *models.PlatformCredential {
	cred := &models.PlatformCredential{
		AccessToken:  tok.AccessToken,
		RefreshToken: strPtr(tok.RefreshToken),
		IsConnected:  true,
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.UTC()
		cred.ExpiresAt = &expiry
	}
	return cred
}
