package platforms

import (
	"context"
	"fmt"
	"time"

	"github.com/white/campaign-manager/config"
	"github.com/white/campaign-manager/internal/models"
)

// AccountCache remembers the ad account an adapter resolved for a user.
type AccountCache interface {
	GetAccount(ctx context.Context, platform models.PlatformName, userID string) (string, bool)
	SetAccount(ctx context.Context, platform models.PlatformName, userID, accountID string)
}

// Options are shared by every adapter constructor. Accounts may be nil.
type Options struct {
	App       config.OAuthAppConfig
	Transport *Transport
	Accounts  AccountCache
}

type op string

const (
	opCreate   op = "create"
	opUpdate   op = "update"
	opDelete   op = "delete"
	opLaunch   op = "launch"
	opMetrics  op = "metrics"
	opLeads    op = "leads"
	opExchange op = "exchange"
)

// base holds what every vendor adapter needs.
type base struct {
	platform models.PlatformName
	app      config.OAuthAppConfig
	http     *Transport
	accounts AccountCache
}

func newBase(platform models.PlatformName, opts Options) base {
	t := opts.Transport
	if t == nil {
		t = NewTransport(0)
	}
	return base{
		platform: platform,
		app:      opts.App,
		http:     t,
		accounts: opts.Accounts,
	}
}

func (b *base) Platform() models.PlatformName {
	return b.platform
}

// credential returns the user's connected credential or a not-connected error.
func (b *base) credential(user *models.User) (*models.PlatformCredential, error) {
	cred := user.Credential(b.platform)
	if !cred.Usable() {
		return nil, &kindError{
			msg:  fmt.Sprintf("%s account not connected", b.platform.DisplayName()),
			kind: ErrNotConnected,
		}
	}
	return cred, nil
}

// adAccount returns the cached ad account for the user or resolves it with fetch.
func (b *base) adAccount(ctx context.Context, user *models.User, fetch func(context.Context) (string, error)) (string, error) {
	if b.accounts != nil {
		if id, ok := b.accounts.GetAccount(ctx, b.platform, user.ID); ok {
			return id, nil
		}
	}
	id, err := fetch(ctx)
	if err != nil {
		return "", err
	}
	if b.accounts != nil {
		b.accounts.SetAccount(ctx, b.platform, user.ID, id)
	}
	return id, nil
}

// observe records the call and turns a failure into a *PlatformError.
// Use as: defer b.observe(opCreate, time.Now(), &err)
func (b *base) observe(o op, started time.Time, errp *error) {
	recordCall(b.platform, o, time.Since(started), *errp)
	if *errp == nil {
		return
	}
	if _, ok := (*errp).(*PlatformError); ok {
		return
	}
	*errp = &PlatformError{
		Platform: b.platform,
		Op:       string(o),
		Message:  failureMessage(b.platform, o, *errp),
		Err:      *errp,
	}
}

func failureMessage(p models.PlatformName, o op, err error) string {
	name := p.DisplayName()
	switch o {
	case opMetrics:
		return fmt.Sprintf("Failed to get %s campaign metrics: %v", name, err)
	case opLeads:
		return fmt.Sprintf("Failed to get %s campaign leads: %v", name, err)
	}
	return fmt.Sprintf("Failed to %s %s campaign: %v", o, name, err)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
