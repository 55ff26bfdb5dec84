package platforms

import (
	"strings"

	"github.com/white/campaign-manager/internal/models"
)

// Registry maps lower-case platform identifiers to adapters. It is built
// once at startup and read-only afterwards.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register binds an adapter under its own platform and any aliases,
// e.g. the Facebook adapter also serves "instagram".
func (r *Registry) Register(a Adapter, aliases ...models.PlatformName) *Registry {
	r.adapters[a.Platform().Key()] = a
	for _, alias := range aliases {
		r.adapters[alias.Key()] = a
	}
	return r
}

// Lookup finds the adapter for a platform name in any casing.
func (r *Registry) Lookup(name string) (Adapter, bool) {
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

// Launcher returns the adapter's launch capability, if it has one.
func (r *Registry) Launcher(name string) (Launcher, bool) {
	a, ok := r.Lookup(name)
	if !ok {
		return nil, false
	}
	l, ok := a.(Launcher)
	return l, ok
}

// RegistryOptions configures NewDefaultRegistry. Per-vendor transport and
// cache fall back to the shared ones.
type RegistryOptions struct {
	Transport      *Transport
	Accounts       AccountCache
	Facebook       Options
	Google         Options
	LinkedIn       Options
	Twitter        Options
	Snapchat       Options
	DeveloperToken string
}

// NewDefaultRegistry wires every vendor adapter:
// instagram and whatsapp share the Facebook adapter, youtube gets the
// video variant of the Google adapter.
func NewDefaultRegistry(o RegistryOptions) *Registry {
	fill := func(opts Options) Options {
		if opts.Transport == nil {
			opts.Transport = o.Transport
		}
		if opts.Accounts == nil {
			opts.Accounts = o.Accounts
		}
		return opts
	}

	google := NewGoogleAdapter(fill(o.Google), o.DeveloperToken)
	youtube := NewYouTubeAdapter(fill(o.Google), o.DeveloperToken)

	return NewRegistry().
		Register(NewFacebookAdapter(fill(o.Facebook)), models.PlatformInstagram, models.PlatformWhatsApp).
		Register(google).
		Register(youtube).
		Register(NewLinkedInAdapter(fill(o.LinkedIn))).
		Register(NewTwitterAdapter(fill(o.Twitter))).
		Register(NewSnapchatAdapter(fill(o.Snapchat)))
}
