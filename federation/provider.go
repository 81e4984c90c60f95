package federation

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// ProviderConfig holds the opaque credentials and endpoints for one external
// identity provider. These arrive from configuration at startup.
type ProviderConfig struct {
	Name         string
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Provider wraps one configured OIDC provider: its discovered endpoints, the
// oauth2 exchange config, and the ID token verifier.
type Provider struct {
	name         string
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
}

// Registry holds the providers configured at startup, keyed by name.
type Registry struct {
	providers map[string]*Provider
}

// NewRegistry discovers every configured provider. Discovery failure is a
// startup error, not a per-request one.
func NewRegistry(ctx context.Context, configs []ProviderConfig) (*Registry, error) {
	registry := &Registry{providers: make(map[string]*Provider)}

	for _, cfg := range configs {
		if cfg.Name == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
			return nil, errors.Errorf("[federation.NewRegistry] provider %q missing credentials", cfg.Name)
		}

		oidcProvider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
		if err != nil {
			return nil, errors.Wrapf(err, "[federation.NewRegistry] discover provider %q", cfg.Name)
		}

		scopes := cfg.Scopes
		if len(scopes) == 0 {
			scopes = []string{oidc.ScopeOpenID, "profile", "email"}
		}

		registry.providers[cfg.Name] = &Provider{
			name: cfg.Name,
			oauth2Config: &oauth2.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				Endpoint:     oidcProvider.Endpoint(),
				RedirectURL:  cfg.RedirectURL,
				Scopes:       scopes,
			},
			verifier: oidcProvider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		}
	}

	return registry, nil
}

// Provider returns the named provider, or nil if it is not configured.
func (r *Registry) Provider(name string) *Provider {
	if r == nil {
		return nil
	}
	return r.providers[name]
}

// Name returns the provider's configured name.
func (p *Provider) Name() string {
	return p.name
}

// AuthURL builds the provider's authorization URL for a new sign-in attempt.
func (p *Provider) AuthURL(state, nonce string) string {
	return p.oauth2Config.AuthCodeURL(state, oidc.Nonce(nonce))
}

// Complete exchanges the callback code, verifies the returned ID token, and
// extracts the identity assertion. The nonce must match the one bound to the
// state when the attempt began.
func (p *Provider) Complete(ctx context.Context, code, nonce string) (*Assertion, error) {
	oauth2Token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "[Provider.Complete] code exchange")
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("[Provider.Complete] no ID token in response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Wrap(err, "[Provider.Complete] ID token verification")
	}

	var claims struct {
		Nonce string `json:"nonce"`
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[Provider.Complete] extract claims")
	}

	// Nonce mismatch means a replayed or spliced response
	if claims.Nonce != nonce {
		return nil, errors.New("[Provider.Complete] nonce mismatch")
	}
	if claims.Sub == "" {
		return nil, errors.New("[Provider.Complete] ID token missing subject")
	}

	return &Assertion{
		Provider:  p.name,
		SubjectID: claims.Sub,
		Email:     claims.Email,
		Name:      claims.Name,
	}, nil
}
