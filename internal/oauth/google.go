// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth

import (
	"context"
	"fmt"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// GoogleIssuer is the OIDC issuer for Google accounts.
const GoogleIssuer = "https://accounts.google.com"

// Google signs users in with Google's OpenID Connect endpoints.
//
// Discovery runs on first use rather than at startup so a Google outage
// cannot keep the server from booting.
type Google struct {
	options Options
	issuer  string

	mu       sync.Mutex
	provider *oidc.Provider
	config   *oauth2.Config
}

// NewGoogle creates a Google provider. When options.APIBase is set it is used
// as the issuer instead of [GoogleIssuer].
func NewGoogle(options Options) *Google {
	issuer := GoogleIssuer
	if options.APIBase != "" {
		issuer = options.APIBase
	}
	return &Google{options: options, issuer: issuer}
}

func (g *Google) Name() string { return "google" }

func (g *Google) discover(ctx context.Context) (*oidc.Provider, *oauth2.Config, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.provider != nil {
		return g.provider, g.config, nil
	}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, g.options.httpClient()), g.issuer)
	if err != nil {
		return nil, nil, fmt.Errorf("oauth: google discovery: %w", err)
	}

	endpoint := provider.Endpoint()
	if g.options.Endpoint != nil {
		endpoint = *g.options.Endpoint
	}

	g.provider = provider
	g.config = &oauth2.Config{
		ClientID:     g.options.ClientID,
		ClientSecret: g.options.ClientSecret,
		RedirectURL:  g.options.RedirectURL,
		Endpoint:     endpoint,
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	return g.provider, g.config, nil
}

// AuthCodeURL returns the consent screen URL.
func (g *Google) AuthCodeURL(ctx context.Context, state string) (string, error) {
	_, config, err := g.discover(ctx)
	if err != nil {
		return "", err
	}
	return config.AuthCodeURL(state), nil
}

// Exchange trades the authorization code for tokens.
func (g *Google) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	_, config, err := g.discover(ctx)
	if err != nil {
		return nil, err
	}
	return config.Exchange(g.options.withClient(ctx), code)
}

// Profile reads the signed-in user from the userinfo endpoint.
func (g *Google) Profile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	provider, _, err := g.discover(ctx)
	if err != nil {
		return nil, err
	}

	info, err := provider.UserInfo(oidc.ClientContext(ctx, g.options.httpClient()), oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, fmt.Errorf("oauth: google userinfo: %w", err)
	}

	var claims struct {
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := info.Claims(&claims); err != nil {
		return nil, fmt.Errorf("oauth: google claims: %w", err)
	}

	return &Profile{
		Provider:      g.Name(),
		ProviderID:    info.Subject,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		DisplayName:   claims.Name,
		AvatarURL:     claims.Picture,
	}, nil
}
