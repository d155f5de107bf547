// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubAPI = "https://api.github.com"

// GitHub signs users in with a GitHub OAuth app.
type GitHub struct {
	options Options
	config  *oauth2.Config
	apiBase string
}

// NewGitHub creates a GitHub provider.
func NewGitHub(options Options) *GitHub {
	endpoint := github.Endpoint
	if options.Endpoint != nil {
		endpoint = *options.Endpoint
	}
	apiBase := githubAPI
	if options.APIBase != "" {
		apiBase = strings.TrimRight(options.APIBase, "/")
	}

	return &GitHub{
		options: options,
		apiBase: apiBase,
		config: &oauth2.Config{
			ClientID:     options.ClientID,
			ClientSecret: options.ClientSecret,
			RedirectURL:  options.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
	}
}

func (g *GitHub) Name() string { return "github" }

// AuthCodeURL returns the authorization page URL.
func (g *GitHub) AuthCodeURL(_ context.Context, state string) (string, error) {
	return g.config.AuthCodeURL(state), nil
}

// Exchange trades the authorization code for an access token.
func (g *GitHub) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return g.config.Exchange(g.options.withClient(ctx), code)
}

// Profile reads /user and, when the public email is hidden, the primary
// verified address from /user/emails.
func (g *GitHub) Profile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	var user struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, g.options.httpClient(), token, g.apiBase+"/user", &user); err != nil {
		return nil, err
	}

	profile := &Profile{
		Provider:    g.Name(),
		ProviderID:  strconv.FormatInt(user.ID, 10),
		DisplayName: user.Name,
		AvatarURL:   user.AvatarURL,
	}
	if profile.DisplayName == "" {
		profile.DisplayName = user.Login
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, g.options.httpClient(), token, g.apiBase+"/user/emails", &emails); err != nil {
		// The scope may have been declined; fall back to the public email, unverified.
		profile.Email = user.Email
		return profile, nil
	}

	for _, candidate := range emails {
		if candidate.Primary && candidate.Verified {
			profile.Email = candidate.Email
			profile.EmailVerified = true
			return profile, nil
		}
	}

	profile.Email = user.Email
	return profile, nil
}
