// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth

import (
	"context"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

const facebookGraph = "https://graph.facebook.com/v19.0"

// Facebook signs users in with Facebook Login.
//
// Facebook only returns an email when the user has a confirmed one and grants
// the permission, so a missing email is common here.
type Facebook struct {
	options  Options
	config   *oauth2.Config
	graphURL string
}

// NewFacebook creates a Facebook provider.
func NewFacebook(options Options) *Facebook {
	endpoint := facebook.Endpoint
	if options.Endpoint != nil {
		endpoint = *options.Endpoint
	}
	graphURL := facebookGraph
	if options.APIBase != "" {
		graphURL = strings.TrimRight(options.APIBase, "/")
	}

	return &Facebook{
		options:  options,
		graphURL: graphURL,
		config: &oauth2.Config{
			ClientID:     options.ClientID,
			ClientSecret: options.ClientSecret,
			RedirectURL:  options.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"public_profile", "email"},
		},
	}
}

func (f *Facebook) Name() string { return "facebook" }

// AuthCodeURL returns the login dialog URL.
func (f *Facebook) AuthCodeURL(_ context.Context, state string) (string, error) {
	return f.config.AuthCodeURL(state), nil
}

// Exchange trades the authorization code for an access token.
func (f *Facebook) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return f.config.Exchange(f.options.withClient(ctx), code)
}

// Profile reads the Graph /me node.
func (f *Facebook) Profile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	var me struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := getJSON(ctx, f.options.httpClient(), token, f.graphURL+"/me?fields=id,name,email,picture.type(large)", &me); err != nil {
		return nil, err
	}

	return &Profile{
		Provider:    f.Name(),
		ProviderID:  me.ID,
		Email:       me.Email,
		// Facebook only exposes confirmed addresses.
		EmailVerified: me.Email != "",
		DisplayName:   me.Name,
		AvatarURL:     me.Picture.Data.URL,
	}, nil
}
