// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"golang.org/x/oauth2"
)

// ErrUnknownProvider is returned for provider names that are not configured.
var ErrUnknownProvider = errors.New("oauth: unknown provider")

// Profile is what a provider tells us about the person who signed in.
type Profile struct {
	Provider      string
	ProviderID    string
	Email         string
	EmailVerified bool
	DisplayName   string
	AvatarURL     string
}

// Provider exchanges an authorization code and fetches the signed-in profile.
type Provider interface {
	Name() string
	AuthCodeURL(ctx context.Context, state string) (string, error)
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Profile(ctx context.Context, token *oauth2.Token) (*Profile, error)
}

// Options configures a built-in provider. Endpoint and APIBase override the
// public defaults and exist for tests and self-hosted deployments.
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Endpoint     *oauth2.Endpoint
	APIBase      string
	HTTPClient   *http.Client
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return http.DefaultClient
}

// withClient makes x/oauth2 and go-oidc use the configured HTTP client.
func (o Options) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, o.httpClient())
}

// Registry maps provider names to providers.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry indexes providers by name.
func NewRegistry(providers ...Provider) *Registry {
	registry := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, provider := range providers {
		registry.providers[provider.Name()] = provider
	}
	return registry
}

// Lookup returns the provider registered under name.
func (registry *Registry) Lookup(name string) (Provider, error) {
	provider, ok := registry.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return provider, nil
}

// Names lists configured providers in lexical order.
func (registry *Registry) Names() []string {
	names := make([]string, 0, len(registry.providers))
	for name := range registry.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Rejected reports whether a token exchange failed because the provider refused
// the code, as opposed to the provider being unreachable or broken.
func Rejected(err error) bool {
	var retrieveError *oauth2.RetrieveError
	if !errors.As(err, &retrieveError) {
		return false
	}
	if retrieveError.ErrorCode != "" {
		return true
	}
	return retrieveError.Response != nil &&
		retrieveError.Response.StatusCode >= http.StatusBadRequest &&
		retrieveError.Response.StatusCode < http.StatusInternalServerError
}

// getJSON fetches url with the token's bearer credentials and decodes the body into out.
func getJSON(ctx context.Context, client *http.Client, token *oauth2.Token, url string, out any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	token.SetAuthHeader(request)
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return fmt.Errorf("oauth: fetch %s: %w", url, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, 4096))
		return fmt.Errorf("oauth: fetch %s: status %d", url, response.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(response.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("oauth: decode %s: %w", url, err)
	}
	return nil
}
