// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package identityfake provides in-memory identity repositories for tests.
package identityfake

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/taibuivan/lumina/internal/identity"
	"github.com/taibuivan/lumina/pkg/uuid"
)

var (
	_ identity.Repository = (*Repository)(nil)
	_ identity.TokenStore = (*TokenStore)(nil)
)

// ErrDown is returned while the fake is marked down.
var ErrDown = errors.New("identityfake: store down")

// Repository mirrors the uniqueness rules of the Postgres schema in memory.
type Repository struct {
	lock     sync.Mutex
	accounts map[string]*identity.Account
	links    map[string]*identity.Link
	down     bool

	// BeforeCreate runs before CreateAccount takes the lock. Tests use it to
	// simulate a concurrent creator winning the race.
	BeforeCreate func()
}

// New creates an empty fake repository.
func New() *Repository {
	return &Repository{
		accounts: make(map[string]*identity.Account),
		links:    make(map[string]*identity.Link),
	}
}

// SetDown makes every subsequent call fail with [ErrDown].
func (r *Repository) SetDown(down bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.down = down
}

// Counts returns how many accounts and links exist.
func (r *Repository) Counts() (accounts, links int) {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.accounts), len(r.links)
}

// Seed stores an account directly and returns it with an id assigned.
func (r *Repository) Seed(account identity.Account) *identity.Account {
	r.lock.Lock()
	defer r.lock.Unlock()
	if account.ID == "" {
		account.ID = uuid.New()
	}
	account.Email = identity.NormalizeEmail(account.Email)
	r.accounts[account.ID] = &account
	clone := account
	return &clone
}

func linkKey(provider, providerID string) string {
	return provider + "\x00" + providerID
}

func (r *Repository) FindAccountByID(_ context.Context, id string) (*identity.Account, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return nil, ErrDown
	}
	account, ok := r.accounts[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	clone := *account
	return &clone, nil
}

func (r *Repository) FindAccountByEmail(_ context.Context, email string) (*identity.Account, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return nil, ErrDown
	}
	for _, account := range r.accounts {
		if account.Email == email {
			clone := *account
			return &clone, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (r *Repository) FindLink(_ context.Context, provider, providerID string) (*identity.Link, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return nil, ErrDown
	}
	link, ok := r.links[linkKey(provider, providerID)]
	if !ok {
		return nil, identity.ErrNotFound
	}
	clone := *link
	return &clone, nil
}

func (r *Repository) CreateAccount(_ context.Context, input identity.NewAccount, link *identity.Link) (*identity.Account, error) {
	if r.BeforeCreate != nil {
		hook := r.BeforeCreate
		r.BeforeCreate = nil
		hook()
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return nil, ErrDown
	}

	for _, existing := range r.accounts {
		if existing.Email == input.Email {
			return nil, identity.ErrEmailTaken
		}
	}
	if link != nil {
		if _, taken := r.links[linkKey(link.Provider, link.ProviderID)]; taken {
			return nil, identity.ErrLinkTaken
		}
	}

	account := &identity.Account{
		ID:            uuid.New(),
		IdentityID:    uuid.New(),
		Kind:          input.Kind,
		Email:         input.Email,
		Phone:         input.Phone,
		EmailVerified: input.EmailVerified,
		DisplayName:   input.DisplayName,
		AvatarURL:     input.AvatarURL,
		PasswordHash:  input.PasswordHash,
		CreatedAt:     time.Now().UTC(),
	}
	r.accounts[account.ID] = account

	if link != nil {
		link.AccountID = account.ID
		stored := *link
		stored.CreatedAt = account.CreatedAt
		r.links[linkKey(link.Provider, link.ProviderID)] = &stored
	}

	clone := *account
	return &clone, nil
}

func (r *Repository) CreateLink(_ context.Context, link *identity.Link) (*identity.Link, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return nil, ErrDown
	}
	key := linkKey(link.Provider, link.ProviderID)
	if _, exists := r.links[key]; !exists {
		stored := *link
		stored.CreatedAt = time.Now().UTC()
		r.links[key] = &stored
	}
	clone := *r.links[key]
	return &clone, nil
}

func (r *Repository) MarkEmailVerified(_ context.Context, accountID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return ErrDown
	}
	account, ok := r.accounts[accountID]
	if !ok {
		return identity.ErrNotFound
	}
	account.EmailVerified = true
	return nil
}

// TokenStore keeps verification tokens in memory; expiry is not simulated.
type TokenStore struct {
	lock   sync.Mutex
	tokens map[string]string
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]string)}
}

func (s *TokenStore) Save(_ context.Context, tokenHash, accountID string, _ time.Duration) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.tokens[tokenHash] = accountID
	return nil
}

func (s *TokenStore) Consume(_ context.Context, tokenHash string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	accountID, ok := s.tokens[tokenHash]
	if !ok {
		return "", identity.ErrNotFound
	}
	delete(s.tokens, tokenHash)
	return accountID, nil
}
