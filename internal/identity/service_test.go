// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/lumina/internal/identity"
	"github.com/taibuivan/lumina/internal/identity/identityfake"
	"github.com/taibuivan/lumina/internal/platform/apperr"
)

func newService() (*identity.Service, *identityfake.Repository) {
	repository := identityfake.New()
	return identity.NewService(repository, identityfake.NewTokenStore()), repository
}

/*
TestRegister_NormalizesAndHashes stores a lower-cased email and a bcrypt hash.
*/
func TestRegister_NormalizesAndHashes(t *testing.T) {
	service, _ := newService()

	account, token, err := service.Register(context.Background(), identity.RegisterInput{
		Email:       "  Mai.Tran@Example.COM ",
		Password:    "lumina2026",
		DisplayName: "Mai Tran",
		Kind:        identity.KindParent,
	})
	require.NoError(t, err)

	assert.Equal(t, "mai.tran@example.com", account.Email)
	assert.NotEqual(t, "lumina2026", account.PasswordHash)
	assert.Equal(t, identity.KindParent, account.Kind)
	assert.False(t, account.EmailVerified)
	assert.NotEmpty(t, token)
}

/*
TestRegister_Rejects covers validation, staff self-registration and duplicates.
*/
func TestRegister_Rejects(t *testing.T) {
	service, _ := newService()
	ctx := context.Background()

	_, _, err := service.Register(ctx, identity.RegisterInput{Email: "bad", Password: "short", DisplayName: ""})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	_, _, err = service.Register(ctx, identity.RegisterInput{Email: "a@b.co", Password: "lumina2026", DisplayName: "A", Kind: identity.KindStaff})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation), "staff accounts are provisioned, not registered")

	_, _, err = service.Register(ctx, identity.RegisterInput{Email: "a@b.co", Password: "lumina2026", DisplayName: "A"})
	require.NoError(t, err)
	_, _, err = service.Register(ctx, identity.RegisterInput{Email: "A@B.co", Password: "lumina2026", DisplayName: "A"})
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))
}

/*
TestAuthenticate_UniformFailure never reveals whether the email exists.
*/
func TestAuthenticate_UniformFailure(t *testing.T) {
	service, repository := newService()
	ctx := context.Background()

	_, _, err := service.Register(ctx, identity.RegisterInput{Email: "lan@example.com", Password: "lumina2026", DisplayName: "Lan"})
	require.NoError(t, err)
	repository.Seed(identity.Account{Email: "oauth-only@example.com", Kind: identity.KindStudent})

	account, err := service.Authenticate(ctx, "LAN@example.com", "lumina2026")
	require.NoError(t, err)
	assert.Equal(t, "lan@example.com", account.Email)

	for _, attempt := range [][2]string{
		{"lan@example.com", "wrong-password1"},
		{"ghost@example.com", "lumina2026"},
		{"oauth-only@example.com", ""},
	} {
		_, err := service.Authenticate(ctx, attempt[0], attempt[1])
		appErr := apperr.As(err)
		require.NotNil(t, appErr, attempt[0])
		assert.Equal(t, apperr.CodeUnauthenticated, appErr.Code)
		assert.Equal(t, "Invalid email or password", appErr.Message)
	}
}

/*
TestVerifyEmail_SingleUse redeems a token once.
*/
func TestVerifyEmail_SingleUse(t *testing.T) {
	service, _ := newService()
	ctx := context.Background()

	_, token, err := service.Register(ctx, identity.RegisterInput{Email: "hoa@example.com", Password: "lumina2026", DisplayName: "Hoa"})
	require.NoError(t, err)

	account, err := service.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, account.EmailVerified)

	_, err = service.VerifyEmail(ctx, token)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	_, err = service.VerifyEmail(ctx, "")
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}
