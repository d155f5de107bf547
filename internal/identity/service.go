// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taibuivan/lumina/internal/platform/apperr"
	"github.com/taibuivan/lumina/internal/platform/constants"
	"github.com/taibuivan/lumina/internal/platform/ctxutil"
	"github.com/taibuivan/lumina/internal/platform/sec"
	"github.com/taibuivan/lumina/internal/platform/validate"
)

// verifyTokenBytes is the entropy of an email verification token.
const verifyTokenBytes = 32

// Service implements password registration, login and email verification.
type Service struct {
	repository Repository
	tokens     TokenStore
}

// NewService constructs a [Service].
func NewService(repository Repository, tokens TokenStore) *Service {
	return &Service{repository: repository, tokens: tokens}
}

// RegisterInput holds the data required to enrol a new account with a password.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Phone       string
	Kind        Kind
}

/*
Register validates, hashes and persists a new identity and account.

Returns:
  - *Account: The created account
  - string: A fresh email verification token to deliver out of band
  - error: ValidationError, Conflict or storage errors
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (*Account, string, error) {
	input.Email = NormalizeEmail(input.Email)
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if input.Kind == "" {
		input.Kind = KindStudent
	}

	validator := &validate.Validator{}
	validator.
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Password(FieldPassword, input.Password).
		Required(FieldDisplayName, input.DisplayName).
		MaxLen(FieldDisplayName, input.DisplayName, 100).
		Phone(FieldPhone, input.Phone).
		OneOf(FieldKind, string(input.Kind), string(KindStudent), string(KindParent), string(KindProvider))
	if err := validator.Err(); err != nil {
		return nil, "", err
	}

	hash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, "", fmt.Errorf("identity_register_hash_failed: %w", err)
	}

	account, err := service.repository.CreateAccount(ctx, NewAccount{
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: hash,
		DisplayName:  input.DisplayName,
		Kind:         input.Kind,
	}, nil)
	if errors.Is(err, ErrEmailTaken) {
		return nil, "", apperr.Conflict("Email is already registered")
	}
	if err != nil {
		return nil, "", fmt.Errorf("identity_register_failed: %w", err)
	}

	token, err := service.IssueVerification(ctx, account.ID)
	if err != nil {
		// The account exists; the user can request another token later.
		ctxutil.GetLogger(ctx).WarnContext(ctx, "verification_token_issue_failed",
			slog.String("account_id", account.ID),
			slog.Any("error", err),
		)
	}

	return account, token, nil
}

/*
Authenticate checks an email/password pair.

Unknown emails, OAuth-only accounts and wrong passwords all produce the same
Unauthenticated error so the response does not reveal which emails exist.
*/
func (service *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	invalid := apperr.Unauthenticated("Invalid email or password")

	account, err := service.repository.FindAccountByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, fmt.Errorf("identity_authenticate_lookup_failed: %w", err)
	}

	if account.PasswordHash == "" || !sec.CheckPasswordHash(password, account.PasswordHash) {
		return nil, invalid
	}

	return account, nil
}

// IssueVerification stores a new single-use token for accountID and returns it.
// Only the token hash is stored.
func (service *Service) IssueVerification(ctx context.Context, accountID string) (string, error) {
	token, err := sec.GenerateSecureToken(verifyTokenBytes)
	if err != nil {
		return "", err
	}
	if err := service.tokens.Save(ctx, sec.HashToken(token), accountID, constants.VerifyTokenTTL); err != nil {
		return "", fmt.Errorf("identity_verification_save_failed: %w", err)
	}
	return token, nil
}

// VerifyEmail redeems a verification token and marks the email verified.
func (service *Service) VerifyEmail(ctx context.Context, token string) (*Account, error) {
	if strings.TrimSpace(token) == "" {
		return nil, validate.RequiredError(FieldToken, "Token is required")
	}

	accountID, err := service.tokens.Consume(ctx, sec.HashToken(token))
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.ValidationError("Verification token is invalid or expired")
	}
	if err != nil {
		return nil, fmt.Errorf("identity_verification_consume_failed: %w", err)
	}

	if err := service.repository.MarkEmailVerified(ctx, accountID); err != nil {
		return nil, fmt.Errorf("identity_mark_verified_failed: %w", err)
	}

	return service.Account(ctx, accountID)
}

// Account loads an account by id, mapping a missing row to a 404.
func (service *Service) Account(ctx context.Context, accountID string) (*Account, error) {
	account, err := service.repository.FindAccountByID(ctx, accountID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Account")
	}
	if err != nil {
		return nil, fmt.Errorf("identity_account_lookup_failed: %w", err)
	}
	return account, nil
}
