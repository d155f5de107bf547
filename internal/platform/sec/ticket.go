// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidTicket is returned for tickets that are malformed, forged or expired.
var ErrInvalidTicket = errors.New("sec: invalid ticket")

// TicketClaims is the payload of a short-lived continuation ticket.
//
// The payload is opaque to this package: callers put whatever state they need to
// resume a flow into Payload (for example, a fetched OAuth profile).
type TicketClaims struct {
	jwt.RegisteredClaims

	Payload map[string]string `json:"pld"`
}

// TicketSigner issues and verifies HS256 continuation tickets.
type TicketSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTicketSigner creates a [TicketSigner] bound to secret.
func NewTicketSigner(secret, issuer string, ttl time.Duration) *TicketSigner {
	return &TicketSigner{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs payload for the given audience (for example "oauth:github").
func (signer *TicketSigner) Issue(audience string, payload map[string]string) (string, error) {
	issuedAt := signer.now()
	claims := TicketClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    signer.issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(signer.ttl)),
		},
		Payload: payload,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signer.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign ticket: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer, audience and expiry, returning the payload.
func (signer *TicketSigner) Verify(audience, ticket string) (map[string]string, error) {
	claims := &TicketClaims{}
	token, err := jwt.ParseWithClaims(ticket, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return signer.secret, nil
	},
		jwt.WithIssuer(signer.issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(signer.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	return claims.Payload, nil
}
