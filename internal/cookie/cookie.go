// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package cookie reads and writes the two session cookies.

The session cookie carries only the opaque session id; the expiry cookie
carries the session expiry in Unix seconds so pages can warn before a session
lapses. Neither cookie is trusted: the id is verified against the session
store on every protected request.
*/
package cookie

import (
	"net/http"
	"strconv"
	"time"

	"github.com/taibuivan/lumina/internal/platform/constants"
)

// tokenLength is the base64url length of a 32-byte session id.
const tokenLength = 43

// Token is what the client presented, or what the server is about to set.
type Token struct {
	SessionID string
	ExpiresAt time.Time
}

// IsZero reports whether no session id was presented.
func (t Token) IsZero() bool {
	return t.SessionID == ""
}

// Codec applies a fixed cookie policy. It is safe for concurrent use.
type Codec struct {
	domain string
	secure bool
	now    func() time.Time
}

// NewCodec creates a [Codec]. domain may be empty for host-only cookies.
func NewCodec(domain string, secure bool) *Codec {
	return &Codec{domain: domain, secure: secure, now: time.Now}
}

// Extract reads the session cookies. It never fails: missing or malformed values
// yield a zero token, and a malformed expiry yields a zero time.
func (codec *Codec) Extract(request *http.Request) Token {
	var token Token

	if session, err := request.Cookie(constants.SessionCookieName); err == nil {
		token.SessionID = session.Value
	}

	if expires, err := request.Cookie(constants.SessionExpiresCookieName); err == nil {
		if seconds, err := strconv.ParseInt(expires.Value, 10, 64); err == nil && seconds > 0 {
			token.ExpiresAt = time.Unix(seconds, 0).UTC()
		}
	}

	return token
}

// Attach sets both cookies with a Max-Age derived from token.ExpiresAt.
func (codec *Codec) Attach(writer http.ResponseWriter, token Token) {
	maxAge := int(token.ExpiresAt.Sub(codec.now()).Seconds())
	if maxAge <= 0 {
		codec.Clear(writer)
		return
	}

	http.SetCookie(writer, codec.build(constants.SessionCookieName, token.SessionID, maxAge, true))
	http.SetCookie(writer, codec.build(constants.SessionExpiresCookieName, strconv.FormatInt(token.ExpiresAt.Unix(), 10), maxAge, false))
}

// Clear expires both cookies on the client.
func (codec *Codec) Clear(writer http.ResponseWriter) {
	http.SetCookie(writer, codec.build(constants.SessionCookieName, "", -1, true))
	http.SetCookie(writer, codec.build(constants.SessionExpiresCookieName, "", -1, false))
}

// The expiry cookie stays readable by scripts; the id never is.
func (codec *Codec) build(name, value string, maxAge int, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   codec.domain,
		MaxAge:   maxAge,
		HttpOnly: httpOnly,
		Secure:   codec.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Plausible is the edge gate's syntactic check: a 43-character base64url id.
// It performs no I/O and says nothing about whether the session exists.
func Plausible(token Token) bool {
	if len(token.SessionID) != tokenLength {
		return false
	}
	for index := 0; index < len(token.SessionID); index++ {
		if !isBase64URL(token.SessionID[index]) {
			return false
		}
	}
	return true
}

func isBase64URL(char byte) bool {
	switch {
	case char >= 'A' && char <= 'Z', char >= 'a' && char <= 'z', char >= '0' && char <= '9':
		return true
	case char == '-' || char == '_':
		return true
	}
	return false
}
