// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Pipeline Timing: Bounds on session store and identity provider calls.
  - Edge Throttle: Burst capacities and IP tracking TTLs.
  - Session: Cookie names and renewal policy.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "lumina"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 25 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Pipeline Timing

const (
	// StoreTimeout bounds every session, identity and rate-limit store call.
	StoreTimeout = 2 * time.Second

	// ProviderTimeout bounds every call to an external identity provider.
	ProviderTimeout = 10 * time.Second

	// SessionPurgeInterval is how often expired session rows are deleted.
	SessionPurgeInterval = 15 * time.Minute

	// StartupRetryWindow is how long startup keeps retrying Postgres and Redis.
	StartupRetryWindow = 30 * time.Second
)

// # Edge Throttle

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP at the edge.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the edge limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Session & Cookies

const (
	// SessionCookieName carries the opaque session id.
	SessionCookieName = "lumina_session"

	// SessionExpiresCookieName carries the session expiry as Unix seconds.
	SessionExpiresCookieName = "lumina_session_expires"

	// LocaleCookieName carries the visitor's preferred page locale.
	LocaleCookieName = "lumina_locale"

	// LoginPath is where page routes send unauthenticated visitors.
	LoginPath = "/login"

	// OAuthTicketTTL is how long an email continuation ticket stays valid.
	OAuthTicketTTL = 10 * time.Minute

	// OAuthTicketIssuer is the 'iss' claim of continuation tickets.
	OAuthTicketIssuer = "lumina.oauth"
)

// # JSON Field Identifiers

const (
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Redis Prefixes (Key Taxonomy)

const (
	RedisPrefixVerifyToken = "auth:verify_token:"
	RedisPrefixRateLimit   = "ratelimit:"
)

// VerifyTokenTTL is how long an email verification token remains redeemable.
const VerifyTokenTTL = 24 * time.Hour

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderRetryAfter    = "Retry-After"
	HeaderAllow         = "Allow"
)
