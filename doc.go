// Package authcore implements the authentication, session, and admission
// control core of a user-facing service: JWT access/refresh token pairs, a
// Redis-backed single-active-session registry, timed action tokens for
// email-delivered account links, and a sliding-window rate limiter.
//
// The package is designed for concurrent server workloads: Service methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Service], [Builder],
// [Config], the collaborator interfaces ([UserDirectory], [Mailer],
// [AuditSink]), and value types (TokenPair, Identity, UserRecord). The
// mechanics live in the sub-packages jwt, session, actiontoken, rate, and
// password; their errors never cross the Service boundary uncollapsed.
//
// # Session model
//
// Each account has at most one live session. Login displaces the previous
// session entry (the old refresh token stops refreshing even though it is
// still unexpired), Refresh keeps the registered refresh token unchanged,
// and Revoke deletes the entry. Refresh tokens are held encrypted at rest;
// the shared store never sees one in the clear.
//
// # Failure posture
//
// Credential and token failures collapse into generic sentinels
// (ErrInvalidCredentials, ErrInvalidAccessToken, ErrInvalidRefreshToken,
// ErrInvalidActionToken) that leak nothing about which check failed.
// Business-state conflicts keep specific wording. A shared-store outage is
// fatal for the affected request, always surfaced as ErrStoreUnavailable,
// never downgraded to a cache miss or an open rate-limit gate.
package authcore
