// Package jwt mints and validates the signed access and refresh tokens used
// by the authcore service. Both token kinds share one HS256 signing secret
// and one claims layout; they differ only in lifetime and in the boolean
// `access` claim, which validation checks against the caller's expectation.
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token cannot be decoded or its
	// signature does not verify.
	ErrInvalidToken = errors.New("token invalid")
	// ErrExpiredToken is returned when a structurally valid token is past
	// its expiry (or not yet inside its not-before window).
	ErrExpiredToken = errors.New("token expired")
	// ErrWrongTokenKind is returned when the token's `access` claim does
	// not match the kind the caller asked to validate.
	ErrWrongTokenKind = errors.New("wrong token kind")
)

// UserPayload is the minimal user summary embedded in every token.
type UserPayload struct {
	UUID     string `json:"uuid"`
	Username string `json:"username,omitempty"`
	Admin    bool   `json:"admin,omitempty"`
}

// Claims is the wire layout of both token kinds. Access is true for access
// tokens and false for refresh tokens.
type Claims struct {
	User   UserPayload `json:"user"`
	Access bool        `json:"access"`
	jwt.RegisteredClaims
}

// Config holds the signing secret and token lifetimes. Now is optional and
// exists so tests can pin the clock; it defaults to time.Now.
type Config struct {
	SecretKey  []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// Manager is the token codec. It is immutable after construction and safe
// for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.SecretKey) == 0 {
		return nil, errors.New("jwt: signing secret is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("jwt: token lifetimes must be positive")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, errors.New("jwt: refresh lifetime must exceed access lifetime")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{config: cfg, now: now}, nil
}

// CreateAccess mints a short-lived access token for user.
func (m *Manager) CreateAccess(user UserPayload) (string, error) {
	return m.create(user, true)
}

// CreateRefresh mints a long-lived refresh token for user.
func (m *Manager) CreateRefresh(user UserPayload) (string, error) {
	return m.create(user, false)
}

func (m *Manager) create(user UserPayload, access bool) (string, error) {
	ttl := m.config.RefreshTTL
	if access {
		ttl = m.config.AccessTTL
	}

	now := m.now()
	claims := Claims{
		User:   user,
		Access: access,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   user.UUID,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.SecretKey)
}

// Validate decodes tokenStr, verifies its signature and time bounds, and
// checks that the token kind matches expectRefresh. The three sentinel
// errors are for callers to collapse into a single generic message; they
// must never reach the wire individually.
func (m *Manager) Validate(tokenStr string, expectRefresh bool) (*UserPayload, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenStr,
		claims,
		func(*jwt.Token) (any, error) { return m.config.SecretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.User.UUID == "" {
		return nil, ErrInvalidToken
	}
	if claims.Access == expectRefresh {
		return nil, ErrWrongTokenKind
	}

	user := claims.User
	return &user, nil
}
