package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/actiontoken"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/rate"
	"github.com/MrEthical07/authcore/session"
)

// TokenName is the presentation scheme reported alongside every token pair.
const TokenName = "Bearer"

// Service is the authentication front door. It owns the token codec, the
// single-session registry, the action-token signer, and the request
// limiter, and drives them against the injected user directory and mailer.
// Safe for concurrent use.
type Service struct {
	config    Config
	codec     *jwt.Manager
	signer    *actiontoken.Signer
	sessions  *session.Store
	limiter   *rate.Limiter
	directory UserDirectory
	mailer    Mailer
	audit     *auditDispatcher
	metrics   *Metrics
	now       func() time.Time
}

// Metrics exposes the service's counter table.
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// MetricsSnapshot copies the current counters, for exporters.
func (s *Service) MetricsSnapshot() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (s *Service) AuditDropped() uint64 {
	return s.audit.droppedCount()
}

// Close drains the audit dispatcher. Call it once the service is retired.
func (s *Service) Close() {
	s.audit.close()
}

// Login verifies the submitted credentials and, on success, mints a fresh
// token pair and registers the refresh token as the account's only live
// session, displacing whatever session existed before. Every credential
// failure collapses into ErrInvalidCredentials; only a session-store outage
// surfaces as something else.
func (s *Service) Login(ctx context.Context, username, plainPassword string) (*TokenPair, error) {
	user, err := s.lookupByUsernameOrEmail(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !password.Verify(plainPassword, user.PasswordHash) {
		s.metrics.Inc(MetricLoginFailure)
		s.emitAudit(ctx, AuditLogin, uuidOf(user), false, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	pair, err := s.mintPair(user)
	if err != nil {
		s.metrics.Inc(MetricLoginFailure)
		s.emitAudit(ctx, AuditLogin, user.UUID, false, err)
		return nil, err
	}

	_, had, err := s.sessions.Get(ctx, user.UUID)
	if err != nil {
		s.metrics.Inc(MetricStoreFailure)
		s.metrics.Inc(MetricLoginFailure)
		s.emitAudit(ctx, AuditLogin, user.UUID, false, err)
		return nil, storeErr(err)
	}
	if had {
		s.metrics.Inc(MetricSessionOverwrite)
	}
	if err := s.sessions.Put(ctx, user.UUID, pair.RefreshToken); err != nil {
		s.metrics.Inc(MetricStoreFailure)
		s.metrics.Inc(MetricLoginFailure)
		s.emitAudit(ctx, AuditLogin, user.UUID, false, err)
		return nil, storeErr(err)
	}

	s.metrics.Inc(MetricLoginSuccess)
	s.emitAudit(ctx, AuditLogin, user.UUID, true, nil)
	return pair, nil
}

// Refresh exchanges a live refresh token for a new access token. The
// presented token must both validate cryptographically and match the
// account's registered session byte for byte; the refresh token itself is
// returned unchanged, so the session survives until logout or re-login.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	payload, err := s.codec.Validate(refreshToken, true)
	if err != nil {
		s.metrics.Inc(MetricRefreshFailure)
		s.emitAudit(ctx, AuditRefresh, "", false, err)
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.directory.FindByUUID(ctx, payload.UUID)
	if err != nil {
		s.metrics.Inc(MetricRefreshFailure)
		s.emitAudit(ctx, AuditRefresh, payload.UUID, false, err)
		return nil, err
	}
	if user == nil {
		s.metrics.Inc(MetricRefreshFailure)
		s.emitAudit(ctx, AuditRefresh, payload.UUID, false, ErrInvalidRefreshToken)
		return nil, ErrInvalidRefreshToken
	}

	stored, ok, err := s.sessions.Get(ctx, user.UUID)
	if err != nil {
		s.metrics.Inc(MetricStoreFailure)
		s.metrics.Inc(MetricRefreshFailure)
		s.emitAudit(ctx, AuditRefresh, user.UUID, false, err)
		return nil, storeErr(err)
	}
	if !ok || stored != refreshToken {
		s.metrics.Inc(MetricRefreshFailure)
		s.emitAudit(ctx, AuditRefresh, user.UUID, false, ErrInvalidRefreshToken)
		return nil, ErrInvalidRefreshToken
	}

	access, err := s.codec.CreateAccess(tokenPayload(user))
	if err != nil {
		s.metrics.Inc(MetricRefreshFailure)
		s.emitAudit(ctx, AuditRefresh, user.UUID, false, err)
		return nil, err
	}

	s.metrics.Inc(MetricRefreshSuccess)
	s.emitAudit(ctx, AuditRefresh, user.UUID, true, nil)
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenName:    TokenName,
	}, nil
}

// Revoke validates the presented refresh token and ends the session it
// belongs to. Any token failure collapses into ErrInvalidRefreshToken.
// Revoking an account with no session succeeds; a store outage does not.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	payload, err := s.codec.Validate(refreshToken, true)
	if err != nil {
		s.emitAudit(ctx, AuditRevoke, "", false, err)
		return ErrInvalidRefreshToken
	}
	if err := s.sessions.Revoke(ctx, payload.UUID); err != nil {
		s.metrics.Inc(MetricStoreFailure)
		s.emitAudit(ctx, AuditRevoke, payload.UUID, false, err)
		return storeErr(err)
	}
	s.metrics.Inc(MetricRevoke)
	s.emitAudit(ctx, AuditRevoke, payload.UUID, true, nil)
	return nil
}

// ValidateAccess checks an access token and returns the principal it
// carries. All failure modes collapse into ErrInvalidAccessToken.
func (s *Service) ValidateAccess(tokenStr string) (*Identity, error) {
	payload, err := s.codec.Validate(tokenStr, false)
	if err != nil {
		return nil, ErrInvalidAccessToken
	}
	return &Identity{
		UUID:     payload.UUID,
		Username: payload.Username,
		Admin:    payload.Admin,
	}, nil
}

// CurrentUser resolves an access token to its full directory record. The
// token collapses to ErrInvalidAccessToken on any defect, including a
// principal the directory no longer knows.
func (s *Service) CurrentUser(ctx context.Context, tokenStr string) (*UserRecord, error) {
	ident, err := s.ValidateAccess(tokenStr)
	if err != nil {
		return nil, err
	}
	user, err := s.directory.FindByUUID(ctx, ident.UUID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidAccessToken
	}
	return user, nil
}

// UserByUUID resolves a directory record for an already authenticated
// principal, such as the identity a guard extracted. An unknown UUID maps
// to ErrInvalidAccessToken, matching the token-resolution paths.
func (s *Service) UserByUUID(ctx context.Context, uid string) (*UserRecord, error) {
	user, err := s.directory.FindByUUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidAccessToken
	}
	return user, nil
}

// IsRateLimited records one request against the (host, path) budget and
// reports whether it exceeded the window's allowance. A limiter-store
// outage is fatal for the request, never silently open.
func (s *Service) IsRateLimited(ctx context.Context, host, path string) (bool, error) {
	limited, err := s.limiter.IsRateLimited(
		ctx,
		s.limiter.Key(host, path),
		s.config.RateLimit.MaxRequests,
		s.config.RateLimit.Window,
	)
	if err != nil {
		s.metrics.Inc(MetricStoreFailure)
		return false, storeErr(err)
	}
	if limited {
		s.metrics.Inc(MetricRateLimitHit)
	}
	return limited, nil
}

// VerifyPassword reports whether plain matches the stored credential hash.
func (s *Service) VerifyPassword(plain, hash string) bool {
	return password.Verify(plain, hash)
}

func (s *Service) hashPassword(plain string) (string, error) {
	if s.config.Password.Cost > 0 {
		return password.HashWithCost(plain, s.config.Password.Cost)
	}
	return password.Hash(plain)
}

func (s *Service) mintPair(user *UserRecord) (*TokenPair, error) {
	payload := tokenPayload(user)
	access, err := s.codec.CreateAccess(payload)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.CreateRefresh(payload)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenName:    TokenName,
	}, nil
}

// lookupByUsernameOrEmail tries the username index first and falls back to
// the email index, so either identifier works at the login prompt.
func (s *Service) lookupByUsernameOrEmail(ctx context.Context, identifier string) (*UserRecord, error) {
	user, err := s.directory.FindByUsername(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}
	return s.directory.FindByEmail(ctx, identifier)
}

func (s *Service) emitAudit(ctx context.Context, eventType, uid string, success bool, cause error) {
	if s.audit == nil {
		return
	}
	event := AuditEvent{
		Timestamp: s.now(),
		EventType: eventType,
		UserUUID:  uid,
		Success:   success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	s.audit.emit(ctx, event)
}

func tokenPayload(user *UserRecord) jwt.UserPayload {
	return jwt.UserPayload{
		UUID:     user.UUID,
		Username: user.Username,
		Admin:    user.Admin,
	}
}

func uuidOf(user *UserRecord) string {
	if user == nil {
		return ""
	}
	return user.UUID
}

// storeErr maps a component-level store failure onto the package sentinel
// while keeping the cause in the chain.
func storeErr(err error) error {
	if errors.Is(err, session.ErrUnavailable) || errors.Is(err, rate.ErrUnavailable) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
