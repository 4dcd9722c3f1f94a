package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	authcore "github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/actiontoken"
	"github.com/MrEthical07/authcore/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

type stubDirectory struct {
	mu    sync.Mutex
	users map[string]authcore.UserRecord
}

func (d *stubDirectory) FindByUUID(_ context.Context, uid string) (*authcore.UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rec, ok := d.users[uid]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (d *stubDirectory) FindByUsername(_ context.Context, username string) (*authcore.UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, rec := range d.users {
		if rec.Username == username {
			rec := rec
			return &rec, nil
		}
	}
	return nil, nil
}

func (d *stubDirectory) FindByEmail(_ context.Context, email string) (*authcore.UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, rec := range d.users {
		if rec.Email == email {
			rec := rec
			return &rec, nil
		}
	}
	return nil, nil
}

func (d *stubDirectory) Create(_ context.Context, rec authcore.UserRecord) (*authcore.UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec.Updated = time.Now()
	d.users[rec.UUID] = rec
	return &rec, nil
}

func (d *stubDirectory) Update(_ context.Context, uid string, upd authcore.UserUpdate) (*authcore.UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec := d.users[uid]
	if upd.Email != nil {
		rec.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		rec.PasswordHash = *upd.PasswordHash
	}
	if upd.Confirmed != nil {
		rec.Confirmed = *upd.Confirmed
	}
	if upd.Active != nil {
		rec.Active = *upd.Active
	}
	if upd.Admin != nil {
		rec.Admin = *upd.Admin
	}
	rec.Updated = time.Now()
	d.users[uid] = rec
	return &rec, nil
}

type nullMailer struct{}

func (nullMailer) SendActionEmail(context.Context, authcore.UserRecord, string, actiontoken.Action) error {
	return nil
}
func (nullMailer) SendWelcomeEmail(context.Context, authcore.UserRecord) error { return nil }

func newTestService(t *testing.T, maxRequests int) (*authcore.Service, *stubDirectory) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	cfg := authcore.DefaultConfig()
	cfg.JWT.SecretKey = "mw-test-jwt-secret"
	cfg.Session.EncryptionKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="
	cfg.ActionToken.SecretKey = "mw-test-action-secret"
	cfg.ActionToken.Salt = "mw-test-salt"
	cfg.Password.Cost = bcrypt.MinCost
	cfg.RateLimit.MaxRequests = maxRequests

	dir := &stubDirectory{users: make(map[string]authcore.UserRecord)}
	svc, err := authcore.New().
		WithConfig(cfg).
		WithRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()})).
		WithDirectory(dir).
		WithMailer(nullMailer{}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(svc.Close)

	return svc, dir
}

func loginPair(t *testing.T, svc *authcore.Service, dir *stubDirectory) *authcore.TokenPair {
	t.Helper()

	hash, err := password.HashWithCost("pass-123456", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashWithCost failed: %v", err)
	}
	if _, err := dir.Create(context.Background(), authcore.UserRecord{
		UUID:         uuid.NewString(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		Confirmed:    true,
		Active:       true,
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	pair, err := svc.Login(context.Background(), "alice", "pass-123456")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return pair
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardAcceptsValidBearer(t *testing.T) {
	svc, dir := newTestService(t, 5)
	pair := loginPair(t, svc, dir)

	var seen *authcore.Identity
	handler := Guard(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen == nil || seen.Username != "alice" {
		t.Fatalf("context identity = %+v, want alice", seen)
	}
}

func TestGuardRejections(t *testing.T) {
	svc, dir := newTestService(t, 5)
	pair := loginPair(t, svc, dir)

	handler := Guard(svc)(okHandler())

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not.a.jwt"},
		{"refresh token", "Bearer " + pair.RefreshToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	svc, dir := newTestService(t, 5)

	hash, err := password.HashWithCost("pass-123456", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashWithCost failed: %v", err)
	}
	if _, err := dir.Create(context.Background(), authcore.UserRecord{
		UUID:         uuid.NewString(),
		Username:     "root",
		Email:        "root@example.com",
		PasswordHash: hash,
		Confirmed:    true,
		Active:       true,
		Admin:        true,
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	adminPair, err := svc.Login(context.Background(), "root", "pass-123456")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	userPair := loginPair(t, svc, dir)

	handler := Guard(svc)(RequireAdmin(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminPair.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+userPair.AccessToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin status = %d, want 403", rec.Code)
	}
}

func TestRateLimitAnswers429(t *testing.T) {
	svc, _ := newTestService(t, 3)
	handler := RateLimit(svc)(okHandler())

	for i := 1; i <= 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
		req.RemoteAddr = "10.0.0.1:50000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("call %d status = %d, want 200", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
	req.RemoteAddr = "10.0.0.1:50001"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("fourth call status = %d, want 429", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad error body: %v", err)
	}
	if body["code"] != float64(http.StatusTooManyRequests) {
		t.Fatalf("body code = %v, want 429", body["code"])
	}

	// Another path keeps its own budget.
	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.RemoteAddr = "10.0.0.1:50002"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("other path status = %d, want 200", rec.Code)
	}
}

func TestRefreshTokenHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	if _, ok := RefreshToken(req); ok {
		t.Fatal("missing header reported as present")
	}

	req.Header.Set(RefreshTokenHeader, "some-token")
	token, ok := RefreshToken(req)
	if !ok || token != "some-token" {
		t.Fatalf("token = %q ok = %v", token, ok)
	}
}
