package actiontoken

import (
	"strings"
	"testing"
	"time"
)

const testMaxAge = time.Hour

func newTestSigner(now func() time.Time) *Signer {
	return NewSigner([]byte("test-secret"), []byte("test-salt"), now)
}

func TestGenerateVerifyRoundTrip(t *testing.T) {
	s := newTestSigner(nil)
	updated := time.Date(2025, 3, 10, 9, 30, 0, 123456000, time.UTC)

	tok, err := s.Generate("alice@example.com", updated, Activate)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !s.Verify("alice@example.com", updated, tok, Activate, testMaxAge) {
		t.Error("freshly generated token failed to verify")
	}
}

func TestVerifyRejectsWrongAction(t *testing.T) {
	s := newTestSigner(nil)
	updated := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	tok, err := s.Generate("alice@example.com", updated, ChangeEmail)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if s.Verify("alice@example.com", updated, tok, ResetPassword, testMaxAge) {
		t.Error("token minted for change-email verified for reset-password")
	}
}

func TestVerifyRejectsWrongEmail(t *testing.T) {
	s := newTestSigner(nil)
	updated := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	tok, err := s.Generate("alice@example.com", updated, Activate)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if s.Verify("bob@example.com", updated, tok, Activate, testMaxAge) {
		t.Error("token verified for a different email")
	}
}

func TestAccountUpdateInvalidatesToken(t *testing.T) {
	s := newTestSigner(nil)
	updated := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	tok, err := s.Generate("alice@example.com", updated, Activate)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// Any write to the account rotates `updated`, even by a microsecond.
	mutated := updated.Add(time.Microsecond)
	if s.Verify("alice@example.com", mutated, tok, Activate, testMaxAge) {
		t.Error("token survived an account update")
	}

	fresh, err := s.Generate("alice@example.com", mutated, Activate)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !s.Verify("alice@example.com", mutated, fresh, Activate, testMaxAge) {
		t.Error("token minted against the mutated account failed to verify")
	}
}

func TestVerifyRejectsStaleToken(t *testing.T) {
	issued := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	current := issued

	s := newTestSigner(func() time.Time { return current })
	updated := issued.Add(-24 * time.Hour)

	tok, err := s.Generate("alice@example.com", updated, ResetPassword)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	current = issued.Add(testMaxAge - time.Second)
	if !s.Verify("alice@example.com", updated, tok, ResetPassword, testMaxAge) {
		t.Error("token rejected before max age")
	}

	current = issued.Add(testMaxAge + time.Second)
	if s.Verify("alice@example.com", updated, tok, ResetPassword, testMaxAge) {
		t.Error("token accepted past max age")
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	s := newTestSigner(nil)
	updated := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	tok, err := s.Generate("alice@example.com", updated, Activate)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	cases := []string{
		"",
		"garbage",
		tok + "x",
		strings.Replace(tok, ".", "", 1),
		"A" + tok[1:],
	}
	for _, mangled := range cases {
		if s.Verify("alice@example.com", updated, mangled, Activate, testMaxAge) {
			t.Errorf("tampered token %q verified", mangled)
		}
	}
}

func TestActionTable(t *testing.T) {
	for _, a := range []Action{Activate, ChangeEmail, ResetPassword} {
		if !a.Valid() {
			t.Errorf("action %q reported invalid", a)
		}
		d := a.Describe()
		if d.Subject == "" || d.PathSegment == "" || d.Template == "" {
			t.Errorf("action %q has incomplete descriptor: %+v", a, d)
		}
	}
	if Action("delete-account").Valid() {
		t.Error("unknown action reported valid")
	}
}
