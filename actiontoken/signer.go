// Package actiontoken mints and verifies the scoped, time-limited tokens
// that drive out-of-band account flows (activation, email change, password
// reset).
//
// Tokens are stateless. The signing key is derived from a static secret, a
// static salt, and the account's `updated` timestamp, so any write to the
// account row (including the write the action itself performs) invalidates
// every token issued before it. That coarse invalidation is the mechanism's
// only notion of "single use"; there is no ledger of consumed tokens.
package actiontoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"strings"
	"time"
)

// saltTimeLayout formats the account's updated timestamp into the key salt
// with microsecond precision, so even sub-second row updates rotate the key.
const saltTimeLayout = "2006-01-02T15:04:05.000000-07:00"

// Signer derives per-account keys and produces opaque signed token strings
// of the form base64(payload).base64(timestamp).base64(signature).
type Signer struct {
	secret []byte
	salt   []byte
	now    func() time.Time
}

// NewSigner returns a Signer over the given secret and salt. now is optional
// and defaults to time.Now.
func NewSigner(secret, salt []byte, now func() time.Time) *Signer {
	if now == nil {
		now = time.Now
	}
	return &Signer{secret: secret, salt: salt, now: now}
}

// deriveKey mixes the static salt and the account's current updated
// timestamp into the signing key. Rotating `updated` rotates the key.
func (s *Signer) deriveKey(updated time.Time) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(s.salt)
	mac.Write([]byte(updated.UTC().Format(saltTimeLayout)))
	return mac.Sum(nil)
}

func (s *Signer) sign(key, body []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return mac.Sum(nil)
}

// Generate mints a token binding action to email, keyed to the account's
// updated timestamp.
func (s *Signer) Generate(email string, updated time.Time, action Action) (string, error) {
	payload, err := json.Marshal(map[string]string{string(action): email})
	if err != nil {
		return "", err
	}

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(s.now().Unix()))

	enc := base64.RawURLEncoding
	body := enc.EncodeToString(payload) + "." + enc.EncodeToString(ts[:])

	key := s.deriveKey(updated)
	sig := s.sign(key, []byte(body))

	return body + "." + enc.EncodeToString(sig), nil
}

// Verify reports whether token is a valid, unexpired token binding action to
// email, keyed to the account's *current* updated timestamp. It returns
// false, never an error, on bad structure, bad signature, wrong action,
// wrong email, or age beyond maxAge.
func (s *Signer) Verify(email string, updated time.Time, token string, action Action, maxAge time.Duration) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}

	enc := base64.RawURLEncoding
	sig, err := enc.DecodeString(parts[2])
	if err != nil {
		return false
	}

	body := parts[0] + "." + parts[1]
	key := s.deriveKey(updated)
	if !hmac.Equal(sig, s.sign(key, []byte(body))) {
		return false
	}

	tsRaw, err := enc.DecodeString(parts[1])
	if err != nil || len(tsRaw) != 8 {
		return false
	}
	issued := time.Unix(int64(binary.BigEndian.Uint64(tsRaw)), 0)
	age := s.now().Sub(issued)
	if age < 0 || age > maxAge {
		return false
	}

	payloadRaw, err := enc.DecodeString(parts[0])
	if err != nil {
		return false
	}
	var payload map[string]string
	if err := json.Unmarshal(payloadRaw, &payload); err != nil {
		return false
	}

	return payload[string(action)] == email
}
