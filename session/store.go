// Package session is the Redis-backed registry of the single valid refresh
// token per account. It is the source of truth for session liveness: a
// refresh token that still verifies cryptographically but no longer matches
// this store is revoked.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when Redis cannot serve the request. Callers
// must treat it as fatal for the request; there is no local retry and no
// fallback.
var ErrUnavailable = errors.New("session store unavailable")

// Store keeps one encrypted refresh token per account uuid, all fields of a
// single shared hash. HSET per field is atomic, which is what makes the
// login-overwrites-login invariant hold under concurrent requests.
type Store struct {
	redis   redis.UniversalClient
	key     *fernet.Key
	hashKey string
	maxAge  time.Duration
}

// NewStore builds a Store writing under hashKey. encryptionKey is a
// hex- or base64-encoded 32-byte Fernet key, the only forms fernet
// accepts. maxAge bounds how old a stored ciphertext may be before it is
// treated as gone; it should match the refresh-token lifetime.
func NewStore(client redis.UniversalClient, encryptionKey, hashKey string, maxAge time.Duration) (*Store, error) {
	if client == nil {
		return nil, errors.New("session: redis client is required")
	}
	if hashKey == "" {
		return nil, errors.New("session: hash key is required")
	}
	if maxAge <= 0 {
		return nil, errors.New("session: max age must be positive")
	}
	key, err := fernet.DecodeKey(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("session: bad encryption key: %w", err)
	}
	return &Store{redis: client, key: key, hashKey: hashKey, maxAge: maxAge}, nil
}

// Put registers refreshToken as the one live session for uid, overwriting
// any previous entry. The displaced token is revoked from that moment on.
func (s *Store) Put(ctx context.Context, uid, refreshToken string) error {
	sealed, err := fernet.EncryptAndSign([]byte(refreshToken), s.key)
	if err != nil {
		return fmt.Errorf("session: encrypt refresh token: %w", err)
	}
	if err := s.redis.HSet(ctx, s.hashKey, uid, sealed).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get returns the live refresh token for uid. The second return value is
// false when there is no live session; an entry that fails decryption is
// treated the same way.
func (s *Store) Get(ctx context.Context, uid string) (string, bool, error) {
	sealed, err := s.redis.HGet(ctx, s.hashKey, uid).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	token := fernet.VerifyAndDecrypt(sealed, s.maxAge, []*fernet.Key{s.key})
	if token == nil {
		return "", false, nil
	}
	return string(token), true, nil
}

// Revoke deletes the session entry for uid. Revoking an absent session is
// not an error.
func (s *Store) Revoke(ctx context.Context, uid string) error {
	if err := s.redis.HDel(ctx, s.hashKey, uid).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
