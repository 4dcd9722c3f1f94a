package authcore

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries everything the service needs beyond its injected
// collaborators. Values are owned by the caller's config loader; [FromEnv]
// implements the fixed environment-variable contract.
type Config struct {
	JWT         JWTConfig
	Session     SessionConfig
	ActionToken ActionTokenConfig
	RateLimit   RateLimitConfig
	Password    PasswordConfig
	Audit       AuditConfig
}

// JWTConfig configures the access/refresh token codec.
type JWTConfig struct {
	SecretKey  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// SessionConfig configures the shared session registry. EncryptionKey is a
// hex- or base64-encoded 32-byte Fernet key; HashKey names the one Redis
// hash all session entries live in.
type SessionConfig struct {
	EncryptionKey string
	HashKey       string
}

// ActionTokenConfig configures the out-of-band confirmation token signer.
type ActionTokenConfig struct {
	SecretKey string
	Salt      string
	MaxAge    time.Duration
}

// RateLimitConfig configures per-(host, path) admission control.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
	KeyPrefix   string
}

// PasswordConfig configures bcrypt hashing for new credentials.
type PasswordConfig struct {
	Cost int
}

// AuditConfig configures the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// DefaultConfig returns the stock defaults: one-hour access tokens,
// seven-day refresh tokens, one-hour action tokens, and a budget of 5
// requests per 60-second window per route.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Session: SessionConfig{
			HashKey: "refresh_tokens",
		},
		ActionToken: ActionTokenConfig{
			MaxAge: time.Hour,
		},
		RateLimit: RateLimitConfig{
			MaxRequests: 5,
			Window:      60 * time.Second,
		},
		Audit: AuditConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

func validateConfig(cfg Config) error {
	if cfg.JWT.SecretKey == "" {
		return errors.New("config: JWT secret key is required")
	}
	if cfg.JWT.AccessTTL <= 0 || cfg.JWT.RefreshTTL <= 0 {
		return errors.New("config: token lifetimes must be positive")
	}
	if cfg.JWT.RefreshTTL <= cfg.JWT.AccessTTL {
		return errors.New("config: refresh lifetime must exceed access lifetime")
	}
	if cfg.Session.EncryptionKey == "" {
		return errors.New("config: session encryption key is required")
	}
	if cfg.Session.HashKey == "" {
		return errors.New("config: session hash key is required")
	}
	if cfg.ActionToken.SecretKey == "" || cfg.ActionToken.Salt == "" {
		return errors.New("config: action token secret and salt are required")
	}
	if cfg.ActionToken.MaxAge <= 0 {
		return errors.New("config: action token max age must be positive")
	}
	if cfg.RateLimit.MaxRequests <= 0 || cfg.RateLimit.Window <= 0 {
		return errors.New("config: rate limit budget and window must be positive")
	}
	return nil
}

// FromEnv loads Config from the fixed environment-variable names shared
// with the rest of the deployment:
//
//	JWT_SECRET_KEY, JWT_EXPIRATION, JWT_REFRESH_EXPIRATION,
//	SECRET_KEY, SECRET_SALT, CONFIRM_EXPIRATION,
//	REDIS_HASH, MAX_REQUESTS, MAX_REQUESTS_WINDOW
//
// Durations are integer seconds. Unset optional values keep the defaults
// from [DefaultConfig]; SECRET_KEY doubles as the session encryption key
// and the action-token signing secret.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	secretKey := os.Getenv("SECRET_KEY")
	if secretKey == "" {
		return Config{}, errors.New("config: SECRET_KEY is not set")
	}
	salt := os.Getenv("SECRET_SALT")
	if salt == "" {
		return Config{}, errors.New("config: SECRET_SALT is not set")
	}
	jwtSecret := os.Getenv("JWT_SECRET_KEY")
	if jwtSecret == "" {
		return Config{}, errors.New("config: JWT_SECRET_KEY is not set")
	}

	cfg.JWT.SecretKey = jwtSecret
	cfg.Session.EncryptionKey = secretKey
	cfg.ActionToken.SecretKey = secretKey
	cfg.ActionToken.Salt = salt

	if v := os.Getenv("REDIS_HASH"); v != "" {
		cfg.Session.HashKey = v
	}

	var err error
	if cfg.JWT.AccessTTL, err = envSeconds("JWT_EXPIRATION", cfg.JWT.AccessTTL); err != nil {
		return Config{}, err
	}
	if cfg.JWT.RefreshTTL, err = envSeconds("JWT_REFRESH_EXPIRATION", cfg.JWT.RefreshTTL); err != nil {
		return Config{}, err
	}
	if cfg.ActionToken.MaxAge, err = envSeconds("CONFIRM_EXPIRATION", cfg.ActionToken.MaxAge); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit.Window, err = envSeconds("MAX_REQUESTS_WINDOW", cfg.RateLimit.Window); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("MAX_REQUESTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: MAX_REQUESTS: %w", err)
		}
		cfg.RateLimit.MaxRequests = n
	}

	return cfg, validateConfig(cfg)
}

func envSeconds(name string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", name, err)
	}
	return time.Duration(n) * time.Second, nil
}
