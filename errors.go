package authcore

import "errors"

// Authentication failures are deliberately coarse: nothing in the message
// may tell a caller which underlying check failed. Business-state conflicts
// are the opposite and keep specific, user-facing wording, because they
// signal idempotency, not secrets.
var (
	// ErrInvalidCredentials covers unknown identity and wrong password alike.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	// ErrInvalidAccessToken covers malformed, expired, foreign-signed, and
	// wrong-kind access tokens.
	ErrInvalidAccessToken = errors.New("could not validate credentials")
	// ErrInvalidRefreshToken covers malformed, expired, wrong-kind, and
	// store-mismatched refresh tokens.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrInvalidActionToken covers bad signature, wrong context, and
	// staleness of an action token.
	ErrInvalidActionToken = errors.New("the confirmation link is invalid or has expired")
	// ErrStoreUnavailable is a fatal per-request failure of the shared KV
	// store. It is never downgraded to a softer outcome.
	ErrStoreUnavailable = errors.New("shared store unavailable")
	// ErrRateLimited rejects a request whose budget is already consumed.
	ErrRateLimited = errors.New("too many requests")

	// ErrAccountExists rejects registration of a taken username or email.
	ErrAccountExists = errors.New("account already exists")
	// ErrAlreadyConfirmed rejects confirming an account twice.
	ErrAlreadyConfirmed = errors.New("account already confirmed")
	// ErrAlreadyActive rejects activating an account twice.
	ErrAlreadyActive = errors.New("account already activated")
	// ErrNotConfirmed gates flows that require a verified account.
	ErrNotConfirmed = errors.New("account is not verified; please check your email inbox to verify your account")
	// ErrNotActive gates flows that require an activated account.
	ErrNotActive = errors.New("account is inactive; please activate your account to proceed")

	// ErrNotReady is returned when the service is used before Build.
	ErrNotReady = errors.New("service not ready")
)
