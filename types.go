package authcore

import (
	"context"
	"time"

	"github.com/MrEthical07/authcore/actiontoken"
)

// UserRecord is the credential snapshot of one account as read from the
// user directory. This core only reads it and requests partial updates; the
// directory owns the row.
type UserRecord struct {
	UUID         string
	Username     string
	Email        string
	PasswordHash string
	// Updated is rotated by the directory on every write to the row. Action
	// tokens are keyed to it, so any write invalidates all of them.
	Updated   time.Time
	Confirmed bool
	Active    bool
	Admin     bool
}

// UserUpdate is a partial update request. Nil fields are left untouched.
// Applying any update rotates the record's Updated timestamp.
type UserUpdate struct {
	Email        *string
	PasswordHash *string
	Confirmed    *bool
	Active       *bool
	Admin        *bool
}

// UserDirectory is the user-lookup collaborator. Lookups return (nil, nil)
// on a miss; errors are reserved for infrastructure failures.
type UserDirectory interface {
	FindByUUID(ctx context.Context, uuid string) (*UserRecord, error)
	FindByUsername(ctx context.Context, username string) (*UserRecord, error)
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
	Create(ctx context.Context, rec UserRecord) (*UserRecord, error)
	Update(ctx context.Context, uuid string, upd UserUpdate) (*UserRecord, error)
}

// Mailer delivers templated account mail. Sends are fire-and-forget from
// the service's perspective: a delivery failure is audited but never fails
// the flow that triggered it.
type Mailer interface {
	SendActionEmail(ctx context.Context, user UserRecord, token string, action actiontoken.Action) error
	SendWelcomeEmail(ctx context.Context, user UserRecord) error
}

// noopMailer is installed when the caller wires no Mailer.
type noopMailer struct{}

func (noopMailer) SendActionEmail(context.Context, UserRecord, string, actiontoken.Action) error {
	return nil
}

func (noopMailer) SendWelcomeEmail(context.Context, UserRecord) error { return nil }

// TokenPair is what a successful login or refresh returns. TokenName is the
// scheme under which the access token is presented.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenName    string `json:"token_name"`
}

// Identity is the authenticated principal extracted from a valid access
// token.
type Identity struct {
	UUID     string
	Username string
	Admin    bool
}
