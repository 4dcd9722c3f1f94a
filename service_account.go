package authcore

import (
	"context"
	"fmt"

	"github.com/MrEthical07/authcore/actiontoken"
	"github.com/google/uuid"
)

// Register creates a fresh unconfirmed account and mails it an activation
// link. Both the username and the email must be free. The returned record
// is what the directory stored, not what was submitted.
func (s *Service) Register(ctx context.Context, username, email, plainPassword string) (*UserRecord, error) {
	if taken, err := s.identifierTaken(ctx, username, email); err != nil {
		return nil, err
	} else if taken {
		s.emitAudit(ctx, AuditRegister, "", false, ErrAccountExists)
		return nil, ErrAccountExists
	}

	hash, err := s.hashPassword(plainPassword)
	if err != nil {
		return nil, err
	}

	created, err := s.directory.Create(ctx, UserRecord{
		UUID:         uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		s.emitAudit(ctx, AuditRegister, "", false, err)
		return nil, err
	}

	s.emitAudit(ctx, AuditRegister, created.UUID, true, nil)
	s.issueActionMail(ctx, *created, created.Email, actiontoken.Activate)
	return created, nil
}

// Activate turns a registered account into a confirmed, active one. The
// caller resolves the account first (normally from the access token that
// accompanied the activation request); the link token must match that
// account's current state.
func (s *Service) Activate(ctx context.Context, user *UserRecord, token string) (*UserRecord, error) {
	if user.Confirmed {
		return nil, ErrAlreadyConfirmed
	}
	if !s.verifyActionToken(ctx, user, user.Email, token, actiontoken.Activate) {
		return nil, ErrInvalidActionToken
	}

	confirmed := true
	active := true
	updated, err := s.directory.Update(ctx, user.UUID, UserUpdate{
		Confirmed: &confirmed,
		Active:    &active,
	})
	if err != nil {
		s.emitAudit(ctx, AuditConfirm, user.UUID, false, err)
		return nil, err
	}

	s.metrics.Inc(MetricAccountConfirmed)
	s.emitAudit(ctx, AuditConfirm, user.UUID, true, nil)
	if err := s.mailer.SendWelcomeEmail(ctx, *updated); err != nil {
		s.recordMailFailure(ctx, updated.UUID, err)
	}
	return updated, nil
}

// ResendConfirmation generates and mails a fresh token for the given
// action. The account's state must still call for one; the conflict errors
// keep their specific wording so clients can explain the situation.
func (s *Service) ResendConfirmation(ctx context.Context, user *UserRecord, action actiontoken.Action) error {
	if !action.Valid() {
		return fmt.Errorf("unknown action %q", action)
	}
	switch action {
	case actiontoken.Activate:
		if user.Active {
			return ErrAlreadyActive
		}
		if user.Confirmed {
			return ErrAlreadyConfirmed
		}
	default:
		if !user.Active {
			return ErrNotActive
		}
	}

	return s.issueActionMail(ctx, *user, user.Email, action)
}

// RequestEmailChange mails a confirmation link to the proposed address.
// Nothing changes on the account until the link is confirmed, and any
// account write in between voids the link.
func (s *Service) RequestEmailChange(ctx context.Context, user *UserRecord, newEmail string) error {
	existing, err := s.directory.FindByEmail(ctx, newEmail)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAccountExists
	}

	recipient := *user
	recipient.Email = newEmail
	return s.issueActionMail(ctx, recipient, newEmail, actiontoken.ChangeEmail)
}

// ConfirmEmailChange applies a previously requested address change. The
// token was minted against the proposed address, so it only verifies when
// newEmail is the address the link was sent to.
func (s *Service) ConfirmEmailChange(ctx context.Context, user *UserRecord, newEmail, token string) (*UserRecord, error) {
	if !s.verifyActionToken(ctx, user, newEmail, token, actiontoken.ChangeEmail) {
		return nil, ErrInvalidActionToken
	}

	updated, err := s.directory.Update(ctx, user.UUID, UserUpdate{Email: &newEmail})
	if err != nil {
		s.emitAudit(ctx, AuditConfirm, user.UUID, false, err)
		return nil, err
	}

	s.emitAudit(ctx, AuditConfirm, user.UUID, true, nil)
	return updated, nil
}

// RequestPasswordReset mails a reset link to email. An address the
// directory does not know is silently accepted, so the endpoint cannot be
// used to probe which accounts exist.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	return s.issueActionMail(ctx, *user, user.Email, actiontoken.ResetPassword)
}

// ResetPassword sets a new password for the account behind a reset link.
// The account must be confirmed and active. Storing the new hash rotates
// the account's update timestamp, which retires the link along with every
// other outstanding one.
func (s *Service) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	user, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidActionToken
	}
	if !user.Confirmed {
		return ErrNotConfirmed
	}
	if !user.Active {
		return ErrNotActive
	}
	if !s.verifyActionToken(ctx, user, user.Email, token, actiontoken.ResetPassword) {
		return ErrInvalidActionToken
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	if _, err := s.directory.Update(ctx, user.UUID, UserUpdate{PasswordHash: &hash}); err != nil {
		s.emitAudit(ctx, AuditPasswordReset, user.UUID, false, err)
		return err
	}

	s.metrics.Inc(MetricPasswordReset)
	s.emitAudit(ctx, AuditPasswordReset, user.UUID, true, nil)
	return nil
}

func (s *Service) identifierTaken(ctx context.Context, username, email string) (bool, error) {
	byName, err := s.directory.FindByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	if byName != nil {
		return true, nil
	}
	byEmail, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return byEmail != nil, nil
}

// issueActionMail mints a token bound to the account's current state and
// hands it to the mailer. A delivery failure is recorded but never fails
// the calling flow.
func (s *Service) issueActionMail(ctx context.Context, recipient UserRecord, email string, action actiontoken.Action) error {
	token, err := s.signer.Generate(email, recipient.Updated, action)
	if err != nil {
		return err
	}
	s.metrics.Inc(MetricActionTokenIssued)

	if err := s.mailer.SendActionEmail(ctx, recipient, token, action); err != nil {
		s.recordMailFailure(ctx, recipient.UUID, err)
	}
	return nil
}

func (s *Service) verifyActionToken(ctx context.Context, user *UserRecord, email, token string, action actiontoken.Action) bool {
	ok := s.signer.Verify(email, user.Updated, token, action, s.config.ActionToken.MaxAge)
	if !ok {
		s.metrics.Inc(MetricActionTokenRejected)
		s.emitAudit(ctx, AuditConfirm, user.UUID, false, ErrInvalidActionToken)
	}
	return ok
}

func (s *Service) recordMailFailure(ctx context.Context, uid string, cause error) {
	s.metrics.Inc(MetricMailFailure)
	s.emitAudit(ctx, AuditMailFailure, uid, false, cause)
}
