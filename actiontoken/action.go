package actiontoken

// Action identifies the out-of-band account flow a token authorizes. The
// action value is part of the signed payload, so a token minted for one
// flow never verifies for another.
type Action string

const (
	// Activate confirms a freshly registered account.
	Activate Action = "activate"
	// ChangeEmail confirms ownership of a new email address.
	ChangeEmail Action = "change-email"
	// ResetPassword authorizes a password reset for the account.
	ResetPassword Action = "reset-password"
)

// Descriptor carries the presentational attributes of an action: the mail
// subject line, the URL path segment the frontend routes on, and the mail
// template name. None of these participate in the cryptographic contract.
type Descriptor struct {
	Subject     string
	PathSegment string
	Template    string
}

var descriptors = map[Action]Descriptor{
	Activate:      {Subject: "Account Confirmation", PathSegment: "activate", Template: "confirm_email"},
	ChangeEmail:   {Subject: "Email Change Confirmation", PathSegment: "change-email", Template: "confirm_email"},
	ResetPassword: {Subject: "Password Reset", PathSegment: "reset-password", Template: "reset_password"},
}

// Valid reports whether a is one of the supported actions.
func (a Action) Valid() bool {
	_, ok := descriptors[a]
	return ok
}

// Describe returns the presentational attributes for a. It returns the zero
// Descriptor for unknown actions.
func (a Action) Describe() Descriptor {
	return descriptors[a]
}
