package domain

import "errors"

// Terminal error kinds surfaced by the account state machine. The HTTP layer
// maps these to status codes; anything else is an infrastructure failure.
var (
	// ErrNotFoundOrExpired covers every token confirmation failure: absent,
	// expired, already consumed, or a malformed seal. One error for all of
	// them so a caller cannot tell which case applied.
	ErrNotFoundOrExpired = errors.New("token not found or expired")

	// ErrInvalidCredentials is returned on sign-in whether the email is
	// unknown or the password is wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountSuspended is surfaced distinctly: the user needs to know to
	// contact support.
	ErrAccountSuspended = errors.New("account has been suspended")

	// ErrAccountInactive directs the user toward the reactivation flow
	ErrAccountInactive = errors.New("account is deactivated")

	// ErrAlreadyVerified is returned when verification is requested for an
	// account whose email is already verified.
	ErrAlreadyVerified = errors.New("email is already verified")

	// ErrPreconditionFailed is returned when an operation's lifecycle
	// precondition does not hold, e.g. password recovery for an unverified
	// account.
	ErrPreconditionFailed = errors.New("operation precondition failed")

	// ErrConflictingIdentity is returned when an email is already bound to
	// another account during sign-up or OAuth linkage.
	ErrConflictingIdentity = errors.New("email is already registered")

	// ErrInvalidEmail is returned when an email fails format validation
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidPassword is returned when a password fails the strength policy
	ErrInvalidPassword = errors.New("password must be 8-40 characters and contain uppercase, lowercase, and number")
)
