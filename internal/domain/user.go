package domain

import "time"

// Role is the access level assigned to a user account
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleSaler    Role = "SALER"
	RoleWriter   Role = "WRITER"
	RoleCustomer Role = "CUSTOMER"
)

// ValidRole reports whether r is one of the known roles
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSaler, RoleWriter, RoleCustomer:
		return true
	}
	return false
}

// User represents a user account in the system.
// PasswordHash is nil for accounts created through an OAuth provider
// that never set a password.
type User struct {
	ID           string  `json:"id" db:"id"`
	Email        string  `json:"email" db:"email"`
	Username     string  `json:"username" db:"username"`
	PasswordHash *string `json:"-" db:"password_hash"`
	Role         Role    `json:"role" db:"role"`

	EmailVerified bool `json:"email_verified" db:"email_verified"`
	Active        bool `json:"active" db:"active"`
	Suspended     bool `json:"suspended" db:"suspended"`

	Picture *string `json:"picture" db:"picture"`
	Phone   *string `json:"phone" db:"phone"`
	Address *string `json:"address" db:"address"`

	EmailVerificationToken   *string    `json:"-" db:"email_verification_token"`
	EmailVerificationExpires *time.Time `json:"-" db:"email_verification_expires"`
	PasswordResetToken       *string    `json:"-" db:"password_reset_token"`
	PasswordResetExpires     *time.Time `json:"-" db:"password_reset_expires"`
	ReactivationToken        *string    `json:"-" db:"reactivation_token"`
	ReactivationExpires      *time.Time `json:"-" db:"reactivation_expires"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at" db:"last_login_at"`
}

// VerificationToken returns the email verification token pair
func (u *User) VerificationToken() TokenPair {
	return TokenPair{Token: u.EmailVerificationToken, Expires: u.EmailVerificationExpires}
}

// ResetToken returns the password reset token pair
func (u *User) ResetToken() TokenPair {
	return TokenPair{Token: u.PasswordResetToken, Expires: u.PasswordResetExpires}
}

// ReactivationTokenPair returns the account reactivation token pair
func (u *User) ReactivationTokenPair() TokenPair {
	return TokenPair{Token: u.ReactivationToken, Expires: u.ReactivationExpires}
}
