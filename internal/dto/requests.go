package dto

// SignUpRequest represents a sign-up request
type SignUpRequest struct {
	Username string `json:"username" binding:"required,min=1"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=40"`
}

// SignInRequest represents a sign-in request
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// EmailRequest carries the address for verification, recovery and
// reactivation requests
type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest represents a password reset confirmation
type ResetPasswordRequest struct {
	Password        string `json:"password" binding:"required,min=8,max=40"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
}

// ChangePasswordRequest represents an authenticated password change
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=40"`
}

// UpdateProfileRequest carries the mutable profile fields; nil means unchanged
type UpdateProfileRequest struct {
	Username *string `json:"username" binding:"omitempty,min=1"`
	Picture  *string `json:"picture"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
}

// TagRequest represents a tag create/update request
type TagRequest struct {
	Name string `json:"name" binding:"required,min=1"`
	Slug string `json:"slug"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	Username      string  `json:"username"`
	Role          string  `json:"role"`
	EmailVerified bool    `json:"email_verified"`
	Active        bool    `json:"active"`
	Suspended     bool    `json:"suspended"`
	Picture       *string `json:"picture"`
	Phone         *string `json:"phone"`
	Address       *string `json:"address"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
	LastLoginAt   *string `json:"last_login_at"`
}

// IdentityResponse represents a linked OAuth provider account
type IdentityResponse struct {
	Provider string `json:"provider"`
	LinkedAt string `json:"linked_at"`
}

// SessionResponse is returned on successful sign-in
type SessionResponse struct {
	User      UserResponse `json:"user"`
	ExpiresAt string       `json:"expires_at"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
