package domain

import "time"

// Provider identifies an external OAuth identity provider
type Provider string

const (
	ProviderGoogle Provider = "google"
)

// LinkedIdentity binds a local user account to an external OAuth provider
// account. The (provider, provider_user_id) pair is globally unique; a user
// holds at most one identity per provider.
type LinkedIdentity struct {
	ID             string    `json:"id" db:"id"`
	Provider       Provider  `json:"provider" db:"provider"`
	ProviderUserID string    `json:"provider_user_id" db:"provider_user_id"`
	UserID         string    `json:"user_id" db:"user_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
