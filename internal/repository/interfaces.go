package repository

import (
	"context"
	"time"

	"github.com/lunasphere/account-service/internal/domain"
)

// UserOrderField enumerates the columns the user listing may sort on
type UserOrderField string

const (
	OrderByEmail         UserOrderField = "email"
	OrderByRole          UserOrderField = "role"
	OrderByEmailVerified UserOrderField = "email_verified"
	OrderByActive        UserOrderField = "active"
	OrderBySuspended     UserOrderField = "suspended"
	OrderByCreatedAt     UserOrderField = "created_at"
)

// UserOrder is one sort term of a user listing
type UserOrder struct {
	Field UserOrderField
	Desc  bool
}

// UserFilter is the typed query object for listing users. It is parsed and
// validated once at the HTTP boundary; by the time it reaches the store every
// field is a strict enum or bound.
type UserFilter struct {
	Emails        []string
	Roles         []domain.Role
	EmailVerified *bool
	Active        *bool
	Suspended     *bool
	OrderBy       []UserOrder
	Limit         int
	Offset        int
}

// UserRepository is the credential store adapter for user records.
//
// Token lookups match on the token value only; expiry is judged by the caller
// against its own clock read so that "expired" and "never existed" stay
// distinguishable internally. Every Set* writes a token and its expiry in one
// statement. Every Consume* is a single conditional update keyed on the token
// still being present and unexpired, which makes consumption at-most-once
// under concurrent requests.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]*domain.User, error)

	GetByVerificationToken(ctx context.Context, token string) (*domain.User, error)
	GetByResetToken(ctx context.Context, token string) (*domain.User, error)
	GetByReactivationToken(ctx context.Context, token string) (*domain.User, error)

	SetVerificationToken(ctx context.Context, userID, token string, expires time.Time) error
	SetResetToken(ctx context.Context, userID, token string, expires time.Time) error
	SetReactivationToken(ctx context.Context, userID, token string, expires time.Time) error

	ConsumeVerificationToken(ctx context.Context, token string, now time.Time) error
	ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) error
	ConsumeReactivationToken(ctx context.Context, token string, now time.Time) error

	UpdateProfile(ctx context.Context, user *domain.User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	SetActive(ctx context.Context, userID string, active bool) error
	UpdateLastLogin(ctx context.Context, userID string) error
}

// LinkedIdentityRepository stores bindings between local users and external
// OAuth provider accounts
type LinkedIdentityRepository interface {
	Create(ctx context.Context, identity *domain.LinkedIdentity) error
	GetByProvider(ctx context.Context, provider domain.Provider, providerUserID string) (*domain.LinkedIdentity, error)
	GetByUserID(ctx context.Context, userID string) ([]*domain.LinkedIdentity, error)
}

// TagRepository defines methods for tag operations
type TagRepository interface {
	Create(ctx context.Context, tag *domain.Tag) error
	GetByID(ctx context.Context, id string) (*domain.Tag, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tag, error)
	List(ctx context.Context) ([]*domain.Tag, error)
	Update(ctx context.Context, tag *domain.Tag) error
	Delete(ctx context.Context, id string) error
}
