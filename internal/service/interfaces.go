package service

import (
	"context"

	"github.com/lunasphere/account-service/internal/domain"
	"github.com/lunasphere/account-service/internal/repository"
)

// AccountService drives the account lifecycle: registration, sessions and
// the three emailed-token flows (verification, password reset, reactivation).
type AccountService interface {
	SignUp(ctx context.Context, username, email, password string) (*domain.User, error)
	SignIn(ctx context.Context, email, password string) (*domain.User, *domain.Session, error)
	SignOut(ctx context.Context, sessionID string) error
	Deactivate(ctx context.Context, userID string) error

	RequestVerification(ctx context.Context, email string) error
	ConfirmVerification(ctx context.Context, sealedToken string) error

	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, sealedToken, password string) error

	RequestReactivation(ctx context.Context, email string) error
	ConfirmReactivation(ctx context.Context, sealedToken string) (*domain.User, *domain.Session, error)
}

// OAuthService handles the Google sign-in flow.
type OAuthService interface {
	AuthCodeURL() (string, error)
	HandleCallback(ctx context.Context, state, code string) (*domain.User, *domain.Session, error)
}

// UserService exposes profile reads and updates for authenticated users.
type UserService interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	List(ctx context.Context, filter repository.UserFilter) ([]*domain.User, error)
	Identities(ctx context.Context, userID string) ([]*domain.LinkedIdentity, error)
	UpdateProfile(ctx context.Context, userID string, username, picture, phone, address *string) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

// TagService manages the tag catalog.
type TagService interface {
	Create(ctx context.Context, name, slug string) (*domain.Tag, error)
	Get(ctx context.Context, id string) (*domain.Tag, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tag, error)
	List(ctx context.Context) ([]*domain.Tag, error)
	Update(ctx context.Context, id string, name, slug string) (*domain.Tag, error)
	Delete(ctx context.Context, id string) error
}
