package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/lunasphere/account-service/internal/domain"
	"github.com/lunasphere/account-service/internal/repository"
	"github.com/lunasphere/account-service/internal/utils"
)

// userService implements UserService
type userService struct {
	userRepo     repository.UserRepository
	identityRepo repository.LinkedIdentityRepository
	bcryptCost   int
}

// NewUserService creates a new user service
func NewUserService(userRepo repository.UserRepository, identityRepo repository.LinkedIdentityRepository, bcryptCost int) UserService {
	return &userService{userRepo: userRepo, identityRepo: identityRepo, bcryptCost: bcryptCost}
}

// Get returns the user by id
func (s *userService) Get(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotFoundOrExpired
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// List returns users matching the filter
func (s *userService) List(ctx context.Context, filter repository.UserFilter) ([]*domain.User, error) {
	users, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Identities returns the OAuth provider accounts linked to the user
func (s *userService) Identities(ctx context.Context, userID string) ([]*domain.LinkedIdentity, error) {
	identities, err := s.identityRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked identities: %w", err)
	}
	return identities, nil
}

// UpdateProfile applies the non-nil profile fields and returns the updated user
func (s *userService) UpdateProfile(ctx context.Context, userID string, username, picture, phone, address *string) (*domain.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if username != nil {
		user.Username = *username
	}
	if picture != nil {
		user.Picture = picture
	}
	if phone != nil {
		user.Phone = phone
	}
	if address != nil {
		user.Address = address
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// ChangePassword verifies the current password and installs a new one.
// Accounts created through an OAuth provider have no password to verify, so
// they must go through the password recovery flow instead.
func (s *userService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if !utils.ValidatePassword(newPassword) {
		return domain.ErrInvalidPassword
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	if user.PasswordHash == nil {
		return domain.ErrPreconditionFailed
	}
	if !utils.CheckPasswordHash(oldPassword, *user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}

	passwordHash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
