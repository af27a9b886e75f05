package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lunasphere/account-service/internal/domain"
	"github.com/lunasphere/account-service/internal/repository"
	"github.com/lunasphere/account-service/internal/utils"
	"github.com/lunasphere/account-service/pkg/mailer"
)

// TokenTTLs holds the lifetime of each single-use token kind
type TokenTTLs struct {
	Verification time.Duration
	Reset        time.Duration
	Reactivation time.Duration
}

// accountService implements AccountService
type accountService struct {
	userRepo   repository.UserRepository
	sessions   SessionStore
	sealer     *utils.TokenSealer
	mail       mailer.Mailer
	logger     *zap.Logger
	bcryptCost int
	ttls       TokenTTLs
	sessionTTL time.Duration
	clientURL  string
	now        func() time.Time
}

// NewAccountService creates a new account service
func NewAccountService(
	userRepo repository.UserRepository,
	sessions SessionStore,
	sealer *utils.TokenSealer,
	mail mailer.Mailer,
	logger *zap.Logger,
	bcryptCost int,
	ttls TokenTTLs,
	sessionTTL time.Duration,
	clientURL string,
) AccountService {
	return &accountService{
		userRepo:   userRepo,
		sessions:   sessions,
		sealer:     sealer,
		mail:       mail,
		logger:     logger,
		bcryptCost: bcryptCost,
		ttls:       ttls,
		sessionTTL: sessionTTL,
		clientURL:  clientURL,
		now:        time.Now,
	}
}

// SignUp registers a new user with a verification token already pending
func (s *accountService) SignUp(ctx context.Context, username, email, password string) (*domain.User, error) {
	if !utils.ValidateEmail(email) {
		return nil, domain.ErrInvalidEmail
	}
	if !utils.ValidatePassword(password) {
		return nil, domain.ErrInvalidPassword
	}

	now := s.now()

	passwordHash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	raw, expires, err := utils.IssueToken(now, s.ttls.Verification)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:                    utils.SanitizeEmail(email),
		Username:                 username,
		PasswordHash:             &passwordHash,
		Role:                     domain.RoleCustomer,
		EmailVerified:            false,
		Active:                   true,
		EmailVerificationToken:   &raw,
		EmailVerificationExpires: &expires,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, domain.ErrConflictingIdentity
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.sendTokenMail(ctx, user, mailer.TemplateVerifyEmail, "verify-email", raw, now)

	return user, nil
}

// SignIn authenticates a user by email and password and establishes a session
func (s *accountService) SignIn(ctx context.Context, email, password string) (*domain.User, *domain.Session, error) {
	user, err := s.userRepo.GetByEmail(ctx, utils.SanitizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Credentials are checked before any account state is revealed
	if user.PasswordHash == nil || !utils.CheckPasswordHash(password, *user.PasswordHash) {
		return nil, nil, domain.ErrInvalidCredentials
	}

	if user.Suspended {
		return nil, nil, domain.ErrAccountSuspended
	}
	if !user.Active {
		return nil, nil, domain.ErrAccountInactive
	}

	session, err := s.sessions.Establish(ctx, user.ID, s.sessionTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to establish session: %w", err)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	return user, session, nil
}

// SignOut terminates the session. Unknown sessions are a no-op.
func (s *accountService) SignOut(ctx context.Context, sessionID string) error {
	return s.sessions.Terminate(ctx, sessionID)
}

// Deactivate marks the account inactive. The caller terminates the session.
func (s *accountService) Deactivate(ctx context.Context, userID string) error {
	if err := s.userRepo.SetActive(ctx, userID, false); err != nil {
		return fmt.Errorf("failed to deactivate account: %w", err)
	}
	return nil
}

// RequestVerification issues or reuses a verification token and mails the
// link. Unknown emails return success so callers cannot probe for accounts.
func (s *accountService) RequestVerification(ctx context.Context, email string) error {
	user, err := s.getForRequest(ctx, email)
	if err != nil || user == nil {
		return err
	}

	if user.EmailVerified {
		return domain.ErrAlreadyVerified
	}

	now := s.now()
	raw, err := s.issueOrReuse(ctx, now, user.ID, user.VerificationToken(), s.ttls.Verification, s.userRepo.SetVerificationToken)
	if err != nil {
		return err
	}

	s.sendTokenMail(ctx, user, mailer.TemplateVerifyEmail, "verify-email", raw, now)
	return nil
}

// ConfirmVerification consumes a verification token and marks the email verified
func (s *accountService) ConfirmVerification(ctx context.Context, sealedToken string) error {
	raw, _, err := s.sealer.Unseal(sealedToken)
	if err != nil {
		return domain.ErrNotFoundOrExpired
	}

	if err := s.userRepo.ConsumeVerificationToken(ctx, raw, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotFoundOrExpired
		}
		return fmt.Errorf("failed to consume verification token: %w", err)
	}
	return nil
}

// RequestPasswordReset issues or reuses a reset token for a verified account.
// Recovery is denied for unverified accounts, forcing verification first.
func (s *accountService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.getForRequest(ctx, email)
	if err != nil || user == nil {
		return err
	}

	if !user.EmailVerified {
		return domain.ErrPreconditionFailed
	}

	now := s.now()
	raw, err := s.issueOrReuse(ctx, now, user.ID, user.ResetToken(), s.ttls.Reset, s.userRepo.SetResetToken)
	if err != nil {
		return err
	}

	s.sendTokenMail(ctx, user, mailer.TemplateRecoverAccount, "reset-password", raw, now)
	return nil
}

// ConfirmPasswordReset consumes a reset token and installs the new password
func (s *accountService) ConfirmPasswordReset(ctx context.Context, sealedToken, password string) error {
	if !utils.ValidatePassword(password) {
		return domain.ErrInvalidPassword
	}

	raw, _, err := s.sealer.Unseal(sealedToken)
	if err != nil {
		return domain.ErrNotFoundOrExpired
	}

	passwordHash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.ConsumeResetToken(ctx, raw, passwordHash, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotFoundOrExpired
		}
		return fmt.Errorf("failed to consume reset token: %w", err)
	}
	return nil
}

// RequestReactivation issues a short-lived reactivation token for an
// inactive account. Active or suspended accounts get the same uniform
// success without a token being issued.
func (s *accountService) RequestReactivation(ctx context.Context, email string) error {
	user, err := s.getForRequest(ctx, email)
	if err != nil || user == nil {
		return err
	}

	if user.Active || user.Suspended {
		return nil
	}

	now := s.now()
	raw, err := s.issueOrReuse(ctx, now, user.ID, user.ReactivationTokenPair(), s.ttls.Reactivation, s.userRepo.SetReactivationToken)
	if err != nil {
		return err
	}

	s.sendTokenMail(ctx, user, mailer.TemplateReactivateAccount, "reactivate", raw, now)
	return nil
}

// ConfirmReactivation consumes a reactivation token, restores the account
// and signs the user in.
func (s *accountService) ConfirmReactivation(ctx context.Context, sealedToken string) (*domain.User, *domain.Session, error) {
	raw, _, err := s.sealer.Unseal(sealedToken)
	if err != nil {
		return nil, nil, domain.ErrNotFoundOrExpired
	}

	now := s.now()

	user, err := s.userRepo.GetByReactivationToken(ctx, raw)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, domain.ErrNotFoundOrExpired
		}
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}

	// The lookup matches on the token value only. Expiry is judged first so
	// an expired token stays inert and reveals nothing about the account.
	if !user.ReactivationTokenPair().Valid(now) {
		return nil, nil, domain.ErrNotFoundOrExpired
	}

	if user.Suspended {
		return nil, nil, domain.ErrAccountSuspended
	}

	if err := s.userRepo.ConsumeReactivationToken(ctx, raw, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, domain.ErrNotFoundOrExpired
		}
		return nil, nil, fmt.Errorf("failed to consume reactivation token: %w", err)
	}
	user.Active = true
	user.ReactivationToken = nil
	user.ReactivationExpires = nil

	session, err := s.sessions.Establish(ctx, user.ID, s.sessionTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to establish session: %w", err)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	return user, session, nil
}

// getForRequest resolves a request-flow email. Unknown addresses resolve to
// (nil, nil) so every request flow reports success without leaking existence.
func (s *accountService) getForRequest(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, utils.SanitizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// issueOrReuse returns the raw token to send. A still-valid token is reused
// as-is so previously mailed links stay usable; an absent or expired one is
// replaced in a single write of token and expiry together.
func (s *accountService) issueOrReuse(
	ctx context.Context,
	now time.Time,
	userID string,
	pair domain.TokenPair,
	ttl time.Duration,
	set func(ctx context.Context, userID, token string, expires time.Time) error,
) (string, error) {
	if pair.Valid(now) {
		return pair.Raw(), nil
	}

	raw, expires, err := utils.IssueToken(now, ttl)
	if err != nil {
		return "", err
	}
	if err := set(ctx, userID, raw, expires); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	return raw, nil
}

// sendTokenMail seals the raw token into a link and mails it. The token
// state has already committed, so failures are logged and swallowed.
func (s *accountService) sendTokenMail(ctx context.Context, user *domain.User, tpl mailer.Template, path, raw string, now time.Time) {
	sealed, err := s.sealer.Seal(raw, now)
	if err != nil {
		s.logger.Error("failed to seal token for mail", zap.String("user_id", user.ID), zap.Error(err))
		return
	}

	vars := map[string]string{
		"Username": user.Username,
		"Link":     fmt.Sprintf("%s/%s/%s", s.clientURL, path, sealed),
	}
	if err := s.mail.Send(ctx, tpl, user.Email, vars); err != nil {
		s.logger.Error("failed to send mail",
			zap.String("template", string(tpl)),
			zap.String("user_id", user.ID),
			zap.Error(err))
	}
}
