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
	"github.com/lunasphere/account-service/pkg/oauth"
)

// stateTTL bounds how long a signed OAuth state parameter stays acceptable
const stateTTL = 10 * time.Minute

// oauthService implements OAuthService on top of a provider client
type oauthService struct {
	provider        oauth.Provider
	userRepo        repository.UserRepository
	identityRepo    repository.LinkedIdentityRepository
	sessions        SessionStore
	sealer          *utils.TokenSealer
	mail            mailer.Mailer
	logger          *zap.Logger
	verificationTTL time.Duration
	sessionTTL      time.Duration
	clientURL       string
	now             func() time.Time
}

// NewOAuthService creates a new OAuth service
func NewOAuthService(
	provider oauth.Provider,
	userRepo repository.UserRepository,
	identityRepo repository.LinkedIdentityRepository,
	sessions SessionStore,
	sealer *utils.TokenSealer,
	mail mailer.Mailer,
	logger *zap.Logger,
	verificationTTL time.Duration,
	sessionTTL time.Duration,
	clientURL string,
) OAuthService {
	return &oauthService{
		provider:        provider,
		userRepo:        userRepo,
		identityRepo:    identityRepo,
		sessions:        sessions,
		sealer:          sealer,
		mail:            mail,
		logger:          logger,
		verificationTTL: verificationTTL,
		sessionTTL:      sessionTTL,
		clientURL:       clientURL,
		now:             time.Now,
	}
}

// AuthCodeURL builds the provider consent URL with a signed state parameter.
// The state is a random nonce sealed with the server secret; the callback
// verifies the seal and its age instead of keeping state server-side.
func (s *oauthService) AuthCodeURL() (string, error) {
	nonce, err := utils.NewSessionID()
	if err != nil {
		return "", err
	}

	state, err := s.sealer.Seal(nonce, s.now())
	if err != nil {
		return "", fmt.Errorf("failed to seal state: %w", err)
	}

	return s.provider.AuthCodeURL(state), nil
}

// HandleCallback verifies the state, exchanges the code for a profile,
// resolves it to a local account and signs the user in.
func (s *oauthService) HandleCallback(ctx context.Context, state, code string) (*domain.User, *domain.Session, error) {
	now := s.now()

	_, issuedAt, err := s.sealer.Unseal(state)
	if err != nil || now.Sub(issuedAt) > stateTTL {
		return nil, nil, domain.ErrNotFoundOrExpired
	}

	profile, err := s.provider.FetchProfile(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch provider profile: %w", err)
	}

	user, _, err := s.resolve(ctx, now, profile)
	if err != nil {
		return nil, nil, err
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

// resolve maps a provider profile to a local user, creating the user and the
// identity binding on first contact. An existing local account with the
// provider's email is never merged silently: the user must sign in with
// their password first, so the login is rejected as a conflict.
func (s *oauthService) resolve(ctx context.Context, now time.Time, profile *oauth.Profile) (*domain.User, bool, error) {
	identity, err := s.identityRepo.GetByProvider(ctx, domain.ProviderGoogle, profile.ID)
	if err == nil {
		user, err := s.userRepo.GetByID(ctx, identity.UserID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to get linked user: %w", err)
		}
		return user, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up identity: %w", err)
	}

	email := utils.SanitizeEmail(profile.Email)

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, false, domain.ErrConflictingIdentity
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up user: %w", err)
	}

	user := &domain.User{
		Email:         email,
		Username:      profile.Name,
		Role:          domain.RoleCustomer,
		EmailVerified: profile.EmailVerified,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if profile.Picture != "" {
		picture := profile.Picture
		user.Picture = &picture
	}

	var rawVerification string
	if !profile.EmailVerified {
		raw, expires, err := utils.IssueToken(now, s.verificationTTL)
		if err != nil {
			return nil, false, err
		}
		user.EmailVerificationToken = &raw
		user.EmailVerificationExpires = &expires
		rawVerification = raw
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, false, domain.ErrConflictingIdentity
		}
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.identityRepo.Create(ctx, &domain.LinkedIdentity{
		Provider:       domain.ProviderGoogle,
		ProviderUserID: profile.ID,
		UserID:         user.ID,
	}); err != nil {
		return nil, false, fmt.Errorf("failed to link identity: %w", err)
	}

	if rawVerification != "" {
		s.sendVerificationMail(ctx, user, rawVerification, now)
	}

	return user, true, nil
}

func (s *oauthService) sendVerificationMail(ctx context.Context, user *domain.User, raw string, now time.Time) {
	sealed, err := s.sealer.Seal(raw, now)
	if err != nil {
		s.logger.Error("failed to seal token for mail", zap.String("user_id", user.ID), zap.Error(err))
		return
	}

	vars := map[string]string{
		"Username": user.Username,
		"Link":     fmt.Sprintf("%s/verify-email/%s", s.clientURL, sealed),
	}
	if err := s.mail.Send(ctx, mailer.TemplateVerifyEmail, user.Email, vars); err != nil {
		s.logger.Error("failed to send mail",
			zap.String("template", string(mailer.TemplateVerifyEmail)),
			zap.String("user_id", user.ID),
			zap.Error(err))
	}
}
