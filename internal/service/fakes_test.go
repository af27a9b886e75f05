package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lunasphere/account-service/internal/domain"
	"github.com/lunasphere/account-service/internal/repository"
	"github.com/lunasphere/account-service/pkg/mailer"
)

// fakeUserRepo is an in-memory UserRepository faithful to the store
// contract: token consumption is conditional on the token being present
// and unexpired, and clears the pair together with applying the effect.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return fmt.Errorf("create user: %w", repository.ErrDuplicateEmail)
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = domain.RoleCustomer
	}
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *fakeUserRepo) List(ctx context.Context, filter repository.UserFilter) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.User
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (r *fakeUserRepo) getByToken(get func(*domain.User) *string, token string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if t := get(u); t != nil && *t == token {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getByToken(func(u *domain.User) *string { return u.EmailVerificationToken }, token)
}

func (r *fakeUserRepo) GetByResetToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getByToken(func(u *domain.User) *string { return u.PasswordResetToken }, token)
}

func (r *fakeUserRepo) GetByReactivationToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getByToken(func(u *domain.User) *string { return u.ReactivationToken }, token)
}

func (r *fakeUserRepo) setToken(userID string, set func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	set(u)
	return nil
}

func (r *fakeUserRepo) SetVerificationToken(ctx context.Context, userID, token string, expires time.Time) error {
	return r.setToken(userID, func(u *domain.User) {
		u.EmailVerificationToken = &token
		u.EmailVerificationExpires = &expires
	})
}

func (r *fakeUserRepo) SetResetToken(ctx context.Context, userID, token string, expires time.Time) error {
	return r.setToken(userID, func(u *domain.User) {
		u.PasswordResetToken = &token
		u.PasswordResetExpires = &expires
	})
}

func (r *fakeUserRepo) SetReactivationToken(ctx context.Context, userID, token string, expires time.Time) error {
	return r.setToken(userID, func(u *domain.User) {
		u.ReactivationToken = &token
		u.ReactivationExpires = &expires
	})
}

func (r *fakeUserRepo) consume(token string, now time.Time, pair func(*domain.User) (*string, *time.Time), clear func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		t, exp := pair(u)
		if t != nil && *t == token && exp != nil && exp.After(now) {
			clear(u)
			return nil
		}
	}
	return fmt.Errorf("consume token: %w", repository.ErrNotFound)
}

func (r *fakeUserRepo) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) error {
	return r.consume(token, now,
		func(u *domain.User) (*string, *time.Time) { return u.EmailVerificationToken, u.EmailVerificationExpires },
		func(u *domain.User) {
			u.EmailVerified = true
			u.EmailVerificationToken = nil
			u.EmailVerificationExpires = nil
		})
}

func (r *fakeUserRepo) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) error {
	return r.consume(token, now,
		func(u *domain.User) (*string, *time.Time) { return u.PasswordResetToken, u.PasswordResetExpires },
		func(u *domain.User) {
			u.PasswordHash = &passwordHash
			u.PasswordResetToken = nil
			u.PasswordResetExpires = nil
		})
}

func (r *fakeUserRepo) ConsumeReactivationToken(ctx context.Context, token string, now time.Time) error {
	return r.consume(token, now,
		func(u *domain.User) (*string, *time.Time) { return u.ReactivationToken, u.ReactivationExpires },
		func(u *domain.User) {
			u.Active = true
			u.ReactivationToken = nil
			u.ReactivationExpires = nil
		})
}

func (r *fakeUserRepo) UpdateProfile(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Username = user.Username
	u.Picture = user.Picture
	u.Phone = user.Phone
	u.Address = user.Address
	return nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return r.setToken(userID, func(u *domain.User) { u.PasswordHash = &passwordHash })
}

func (r *fakeUserRepo) SetActive(ctx context.Context, userID string, active bool) error {
	return r.setToken(userID, func(u *domain.User) { u.Active = active })
}

func (r *fakeUserRepo) UpdateLastLogin(ctx context.Context, userID string) error {
	now := time.Now()
	return r.setToken(userID, func(u *domain.User) { u.LastLoginAt = &now })
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

// fakeIdentityRepo is an in-memory LinkedIdentityRepository
type fakeIdentityRepo struct {
	mu         sync.Mutex
	identities []*domain.LinkedIdentity
}

func newFakeIdentityRepo() *fakeIdentityRepo {
	return &fakeIdentityRepo{}
}

func (r *fakeIdentityRepo) Create(ctx context.Context, identity *domain.LinkedIdentity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, i := range r.identities {
		if i.Provider == identity.Provider && i.ProviderUserID == identity.ProviderUserID {
			return repository.ErrDuplicateIdentity
		}
	}
	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	copied := *identity
	r.identities = append(r.identities, &copied)
	return nil
}

func (r *fakeIdentityRepo) GetByProvider(ctx context.Context, provider domain.Provider, providerUserID string) (*domain.LinkedIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, i := range r.identities {
		if i.Provider == provider && i.ProviderUserID == providerUserID {
			copied := *i
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeIdentityRepo) GetByUserID(ctx context.Context, userID string) ([]*domain.LinkedIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.LinkedIdentity
	for _, i := range r.identities {
		if i.UserID == userID {
			copied := *i
			out = append(out, &copied)
		}
	}
	return out, nil
}

// fakeSessionStore keeps sessions in a map
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	nextID   int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*domain.Session)}
}

func (s *fakeSessionStore) Establish(ctx context.Context, userID string, ttl time.Duration) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	session := &domain.Session{
		ID:        fmt.Sprintf("session-%d", s.nextID),
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}
	s.sessions[session.ID] = session
	return session, nil
}

func (s *fakeSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *fakeSessionStore) Terminate(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// sentMail records one delivery attempt
type sentMail struct {
	Template  mailer.Template
	Recipient string
	Vars      map[string]string
}

// fakeMailer records deliveries instead of sending
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{}
}

func (m *fakeMailer) Send(ctx context.Context, tpl mailer.Template, recipient string, vars map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, sentMail{Template: tpl, Recipient: recipient, Vars: vars})
	return nil
}

func (m *fakeMailer) last() *sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sent) == 0 {
		return nil
	}
	return &m.sent[len(m.sent)-1]
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
