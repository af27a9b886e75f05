package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lunasphere/account-service/internal/domain"
	"github.com/lunasphere/account-service/internal/utils"
)

const (
	testSecret    = "test-secret-key-that-is-at-least-32-characters-long"
	testClientURL = "http://localhost:3000"
	testPassword  = "Password1"
)

type accountFixture struct {
	repo     *fakeUserRepo
	sessions *fakeSessionStore
	mail     *fakeMailer
	sealer   *utils.TokenSealer
	svc      AccountService
	clock    time.Time
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	f := &accountFixture{
		repo:     newFakeUserRepo(),
		sessions: newFakeSessionStore(),
		mail:     newFakeMailer(),
		sealer:   utils.NewTokenSealer(testSecret),
		clock:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	ttls := TokenTTLs{
		Verification: 24 * time.Hour,
		Reset:        4 * time.Hour,
		Reactivation: 5 * time.Minute,
	}

	f.svc = NewAccountService(f.repo, f.sessions, f.sealer, f.mail,
		zap.NewNop(), 4, ttls, 30*24*time.Hour, testClientURL)
	f.svc.(*accountService).now = func() time.Time { return f.clock }

	return f
}

func (f *accountFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *accountFixture) signUp(t *testing.T, email string) *domain.User {
	t.Helper()
	user, err := f.svc.SignUp(context.Background(), "tester", email, testPassword)
	require.NoError(t, err)
	return user
}

// lastMailToken pulls the sealed token out of the link in the last mail sent
func (f *accountFixture) lastMailToken(t *testing.T) string {
	t.Helper()
	mail := f.mail.last()
	require.NotNil(t, mail, "expected a mail to have been sent")
	link := mail.Vars["Link"]
	require.NotEmpty(t, link)
	return link[strings.LastIndex(link, "/")+1:]
}

func TestSignUp(t *testing.T) {
	f := newAccountFixture(t)

	user := f.signUp(t, "a@x.com")

	assert.False(t, user.EmailVerified)
	assert.True(t, user.Active)
	assert.False(t, user.Suspended)
	assert.Equal(t, domain.RoleCustomer, user.Role)

	stored, err := f.repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, stored.EmailVerificationToken)
	require.NotNil(t, stored.EmailVerificationExpires)
	assert.True(t, stored.EmailVerificationExpires.Equal(f.clock.Add(24*time.Hour)))

	// The mailed link carries a sealed form of the stored token
	raw, _, err := f.sealer.Unseal(f.lastMailToken(t))
	require.NoError(t, err)
	assert.Equal(t, *stored.EmailVerificationToken, raw)
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	f := newAccountFixture(t)
	f.signUp(t, "a@x.com")

	_, err := f.svc.SignUp(context.Background(), "tester", "a@x.com", testPassword)
	assert.ErrorIs(t, err, domain.ErrConflictingIdentity)
}

func TestSignUp_WeakPassword(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.SignUp(context.Background(), "tester", "a@x.com", "weak")
	assert.Error(t, err)
}

func TestConfirmVerification(t *testing.T) {
	f := newAccountFixture(t)
	f.signUp(t, "a@x.com")
	sealed := f.lastMailToken(t)

	err := f.svc.ConfirmVerification(context.Background(), sealed)
	require.NoError(t, err)

	stored, err := f.repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.True(t, stored.EmailVerified)
	assert.Nil(t, stored.EmailVerificationToken)
	assert.Nil(t, stored.EmailVerificationExpires)
}

func TestConfirmVerification_SecondAttemptRejected(t *testing.T) {
	f := newAccountFixture(t)
	f.signUp(t, "a@x.com")
	sealed := f.lastMailToken(t)

	require.NoError(t, f.svc.ConfirmVerification(context.Background(), sealed))

	err := f.svc.ConfirmVerification(context.Background(), sealed)
	assert.ErrorIs(t, err, domain.ErrNotFoundOrExpired)

	// The flag stays in its post-consumption state
	stored, _ := f.repo.GetByEmail(context.Background(), "a@x.com")
	assert.True(t, stored.EmailVerified)
}

func TestConfirmVerification_ConcurrentAttempts(t *testing.T) {
	f := newAccountFixture(t)
	f.signUp(t, "a@x.com")
	sealed := f.lastMailToken(t)

	var start sync.WaitGroup
	start.Add(1)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			start.Wait()
			errs <- f.svc.ConfirmVerification(context.Background(), sealed)
		}()
	}
	start.Done()

	var successes, rejections int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrNotFoundOrExpired):
			rejections++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successes, "exactly one concurrent confirm may succeed")
	assert.Equal(t, 1, rejections)
}

func TestConfirmVerification_Expired(t *testing.T) {
	f := newAccountFixture(t)
	f.signUp(t, "a@x.com")
	sealed := f.lastMailToken(t)

	f.advance(25 * time.Hour)

	err := f.svc.ConfirmVerification(context.Background(), sealed)
	assert.ErrorIs(t, err, domain.ErrNotFoundOrExpired)

	stored, _ := f.repo.GetByEmail(context.Background(), "a@x.com")
	assert.False(t, stored.EmailVerified)
	assert.NotNil(t, stored.EmailVerificationToken, "expired token stays until reissued")
}

func TestConfirmVerification_ExpiryBoundary(t *testing.T) {
	t.Run("at the expiry instant", func(t *testing.T) {
		f := newAccountFixture(t)
		f.signUp(t, "a@x.com")
		sealed := f.lastMailToken(t)

		f.advance(24 * time.Hour)

		err := f.svc.ConfirmVerification(context.Background(), sealed)
		assert.ErrorIs(t, err, domain.ErrNotFoundOrExpired,
			"a token expiring exactly now is expired")
	})

	t.Run("just before expiry", func(t *testing.T) {
		f := newAccountFixture(t)
		f.signUp(t, "a@x.com")
		sealed := f.lastMailToken(t)

		f.advance(24*time.Hour - time.Second)

		require.NoError(t, f.svc.ConfirmVerification(context.Background(), sealed))
	})
}

func TestConfirmVerification_MalformedToken(t *testing.T) {
	f := newAccountFixture(t)
	f.signUp(t, "a@x.com")

	for _, input := range []string{"", "garbage", "a.b.c"} {
		err := f.svc.ConfirmVerification(context.Background(), input)
		assert.ErrorIs(t, err, domain.ErrNotFoundOrExpired, "input %q", input)
	}
}

func TestRequestVerification_ReusesValidToken(t *testing.T) {
	f := newAccountFixture(t)
	f.signUp(t, "a@x.com")

	first, _, err := f.sealer.Unseal(f.lastMailToken(t))
	require.NoError(t, err)

	f.advance(time.Hour)
	require.NoError(t, f.svc.RequestVerification(context.Background(), "a@x.com"))

	second, _, err := f.sealer.Unseal(f.lastMailToken(t))
	require.NoError(t, err)
	assert.Equal(t, first, second, "a still-valid token must be reused, not replaced")
}

func TestRequestVerification_ReplacesExpiredToken(t *testing.T) {
	f := newAccountFixture(t)
	f.signUp(t, "a@x.com")

	first, _, err := f.sealer.Unseal(f.lastMailToken(t))
	require.NoError(t, err)

	f.advance(25 * time.Hour)
	require.NoError(t, f.svc.RequestVerification(context.Background(), "a@x.com"))

	second, _, err := f.sealer.Unseal(f.lastMailToken(t))
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "an expired token must be replaced")

	stored, _ := f.repo.GetByEmail(context.Background(), "a@x.com")
	assert.True(t, stored.EmailVerificationExpires.Equal(f.clock.Add(24*time.Hour)))
}

func TestRequestVerification_UnknownEmail(t *testing.T) {
	f := newAccountFixture(t)

	err := f.svc.RequestVerification(context.Background(), "nobody@x.com")
	assert.NoError(t, err, "unknown emails must not be distinguishable")
	assert.Equal(t, 0, f.mail.count())
}

func TestRequestVerification_AlreadyVerified(t *testing.T) {
	f := newAccountFixture(t)
	f.signUp(t, "a@x.com")
	require.NoError(t, f.svc.ConfirmVerification(context.Background(), f.lastMailToken(t)))

	err := f.svc.RequestVerification(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, domain.ErrAlreadyVerified)
}

func TestRequestPasswordReset_UnverifiedDenied(t *testing.T) {
	f := newAccountFixture(t)
	f.signUp(t, "a@x.com")

	err := f.svc.RequestPasswordReset(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAccountFixture(t)
	f.signUp(t, "a@x.com")
	require.NoError(t, f.svc.ConfirmVerification(context.Background(), f.lastMailToken(t)))

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "a@x.com"))

	stored, _ := f.repo.GetByEmail(context.Background(), "a@x.com")
	require.NotNil(t, stored.PasswordResetExpires)
	assert.True(t, stored.PasswordResetExpires.Equal(f.clock.Add(4*time.Hour)))

	sealed := f.lastMailToken(t)
	require.NoError(t, f.svc.ConfirmPasswordReset(context.Background(), sealed, "NewPassword1"))

	stored, _ = f.repo.GetByEmail(context.Background(), "a@x.com")
	assert.Nil(t, stored.PasswordResetToken)

	_, _, err := f.svc.SignIn(context.Background(), "a@x.com", testPassword)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials, "old password must stop working")

	_, session, err := f.svc.SignIn(context.Background(), "a@x.com", "NewPassword1")
	require.NoError(t, err)
	assert.NotNil(t, session)
}

func TestConfirmPasswordReset_Expired(t *testing.T) {
	f := newAccountFixture(t)
	f.signUp(t, "a@x.com")
	require.NoError(t, f.svc.ConfirmVerification(context.Background(), f.lastMailToken(t)))
	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "a@x.com"))
	sealed := f.lastMailToken(t)

	f.advance(5 * time.Hour)

	err := f.svc.ConfirmPasswordReset(context.Background(), sealed, "NewPassword1")
	assert.ErrorIs(t, err, domain.ErrNotFoundOrExpired)

	_, _, err = f.svc.SignIn(context.Background(), "a@x.com", testPassword)
	assert.NoError(t, err, "old password must keep working after a failed reset")
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	f := newAccountFixture(t)
	f.signUp(t, "a@x.com")

	_, _, wrongPassword := f.svc.SignIn(context.Background(), "a@x.com", "WrongPass1")
	_, _, unknownEmail := f.svc.SignIn(context.Background(), "nobody@x.com", testPassword)

	assert.ErrorIs(t, wrongPassword, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, domain.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error(),
		"unknown email and wrong password must be indistinguishable")
}

func TestSignIn_Suspended(t *testing.T) {
	f := newAccountFixture(t)
	user := f.signUp(t, "a@x.com")

	f.repo.mu.Lock()
	f.repo.users[user.ID].Suspended = true
	f.repo.mu.Unlock()

	_, _, err := f.svc.SignIn(context.Background(), "a@x.com", testPassword)
	assert.ErrorIs(t, err, domain.ErrAccountSuspended)
}

func TestSignIn_EstablishesSession(t *testing.T) {
	f := newAccountFixture(t)
	f.signUp(t, "a@x.com")

	user, session, err := f.svc.SignIn(context.Background(), "a@x.com", testPassword)
	require.NoError(t, err)

	got, err := f.sessions.Get(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)

	require.NoError(t, f.svc.SignOut(context.Background(), session.ID))
	_, err = f.sessions.Get(context.Background(), session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDeactivateAndReactivate(t *testing.T) {
	f := newAccountFixture(t)
	user := f.signUp(t, "a@x.com")

	require.NoError(t, f.svc.Deactivate(context.Background(), user.ID))

	_, _, err := f.svc.SignIn(context.Background(), "a@x.com", testPassword)
	assert.ErrorIs(t, err, domain.ErrAccountInactive)

	require.NoError(t, f.svc.RequestReactivation(context.Background(), "a@x.com"))

	stored, _ := f.repo.GetByEmail(context.Background(), "a@x.com")
	require.NotNil(t, stored.ReactivationExpires)
	assert.True(t, stored.ReactivationExpires.Equal(f.clock.Add(5*time.Minute)))

	reactivated, session, err := f.svc.ConfirmReactivation(context.Background(), f.lastMailToken(t))
	require.NoError(t, err)
	assert.True(t, reactivated.Active)
	assert.NotNil(t, session)

	stored, _ = f.repo.GetByEmail(context.Background(), "a@x.com")
	assert.True(t, stored.Active)
	assert.Nil(t, stored.ReactivationToken)

	_, _, err = f.svc.SignIn(context.Background(), "a@x.com", testPassword)
	assert.NoError(t, err)
}

func TestConfirmReactivation_Expired(t *testing.T) {
	f := newAccountFixture(t)
	user := f.signUp(t, "a@x.com")
	require.NoError(t, f.svc.Deactivate(context.Background(), user.ID))
	require.NoError(t, f.svc.RequestReactivation(context.Background(), "a@x.com"))
	sealed := f.lastMailToken(t)

	f.advance(6 * time.Minute)

	_, _, err := f.svc.ConfirmReactivation(context.Background(), sealed)
	assert.ErrorIs(t, err, domain.ErrNotFoundOrExpired)

	stored, _ := f.repo.GetByEmail(context.Background(), "a@x.com")
	assert.False(t, stored.Active)
}

func TestConfirmReactivation_Suspended(t *testing.T) {
	f := newAccountFixture(t)
	user := f.signUp(t, "a@x.com")
	require.NoError(t, f.svc.Deactivate(context.Background(), user.ID))
	require.NoError(t, f.svc.RequestReactivation(context.Background(), "a@x.com"))
	sealed := f.lastMailToken(t)

	f.repo.mu.Lock()
	f.repo.users[user.ID].Suspended = true
	f.repo.mu.Unlock()

	_, _, err := f.svc.ConfirmReactivation(context.Background(), sealed)
	assert.ErrorIs(t, err, domain.ErrAccountSuspended)
}

func TestConfirmReactivation_ExpiredTokenOnSuspendedAccount(t *testing.T) {
	f := newAccountFixture(t)
	user := f.signUp(t, "a@x.com")
	require.NoError(t, f.svc.Deactivate(context.Background(), user.ID))
	require.NoError(t, f.svc.RequestReactivation(context.Background(), "a@x.com"))
	sealed := f.lastMailToken(t)

	f.repo.mu.Lock()
	f.repo.users[user.ID].Suspended = true
	f.repo.mu.Unlock()

	f.advance(6 * time.Minute)

	_, _, err := f.svc.ConfirmReactivation(context.Background(), sealed)
	assert.ErrorIs(t, err, domain.ErrNotFoundOrExpired,
		"an expired token must be inert regardless of account state")
}

func TestRequestReactivation_ActiveAccount(t *testing.T) {
	f := newAccountFixture(t)
	f.signUp(t, "a@x.com")
	sent := f.mail.count()

	err := f.svc.RequestReactivation(context.Background(), "a@x.com")
	assert.NoError(t, err)
	assert.Equal(t, sent, f.mail.count(), "active accounts get no reactivation mail")
}
