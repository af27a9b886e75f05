package acceptance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lunasphere/account-service/internal/dto"
	"github.com/lunasphere/account-service/internal/utils"
)

func (s *Suite) postJSON(path string, body interface{}) *http.Response {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)

	resp, err := http.Post(s.BaseURL+path, "application/json", bytes.NewBuffer(raw))
	s.Require().NoError(err)
	return resp
}

func (s *Suite) signUp(email string) dto.UserResponse {
	resp := s.postJSON("/api/v1/auth/signup", dto.SignUpRequest{
		Username: "tester",
		Email:    email,
		Password: "Password123",
	})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var user dto.UserResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&user))
	return user
}

func (s *Suite) signIn(email, password string) (*http.Response, []*http.Cookie) {
	resp := s.postJSON("/api/v1/auth/signin", dto.SignInRequest{
		Email:    email,
		Password: password,
	})
	return resp, resp.Cookies()
}

// sealedTokenFor reads the pending token straight from the store and seals
// it the way the mailer link would
func (s *Suite) sealedTokenFor(email, column string) string {
	var token string
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1", column)
	err := s.Postgres.DB.QueryRow(query, email).Scan(&token)
	s.Require().NoError(err)
	s.Require().NotEmpty(token)

	sealed, err := utils.NewTokenSealer(testJWTSecret).Seal(token, time.Now())
	s.Require().NoError(err)
	return sealed
}

func (s *Suite) sessionCookie(cookies []*http.Cookie) *http.Cookie {
	for _, c := range cookies {
		if c.Name == "sid" {
			return c
		}
	}
	return nil
}

func (s *Suite) TestSignUp_Success() {
	user := s.signUp("test@example.com")

	s.Equal("test@example.com", user.Email)
	s.NotEmpty(user.ID)
	s.False(user.EmailVerified)
	s.True(user.Active)
	s.Equal("CUSTOMER", user.Role)
}

func (s *Suite) TestSignUp_DuplicateEmail() {
	s.signUp("duplicate@example.com")

	resp := s.postJSON("/api/v1/auth/signup", dto.SignUpRequest{
		Username: "tester",
		Email:    "duplicate@example.com",
		Password: "Password123",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusConflict, resp.StatusCode)

	var errResp dto.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&errResp))
	s.Equal("Conflict", errResp.Error)
}

func (s *Suite) TestSignUp_InvalidEmail() {
	resp := s.postJSON("/api/v1/auth/signup", dto.SignUpRequest{
		Username: "tester",
		Email:    "invalid-email",
		Password: "Password123",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestSignUp_WeakPassword() {
	resp := s.postJSON("/api/v1/auth/signup", dto.SignUpRequest{
		Username: "tester",
		Email:    "weak@example.com",
		Password: "short",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestSignIn_Success() {
	s.signUp("login@example.com")

	resp, cookies := s.signIn("login@example.com", "Password123")
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var session dto.SessionResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&session))
	s.Equal("login@example.com", session.User.Email)
	s.NotEmpty(session.ExpiresAt)

	cookie := s.sessionCookie(cookies)
	s.Require().NotNil(cookie, "sign-in must set the session cookie")
	s.True(cookie.HttpOnly)
}

func (s *Suite) TestSignIn_InvalidCredentials() {
	s.signUp("creds@example.com")

	unknown, _ := s.signIn("nobody@example.com", "Password123")
	defer unknown.Body.Close()
	wrongPass, _ := s.signIn("creds@example.com", "WrongPassword1")
	defer wrongPass.Body.Close()

	s.Equal(http.StatusUnauthorized, unknown.StatusCode)
	s.Equal(http.StatusUnauthorized, wrongPass.StatusCode)

	var unknownBody, wrongBody dto.ErrorResponse
	s.Require().NoError(json.NewDecoder(unknown.Body).Decode(&unknownBody))
	s.Require().NoError(json.NewDecoder(wrongPass.Body).Decode(&wrongBody))
	s.Equal(unknownBody.Message, wrongBody.Message,
		"unknown email and wrong password must be indistinguishable")
}

func (s *Suite) TestVerifyEmail_Flow() {
	s.signUp("verify@example.com")
	sealed := s.sealedTokenFor("verify@example.com", "email_verification_token")

	resp, err := http.Get(s.BaseURL + "/api/v1/auth/verify-email/" + sealed)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var verified bool
	err = s.Postgres.DB.QueryRow(
		"SELECT email_verified FROM users WHERE email = $1", "verify@example.com").Scan(&verified)
	s.Require().NoError(err)
	s.True(verified)

	// A consumed token is gone
	second, err := http.Get(s.BaseURL + "/api/v1/auth/verify-email/" + sealed)
	s.Require().NoError(err)
	defer second.Body.Close()
	s.Equal(http.StatusNotFound, second.StatusCode)
}

func (s *Suite) TestVerifyEmail_GarbageToken() {
	resp, err := http.Get(s.BaseURL + "/api/v1/auth/verify-email/not-a-token")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *Suite) TestRecover_UnverifiedDenied() {
	s.signUp("unverified@example.com")

	resp := s.postJSON("/api/v1/auth/recover", dto.EmailRequest{Email: "unverified@example.com"})
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestRecover_UnknownEmailLooksLikeSuccess() {
	resp := s.postJSON("/api/v1/auth/recover", dto.EmailRequest{Email: "nobody@example.com"})
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *Suite) TestResetPassword_Flow() {
	s.signUp("reset@example.com")

	sealed := s.sealedTokenFor("reset@example.com", "email_verification_token")
	verifyResp, err := http.Get(s.BaseURL + "/api/v1/auth/verify-email/" + sealed)
	s.Require().NoError(err)
	verifyResp.Body.Close()

	recoverResp := s.postJSON("/api/v1/auth/recover", dto.EmailRequest{Email: "reset@example.com"})
	recoverResp.Body.Close()
	s.Require().Equal(http.StatusOK, recoverResp.StatusCode)

	resetSealed := s.sealedTokenFor("reset@example.com", "password_reset_token")
	resp := s.postJSON("/api/v1/auth/reset-password/"+resetSealed, dto.ResetPasswordRequest{
		Password:        "NewPassword1",
		ConfirmPassword: "NewPassword1",
	})
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	oldResp, _ := s.signIn("reset@example.com", "Password123")
	oldResp.Body.Close()
	s.Equal(http.StatusUnauthorized, oldResp.StatusCode)

	newResp, _ := s.signIn("reset@example.com", "NewPassword1")
	newResp.Body.Close()
	s.Equal(http.StatusOK, newResp.StatusCode)
}

func (s *Suite) TestMe_RequiresSession() {
	req, err := http.NewRequest(http.MethodGet, s.BaseURL+"/api/v1/users/me", nil)
	s.Require().NoError(err)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestMe_WithSession() {
	s.signUp("me@example.com")
	signInResp, cookies := s.signIn("me@example.com", "Password123")
	signInResp.Body.Close()

	cookie := s.sessionCookie(cookies)
	s.Require().NotNil(cookie)

	req, err := http.NewRequest(http.MethodGet, s.BaseURL+"/api/v1/users/me", nil)
	s.Require().NoError(err)
	req.AddCookie(cookie)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var user dto.UserResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&user))
	s.Equal("me@example.com", user.Email)
}

func (s *Suite) TestSignOut_InvalidatesSession() {
	s.signUp("signout@example.com")
	signInResp, cookies := s.signIn("signout@example.com", "Password123")
	signInResp.Body.Close()
	cookie := s.sessionCookie(cookies)
	s.Require().NotNil(cookie)

	req, err := http.NewRequest(http.MethodPost, s.BaseURL+"/api/v1/auth/signout", nil)
	s.Require().NoError(err)
	req.AddCookie(cookie)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	req, err = http.NewRequest(http.MethodGet, s.BaseURL+"/api/v1/users/me", nil)
	s.Require().NoError(err)
	req.AddCookie(cookie)
	meResp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer meResp.Body.Close()
	s.Equal(http.StatusUnauthorized, meResp.StatusCode)
}

func (s *Suite) TestDeactivateAndReactivate_Flow() {
	s.signUp("lifecycle@example.com")
	signInResp, cookies := s.signIn("lifecycle@example.com", "Password123")
	signInResp.Body.Close()
	cookie := s.sessionCookie(cookies)
	s.Require().NotNil(cookie)

	req, err := http.NewRequest(http.MethodPost, s.BaseURL+"/api/v1/auth/deactivate", nil)
	s.Require().NoError(err)
	req.AddCookie(cookie)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	inactiveResp, _ := s.signIn("lifecycle@example.com", "Password123")
	inactiveResp.Body.Close()
	s.Equal(http.StatusForbidden, inactiveResp.StatusCode)

	reqResp := s.postJSON("/api/v1/auth/reactivate", dto.EmailRequest{Email: "lifecycle@example.com"})
	reqResp.Body.Close()
	s.Require().Equal(http.StatusOK, reqResp.StatusCode)

	sealed := s.sealedTokenFor("lifecycle@example.com", "reactivation_token")
	confirmResp, err := http.Get(s.BaseURL + "/api/v1/auth/reactivate/" + sealed)
	s.Require().NoError(err)
	defer confirmResp.Body.Close()
	s.Equal(http.StatusOK, confirmResp.StatusCode)

	againResp, _ := s.signIn("lifecycle@example.com", "Password123")
	againResp.Body.Close()
	s.Equal(http.StatusOK, againResp.StatusCode)
}

func (s *Suite) TestTags_PublicReadAuthenticatedWrite() {
	listResp, err := http.Get(s.BaseURL + "/api/v1/tags")
	s.Require().NoError(err)
	listResp.Body.Close()
	s.Equal(http.StatusOK, listResp.StatusCode)

	createResp := s.postJSON("/api/v1/tags", dto.TagRequest{Name: "New Tag"})
	defer createResp.Body.Close()
	s.Equal(http.StatusUnauthorized, createResp.StatusCode)
}
