package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lunasphere/account-service/internal/domain"
	"github.com/lunasphere/account-service/internal/dto"
	"github.com/lunasphere/account-service/internal/service"
	"github.com/lunasphere/account-service/internal/utils"
)

// SessionCookie describes how the session handle travels to the browser
type SessionCookie struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// AuthHandler handles the account lifecycle endpoints
type AuthHandler struct {
	accounts service.AccountService
	oauth    service.OAuthService
	sealer   *utils.TokenSealer
	cookie   SessionCookie
	logger   *zap.Logger
}

// NewAuthHandler creates a new auth handler. oauth may be nil when no
// provider is configured; the app skips the OAuth routes in that case.
func NewAuthHandler(
	accounts service.AccountService,
	oauth service.OAuthService,
	sealer *utils.TokenSealer,
	cookie SessionCookie,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		oauth:    oauth,
		sealer:   sealer,
		cookie:   cookie,
		logger:   logger,
	}
}

// setSessionCookie seals the session handle and installs it as an httpOnly
// cookie. Only the sealed form ever reaches the browser.
func (h *AuthHandler) setSessionCookie(c *gin.Context, session *domain.Session) error {
	sealed, err := h.sealer.Seal(session.ID, time.Now())
	if err != nil {
		return err
	}
	c.SetCookie(h.cookie.Name, sealed, int(h.cookie.TTL.Seconds()), "/", "", h.cookie.Secure, true)
	return nil
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}

// SignUp handles user registration
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.SignUpRequest true "Sign-up request"
// @Success 201 {object} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req dto.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	user, err := h.accounts.SignUp(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

// SignIn handles user authentication
// @Summary Sign in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.SignInRequest true "Sign-in request"
// @Success 200 {object} dto.SessionResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /auth/signin [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req dto.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	user, session, err := h.accounts.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.setSessionCookie(c, session); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SessionResponse{
		User:      toUserResponse(user),
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
	})
}

// SignOut terminates the current session
// @Summary Sign out
// @Tags auth
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Router /auth/signout [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	if sessionID, ok := c.Get(ctxSessionID); ok {
		if err := h.accounts.SignOut(c.Request.Context(), sessionID.(string)); err != nil {
			h.logger.Warn("failed to terminate session", zap.Error(err))
		}
	}

	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Signed out successfully"})
}

// Deactivate marks the authenticated account inactive and ends the session
// @Summary Deactivate own account
// @Tags auth
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/deactivate [post]
func (h *AuthHandler) Deactivate(c *gin.Context) {
	userID := c.GetString(ctxUserID)

	if err := h.accounts.Deactivate(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	if sessionID, ok := c.Get(ctxSessionID); ok {
		if err := h.accounts.SignOut(c.Request.Context(), sessionID.(string)); err != nil {
			h.logger.Warn("failed to terminate session", zap.Error(err))
		}
	}

	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Account deactivated"})
}

// ResendVerification re-sends the verification email
// @Summary Request a verification email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.EmailRequest true "Email"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/verify-email/resend [post]
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.accounts.RequestVerification(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "If the account exists, a verification email has been sent"})
}

// ConfirmVerification consumes an emailed verification token
// @Summary Confirm email verification
// @Tags auth
// @Produce json
// @Param token path string true "Sealed verification token"
// @Success 200 {object} dto.SuccessResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/verify-email/{token} [get]
func (h *AuthHandler) ConfirmVerification(c *gin.Context) {
	if err := h.accounts.ConfirmVerification(c.Request.Context(), c.Param("token")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Email verified"})
}

// Recover starts the password recovery flow
// @Summary Request a password reset email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.EmailRequest true "Email"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/recover [post]
func (h *AuthHandler) Recover(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.accounts.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "If the account exists, a recovery email has been sent"})
}

// ResetPassword consumes an emailed reset token and sets the new password
// @Summary Confirm password reset
// @Tags auth
// @Accept json
// @Produce json
// @Param token path string true "Sealed reset token"
// @Param request body dto.ResetPasswordRequest true "New password"
// @Success 200 {object} dto.SuccessResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/reset-password/{token} [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.accounts.ConfirmPasswordReset(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Password updated"})
}

// Reactivate starts the account reactivation flow
// @Summary Request a reactivation email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.EmailRequest true "Email"
// @Success 200 {object} dto.SuccessResponse
// @Router /auth/reactivate [post]
func (h *AuthHandler) Reactivate(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.accounts.RequestReactivation(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "If the account exists, a reactivation email has been sent"})
}

// ConfirmReactivation consumes a reactivation token and signs the user in
// @Summary Confirm account reactivation
// @Tags auth
// @Produce json
// @Param token path string true "Sealed reactivation token"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/reactivate/{token} [get]
func (h *AuthHandler) ConfirmReactivation(c *gin.Context) {
	user, session, err := h.accounts.ConfirmReactivation(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.setSessionCookie(c, session); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SessionResponse{
		User:      toUserResponse(user),
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
	})
}

// Google redirects the browser to the provider consent screen
// @Summary Start Google sign-in
// @Tags auth
// @Success 307
// @Router /auth/google [get]
func (h *AuthHandler) Google(c *gin.Context) {
	url, err := h.oauth.AuthCodeURL()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// GoogleCallback finishes the Google sign-in flow
// @Summary Google sign-in callback
// @Tags auth
// @Produce json
// @Param state query string true "Signed state"
// @Param code query string true "Authorization code"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "missing state or code",
		})
		return
	}

	user, session, err := h.oauth.HandleCallback(c.Request.Context(), state, code)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.setSessionCookie(c, session); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SessionResponse{
		User:      toUserResponse(user),
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
	})
}
