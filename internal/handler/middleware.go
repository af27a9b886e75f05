package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lunasphere/account-service/internal/domain"
	"github.com/lunasphere/account-service/internal/dto"
	"github.com/lunasphere/account-service/internal/service"
	"github.com/lunasphere/account-service/internal/utils"
)

// Context keys set by SessionMiddleware
const (
	ctxUserID    = "user_id"
	ctxSessionID = "session_id"
	ctxUserRole  = "user_role"
)

func unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
		Error:   "Unauthorized",
		Message: message,
	})
	c.Abort()
}

// SessionMiddleware authenticates a request from its session cookie. The
// cookie value is a sealed session handle; a broken seal, an unknown session
// and a missing cookie are all rejected the same way.
func SessionMiddleware(
	sessions service.SessionStore,
	users service.UserService,
	sealer *utils.TokenSealer,
	cookieName string,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		sealed, err := c.Cookie(cookieName)
		if err != nil || sealed == "" {
			unauthorized(c, "Authentication required")
			return
		}

		sessionID, _, err := sealer.Unseal(sealed)
		if err != nil {
			unauthorized(c, "Invalid session")
			return
		}

		session, err := sessions.Get(c.Request.Context(), sessionID)
		if err != nil {
			if errors.Is(err, service.ErrSessionNotFound) {
				unauthorized(c, "Invalid session")
				return
			}
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Error:   "Internal server error",
				Message: "something went wrong",
			})
			c.Abort()
			return
		}

		user, err := users.Get(c.Request.Context(), session.UserID)
		if err != nil {
			unauthorized(c, "Invalid session")
			return
		}

		// A session may outlive a state change on the account
		if user.Suspended {
			c.JSON(http.StatusForbidden, dto.ErrorResponse{
				Error:   "Forbidden",
				Message: domain.ErrAccountSuspended.Error(),
			})
			c.Abort()
			return
		}
		if !user.Active {
			c.JSON(http.StatusForbidden, dto.ErrorResponse{
				Error:   "Forbidden",
				Message: domain.ErrAccountInactive.Error(),
			})
			c.Abort()
			return
		}

		c.Set(ctxUserID, user.ID)
		c.Set(ctxSessionID, session.ID)
		c.Set(ctxUserRole, user.Role)

		c.Next()
	}
}

// RequireRoles restricts a route to the given roles. It must run after
// SessionMiddleware.
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(ctxUserRole)
		if !ok {
			unauthorized(c, "Authentication required")
			return
		}

		for _, allowed := range roles {
			if role.(domain.Role) == allowed {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, dto.ErrorResponse{
			Error:   "Forbidden",
			Message: "insufficient permissions",
		})
		c.Abort()
	}
}
