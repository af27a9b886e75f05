package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lunasphere/account-service/internal/domain"
	"github.com/lunasphere/account-service/internal/dto"
)

// respondError maps the domain error kinds to HTTP statuses. Anything not in
// the table is an infrastructure failure and stays opaque to the client.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFoundOrExpired):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Not found", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized", Message: err.Error()})
	case errors.Is(err, domain.ErrAccountSuspended), errors.Is(err, domain.ErrAccountInactive):
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden", Message: err.Error()})
	case errors.Is(err, domain.ErrAlreadyVerified), errors.Is(err, domain.ErrPreconditionFailed),
		errors.Is(err, domain.ErrInvalidEmail), errors.Is(err, domain.ErrInvalidPassword):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Bad request", Message: err.Error()})
	case errors.Is(err, domain.ErrConflictingIdentity):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: "Conflict", Message: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "something went wrong",
		})
	}
}

func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "Validation failed",
		Message: err.Error(),
	})
}

// toUserResponse converts a domain user to its API shape
func toUserResponse(u *domain.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		Role:          string(u.Role),
		EmailVerified: u.EmailVerified,
		Active:        u.Active,
		Suspended:     u.Suspended,
		Picture:       u.Picture,
		Phone:         u.Phone,
		Address:       u.Address,
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     u.UpdatedAt.Format(time.RFC3339),
	}
	if u.LastLoginAt != nil {
		lastLogin := u.LastLoginAt.Format(time.RFC3339)
		resp.LastLoginAt = &lastLogin
	}
	return resp
}
