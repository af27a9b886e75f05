package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lunasphere/account-service/internal/domain"
	"github.com/lunasphere/account-service/internal/dto"
	"github.com/lunasphere/account-service/internal/repository"
	"github.com/lunasphere/account-service/internal/service"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// UserHandler handles profile and user administration endpoints
type UserHandler struct {
	users service.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(users service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Me returns the authenticated user's profile
// @Summary Get own profile
// @Tags users
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// UpdateMe updates the authenticated user's profile fields
// @Summary Update own profile
// @Tags users
// @Accept json
// @Produce json
// @Param request body dto.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /users/me [patch]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), c.GetString(ctxUserID),
		req.Username, req.Picture, req.Phone, req.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// Identities lists the OAuth providers linked to the authenticated account
// @Summary List own linked identities
// @Tags users
// @Produce json
// @Success 200 {array} dto.IdentityResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /users/me/identities [get]
func (h *UserHandler) Identities(c *gin.Context) {
	identities, err := h.users.Identities(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]dto.IdentityResponse, 0, len(identities))
	for _, identity := range identities {
		responses = append(responses, dto.IdentityResponse{
			Provider: string(identity.Provider),
			LinkedAt: identity.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, responses)
}

// ChangePassword changes the authenticated user's password
// @Summary Change own password
// @Tags users
// @Accept json
// @Produce json
// @Param request body dto.ChangePasswordRequest true "Old and new password"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /users/me/password [put]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	err := h.users.ChangePassword(c.Request.Context(), c.GetString(ctxUserID),
		req.OldPassword, req.NewPassword)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Password updated"})
}

// Get returns a user by id
// @Summary Get a user
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} dto.UserResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// List returns users matching the query filters
// @Summary List users
// @Tags users
// @Produce json
// @Param email query string false "Comma-separated emails"
// @Param role query string false "Comma-separated roles"
// @Param email_verified query bool false "Filter on verification state"
// @Param active query bool false "Filter on active state"
// @Param suspended query bool false "Filter on suspended state"
// @Param order_by query string false "Comma-separated fields, prefix with - for descending"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	filter, err := parseUserFilter(c)
	if err != nil {
		respondValidationError(c, err)
		return
	}

	users, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, toUserResponse(u))
	}
	c.JSON(http.StatusOK, responses)
}

// parseUserFilter turns the raw query string into the typed filter. Every
// field is validated here so the store only ever sees strict enums and
// bounded integers.
func parseUserFilter(c *gin.Context) (repository.UserFilter, error) {
	filter := repository.UserFilter{Limit: defaultListLimit}

	if raw := c.Query("email"); raw != "" {
		for _, email := range strings.Split(raw, ",") {
			if email = strings.TrimSpace(email); email != "" {
				filter.Emails = append(filter.Emails, strings.ToLower(email))
			}
		}
	}

	if raw := c.Query("role"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			role := domain.Role(strings.ToUpper(strings.TrimSpace(part)))
			if !domain.ValidRole(role) {
				return filter, fmt.Errorf("unknown role %q", part)
			}
			filter.Roles = append(filter.Roles, role)
		}
	}

	for name, dst := range map[string]**bool{
		"email_verified": &filter.EmailVerified,
		"active":         &filter.Active,
		"suspended":      &filter.Suspended,
	} {
		if raw := c.Query(name); raw != "" {
			value, err := strconv.ParseBool(raw)
			if err != nil {
				return filter, fmt.Errorf("invalid boolean for %s: %q", name, raw)
			}
			*dst = &value
		}
	}

	if raw := c.Query("order_by"); raw != "" {
		orders, err := parseUserOrder(raw)
		if err != nil {
			return filter, err
		}
		filter.OrderBy = orders
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxListLimit {
			return filter, fmt.Errorf("limit must be between 1 and %d", maxListLimit)
		}
		filter.Limit = limit
	}

	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filter, fmt.Errorf("offset must be a non-negative integer")
		}
		filter.Offset = offset
	}

	return filter, nil
}

func parseUserOrder(raw string) ([]repository.UserOrder, error) {
	valid := map[repository.UserOrderField]bool{
		repository.OrderByEmail:         true,
		repository.OrderByRole:          true,
		repository.OrderByEmailVerified: true,
		repository.OrderByActive:        true,
		repository.OrderBySuspended:     true,
		repository.OrderByCreatedAt:     true,
	}

	var orders []repository.UserOrder
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		field := repository.UserOrderField(strings.TrimPrefix(part, "-"))
		if !valid[field] {
			return nil, fmt.Errorf("unknown order field %q", part)
		}
		orders = append(orders, repository.UserOrder{Field: field, Desc: desc})
	}
	return orders, nil
}
