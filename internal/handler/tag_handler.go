package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lunasphere/account-service/internal/dto"
	"github.com/lunasphere/account-service/internal/service"
)

// TagHandler handles the tag catalog endpoints
type TagHandler struct {
	tags service.TagService
}

// NewTagHandler creates a new tag handler
func NewTagHandler(tags service.TagService) *TagHandler {
	return &TagHandler{tags: tags}
}

// Create creates a tag
// @Summary Create a tag
// @Tags tags
// @Accept json
// @Produce json
// @Param request body dto.TagRequest true "Tag"
// @Success 201 {object} domain.Tag
// @Failure 409 {object} dto.ErrorResponse
// @Router /tags [post]
func (h *TagHandler) Create(c *gin.Context) {
	var req dto.TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	tag, err := h.tags.Create(c.Request.Context(), req.Name, req.Slug)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

// List returns all tags
// @Summary List tags
// @Tags tags
// @Produce json
// @Success 200 {array} domain.Tag
// @Router /tags [get]
func (h *TagHandler) List(c *gin.Context) {
	tags, err := h.tags.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

// Get returns a tag by id
// @Summary Get a tag
// @Tags tags
// @Produce json
// @Param id path string true "Tag ID"
// @Success 200 {object} domain.Tag
// @Failure 404 {object} dto.ErrorResponse
// @Router /tags/{id} [get]
func (h *TagHandler) Get(c *gin.Context) {
	tag, err := h.tags.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

// GetBySlug returns a tag by slug
// @Summary Get a tag by slug
// @Tags tags
// @Produce json
// @Param slug path string true "Tag slug"
// @Success 200 {object} domain.Tag
// @Failure 404 {object} dto.ErrorResponse
// @Router /tags/slug/{slug} [get]
func (h *TagHandler) GetBySlug(c *gin.Context) {
	tag, err := h.tags.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

// Update renames a tag
// @Summary Update a tag
// @Tags tags
// @Accept json
// @Produce json
// @Param id path string true "Tag ID"
// @Param request body dto.TagRequest true "Tag"
// @Success 200 {object} domain.Tag
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /tags/{id} [put]
func (h *TagHandler) Update(c *gin.Context) {
	var req dto.TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	tag, err := h.tags.Update(c.Request.Context(), c.Param("id"), req.Name, req.Slug)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

// Delete removes a tag
// @Summary Delete a tag
// @Tags tags
// @Produce json
// @Param id path string true "Tag ID"
// @Success 200 {object} dto.SuccessResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /tags/{id} [delete]
func (h *TagHandler) Delete(c *gin.Context) {
	if err := h.tags.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Tag deleted"})
}
