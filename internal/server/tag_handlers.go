package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storypulse-dev/storypulse/internal/models"
	"github.com/storypulse-dev/storypulse/internal/pagination"
	"github.com/storypulse-dev/storypulse/internal/tags"
)

// CreateTagRequest represents a tag creation request
type CreateTagRequest struct {
	Name             string `json:"name" binding:"required,max=256"`
	Slug             string `json:"slug" binding:"required,max=256" validate:"required,slug"`
	Description      string `json:"description"`
	Schema           string `json:"schema" binding:"omitempty,json"`
	FeaturedImageURL string `json:"featuredImageUrl" binding:"omitempty,url,max=1024"`
}

// UpdateTagRequest represents a partial tag update
type UpdateTagRequest struct {
	Name             *string `json:"name" binding:"omitempty,max=256"`
	Slug             *string `json:"slug" binding:"omitempty,max=256" validate:"omitempty,slug"`
	Description      *string `json:"description"`
	Schema           *string `json:"schema" binding:"omitempty,json"`
	FeaturedImageURL *string `json:"featuredImageUrl" binding:"omitempty,url,max=1024"`
}

// @Summary List tags
// @Tags tags
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} pagination.Paginated[models.Tag]
// @Router /tags [get]
func (s *Server) listTags(c *gin.Context) {
	var q pagination.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := s.db.WithContext(c.Request.Context()).Model(&models.Tag{})

	page, err := pagination.Paginate[models.Tag](query, c.Request, q)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list tags")
		respondTransient(c)
		return
	}

	c.JSON(http.StatusOK, page)
}

// @Summary Create a tag
// @Tags tags
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTagRequest true "Tag creation request"
// @Success 201 {object} models.Tag
// @Failure 409 {object} map[string]interface{}
// @Router /tags [post]
func (s *Server) createTag(c *gin.Context) {
	var req CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		s.logger.Warn().Err(err).Msg("Request validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": err.Error()})
		return
	}

	tag, err := s.tagsService.CreateTag(c.Request.Context(), tags.CreateTagParams{
		Name:             req.Name,
		Slug:             req.Slug,
		Description:      req.Description,
		Schema:           req.Schema,
		FeaturedImageURL: req.FeaturedImageURL,
	})
	if err != nil {
		if errors.Is(err, tags.ErrTagExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "A tag with that name or slug already exists"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to create tag")
		respondTransient(c)
		return
	}

	c.JSON(http.StatusCreated, tag)
}

// @Summary Update a tag
// @Tags tags
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Tag ID"
// @Param request body UpdateTagRequest true "Tag update request"
// @Success 200 {object} models.Tag
// @Failure 404 {object} map[string]interface{}
// @Router /tags/{id} [patch]
func (s *Server) updateTag(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UpdateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		s.logger.Warn().Err(err).Msg("Request validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": err.Error()})
		return
	}

	tag, err := s.tagsService.UpdateTag(c.Request.Context(), tags.UpdateTagParams{
		ID:               id,
		Name:             req.Name,
		Slug:             req.Slug,
		Description:      req.Description,
		Schema:           req.Schema,
		FeaturedImageURL: req.FeaturedImageURL,
	})
	if err != nil {
		if errors.Is(err, tags.ErrTagNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
			return
		}
		s.logger.Error().Err(err).Uint("tag_id", id).Msg("Failed to update tag")
		respondTransient(c)
		return
	}

	c.JSON(http.StatusOK, tag)
}

// @Summary Delete a tag
// @Description Soft-delete a tag. Admin only.
// @Tags tags
// @Produce json
// @Security BearerAuth
// @Param id path int true "Tag ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /tags/{id} [delete]
func (s *Server) deleteTag(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := s.tagsService.DeleteTag(c.Request.Context(), id); err != nil {
		if errors.Is(err, tags.ErrTagNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
			return
		}
		s.logger.Error().Err(err).Uint("tag_id", id).Msg("Failed to delete tag")
		respondTransient(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": id})
}
