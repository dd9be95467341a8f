package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/storypulse-dev/storypulse/internal/models"
	"github.com/storypulse-dev/storypulse/internal/pagination"
	"github.com/storypulse-dev/storypulse/internal/posts"
	"github.com/storypulse-dev/storypulse/internal/users"
)

// CreatePostRequest represents a post creation request
type CreatePostRequest struct {
	Title         string            `json:"title" binding:"required,min=4,max=512"`
	Slug          string            `json:"slug" binding:"required,max=256" validate:"required,slug"`
	Status        models.PostStatus `json:"status" binding:"omitempty,oneof=draft scheduled reviewed published pending"`
	Content       string            `json:"content"`
	CoverImageURL string            `json:"coverImageUrl" binding:"omitempty,url,max=1024"`
	PublishedOn   *time.Time        `json:"publishedOn"`
	TagIDs        []uint            `json:"tags"`
	MetaValue     string            `json:"metaValue"`
}

// UpdatePostRequest represents a partial post update; absent fields stay
// unchanged
type UpdatePostRequest struct {
	Title         *string            `json:"title" binding:"omitempty,min=4,max=512"`
	Slug          *string            `json:"slug" binding:"omitempty,max=256" validate:"omitempty,slug"`
	Status        *models.PostStatus `json:"status" binding:"omitempty,oneof=draft scheduled reviewed published pending"`
	Content       *string            `json:"content"`
	CoverImageURL *string            `json:"coverImageUrl" binding:"omitempty,url,max=1024"`
	PublishedOn   *time.Time         `json:"publishedOn"`
	TagIDs        []uint             `json:"tags"`
}

// CreateMetaDataRequest attaches a metadata blob to a post
type CreateMetaDataRequest struct {
	PostID    uint   `json:"postId" binding:"required"`
	MetaValue string `json:"metaValue" binding:"required,json"`
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id parameter"})
		return 0, false
	}
	return uint(id), true
}

// activeUserID resolves the numeric user ID from the request's claims
func (s *Server) activeUserID(c *gin.Context) (uint, bool) {
	claims, exists := GetActiveUser(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}

	userID, err := claims.UserID()
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}

	return userID, true
}

// @Summary List posts
// @Description List posts with pagination, optionally filtered by author
// @Tags posts
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Param authorId query int false "Filter by author"
// @Success 200 {object} pagination.Paginated[models.Post]
// @Router /posts [get]
func (s *Server) listPosts(c *gin.Context) {
	var q pagination.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := s.db.WithContext(c.Request.Context()).
		Model(&models.Post{}).
		Preload("Author").
		Preload("Tags").
		Preload("MetaData")

	if authorID := c.Query("authorId"); authorID != "" {
		id, err := strconv.ParseUint(authorID, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid authorId parameter"})
			return
		}
		query = query.Where("author_id = ?", id)
	}

	page, err := pagination.Paginate[models.Post](query, c.Request, q)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list posts")
		respondTransient(c)
		return
	}

	c.JSON(http.StatusOK, page)
}

// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} map[string]interface{}
// @Router /posts/{id} [get]
func (s *Server) getPost(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	post, err := s.postsService.FindPostByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, posts.ErrPostNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		s.logger.Error().Err(err).Uint("post_id", id).Msg("Failed to get post")
		respondTransient(c)
		return
	}

	c.JSON(http.StatusOK, post)
}

// @Summary Create a post
// @Description Create a post authored by the authenticated user
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreatePostRequest true "Post creation request"
// @Success 201 {object} models.Post
// @Failure 409 {object} map[string]interface{}
// @Router /posts [post]
func (s *Server) createPost(c *gin.Context) {
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		s.logger.Warn().Err(err).Msg("Request validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": err.Error()})
		return
	}

	authorID, ok := s.activeUserID(c)
	if !ok {
		return
	}

	post, err := s.postsService.CreatePost(c.Request.Context(), posts.CreatePostParams{
		Title:         req.Title,
		Slug:          req.Slug,
		Status:        req.Status,
		Content:       req.Content,
		CoverImageURL: req.CoverImageURL,
		PublishedOn:   req.PublishedOn,
		TagIDs:        req.TagIDs,
		MetaValue:     req.MetaValue,
	}, authorID)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrUserNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		case errors.Is(err, posts.ErrInvalidTags):
			c.JSON(http.StatusConflict, gin.H{"error": "One or more tags do not exist"})
		case errors.Is(err, posts.ErrDuplicateSlug):
			c.JSON(http.StatusConflict, gin.H{"error": "A post with that slug already exists"})
		default:
			s.logger.Error().Err(err).Msg("Failed to create post")
			respondTransient(c)
		}
		return
	}

	c.JSON(http.StatusCreated, post)
}

// @Summary Update a post
// @Description Apply a partial update to a post owned by the caller
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body UpdatePostRequest true "Post update request"
// @Success 200 {object} models.Post
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /posts/{id} [patch]
func (s *Server) updatePost(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		s.logger.Warn().Err(err).Msg("Request validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": err.Error()})
		return
	}

	actorID, ok := s.activeUserID(c)
	if !ok {
		return
	}

	post, err := s.postsService.UpdatePost(c.Request.Context(), posts.UpdatePostParams{
		ID:            id,
		Title:         req.Title,
		Slug:          req.Slug,
		Status:        req.Status,
		Content:       req.Content,
		CoverImageURL: req.CoverImageURL,
		PublishedOn:   req.PublishedOn,
		TagIDs:        req.TagIDs,
	}, actorID)
	if err != nil {
		switch {
		case errors.Is(err, posts.ErrPostNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		case errors.Is(err, posts.ErrNotPostAuthor):
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only modify your own posts"})
		case errors.Is(err, posts.ErrInvalidTags):
			c.JSON(http.StatusBadRequest, gin.H{"error": "One or more tags do not exist"})
		default:
			s.logger.Error().Err(err).Uint("post_id", id).Msg("Failed to update post")
			respondTransient(c)
		}
		return
	}

	c.JSON(http.StatusOK, post)
}

// @Summary Delete a post
// @Description Delete a post. Admins may delete any post, others only their own.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /posts/{id} [delete]
func (s *Server) deletePost(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	claims, exists := GetActiveUser(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	err := s.postsService.DeletePost(c.Request.Context(), id, claims.Email)
	if err != nil {
		switch {
		case errors.Is(err, posts.ErrPostNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		case errors.Is(err, users.ErrUserNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		case errors.Is(err, posts.ErrNotPostAuthor):
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own posts"})
		default:
			s.logger.Error().Err(err).Uint("post_id", id).Msg("Failed to delete post")
			respondTransient(c)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": id})
}

// @Summary Attach metadata to a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateMetaDataRequest true "Metadata request"
// @Success 201 {object} models.MetaData
// @Failure 409 {object} map[string]interface{}
// @Router /meta-data [post]
func (s *Server) createMetaData(c *gin.Context) {
	var req CreateMetaDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := s.postsService.FindPostByID(c.Request.Context(), req.PostID); err != nil {
		if errors.Is(err, posts.ErrPostNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		s.logger.Error().Err(err).Uint("post_id", req.PostID).Msg("Failed to check post for metadata")
		respondTransient(c)
		return
	}

	// One metadata record per post
	var existing models.MetaData
	err := s.db.WithContext(c.Request.Context()).Where("post_id = ?", req.PostID).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Post already has metadata"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error().Err(err).Uint("post_id", req.PostID).Msg("Failed to check existing metadata")
		respondTransient(c)
		return
	}

	meta := &models.MetaData{
		PostID:    req.PostID,
		MetaValue: req.MetaValue,
	}

	if err := s.db.WithContext(c.Request.Context()).Create(meta).Error; err != nil {
		s.logger.Error().Err(err).Uint("post_id", req.PostID).Msg("Failed to create metadata")
		respondTransient(c)
		return
	}

	c.JSON(http.StatusCreated, meta)
}
