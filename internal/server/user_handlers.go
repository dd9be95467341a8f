package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storypulse-dev/storypulse/internal/models"
	"github.com/storypulse-dev/storypulse/internal/pagination"
	"github.com/storypulse-dev/storypulse/internal/users"
)

// CreateManyUsersRequest is a batch of registrations imported in a single
// transaction
type CreateManyUsersRequest struct {
	Users []SignUpRequest `json:"users" binding:"required,min=1,dive"`
}

// @Summary Get a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} map[string]interface{}
// @Router /users/{id} [get]
func (s *Server) getUser(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	user, err := s.usersService.FindOneByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		s.logger.Error().Err(err).Uint("user_id", id).Msg("Failed to get user")
		respondTransient(c)
		return
	}

	c.JSON(http.StatusOK, user)
}

// @Summary List users
// @Description List users with pagination. Admin and moderator only.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} pagination.Paginated[models.User]
// @Failure 403 {object} map[string]interface{}
// @Router /users [get]
func (s *Server) listUsers(c *gin.Context) {
	var q pagination.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := s.db.WithContext(c.Request.Context()).Model(&models.User{})

	page, err := pagination.Paginate[models.User](query, c.Request, q)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list users")
		respondTransient(c)
		return
	}

	c.JSON(http.StatusOK, page)
}

// @Summary Create many users
// @Description Import a batch of users in one transaction. Admin only. Any
// @Description failure rolls back the whole batch.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateManyUsersRequest true "Batch of users"
// @Success 201 {array} models.User
// @Failure 409 {object} map[string]interface{}
// @Router /users/create-many [post]
func (s *Server) createManyUsers(c *gin.Context) {
	var req CreateManyUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batch := make([]users.SignUpParams, 0, len(req.Users))
	for _, u := range req.Users {
		batch = append(batch, users.SignUpParams{
			FirstName:   u.FirstName,
			LastName:    u.LastName,
			Email:       u.Email,
			Password:    u.Password,
			DateOfBirth: u.DateOfBirth,
		})
	}

	created, err := s.usersService.CreateMany(c.Request.Context(), batch)
	if err != nil {
		s.logger.Warn().Err(err).Int("batch_size", len(batch)).Msg("Bulk user creation failed")
		c.JSON(http.StatusConflict, gin.H{"error": "Could not create users, the batch was rolled back"})
		return
	}

	c.JSON(http.StatusCreated, created)
}
