package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storypulse-dev/storypulse/internal/auth"
	"github.com/storypulse-dev/storypulse/internal/users"
)

// SignUpRequest represents a registration request
type SignUpRequest struct {
	FirstName   string     `json:"firstName" binding:"required,max=20"`
	LastName    string     `json:"lastName" binding:"omitempty,max=20"`
	Email       string     `json:"email" binding:"required,email,max=64"`
	Password    string     `json:"password" binding:"required,min=8,max=96"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
}

// SignInRequest represents a credential sign-in request
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokensRequest carries the refresh token to exchange for a new pair
type RefreshTokensRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// GoogleTokenRequest carries the Google ID token obtained by the client
type GoogleTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// ForgotPasswordRequest carries the account email to reset
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// respondTransient reports a failed infrastructure call as retryable
func respondTransient(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Unable to process your request at the moment, please try later"})
}

// @Summary Sign up
// @Description Register a new user with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignUpRequest true "Registration request"
// @Success 201 {object} models.User
// @Failure 400 {object} map[string]interface{}
// @Router /auth/sign-up [post]
func (s *Server) signUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.usersService.SignUp(c.Request.Context(), users.SignUpParams{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		DateOfBirth: req.DateOfBirth,
	})
	if err != nil {
		if errors.Is(err, users.ErrEmailExists) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "The email already exists, please check your email"})
			return
		}
		s.logger.Error().Err(err).Msg("Sign-up failed")
		respondTransient(c)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// @Summary Sign in
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignInRequest true "Sign-in request"
// @Success 200 {object} auth.TokenPair
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /auth/sign-in [post]
func (s *Server) signIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pair, err := s.authService.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		s.logger.Error().Err(err).Msg("Sign-in failed")
		respondTransient(c)
		return
	}

	c.JSON(http.StatusOK, pair)
}

// @Summary Refresh tokens
// @Description Exchange a refresh token for a new access/refresh pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshTokensRequest true "Refresh request"
// @Success 200 {object} auth.TokenPair
// @Failure 401 {object} map[string]interface{}
// @Router /auth/refresh-tokens [post]
func (s *Server) refreshTokens(c *gin.Context) {
	var req RefreshTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pair, err := s.authService.RefreshTokens(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
			return
		}
		s.logger.Error().Err(err).Msg("Token refresh failed")
		respondTransient(c)
		return
	}

	c.JSON(http.StatusOK, pair)
}

// @Summary Google authentication
// @Description Authenticate with a Google ID token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body GoogleTokenRequest true "Google token request"
// @Success 200 {object} auth.TokenPair
// @Failure 401 {object} map[string]interface{}
// @Router /auth/google-authentication [post]
func (s *Server) googleAuthentication(c *gin.Context) {
	var req GoogleTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pair, err := s.authService.GoogleAuthentication(c.Request.Context(), req.Token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Google authentication failed"})
			return
		}
		s.logger.Error().Err(err).Msg("Google authentication failed")
		respondTransient(c)
		return
	}

	c.JSON(http.StatusOK, pair)
}

// @Summary Forgot password
// @Description Issue a password reset token for the given email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Forgot password request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /auth/forgot-password [post]
func (s *Server) forgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, err := s.authService.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "There is no user with that email"})
			return
		}
		s.logger.Error().Err(err).Msg("Forgot-password failed")
		respondTransient(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset token issued"})
}

// @Summary Get current user
// @Description Get information about the currently authenticated user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} map[string]interface{}
// @Router /auth/me [get]
func (s *Server) getCurrentUser(c *gin.Context) {
	claims, exists := GetActiveUser(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := s.usersService.FindOneByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to load current user")
		respondTransient(c)
		return
	}

	c.JSON(http.StatusOK, user)
}
