package server

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/storypulse-dev/storypulse/internal/auth"
	"github.com/storypulse-dev/storypulse/internal/models"
	"github.com/storypulse-dev/storypulse/internal/users"
)

// AuthType selects an authentication strategy for a route
type AuthType string

const (
	// AuthTypeBearer requires a valid JWT in the Authorization header
	AuthTypeBearer AuthType = "bearer"
	// AuthTypeNone accepts unauthenticated requests
	AuthTypeNone AuthType = "none"
)

// RouteAuth is the authorization descriptor attached to a route at
// registration time. An empty Types slice defaults to bearer; an empty
// Roles slice means no role restriction.
type RouteAuth struct {
	Types []AuthType
	Roles []models.UserRole
}

const (
	bearerPrefix     = "Bearer "
	activeUserKey    = "activeUser"
	defaultAuthTypes = AuthTypeBearer
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
	ErrNoActiveUser      = errors.New("no authenticated user on request")
)

func setActiveUser(c *gin.Context, claims *auth.Claims) {
	c.Set(activeUserKey, claims)
}

// GetActiveUser returns the verified token claims attached to the request
// by the authentication guard
func GetActiveUser(c *gin.Context) (*auth.Claims, bool) {
	value, exists := c.Get(activeUserKey)
	if !exists {
		return nil, false
	}

	claims, ok := value.(*auth.Claims)
	return claims, ok
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

func routeKey(c *gin.Context) string {
	return c.Request.Method + " " + c.FullPath()
}

// authenticationGuard resolves the route's declared auth types and tries
// each strategy in order. The first strategy that allows access wins; a
// strategy that errors counts as "did not allow" so siblings still get
// tried. If none allow, the request is rejected with 401.
func (s *Server) authenticationGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		ra, registered := s.routeAuth[routeKey(c)]
		if !registered && c.FullPath() == "" {
			// Unmatched route; let gin produce the 404
			c.Next()
			return
		}

		types := ra.Types
		if len(types) == 0 {
			types = []AuthType{defaultAuthTypes}
		}

		for _, authType := range types {
			claims, allowed := s.tryAuthType(c, authType)
			if allowed {
				if claims != nil {
					setActiveUser(c, claims)
				}
				c.Next()
				return
			}
		}

		respondWithError(c, s.logger, http.StatusUnauthorized, auth.ErrInvalidToken, "Unauthorized")
	}
}

// tryAuthType evaluates a single strategy. Failures are reported, not
// propagated.
func (s *Server) tryAuthType(c *gin.Context, authType AuthType) (*auth.Claims, bool) {
	switch authType {
	case AuthTypeNone:
		return nil, true

	case AuthTypeBearer:
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			return nil, false
		}

		claims, err := s.issuer.Verify(token)
		if err != nil {
			s.logger.Debug().Err(err).Msg("Bearer token verification failed")
			return nil, false
		}

		return claims, true

	default:
		s.logger.Warn().Str("auth_type", string(authType)).Msg("Unknown auth type on route")
		return nil, false
	}
}

// rolesGuard enforces the route's role requirement. Routes without
// declared roles pass through; otherwise the full user record is loaded
// by the email in the attached claims and its role compared against the
// allowed set. Insufficient role is an explicit 403.
func (s *Server) rolesGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		ra := s.routeAuth[routeKey(c)]
		if len(ra.Roles) == 0 {
			c.Next()
			return
		}

		claims, exists := GetActiveUser(c)
		if !exists {
			respondWithError(c, s.logger, http.StatusUnauthorized, ErrNoActiveUser, "Unauthorized")
			return
		}

		user, err := s.usersService.FindOneByEmail(c.Request.Context(), claims.Email)
		if err != nil {
			if errors.Is(err, users.ErrUserNotFound) {
				respondWithError(c, s.logger, http.StatusUnauthorized, err, "Unauthorized")
				return
			}
			s.logger.Error().Err(err).Msg("Failed to load user for role check")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Unable to process your request at the moment, please try later"})
			c.Abort()
			return
		}

		if !slices.Contains(ra.Roles, user.Role) {
			respondWithError(c, s.logger, http.StatusForbidden, errors.New("insufficient role"), "Insufficient role")
			return
		}

		c.Next()
	}
}
