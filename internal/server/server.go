// Package server
//
// @title StoryPulse API
// @version 1.0
// @description Blog platform API
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/storypulse-dev/storypulse/internal/auth"
	"github.com/storypulse-dev/storypulse/internal/config"
	"github.com/storypulse-dev/storypulse/internal/google"
	"github.com/storypulse-dev/storypulse/internal/models"
	"github.com/storypulse-dev/storypulse/internal/posts"
	"github.com/storypulse-dev/storypulse/internal/tags"
	"github.com/storypulse-dev/storypulse/internal/users"
)

// Server represents the HTTP server
type Server struct {
	router       *gin.Engine
	db           *gorm.DB
	config       *config.Config
	logger       zerolog.Logger
	validator    *validator.Validate
	issuer       *auth.TokenIssuer
	authService  *auth.Service
	usersService *users.Service
	postsService *posts.Service
	tagsService  *tags.Service
	routeAuth    map[string]RouteAuth
	version      string
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	// Initialize database with production settings
	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}

	// Initialize validator
	validate := validator.New()

	// Register custom validators
	validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})

	// Token issuer and auth flows
	issuer := auth.NewTokenIssuer(cfg.JWT)
	verifier := google.NewVerifier(cfg.Google.ClientID, cfg.Google.ClientSecret)

	usersService := users.NewService(db, zlog)
	tagsService := tags.NewService(db, zlog)
	postsService := posts.NewService(db, usersService, tagsService, zlog)
	authService := auth.NewService(db, issuer, usersService, verifier, zlog)

	// Create server
	server := &Server{
		db:           db,
		config:       cfg,
		logger:       zlog,
		validator:    validate,
		issuer:       issuer,
		authService:  authService,
		usersService: usersService,
		postsService: postsService,
		tagsService:  tagsService,
		routeAuth:    make(map[string]RouteAuth),
		version:      version,
	}

	// Setup router
	server.setupRouter()

	return server, nil
}

// initDatabase initializes the database connection with production settings
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 8    // Reduced for SQLite efficiency
		maxIdleConns    = 4    // Reduced proportionally
		connMaxLifetime = 300  // 5 minutes
		busyTimeout     = 5000 // 5 seconds
	)

	// Open database connection
	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool settings
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Apply SQLite pragmas directly (connection string pragmas may not work with all drivers)
	// WAL mode must be set first for optimal concurrency
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=1",
		"PRAGMA temp_store=2",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// handle registers a route together with its authorization descriptor.
// The guards consult the descriptor by method+path on every request.
func (s *Server) handle(method, path string, ra RouteAuth, handler gin.HandlerFunc) {
	s.routeAuth[method+" "+path] = ra
	s.router.Handle(method, path, handler)
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	// Set Gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	// Add middleware
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// CORS middleware
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Guard chain: authentication first, then role checks
	s.router.Use(s.authenticationGuard())
	s.router.Use(s.rolesGuard())

	public := RouteAuth{Types: []AuthType{AuthTypeNone}}
	adminOnly := RouteAuth{Roles: []models.UserRole{models.RoleAdmin}}

	// Health check endpoint (no auth required)
	s.handle(http.MethodGet, "/health", public, s.healthCheck)

	// Auth endpoints
	s.handle(http.MethodPost, "/auth/sign-up", public, s.signUp)
	s.handle(http.MethodPost, "/auth/sign-in", public, s.signIn)
	s.handle(http.MethodPost, "/auth/refresh-tokens", public, s.refreshTokens)
	s.handle(http.MethodPost, "/auth/google-authentication", public, s.googleAuthentication)
	s.handle(http.MethodPost, "/auth/forgot-password", public, s.forgotPassword)
	s.handle(http.MethodGet, "/auth/me", RouteAuth{}, s.getCurrentUser)

	// Posts: reads are public, mutations need a bearer token
	s.handle(http.MethodGet, "/posts", public, s.listPosts)
	s.handle(http.MethodGet, "/posts/:id", public, s.getPost)
	s.handle(http.MethodPost, "/posts", RouteAuth{}, s.createPost)
	s.handle(http.MethodPatch, "/posts/:id", RouteAuth{}, s.updatePost)
	s.handle(http.MethodDelete, "/posts/:id", RouteAuth{}, s.deletePost)

	// Post metadata
	s.handle(http.MethodPost, "/meta-data", RouteAuth{}, s.createMetaData)

	// Tags
	s.handle(http.MethodGet, "/tags", public, s.listTags)
	s.handle(http.MethodPost, "/tags", RouteAuth{}, s.createTag)
	s.handle(http.MethodPatch, "/tags/:id", RouteAuth{}, s.updateTag)
	s.handle(http.MethodDelete, "/tags/:id", adminOnly, s.deleteTag)

	// Users
	s.handle(http.MethodGet, "/users", RouteAuth{Roles: []models.UserRole{models.RoleAdmin, models.RoleModerator}}, s.listUsers)
	s.handle(http.MethodGet, "/users/:id", RouteAuth{}, s.getUser)
	s.handle(http.MethodPost, "/users/create-many", adminOnly, s.createManyUsers)
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "storypulse-api",
	})
}

// GetDB returns the database connection for use by background workers
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Start starts the HTTP server
func (s *Server) Start() error {
	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Create HTTP server with production timeouts
	srv := &http.Server{
		Addr:              s.config.HTTP.Address,
		Handler:           s.router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       300 * time.Second,
	}

	// Start server in goroutine
	go func() {
		s.logger.Info().Str("address", s.config.HTTP.Address).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	s.logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.logger.Info().Msg("Server shutdown complete")

	// Close database connection to flush WAL writes
	if sqlDB, err := s.db.DB(); err == nil {
		s.logger.Info().Msg("Closing database connection...")
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		} else {
			s.logger.Info().Msg("Database closed successfully")
		}
	}

	return nil
}
