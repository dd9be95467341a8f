package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// HTTP Configuration
	HTTP HTTPConfig

	// Database Configuration
	Database DatabaseConfig

	// JWT Configuration
	JWT JWTConfig

	// Google OAuth Configuration
	Google GoogleConfig

	// Logging Configuration
	Logging LoggingConfig
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Address string // Listen address (host:port)
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// JWTConfig holds token signing configuration
type JWTConfig struct {
	Secret          string
	Audience        string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// GoogleConfig holds Google OAuth client configuration
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	httpAddr := os.Getenv("HTTP_ADDRESS")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	// Database URL - default to local sqlite file, allow override for dev
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "storypulse.sqlite"
	}

	// JWT secret is the only setting without a usable default
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	jwtAudience := os.Getenv("JWT_TOKEN_AUDIENCE")
	if jwtAudience == "" {
		jwtAudience = "localhost:8080"
	}

	jwtIssuer := os.Getenv("JWT_TOKEN_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "localhost:8080"
	}

	accessTTL, err := parseSeconds("JWT_ACCESS_TOKEN_TTL", 3600)
	if err != nil {
		return nil, err
	}

	refreshTTL, err := parseSeconds("JWT_REFRESH_TOKEN_TTL", 86400)
	if err != nil {
		return nil, err
	}

	// Logging configuration - defaults suitable for production
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}

	return &Config{
		HTTP: HTTPConfig{
			Address: httpAddr,
		},
		Database: DatabaseConfig{
			URL: dbURL,
		},
		JWT: JWTConfig{
			Secret:          jwtSecret,
			Audience:        jwtAudience,
			Issuer:          jwtIssuer,
			AccessTokenTTL:  accessTTL,
			RefreshTokenTTL: refreshTTL,
		},
		Google: GoogleConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		},
		Logging: LoggingConfig{
			Level:  logLevel,
			Format: logFormat,
		},
	}, nil
}

// parseSeconds reads an env var holding a TTL in seconds
func parseSeconds(key string, fallback int) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(fallback) * time.Second, nil
	}

	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0, fmt.Errorf("%s must be a positive number of seconds, got %q", key, raw)
	}

	return time.Duration(seconds) * time.Second, nil
}
