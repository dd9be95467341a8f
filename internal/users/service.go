package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/storypulse-dev/storypulse/internal/google"
	"github.com/storypulse-dev/storypulse/internal/hashing"
	"github.com/storypulse-dev/storypulse/internal/models"
)

var (
	ErrEmailExists  = errors.New("the email already exists")
	ErrUserNotFound = errors.New("user not found")
)

// Service owns user account lifecycle: sign-up, lookups and the
// transactional bulk import
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "users_service").Logger(),
	}
}

// SignUpParams contains the fields accepted at registration
type SignUpParams struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	DateOfBirth *time.Time
}

// SignUp registers a new user with a hashed password. The email must not
// already be taken.
func (s *Service) SignUp(ctx context.Context, params SignUpParams) (*models.User, error) {
	// Check if a user with the provided email already exists
	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", params.Email).First(&existing).Error
	if err == nil {
		return nil, ErrEmailExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error().Err(err).Msg("Failed to check existing user")
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := hashing.Hash(params.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		return nil, err
	}

	user := &models.User{
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Email:        params.Email,
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
		DateOfBirth:  params.DateOfBirth,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		s.logger.Error().Err(err).Str("email", params.Email).Msg("Failed to create user")
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info().Uint("user_id", user.ID).Str("email", user.Email).Msg("User signed up")

	return user, nil
}

// FindOneByEmail loads a user by email
func (s *Service) FindOneByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error().Err(err).Msg("Failed to find user by email")
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// FindOneByID loads a user by ID
func (s *Service) FindOneByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := models.FindByID(s.db.WithContext(ctx), id, &user); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error().Err(err).Uint("user_id", id).Msg("Failed to find user by id")
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// FindOneByGoogleID loads a user by their Google account subject
func (s *Service) FindOneByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("google_id = ?", googleID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error().Err(err).Msg("Failed to find user by google id")
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// CreateGoogleUser creates a local account from a verified Google profile.
// Provider-authenticated accounts carry no password hash.
func (s *Service) CreateGoogleUser(ctx context.Context, profile *google.Profile) (*models.User, error) {
	googleID := profile.GoogleID
	user := &models.User{
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Email:     profile.Email,
		Role:      models.RoleUser,
		GoogleID:  &googleID,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		s.logger.Error().Err(err).Str("email", profile.Email).Msg("Failed to create google user")
		return nil, fmt.Errorf("failed to create google user: %w", err)
	}

	s.logger.Info().Uint("user_id", user.ID).Str("email", user.Email).Msg("Google user created")

	return user, nil
}

// CreateMany imports a batch of users in a single transaction. Any row
// failure rolls back the whole batch.
func (s *Service) CreateMany(ctx context.Context, batch []SignUpParams) ([]models.User, error) {
	users := make([]models.User, 0, len(batch))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, params := range batch {
			passwordHash, err := hashing.Hash(params.Password)
			if err != nil {
				return err
			}

			user := models.User{
				FirstName:    params.FirstName,
				LastName:     params.LastName,
				Email:        params.Email,
				PasswordHash: passwordHash,
				Role:         models.RoleUser,
				DateOfBirth:  params.DateOfBirth,
			}

			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("failed to create user %s: %w", params.Email, err)
			}
			users = append(users, user)
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("Bulk user creation rolled back")
		return nil, err
	}

	s.logger.Info().Int("count", len(users)).Msg("Users created in bulk")

	return users, nil
}
