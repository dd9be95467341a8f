package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/storypulse-dev/storypulse/internal/google"
	"github.com/storypulse-dev/storypulse/internal/hashing"
	"github.com/storypulse-dev/storypulse/internal/models"
	"github.com/storypulse-dev/storypulse/internal/users"
)

// ErrInvalidCredentials covers unknown email and wrong password alike so
// responses do not distinguish the two
var ErrInvalidCredentials = errors.New("invalid email or password")

// resetTokenTTL bounds how long a forgot-password token stays redeemable
const resetTokenTTL = time.Hour

// GoogleVerifier validates a Google ID token and returns the identity it
// asserts
type GoogleVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*google.Profile, error)
}

// Service implements the sign-in, refresh, Google authentication and
// forgot-password flows. All of them end in the token issuer minting a
// fresh pair.
type Service struct {
	db     *gorm.DB
	issuer *TokenIssuer
	users  *users.Service
	google GoogleVerifier
	logger zerolog.Logger
}

func NewService(db *gorm.DB, issuer *TokenIssuer, usersService *users.Service, verifier GoogleVerifier, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		issuer: issuer,
		users:  usersService,
		google: verifier,
		logger: logger.With().Str("component", "auth_service").Logger(),
	}
}

// SignIn verifies an email/password pair and issues a token pair
func (s *Service) SignIn(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.users.FindOneByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := hashing.Compare(password, user.PasswordHash); err != nil {
		if errors.Is(err, hashing.ErrMismatch) {
			return nil, ErrInvalidCredentials
		}
		// Comparison itself failed; distinct from a wrong password
		s.logger.Error().Err(err).Uint("user_id", user.ID).Msg("Password comparison failed")
		return nil, fmt.Errorf("could not compare passwords: %w", err)
	}

	s.logger.Info().Uint("user_id", user.ID).Str("email", user.Email).Msg("User signed in")

	return s.issuer.IssuePair(user)
}

// RefreshTokens verifies a refresh token, reloads its subject and issues
// a fresh pair. The presented refresh token stays valid until its own
// expiry; there is no rotation.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.issuer.Verify(refreshToken)
	if err != nil {
		return nil, err
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindOneByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: subject no longer exists", ErrInvalidToken)
		}
		return nil, err
	}

	return s.issuer.IssuePair(user)
}

// GoogleAuthentication verifies a Google ID token, finds or creates the
// local account for that identity and issues a token pair. Repeat calls
// with the same identity reuse the existing account.
func (s *Service) GoogleAuthentication(ctx context.Context, idToken string) (*TokenPair, error) {
	profile, err := s.google.VerifyIDToken(ctx, idToken)
	if err != nil {
		// Any verification failure, network included, is an auth failure
		s.logger.Warn().Err(err).Msg("Google id token verification failed")
		return nil, fmt.Errorf("%w: google verification failed", ErrInvalidToken)
	}

	user, err := s.users.FindOneByGoogleID(ctx, profile.GoogleID)
	if err == nil {
		return s.issuer.IssuePair(user)
	}
	if !errors.Is(err, users.ErrUserNotFound) {
		s.logger.Error().Err(err).Msg("Google account lookup failed")
		return nil, fmt.Errorf("%w: google authentication failed", ErrInvalidToken)
	}

	newUser, err := s.users.CreateGoogleUser(ctx, profile)
	if err != nil {
		// Creation can fail when the Google email is already registered
		// to a password account. Any failure here collapses into the same
		// auth failure the caller sees for a bad token.
		s.logger.Warn().Err(err).Str("email", profile.Email).Msg("Could not create account for google identity")
		return nil, fmt.Errorf("%w: google authentication failed", ErrInvalidToken)
	}

	return s.issuer.IssuePair(newUser)
}

// ForgotPassword mints a single-use reset token for the account with the
// given email. Delivery happens out of band; the token is persisted with
// a short TTL.
func (s *Service) ForgotPassword(ctx context.Context, email string) (*models.PasswordReset, error) {
	user, err := s.users.FindOneByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	reset := &models.PasswordReset{
		Token:     ulid.Make().String(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}

	if err := s.db.WithContext(ctx).Create(reset).Error; err != nil {
		s.logger.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to create password reset")
		return nil, fmt.Errorf("failed to create password reset: %w", err)
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("Password reset token issued")

	return reset, nil
}
