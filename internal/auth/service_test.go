package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storypulse-dev/storypulse/internal/google"
	"github.com/storypulse-dev/storypulse/internal/models"
	"github.com/storypulse-dev/storypulse/internal/users"
)

// fakeVerifier stands in for Google's token verification endpoint
type fakeVerifier struct {
	profile *google.Profile
	err     error
}

func (f *fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*google.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func newTestAuth(t *testing.T, verifier GoogleVerifier) (*Service, *users.Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.AutoMigrate(db))

	usersService := users.NewService(db, zerolog.Nop())
	issuer := NewTokenIssuer(testJWTConfig())
	return NewService(db, issuer, usersService, verifier, zerolog.Nop()), usersService
}

func TestSignIn(t *testing.T) {
	svc, usersService := newTestAuth(t, &fakeVerifier{})
	ctx := context.Background()

	_, err := usersService.SignUp(ctx, users.SignUpParams{
		FirstName: "Jane",
		Email:     "jane@example.com",
		Password:  "password1234",
	})
	require.NoError(t, err)

	pair, err := svc.SignIn(ctx, "jane@example.com", "password1234")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := svc.issuer.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", claims.Email)
}

func TestSignInRejections(t *testing.T) {
	svc, usersService := newTestAuth(t, &fakeVerifier{})
	ctx := context.Background()

	_, err := usersService.SignUp(ctx, users.SignUpParams{
		FirstName: "Jane",
		Email:     "jane@example.com",
		Password:  "password1234",
	})
	require.NoError(t, err)

	// Wrong password and unknown email produce the same error
	_, err = svc.SignIn(ctx, "jane@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SignIn(ctx, "nobody@example.com", "password1234")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshTokens(t *testing.T) {
	svc, usersService := newTestAuth(t, &fakeVerifier{})
	ctx := context.Background()

	user, err := usersService.SignUp(ctx, users.SignUpParams{
		FirstName: "Jane",
		Email:     "jane@example.com",
		Password:  "password1234",
	})
	require.NoError(t, err)

	pair, err := svc.issuer.IssuePair(user)
	require.NoError(t, err)

	fresh, err := svc.RefreshTokens(ctx, pair.RefreshToken)
	require.NoError(t, err)

	claims, err := svc.issuer.Verify(fresh.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", claims.Email)

	// An access token is also a structurally valid refresh token here;
	// garbage is not
	_, err = svc.RefreshTokens(ctx, "garbage")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokensVanishedSubject(t *testing.T) {
	svc, usersService := newTestAuth(t, &fakeVerifier{})
	ctx := context.Background()

	user, err := usersService.SignUp(ctx, users.SignUpParams{
		FirstName: "Jane",
		Email:     "jane@example.com",
		Password:  "password1234",
	})
	require.NoError(t, err)

	pair, err := svc.issuer.IssuePair(user)
	require.NoError(t, err)

	require.NoError(t, svc.db.Delete(&models.User{}, user.ID).Error)

	_, err = svc.RefreshTokens(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestGoogleAuthenticationCreatesThenReuses(t *testing.T) {
	verifier := &fakeVerifier{profile: &google.Profile{
		Email:     "gmail-user@example.com",
		GoogleID:  "google-subject-123",
		FirstName: "G",
		LastName:  "User",
	}}
	svc, usersService := newTestAuth(t, verifier)
	ctx := context.Background()

	// First call creates the account
	pair, err := svc.GoogleAuthentication(ctx, "some-id-token")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)

	created, err := usersService.FindOneByGoogleID(ctx, "google-subject-123")
	require.NoError(t, err)

	// Second call reuses it
	_, err = svc.GoogleAuthentication(ctx, "some-id-token")
	require.NoError(t, err)

	again, err := usersService.FindOneByGoogleID(ctx, "google-subject-123")
	require.NoError(t, err)
	require.Equal(t, created.ID, again.ID)
}

func TestGoogleAuthenticationEmailTakenByLocalAccount(t *testing.T) {
	verifier := &fakeVerifier{profile: &google.Profile{
		Email:    "jane@example.com",
		GoogleID: "google-subject-123",
	}}
	svc, usersService := newTestAuth(t, verifier)
	ctx := context.Background()

	_, err := usersService.SignUp(ctx, users.SignUpParams{
		FirstName: "Jane",
		Email:     "jane@example.com",
		Password:  "password1234",
	})
	require.NoError(t, err)

	// The unique email index rejects the account creation; the caller
	// sees the same auth failure as for a bad token
	_, err = svc.GoogleAuthentication(ctx, "some-id-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestGoogleAuthenticationVerificationFailure(t *testing.T) {
	verifier := &fakeVerifier{err: errors.New("token used too late")}
	svc, _ := newTestAuth(t, verifier)

	_, err := svc.GoogleAuthentication(context.Background(), "stale-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestForgotPassword(t *testing.T) {
	svc, usersService := newTestAuth(t, &fakeVerifier{})
	ctx := context.Background()

	user, err := usersService.SignUp(ctx, users.SignUpParams{
		FirstName: "Jane",
		Email:     "jane@example.com",
		Password:  "password1234",
	})
	require.NoError(t, err)

	reset, err := svc.ForgotPassword(ctx, "jane@example.com")
	require.NoError(t, err)
	require.Len(t, reset.Token, 26)
	require.Equal(t, user.ID, reset.UserID)
	require.False(t, reset.ExpiresAt.IsZero())

	_, err = svc.ForgotPassword(ctx, "nobody@example.com")
	require.ErrorIs(t, err, users.ErrUserNotFound)
}
