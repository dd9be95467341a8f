package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/storypulse-dev/storypulse/internal/config"
	"github.com/storypulse-dev/storypulse/internal/models"
)

// ErrInvalidToken covers every verification failure: bad signature,
// expiry, wrong audience or issuer. Callers map it to 401.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the decoded payload of a signed token. The subject is the
// user ID; the email claim is only present on access tokens.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the token subject back into a user ID
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed subject %q", ErrInvalidToken, c.Subject)
	}
	return uint(id), nil
}

// TokenPair is the access/refresh token set returned by every sign-in,
// refresh and Google authentication call
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenIssuer signs and verifies JWT tokens. Access and refresh tokens
// share the secret, audience and issuer and differ only in TTL and the
// email claim. Nothing is persisted server-side, so a leaked token stays
// valid until its natural expiry.
type TokenIssuer struct {
	secret     []byte
	audience   string
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenIssuer creates a token issuer from the JWT configuration
func NewTokenIssuer(cfg config.JWTConfig) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(cfg.Secret),
		audience:   cfg.Audience,
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}
}

// Issue signs a token for the given user ID. The email claim is omitted
// when empty, which is how refresh tokens are minted.
func (t *TokenIssuer) Issue(userID uint, ttl time.Duration, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Audience:  jwt.ClaimStrings{t.audience},
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// IssuePair generates the access/refresh token pair for a user. The
// access token carries the email claim; the refresh token carries only
// the subject.
func (t *TokenIssuer) IssuePair(user *models.User) (*TokenPair, error) {
	accessToken, err := t.Issue(user.ID, t.accessTTL, user.Email)
	if err != nil {
		return nil, err
	}

	refreshToken, err := t.Issue(user.ID, t.refreshTTL, "")
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Verify validates a token's signature, expiry, audience and issuer and
// returns its claims
func (t *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithAudience(t.audience), jwt.WithIssuer(t.issuer))

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
