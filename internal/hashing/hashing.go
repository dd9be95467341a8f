package hashing

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is fixed; raising it invalidates no stored hashes but slows
// every sign-in, so treat changes as a deliberate migration.
const bcryptCost = 10

// ErrMismatch indicates the password does not match the stored hash.
// Any other error from Compare is an infrastructure failure.
var ErrMismatch = errors.New("password does not match")

// Hash returns the bcrypt digest of a plaintext password
func Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Compare checks a plaintext password against a stored bcrypt digest
func Compare(password, digest string) error {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	// Malformed digest (e.g. a Google-created account with no local
	// password) or other bcrypt failure
	return fmt.Errorf("failed to compare password: %w", err)
}
