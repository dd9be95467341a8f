package google

import (
	"context"
	"errors"

	"google.golang.org/api/idtoken"
)

// Profile is the identity extracted from a verified Google ID token
type Profile struct {
	Email     string
	GoogleID  string
	FirstName string
	LastName  string
}

// Verifier validates Google ID tokens against the configured OAuth client
type Verifier struct {
	clientID     string
	clientSecret string
}

// NewVerifier creates a verifier for the given OAuth client credentials
func NewVerifier(clientID, clientSecret string) *Verifier {
	return &Verifier{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// VerifyIDToken validates the token with Google's public keys and returns
// the profile it asserts. Verification talks to Google's JWKS endpoint,
// so network failures surface here as verification errors.
func (v *Verifier) VerifyIDToken(ctx context.Context, idTok string) (*Profile, error) {
	if v.clientID == "" {
		return nil, errors.New("google client id not configured")
	}

	payload, err := idtoken.Validate(ctx, idTok, v.clientID)
	if err != nil {
		return nil, err
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, errors.New("email not present in id token")
	}
	if payload.Subject == "" {
		return nil, errors.New("subject not present in id token")
	}

	firstName, _ := payload.Claims["given_name"].(string)
	lastName, _ := payload.Claims["family_name"].(string)

	return &Profile{
		Email:     email,
		GoogleID:  payload.Subject,
		FirstName: firstName,
		LastName:  lastName,
	}, nil
}
