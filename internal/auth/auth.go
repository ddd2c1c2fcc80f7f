package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Identity is the authenticated principal attached to a session.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ErrInvalidCredentials is returned for any unknown user or wrong
// secret; callers must not distinguish the two.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Verifier checks a username/secret pair. The pipeline core never
// depends on this; it is injected at the HTTP edge only.
type Verifier interface {
	Verify(username, secret string) (Identity, error)
}

// EnvVerifier verifies against a single credential configured through
// the environment (bcrypt hash). A stand-in for a real user store.
type EnvVerifier struct {
	Username     string
	PasswordHash string // bcrypt
	DisplayName  string
}

func NewEnvVerifier(username, passwordHash string) *EnvVerifier {
	return &EnvVerifier{Username: username, PasswordHash: passwordHash, DisplayName: username}
}

func (v *EnvVerifier) Verify(username, secret string) (Identity, error) {
	if v.Username == "" || v.PasswordHash == "" {
		return Identity{}, ErrInvalidCredentials
	}
	if username != v.Username {
		return Identity{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(v.PasswordHash), []byte(secret)); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{ID: "1", Name: v.DisplayName}, nil
}
