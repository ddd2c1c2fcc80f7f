package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func hashOf(t *testing.T, secret string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

func TestEnvVerifier(t *testing.T) {
	v := NewEnvVerifier("admin", hashOf(t, "s3cret"))

	id, err := v.Verify("admin", "s3cret")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Name != "admin" || id.ID == "" {
		t.Errorf("identity = %+v", id)
	}

	cases := []struct {
		name, user, secret string
	}{
		{"wrong password", "admin", "nope"},
		{"unknown user", "root", "s3cret"},
		{"empty secret", "admin", ""},
	}
	for _, c := range cases {
		if _, err := v.Verify(c.user, c.secret); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%s: err = %v, want ErrInvalidCredentials", c.name, err)
		}
	}
}

func TestEnvVerifierUnconfiguredRejectsEverything(t *testing.T) {
	v := NewEnvVerifier("", "")
	if _, err := v.Verify("", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}
