// ABOUTME: Unit tests for JWT token verification and generation
// ABOUTME: Tests valid tokens, invalid tokens, expired tokens, and weak secrets

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret-key-for-jwt-signing!")

func newTestVerifier(t *testing.T) *JWTVerifier {
	t.Helper()
	v, err := NewJWTVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewJWTVerifier() error = %v", err)
	}
	return v
}

func TestNewJWTVerifier_WeakSecret(t *testing.T) {
	_, err := NewJWTVerifier([]byte("short"))
	if !errors.Is(err, ErrWeakSecret) {
		t.Errorf("NewJWTVerifier() error = %v, want ErrWeakSecret", err)
	}
}

func TestJWTVerifier_ValidToken(t *testing.T) {
	verifier := newTestVerifier(t)

	token, err := verifier.Generate("alice", "alice@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	id, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if id.UserID != "alice" {
		t.Errorf("Verify().UserID = %q, want %q", id.UserID, "alice")
	}
	if id.Email != "alice@example.com" {
		t.Errorf("Verify().Email = %q, want %q", id.Email, "alice@example.com")
	}
}

func TestJWTVerifier_InvalidToken(t *testing.T) {
	verifier := newTestVerifier(t)

	otherSecret := []byte("a-completely-different-secret-32")

	tests := []struct {
		name  string
		token func() string
	}{
		{
			name:  "empty token",
			token: func() string { return "" },
		},
		{
			name:  "garbage token",
			token: func() string { return "not-a-jwt-token" },
		},
		{
			name:  "malformed JWT",
			token: func() string { return "header.payload.signature" },
		},
		{
			name: "wrong secret",
			token: func() string {
				other, _ := NewJWTVerifier(otherSecret)
				token, _ := other.Generate("alice", "", time.Hour)
				return token
			},
		},
		{
			name: "wrong issuer",
			token: func() string {
				claims := jwt.RegisteredClaims{
					Subject:   "alice",
					Issuer:    "someone-else",
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				}
				token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
				return token
			},
		},
		{
			name: "no expiry",
			token: func() string {
				claims := jwt.RegisteredClaims{Subject: "alice", Issuer: Issuer}
				token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
				return token
			},
		},
		{
			name: "different algorithm",
			token: func() string {
				claims := jwt.RegisteredClaims{
					Subject:   "alice",
					Issuer:    Issuer,
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				}
				token, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
				return token
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(tt.token())
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestJWTVerifier_MissingSubject(t *testing.T) {
	verifier := newTestVerifier(t)

	claims := jwt.RegisteredClaims{
		Issuer:    Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	_, err = verifier.Verify(token)
	if !errors.Is(err, ErrMissingClaim) {
		t.Errorf("Verify() error = %v, want ErrMissingClaim", err)
	}
}

func TestJWTVerifier_ExpiredToken(t *testing.T) {
	verifier := newTestVerifier(t)

	// Generate a token that expired 1 hour ago
	token, err := verifier.Generate("alice", "", -time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	_, err = verifier.Verify(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Verify() error = %v, want ErrExpiredToken", err)
	}
}

func TestJWTVerifier_Generate_RequiresUser(t *testing.T) {
	verifier := newTestVerifier(t)

	if _, err := verifier.Generate("", "", time.Hour); !errors.Is(err, ErrMissingClaim) {
		t.Errorf("Generate() error = %v, want ErrMissingClaim", err)
	}
}

func TestJWTVerifier_DifferentUsers(t *testing.T) {
	verifier := newTestVerifier(t)

	for _, userID := range []string{"user-1", "user-2", "user-3"} {
		token, err := verifier.Generate(userID, "", time.Hour)
		if err != nil {
			t.Fatalf("Generate(%q) error = %v", userID, err)
		}

		id, err := verifier.Verify(token)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}

		if id.UserID != userID {
			t.Errorf("Verify() = %q, want %q", id.UserID, userID)
		}
	}
}
