package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-must-be-at-least-32-characters-long"

func TestNewJWTManager_ShortSecret(t *testing.T) {
	if _, err := NewJWTManager("short", "", 0); !errors.Is(err, ErrShortSecret) {
		t.Fatalf("NewJWTManager() error = %v, want %v", err, ErrShortSecret)
	}
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m, err := NewJWTManager(testSecret, "", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}

	token, err := m.GenerateToken("agent-7", 0)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := m.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != "agent-7" {
		t.Errorf("Subject = %q, want agent-7", claims.Subject)
	}
	if claims.Issuer != DefaultIssuer {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, DefaultIssuer)
	}
	if d := claims.ExpiresAt.Sub(claims.IssuedAt); d != time.Hour {
		t.Errorf("lifetime = %v, want 1h", d)
	}
}

func TestJWTManager_GenerateTokenRequiresSubject(t *testing.T) {
	m, _ := NewJWTManager(testSecret, "", 0)
	if _, err := m.GenerateToken("", 0); !errors.Is(err, ErrEmptySubject) {
		t.Errorf("GenerateToken(\"\") error = %v, want %v", err, ErrEmptySubject)
	}
}

func TestJWTManager_ValidateTokenRejects(t *testing.T) {
	m, _ := NewJWTManager(testSecret, "pipenet", time.Hour)

	other, _ := NewJWTManager("another-secret-key-that-is-32-chars-long!", "pipenet", time.Hour)
	foreignSig, _ := other.GenerateToken("agent", 0)

	otherIssuer, _ := NewJWTManager(testSecret, "someone-else", time.Hour)
	wrongIssuer, _ := otherIssuer.GenerateToken("agent", 0)

	past, _ := NewJWTManager(testSecret, "pipenet", time.Minute)
	past.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _ := past.GenerateToken("agent", 0)

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "agent",
		Issuer:    "pipenet",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "agent",
		Issuer:  "pipenet",
	}).SignedString([]byte(testSecret))

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "pipenet",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrInvalidToken},
		{"malformed", "not.a.jwt", ErrInvalidToken},
		{"foreign signature", foreignSig, ErrInvalidToken},
		{"wrong issuer", wrongIssuer, ErrInvalidToken},
		{"expired", expired, ErrExpiredToken},
		{"alg none", none, ErrInvalidToken},
		{"no expiry", noExpiry, ErrInvalidToken},
		{"no subject", noSubject, ErrInvalidClaims},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := m.ValidateToken(context.Background(), tt.token)
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidateToken() error = %v, want %v", err, tt.want)
			}
			if claims != nil {
				t.Error("expected nil claims on error")
			}
		})
	}
}

func TestClaimsContext(t *testing.T) {
	if _, ok := ClaimsFromContext(context.Background()); ok {
		t.Error("empty context should carry no claims")
	}
	ctx := WithClaims(context.Background(), &Claims{Subject: "agent"})
	c, ok := ClaimsFromContext(ctx)
	if !ok || c.Subject != "agent" {
		t.Errorf("ClaimsFromContext() = %v, %v", c, ok)
	}
}
