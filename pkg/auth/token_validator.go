package auth

import (
	"context"
)

// TokenValidator abstracts bearer-token validation.
type TokenValidator interface {
	// ValidateToken returns the caller's claims or an error for invalid,
	// expired or malformed tokens.
	ValidateToken(ctx context.Context, token string) (*Claims, error)

	// Name returns the validator name for logging
	Name() string
}

type claimsKey struct{}

// WithClaims returns a context carrying claims.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns the claims stored by WithClaims.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}
