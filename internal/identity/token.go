package identity

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource returns the raw session token, or empty when no session exists.
type TokenSource func(ctx context.Context) (string, error)

// TokenProvider derives the identity from a JWT held by the session layer. The
// token is decoded without signature verification: issuance and validation
// belong to the auth service, this side only consumes the claims. Anything
// that cannot be decoded resolves to Guest.
type TokenProvider struct {
	source TokenSource
	parser *jwt.Parser
}

func NewTokenProvider(source TokenSource) *TokenProvider {
	return &TokenProvider{
		source: source,
		parser: jwt.NewParser(),
	}
}

type sessionClaims struct {
	UserID string `json:"userId"`
	ID     string `json:"id"`
	Role   string `json:"role"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

func (p *TokenProvider) Current(ctx context.Context) (string, error) {
	raw, err := p.source(ctx)
	if err != nil || raw == "" {
		return Guest, nil
	}

	var claims sessionClaims
	if _, _, err := p.parser.ParseUnverified(raw, &claims); err != nil {
		return Guest, nil
	}

	// Tokens carry the identifier as either userId or id.
	if claims.UserID != "" {
		return claims.UserID, nil
	}
	if claims.ID != "" {
		return claims.ID, nil
	}
	return Guest, nil
}
