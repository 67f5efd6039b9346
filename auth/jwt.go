package auth

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Secret is the HS256 signing secret.
	Secret []byte

	// Issuer, when set, must match the iss claim.
	Issuer string

	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration
}

// JWTAuthenticator accepts HS256 bearer tokens.
type JWTAuthenticator struct {
	config JWTConfig
	parser *jwt.Parser
}

// NewJWTAuthenticator returns a JWT authenticator.
func NewJWTAuthenticator(config JWTConfig) *JWTAuthenticator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(config.Leeway),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	return &JWTAuthenticator{config: config, parser: jwt.NewParser(opts...)}
}

// Name returns "jwt".
func (a *JWTAuthenticator) Name() string { return string(MethodJWT) }

// Supports reports whether the bearer token looks like a JWT.
func (a *JWTAuthenticator) Supports(_ context.Context, req *Request) bool {
	token, ok := req.Bearer()
	return ok && strings.Count(token, ".") == 2
}

// Authenticate verifies the token signature and registered claims.
func (a *JWTAuthenticator) Authenticate(_ context.Context, req *Request) (*Result, error) {
	raw, ok := req.Bearer()
	if !ok {
		return Failure(ErrMissingCredentials, MethodJWT), nil
	}
	if len(a.config.Secret) == 0 {
		return Failure(ErrInvalidCredentials, MethodJWT), nil
	}

	claims := jwt.MapClaims{}
	token, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.config.Secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Failure(ErrTokenExpired, MethodJWT), nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return Failure(ErrTokenMalformed, MethodJWT), nil
	case err != nil, !token.Valid:
		return Failure(ErrInvalidCredentials, MethodJWT), nil
	}

	id := &Identity{Method: MethodJWT, Claims: map[string]any(claims)}
	if sub, err := claims.GetSubject(); err == nil {
		id.Principal = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return Success(id), nil
}

var _ Authenticator = (*JWTAuthenticator)(nil)
