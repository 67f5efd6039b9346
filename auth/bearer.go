package auth

import (
	"context"
	"crypto/subtle"
)

// KeyPrincipal is the principal of callers holding the shared key.
const KeyPrincipal = "client"

// KeyAuthenticator accepts "Authorization: Bearer <key>" for one shared key.
type KeyAuthenticator struct {
	key []byte
}

// NewKeyAuthenticator returns an authenticator for key. An empty key
// rejects everything.
func NewKeyAuthenticator(key string) *KeyAuthenticator {
	return &KeyAuthenticator{key: []byte(key)}
}

// Name returns "key".
func (a *KeyAuthenticator) Name() string { return string(MethodKey) }

// Supports reports whether the request carries a bearer token.
func (a *KeyAuthenticator) Supports(_ context.Context, req *Request) bool {
	_, ok := req.Bearer()
	return ok
}

// Authenticate compares the bearer token with the key in constant time.
func (a *KeyAuthenticator) Authenticate(_ context.Context, req *Request) (*Result, error) {
	token, ok := req.Bearer()
	if !ok {
		return Failure(ErrMissingCredentials, MethodKey), nil
	}
	if len(a.key) == 0 || subtle.ConstantTimeCompare([]byte(token), a.key) != 1 {
		return Failure(ErrInvalidCredentials, MethodKey), nil
	}
	return Success(&Identity{Principal: KeyPrincipal, Method: MethodKey}), nil
}

var _ Authenticator = (*KeyAuthenticator)(nil)
