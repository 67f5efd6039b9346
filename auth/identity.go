package auth

import "time"

// Method indicates how a request was authenticated.
type Method string

const (
	MethodKey Method = "key"
	MethodJWT Method = "jwt"
)

// Identity is an authenticated caller.
type Identity struct {
	// Principal names the caller: "client" for the shared key, the sub claim
	// for tokens.
	Principal string

	Method Method

	// Claims holds token claims; empty for the shared key.
	Claims map[string]any

	// ExpiresAt is the token expiry, zero when none.
	ExpiresAt time.Time
}

// IsExpired reports whether the identity has an expiry in the past.
func (id *Identity) IsExpired(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && now.After(id.ExpiresAt)
}
