// Package auth authenticates inbound proxy requests.
//
// Clients present the configured key as "Authorization: Bearer <key>". When
// a JWT secret is configured, HS256 tokens signed with it are accepted in
// the same header. Middleware answers every other request with 401.
package auth
