package auth

import (
	"context"
	"net/http"
	"strings"
)

// Authenticator validates the credentials of one request.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: Authenticate returns (nil, error) for internal errors and a
//     Result with Authenticated false for rejected credentials.
type Authenticator interface {
	Name() string

	// Supports reports whether the request carries credentials this
	// authenticator understands.
	Supports(ctx context.Context, req *Request) bool

	Authenticate(ctx context.Context, req *Request) (*Result, error)
}

// Request carries what authenticators inspect.
type Request struct {
	Header http.Header
}

// NewRequest builds a Request from an HTTP request.
func NewRequest(r *http.Request) *Request {
	return &Request{Header: r.Header}
}

// Bearer returns the token after "Bearer " in the Authorization header.
func (r *Request) Bearer() (string, bool) {
	if r == nil || r.Header == nil {
		return "", false
	}
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Result is the outcome of one authentication attempt.
type Result struct {
	Authenticated bool
	Identity      *Identity // set when Authenticated
	Err           error     // set when not Authenticated
	Method        Method
}

// Success returns an authenticated Result.
func Success(id *Identity) *Result {
	return &Result{Authenticated: true, Identity: id, Method: id.Method}
}

// Failure returns a rejected Result.
func Failure(err error, method Method) *Result {
	return &Result{Err: err, Method: method}
}
