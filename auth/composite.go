package auth

import "context"

// Composite tries authenticators in order and returns the first success.
type Composite struct {
	authenticators []Authenticator
}

// NewComposite returns a Composite over auths. Nil entries are skipped.
func NewComposite(auths ...Authenticator) *Composite {
	c := &Composite{}
	for _, a := range auths {
		if a != nil {
			c.authenticators = append(c.authenticators, a)
		}
	}
	return c
}

// Name returns "composite".
func (c *Composite) Name() string { return "composite" }

// Supports reports whether any authenticator supports the request.
func (c *Composite) Supports(ctx context.Context, req *Request) bool {
	for _, a := range c.authenticators {
		if a.Supports(ctx, req) {
			return true
		}
	}
	return false
}

// Authenticate returns the first successful result. Without one it returns
// the last failure, or ErrMissingCredentials when nothing applied. Internal
// errors stop the search.
func (c *Composite) Authenticate(ctx context.Context, req *Request) (*Result, error) {
	var last *Result
	for _, a := range c.authenticators {
		if !a.Supports(ctx, req) {
			continue
		}
		res, err := a.Authenticate(ctx, req)
		if err != nil {
			return nil, err
		}
		if res.Authenticated {
			return res, nil
		}
		last = res
	}
	if last != nil {
		return last, nil
	}
	return Failure(ErrMissingCredentials, ""), nil
}

var _ Authenticator = (*Composite)(nil)
