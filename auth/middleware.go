package auth

import (
	"encoding/json"
	"net/http"

	"github.com/jonwraymond/promptrelay/observe"
)

// Middleware rejects unauthenticated requests with 401 and
// {"error":"Unauthorized"}. Authenticated requests carry their Identity in
// the request context.
func Middleware(authn Authenticator, logger observe.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	logger = logger.With(observe.Op{Component: "auth"})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			res, err := authn.Authenticate(ctx, NewRequest(r))
			if err != nil {
				logger.Error(ctx, "authentication error", observe.F("error", err))
				unauthorized(w)
				return
			}
			if !res.Authenticated {
				logger.Debug(ctx, "request rejected",
					observe.F("path", r.URL.Path),
					observe.F("method", string(res.Method)),
					observe.F("reason", res.Err),
				)
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, res.Identity)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="promptrelay"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
}
