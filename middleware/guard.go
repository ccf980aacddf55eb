package middleware

import (
	"context"
	"net/http"

	loginGuard "github.com/MrEthical07/loginGuard"
)

type sessionContextKey struct{}

// SessionFromContext returns the session validated by [RequireSession].
func SessionFromContext(ctx context.Context) (*loginGuard.SessionInfo, bool) {
	info, ok := ctx.Value(sessionContextKey{}).(*loginGuard.SessionInfo)
	return info, ok
}

// RequireSession validates the session cookie and injects the session
// into the request context. Validation slides the session TTL.
func RequireSession(engine *loginGuard.Engine) func(http.Handler) http.Handler {
	cookieName := engine.Config().Cookie.SessionName

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, err := engine.ValidateSession(r.Context(), cookieValue(r, cookieName))
			if err != nil {
				WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CSRF enforces the double-submit token on mutating requests: the header
// token must match the one stored in the session named by the cookie.
func CSRF(engine *loginGuard.Engine) func(http.Handler) http.Handler {
	cfg := engine.Config()
	cookieName := cfg.Cookie.SessionName
	headerName := cfg.CSRF.HeaderName

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := engine.CheckCSRF(r.Context(), r.Method, r.URL.Path,
				cookieValue(r, cookieName), r.Header.Get(headerName))
			if err != nil {
				WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
