package middleware

import (
	"context"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// RequireAccess admits only requests with a valid access token. It never
// refreshes, so it performs no store round-trip; clients are expected to
// pass through a [Gate] route to renew credentials.
func RequireAccess(engine *goSession.Engine, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				Unauthorized(w, nil)
				return
			}

			access := cookieValue(r, engine.Cookies().AccessName)
			if access == "" && opts.AllowBearer {
				access, _ = bearerToken(r.Header.Get("Authorization"))
			}

			ctx := RequestContext(r)
			res := engine.Verify(ctx, access, "")
			if res.Status != goSession.StatusAuthenticated {
				WriteJSON(w, http.StatusUnauthorized, Message{Message: "Unauthorized"})
				return
			}

			ctx = context.WithValue(ctx, authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
