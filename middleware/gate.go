package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

// DefaultStoreTimeout bounds the revocation store round-trip of a refresh.
const DefaultStoreTimeout = 2 * time.Second

// Options tunes [Gate].
type Options struct {
	// StoreTimeout bounds Engine.Verify. Zero means DefaultStoreTimeout.
	StoreTimeout time.Duration
	// AllowBearer accepts the access token from an "Authorization: Bearer"
	// header when the access cookie is absent.
	AllowBearer bool
}

type authResultContextKey struct{}

// AuthResultFromContext returns the verification result stored by the gate.
func AuthResultFromContext(ctx context.Context) (goSession.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(goSession.AuthResult)
	return res, ok
}

// UserIDFromContext returns the authenticated user id stored by the gate.
func UserIDFromContext(ctx context.Context) (string, bool) {
	res, ok := AuthResultFromContext(ctx)
	if !ok || res.UserID == "" {
		return "", false
	}
	return res.UserID, true
}

// Gate authenticates every request from its session cookies.
//
// Authenticated requests pass through unchanged. Rotated requests receive the
// new credentials as cookies before the handler runs. Everything else is
// answered with 401 and the session cookies are cleared.
func Gate(engine *goSession.Engine, opts Options) func(http.Handler) http.Handler {
	timeout := opts.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				Unauthorized(w, nil)
				return
			}

			names := engine.Cookies()
			access := cookieValue(r, names.AccessName)
			if access == "" && opts.AllowBearer {
				access, _ = bearerToken(r.Header.Get("Authorization"))
			}
			refresh := cookieValue(r, names.RefreshName)

			ctx := RequestContext(r)
			verifyCtx, cancel := context.WithTimeout(ctx, timeout)
			res := engine.Verify(verifyCtx, access, refresh)
			cancel()

			switch res.Status {
			case goSession.StatusAuthenticated:
			case goSession.StatusRotated:
				setRotatedCookies(w, engine, res)
			default:
				Unauthorized(w, engine)
				return
			}

			ctx = context.WithValue(ctx, authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestContext copies the client address and user agent of r into its
// context so that engine audit events carry them.
func RequestContext(r *http.Request) context.Context {
	ctx := r.Context()
	if ip := clientIP(r.RemoteAddr); ip != "" {
		ctx = goSession.WithClientIP(ctx, ip)
	}
	if ua := r.UserAgent(); ua != "" {
		ctx = goSession.WithUserAgent(ctx, ua)
	}
	return ctx
}

// Unauthorized clears the session cookies, marks the response with an
// expired "error" cookie and writes a 401 JSON body.
func Unauthorized(w http.ResponseWriter, engine *goSession.Engine) {
	if engine != nil {
		ClearAuthCookies(w, engine)
	}
	http.SetCookie(w, &http.Cookie{
		Name:   "error",
		Value:  "Unauthorized",
		Path:   "/",
		MaxAge: -1,
	})
	WriteJSON(w, http.StatusUnauthorized, Message{Message: "Unauthorized"})
}

// Message is the JSON body of simple status responses.
type Message struct {
	Message string `json:"message"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
