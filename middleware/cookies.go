package middleware

import (
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

// SetAuthCookies writes both session cookies for pair using the engine's
// cookie attributes. MaxAge matches each token lifetime.
func SetAuthCookies(w http.ResponseWriter, engine *goSession.Engine, pair goSession.TokenPair) {
	attrs := engine.Cookies()
	http.SetCookie(w, newCookie(attrs, attrs.AccessName, pair.AccessToken, maxAge(engine.AccessTTL())))
	http.SetCookie(w, newCookie(attrs, attrs.RefreshName, pair.RefreshToken, maxAge(engine.RefreshTTL())))
}

// ClearAuthCookies expires both session cookies.
func ClearAuthCookies(w http.ResponseWriter, engine *goSession.Engine) {
	attrs := engine.Cookies()
	http.SetCookie(w, newCookie(attrs, attrs.AccessName, "", -1))
	http.SetCookie(w, newCookie(attrs, attrs.RefreshName, "", -1))
}

// setRotatedCookies writes the credentials produced by a refresh. Under the
// reuse policy only the access cookie changes.
func setRotatedCookies(w http.ResponseWriter, engine *goSession.Engine, res goSession.AuthResult) {
	attrs := engine.Cookies()
	http.SetCookie(w, newCookie(attrs, attrs.AccessName, res.AccessToken, maxAge(engine.AccessTTL())))
	if res.RefreshToken != "" {
		http.SetCookie(w, newCookie(attrs, attrs.RefreshName, res.RefreshToken, maxAge(engine.RefreshTTL())))
	}
}

func newCookie(attrs goSession.CookieConfig, name, value string, age int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     attrs.Path,
		Domain:   attrs.Domain,
		MaxAge:   age,
		Secure:   attrs.Secure,
		HttpOnly: attrs.HTTPOnly,
		SameSite: attrs.SameSite,
	}
}

// maxAge converts a lifetime to cookie seconds, rounding up so the cookie
// never disappears before its token expires.
func maxAge(ttl time.Duration) int {
	secs := int((ttl + time.Second - 1) / time.Second)
	if secs <= 0 {
		return 1
	}
	return secs
}
