package goSession

import (
	"net/http"
	"time"
)

// LintWarning is a non-fatal configuration finding.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the ordered result of [Config.Lint].
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// Lint reports settings that are valid but risky. It never fails; call
// [Config.Validate] for hard errors.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code, msg string) {
		ws = append(ws, LintWarning{Code: code, Message: msg})
	}

	if len(c.JWT.AccessSecret) < 32 || len(c.JWT.RefreshSecret) < 32 {
		add("secret_short", "JWT secrets shorter than 32 bytes are brute-forceable offline")
	}
	if c.JWT.Leeway > time.Minute {
		add("leeway_large", "JWT Leeway above 1m extends every token lifetime")
	}

	if access, refresh, err := c.lifetimes(); err == nil {
		if access > 15*time.Minute {
			add("access_ttl_long", "access tokens cannot be revoked; keep AccessTTL at or below 15m")
		}
		if refresh > 30*24*time.Hour {
			add("refresh_ttl_long", "RefreshTTL above 30d")
		}
		if access >= refresh {
			add("access_not_shorter_than_refresh", "AccessTTL should be shorter than RefreshTTL")
		}
	}

	if !c.Cookie.Secure {
		add("cookie_insecure", "cookies are sent over plain HTTP")
	}
	if !c.Cookie.HTTPOnly {
		add("cookie_not_httponly", "cookies are readable from scripts")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode {
		add("samesite_none", "SameSite=None sends credentials on cross-site requests")
	}

	if c.Session.RotationPolicy == RotationReuse {
		add("rotation_reuse", "a stolen refresh token stays usable until revoked or expired")
	}
	if !c.Security.EnableIssueThrottle {
		add("issue_throttle_disabled", "no per-user issuance throttle")
	}

	return ws
}
