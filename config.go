package goSession

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/goSession/duration"
)

// Config holds every tunable of an [Engine]. Obtain one from [DefaultConfig]
// or [ProductionConfig], set the secrets, and pass it to [Builder.WithConfig].
type Config struct {
	JWT      JWTConfig
	Cookie   CookieConfig
	Session  SessionConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig

	// Now is the clock shared by the token codec and the engine. Defaults to time.Now.
	Now func() time.Time
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures token signing. Lifetimes use the "<digits><unit>" form
// accepted by [duration.Parse], e.g. "15m" or "30d".
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     string
	RefreshTTL    string
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig carries the attributes the HTTP gate applies to the access and
// refresh cookies.
type CookieConfig struct {
	AccessName  string
	RefreshName string
	HTTPOnly    bool
	Secure      bool
	SameSite    http.SameSite
	Path        string
	Domain      string
}

/*
====================================
SESSION CONFIG
====================================
*/

// RotationPolicy selects what a successful refresh does to the refresh token.
type RotationPolicy int

const (
	// RotationRotateOnUse consumes the presented refresh token and issues a new
	// one bound to a new session id. A replayed token is refused.
	RotationRotateOnUse RotationPolicy = iota
	// RotationReuse keeps the refresh token and its session record and only
	// issues a new access token.
	RotationReuse
)

func (p RotationPolicy) String() string {
	switch p {
	case RotationRotateOnUse:
		return "rotate_on_use"
	case RotationReuse:
		return "reuse"
	default:
		return fmt.Sprintf("RotationPolicy(%d)", int(p))
	}
}

// SessionConfig configures the revocation records.
type SessionConfig struct {
	RedisPrefix    string
	RotationPolicy RotationPolicy
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds production guards and the optional issuance throttle.
type SecurityConfig struct {
	ProductionMode      bool
	EnableIssueThrottle bool
	MaxIssuesPerWindow  int
	IssueWindow         time.Duration
}

// AuditConfig configures the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the verify latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  "15m",
			RefreshTTL: "30d",
		},
		Cookie: CookieConfig{
			AccessName:  "id",
			RefreshName: "rid",
			HTTPOnly:    true,
			Secure:      false,
			SameSite:    http.SameSiteLaxMode,
			Path:        "/",
		},
		Session: SessionConfig{
			RedisPrefix:    "rt:",
			RotationPolicy: RotationRotateOnUse,
		},
		Security: SecurityConfig{
			ProductionMode:      false,
			EnableIssueThrottle: false,
			MaxIssuesPerWindow:  10,
			IssueWindow:         time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns development defaults: 15m access tokens, 30d refresh
// tokens, cookies "id"/"rid" with HttpOnly and SameSite=Lax but without the
// Secure flag. Secrets are left empty and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

// ProductionConfig returns [DefaultConfig] hardened for deployment under domain:
// Secure cookies scoped to "."+domain, production validation, metrics and the
// issuance throttle enabled.
func ProductionConfig(domain string) Config {
	cfg := defaultConfig()
	cfg.Security.ProductionMode = true
	cfg.Security.EnableIssueThrottle = true
	cfg.Cookie.Secure = true
	if domain != "" {
		cfg.Cookie.Domain = "." + domain
	}
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// lifetimes returns the parsed access and refresh lifetimes.
func (c *Config) lifetimes() (time.Duration, time.Duration, error) {
	access, err := duration.ParseDuration(c.JWT.AccessTTL)
	if err != nil {
		return 0, 0, fmt.Errorf("JWT AccessTTL: %w", err)
	}
	refresh, err := duration.ParseDuration(c.JWT.RefreshTTL)
	if err != nil {
		return 0, 0, fmt.Errorf("JWT RefreshTTL: %w", err)
	}
	return access, refresh, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error. Lifetime errors wrap
// [duration.ErrInvalidDurationFormat] or [duration.ErrUnsupportedDurationUnit].
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.AccessSecret) == 0 {
		return errors.New("JWT AccessSecret is required")
	}
	if len(c.JWT.RefreshSecret) == 0 {
		return errors.New("JWT RefreshSecret is required")
	}
	if string(c.JWT.AccessSecret) == string(c.JWT.RefreshSecret) {
		return errors.New("JWT AccessSecret and RefreshSecret must differ")
	}

	access, refresh, err := c.lifetimes()
	if err != nil {
		return err
	}
	if access <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if refresh <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}

	// Cookie
	if c.Cookie.AccessName == "" || c.Cookie.RefreshName == "" {
		return errors.New("Cookie AccessName and RefreshName are required")
	}
	if c.Cookie.AccessName == c.Cookie.RefreshName {
		return errors.New("Cookie AccessName and RefreshName must differ")
	}
	switch c.Cookie.SameSite {
	case 0, http.SameSiteDefaultMode, http.SameSiteLaxMode, http.SameSiteStrictMode:
		// valid
	case http.SameSiteNoneMode:
		if !c.Cookie.Secure {
			return errors.New("Cookie SameSite=None requires Secure")
		}
	default:
		return errors.New("invalid Cookie SameSite")
	}

	// Session
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix is required")
	}
	switch c.Session.RotationPolicy {
	case RotationRotateOnUse, RotationReuse:
		// valid
	default:
		return errors.New("invalid Session RotationPolicy")
	}

	// Security
	if c.Security.EnableIssueThrottle {
		if c.Security.MaxIssuesPerWindow <= 0 {
			return errors.New("Security MaxIssuesPerWindow must be > 0 when EnableIssueThrottle is true")
		}
		if c.Security.IssueWindow <= 0 {
			return errors.New("Security IssueWindow must be > 0 when EnableIssueThrottle is true")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	if c.Security.ProductionMode {
		if len(c.JWT.AccessSecret) < 32 || len(c.JWT.RefreshSecret) < 32 {
			return errors.New("ProductionMode requires JWT secrets >= 256 bits")
		}
		if access > 15*time.Minute {
			return errors.New("ProductionMode requires JWT AccessTTL <= 15m")
		}
		if refresh > 30*24*time.Hour {
			return errors.New("ProductionMode requires JWT RefreshTTL <= 30d")
		}
		if !c.Cookie.Secure {
			return errors.New("ProductionMode requires Secure cookies")
		}
		if !c.Cookie.HTTPOnly {
			return errors.New("ProductionMode requires HttpOnly cookies")
		}
	}

	return nil
}
