package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMalformed is returned for tokens that cannot be decoded or carry invalid claims.
	ErrMalformed = errors.New("malformed token")
	// ErrInvalidSignature is returned when the signature or algorithm does not verify.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrExpired is returned when the current time is not before the embedded expiry.
	ErrExpired = errors.New("token expired")
)

const (
	// TypeAccess marks short-lived access credentials.
	TypeAccess = "access"
	// TypeRefresh marks long-lived refresh credentials.
	TypeRefresh = "refresh"
)

// Config holds codec settings. Access and refresh tokens are signed with
// independent secrets so that one secret cannot forge the other credential class.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration
	// Now is the clock used for issuance and expiry checks. Defaults to time.Now.
	Now func() time.Time
}

// Manager signs and verifies access and refresh tokens (HS256).
//
// Manager is immutable after construction and safe for concurrent use.
type Manager struct {
	config Config
}

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	UID  string `json:"uid"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token. SID joins the token to its
// revocation record.
type RefreshClaims struct {
	UID  string `json:"uid"`
	SID  string `json:"sid"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("access and refresh secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	cfg.AccessSecret = append([]byte(nil), cfg.AccessSecret...)
	cfg.RefreshSecret = append([]byte(nil), cfg.RefreshSecret...)

	return &Manager{config: cfg}, nil
}

// CreateAccess signs an access token for uid and returns it with its expiry.
func (j *Manager) CreateAccess(uid string) (string, time.Time, error) {
	registered, expiresAt := j.registered(j.config.AccessTTL)
	claims := AccessClaims{
		UID:              uid,
		Type:             TypeAccess,
		RegisteredClaims: registered,
	}

	token, err := sign(claims, j.config.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// CreateRefresh signs a refresh token binding uid to sid and returns it with its expiry.
func (j *Manager) CreateRefresh(uid, sid string) (string, time.Time, error) {
	registered, expiresAt := j.registered(j.config.RefreshTTL)
	claims := RefreshClaims{
		UID:              uid,
		SID:              sid,
		Type:             TypeRefresh,
		RegisteredClaims: registered,
	}

	token, err := sign(claims, j.config.RefreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ParseAccess verifies signature and expiry of an access token.
// Errors wrap exactly one of ErrMalformed, ErrInvalidSignature or ErrExpired.
func (j *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := j.parse(tokenStr, j.config.AccessSecret, claims, true); err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess || claims.UID == "" {
		return nil, fmt.Errorf("%w: not an access token", ErrMalformed)
	}
	return claims, nil
}

// ParseRefresh verifies signature and expiry of a refresh token.
func (j *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := j.parse(tokenStr, j.config.RefreshSecret, claims, true); err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh || claims.UID == "" || claims.SID == "" {
		return nil, fmt.Errorf("%w: not a refresh token", ErrMalformed)
	}
	return claims, nil
}

// ParseRefreshUnchecked verifies only the signature and token type. Expired
// tokens are accepted so that logout can still locate the session they name.
// It must never be used to authenticate a request.
func (j *Manager) ParseRefreshUnchecked(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := j.parse(tokenStr, j.config.RefreshSecret, claims, false); err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh || claims.SID == "" {
		return nil, fmt.Errorf("%w: not a refresh token", ErrMalformed)
	}
	return claims, nil
}

// AccessTTL returns the configured access lifetime.
func (j *Manager) AccessTTL() time.Duration { return j.config.AccessTTL }

// RefreshTTL returns the configured refresh lifetime.
func (j *Manager) RefreshTTL() time.Duration { return j.config.RefreshTTL }

func (j *Manager) registered(ttl time.Duration) (jwt.RegisteredClaims, time.Time) {
	now := j.config.Now().Truncate(time.Second)
	expiresAt := now.Add(ttl)

	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		Issuer:    j.config.Issuer,
	}
	if j.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{j.config.Audience}
	}
	return claims, expiresAt
}

func (j *Manager) parse(tokenStr string, secret []byte, claims jwt.Claims, validate bool) error {
	if tokenStr == "" {
		return fmt.Errorf("%w: empty token", ErrMalformed)
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.config.Now),
	}
	if validate {
		options = append(options, jwt.WithExpirationRequired())
		if j.config.Leeway > 0 {
			options = append(options, jwt.WithLeeway(j.config.Leeway))
		}
		if j.config.Issuer != "" {
			options = append(options, jwt.WithIssuer(j.config.Issuer))
		}
		if j.config.Audience != "" {
			options = append(options, jwt.WithAudience(j.config.Audience))
		}
	} else {
		options = append(options, jwt.WithoutClaimsValidation())
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return classify(err)
	}
	if !token.Valid {
		return ErrMalformed
	}
	return nil
}

// classify maps library errors onto the three codec failure kinds.
// The signature is checked before claims, so an expired forgery reports
// ErrInvalidSignature.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func sign(claims jwt.Claims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
