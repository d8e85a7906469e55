package jwt

import (
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestManager(t *testing.T, mutate func(*Config)) (*Manager, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cfg := Config{
		AccessSecret:  []byte("as"),
		RefreshSecret: []byte("rs"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
		Now:           clock.Now,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := NewManager(cfg)
	require.NoError(t, err)
	return m, clock
}

// kinds counts how many codec error kinds err matches.
func kinds(err error) int {
	n := 0
	for _, target := range []error{ErrMalformed, ErrInvalidSignature, ErrExpired} {
		if errors.Is(err, target) {
			n++
		}
	}
	return n
}

func TestNewManagerValidation(t *testing.T) {
	base := Config{AccessSecret: []byte("a"), RefreshSecret: []byte("r"), AccessTTL: time.Minute, RefreshTTL: time.Hour}

	cases := map[string]func(*Config){
		"missing access secret":  func(c *Config) { c.AccessSecret = nil },
		"missing refresh secret": func(c *Config) { c.RefreshSecret = nil },
		"equal secrets":          func(c *Config) { c.RefreshSecret = c.AccessSecret },
		"zero access ttl":        func(c *Config) { c.AccessTTL = 0 },
		"negative refresh ttl":   func(c *Config) { c.RefreshTTL = -time.Second },
		"leeway too large":       func(c *Config) { c.Leeway = time.Hour },
	}
	for name, mutate := range cases {
		cfg := base
		mutate(&cfg)
		_, err := NewManager(cfg)
		assert.Error(t, err, name)
	}

	_, err := NewManager(base)
	require.NoError(t, err)
}

func TestAccessRoundTrip(t *testing.T) {
	m, clock := newTestManager(t, nil)

	token, exp, err := m.CreateAccess("123")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(15*time.Minute), exp)

	claims, err := m.ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, "123", claims.UID)
	assert.Equal(t, TypeAccess, claims.Type)
	assert.NotEmpty(t, claims.ID)
}

func TestRefreshRoundTrip(t *testing.T) {
	m, _ := newTestManager(t, nil)

	token, _, err := m.CreateRefresh("123", "sid-1")
	require.NoError(t, err)

	claims, err := m.ParseRefresh(token)
	require.NoError(t, err)
	assert.Equal(t, "123", claims.UID)
	assert.Equal(t, "sid-1", claims.SID)
	assert.Equal(t, TypeRefresh, claims.Type)
}

func TestTokensIssuedInSameSecondDiffer(t *testing.T) {
	m, _ := newTestManager(t, nil)

	a, _, err := m.CreateAccess("123")
	require.NoError(t, err)
	b, _, err := m.CreateAccess("123")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestExpiryBoundary(t *testing.T) {
	m, clock := newTestManager(t, func(c *Config) { c.AccessTTL = time.Second })

	token, _, err := m.CreateAccess("123")
	require.NoError(t, err)

	clock.Advance(999 * time.Millisecond)
	_, err = m.ParseAccess(token)
	require.NoError(t, err)

	clock.Advance(time.Millisecond)
	_, err = m.ParseAccess(token)
	require.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, 1, kinds(err))
}

func TestIssuanceTimeIsWholeSecond(t *testing.T) {
	m, clock := newTestManager(t, func(c *Config) { c.AccessTTL = time.Second })
	clock.Advance(500 * time.Millisecond)

	token, exp, err := m.CreateAccess("123")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Truncate(time.Second).Add(time.Second), exp)

	claims, err := m.ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, exp.Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, exp.Add(-time.Second).Unix(), claims.IssuedAt.Unix())

	clock.Advance(499 * time.Millisecond)
	_, err = m.ParseAccess(token)
	require.NoError(t, err)

	clock.Advance(time.Millisecond)
	_, err = m.ParseAccess(token)
	require.ErrorIs(t, err, ErrExpired, "a 1s token must be dead 1s after its whole-second issuance")
}

func TestSecretsAreIndependent(t *testing.T) {
	m, _ := newTestManager(t, nil)

	access, _, err := m.CreateAccess("123")
	require.NoError(t, err)
	refresh, _, err := m.CreateRefresh("123", "sid-1")
	require.NoError(t, err)

	_, err = m.ParseRefresh(access)
	require.ErrorIs(t, err, ErrInvalidSignature)

	_, err = m.ParseAccess(refresh)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTypeConfusionRejected(t *testing.T) {
	m, clock := newTestManager(t, nil)

	// A refresh payload signed with the access secret must still be refused as access.
	claims := RefreshClaims{
		UID:  "123",
		SID:  "sid-1",
		Type: TypeRefresh,
		RegisteredClaims: gjwt.RegisteredClaims{
			ExpiresAt: gjwt.NewNumericDate(clock.Now().Add(time.Minute)),
		},
	}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("as"))
	require.NoError(t, err)

	_, err = m.ParseAccess(token)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestWrongSecretRejected(t *testing.T) {
	m, _ := newTestManager(t, nil)
	other, _ := newTestManager(t, func(c *Config) { c.AccessSecret = []byte("other") })

	token, _, err := other.CreateAccess("123")
	require.NoError(t, err)

	_, err = m.ParseAccess(token)
	require.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, 1, kinds(err))
}

func TestSignatureCheckedBeforeExpiry(t *testing.T) {
	m, clock := newTestManager(t, nil)
	other, _ := newTestManager(t, func(c *Config) {
		c.AccessSecret = []byte("other")
		c.Now = clock.Now
	})

	token, _, err := other.CreateAccess("123")
	require.NoError(t, err)
	clock.Advance(time.Hour)

	_, err = m.ParseAccess(token)
	require.ErrorIs(t, err, ErrInvalidSignature)
	assert.NotErrorIs(t, err, ErrExpired)
}

func TestParseAccessRejectsWrongAlgorithm(t *testing.T) {
	m, clock := newTestManager(t, nil)
	claims := AccessClaims{UID: "123", Type: TypeAccess, RegisteredClaims: gjwt.RegisteredClaims{
		ExpiresAt: gjwt.NewNumericDate(clock.Now().Add(time.Minute)),
	}}

	none, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.ParseAccess(none)
	require.ErrorIs(t, err, ErrInvalidSignature)

	hs512, err := gjwt.NewWithClaims(gjwt.SigningMethodHS512, claims).SignedString([]byte("as"))
	require.NoError(t, err)
	_, err = m.ParseAccess(hs512)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestMalformedInputs(t *testing.T) {
	m, _ := newTestManager(t, nil)

	for _, in := range []string{"", "garbage", "not.a.jwt", "a.b", "...."} {
		_, err := m.ParseAccess(in)
		require.ErrorIs(t, err, ErrMalformed, in)
		assert.Equal(t, 1, kinds(err), in)
	}
}

func TestIssuerAndAudience(t *testing.T) {
	m, clock := newTestManager(t, func(c *Config) {
		c.Issuer = "goSession"
		c.Audience = "api"
	})

	token, _, err := m.CreateAccess("123")
	require.NoError(t, err)
	_, err = m.ParseAccess(token)
	require.NoError(t, err)

	wrong := AccessClaims{UID: "123", Type: TypeAccess, RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "other",
		Audience:  gjwt.ClaimStrings{"api"},
		ExpiresAt: gjwt.NewNumericDate(clock.Now().Add(time.Minute)),
	}}
	tok, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, wrong).SignedString([]byte("as"))
	require.NoError(t, err)
	_, err = m.ParseAccess(tok)
	require.ErrorIs(t, err, ErrMalformed)

	wrong.Issuer = "goSession"
	wrong.Audience = gjwt.ClaimStrings{"other-api"}
	tok, err = gjwt.NewWithClaims(gjwt.SigningMethodHS256, wrong).SignedString([]byte("as"))
	require.NoError(t, err)
	_, err = m.ParseAccess(tok)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestParseRefreshUncheckedAcceptsExpired(t *testing.T) {
	m, clock := newTestManager(t, func(c *Config) { c.RefreshTTL = 2 * time.Second })

	token, _, err := m.CreateRefresh("123", "sid-1")
	require.NoError(t, err)
	clock.Advance(time.Minute)

	_, err = m.ParseRefresh(token)
	require.ErrorIs(t, err, ErrExpired)

	claims, err := m.ParseRefreshUnchecked(token)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", claims.SID)

	forger, _ := newTestManager(t, func(c *Config) { c.RefreshSecret = []byte("forged") })
	forged, _, err := forger.CreateRefresh("123", "sid-1")
	require.NoError(t, err)
	_, err = m.ParseRefreshUnchecked(forged)
	require.ErrorIs(t, err, ErrInvalidSignature)
}
