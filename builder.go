package goSession

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles an [Engine]. A Builder is single-use: Build fails when
// called twice.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  RevocationStore

	logger    *zerolog.Logger
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs the engine with client: sessions go to a [session.Store]
// under Config.Session.RedisPrefix and the issuance throttle counts in the
// same database. The client stays owned by the caller.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore sets the revocation store directly. It takes precedence over the
// store derived from WithRedis.
func (b *Builder) WithStore(store RevocationStore) *Builder {
	b.store = store
	return b
}

// WithLogger sets the engine logger. Without it the engine logs nothing.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithAuditSink sets the sink that receives audit events when
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	accessTTL, refreshTTL, err := cfg.lifetimes()
	if err != nil {
		return nil, err
	}

	// -------- REVOCATION STORE --------
	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("revocation store or redis client required")
		}
		store = session.NewStore(b.redis, cfg.Session.RedisPrefix)
	}

	// -------- ISSUE THROTTLE --------
	var limiter *rate.Limiter
	if cfg.Security.EnableIssueThrottle {
		if b.redis == nil {
			return nil, errors.New("EnableIssueThrottle requires redis client")
		}
		limiter = rate.New(b.redis, rate.Config{
			EnableIssueThrottle: true,
			MaxIssuesPerWindow:  cfg.Security.MaxIssuesPerWindow,
			IssueWindow:         cfg.Security.IssueWindow,
			KeyPrefix:           cfg.Session.RedisPrefix + "ai:",
		})
	}

	// -------- TOKEN CODEC --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		Now:           cfg.Now,
	})
	if err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	engine := &Engine{
		config:      cfg,
		jwtManager:  jm,
		store:       store,
		rateLimiter: limiter,
		metrics:     NewMetrics(cfg.Metrics),
		logger:      logger.With().Str("component", "gosession").Logger(),
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink, engine.logger)
	engine.flows = flows.New(engine.flowDeps())

	b.built = true

	return engine, nil
}

func (e *Engine) flowDeps() flows.Deps {
	issue := flows.IssueDeps{
		NewSessionID:  newSessionID,
		CreateAccess:  e.jwtManager.CreateAccess,
		CreateRefresh: e.jwtManager.CreateRefresh,
		RefreshTTL:    e.refreshTTL,
		SessionStore:  e.store,
	}
	// A typed nil must not reach the interface field.
	if e.rateLimiter != nil {
		issue.RateLimiter = e.rateLimiter
	}

	return flows.Deps{
		Issue: issue,
		Verify: flows.VerifyDeps{
			ParseAccess:     e.jwtManager.ParseAccess,
			ParseRefresh:    withSessionIDCheck(e.jwtManager.ParseRefresh),
			NewSessionID:    newSessionID,
			CreateAccess:    e.jwtManager.CreateAccess,
			CreateRefresh:   e.jwtManager.CreateRefresh,
			RefreshTTL:      e.refreshTTL,
			RotateOnUse:     e.config.Session.RotationPolicy == RotationRotateOnUse,
			SessionStore:    e.store,
			SessionNotFound: session.ErrSessionNotFound,
		},
		Revoke: flows.RevokeDeps{
			ParseRefreshUnchecked: withSessionIDCheck(e.jwtManager.ParseRefreshUnchecked),
			SessionStore:          e.store,
		},
	}
}

// withSessionIDCheck rejects signed refresh tokens whose sid this package
// could not have minted, before any store key is built from it.
func withSessionIDCheck(parse func(string) (*jwt.RefreshClaims, error)) func(string) (*jwt.RefreshClaims, error) {
	return func(token string) (*jwt.RefreshClaims, error) {
		claims, err := parse(token)
		if err != nil {
			return nil, err
		}
		if !internal.ValidSessionID(claims.SID) {
			return nil, fmt.Errorf("%w: invalid session id", jwt.ErrMalformed)
		}
		return claims, nil
	}
}

func newSessionID() (string, error) {
	id, err := internal.NewSessionID()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
