package main

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	goSession "github.com/MrEthical07/goSession"
	promexport "github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

//go:embed public
var publicFiles embed.FS

// demoUserID is the account behind the built-in test/password login.
const demoUserID = "123"

// pinger is the health check view of the revocation store.
type pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

type server struct {
	engine   *goSession.Engine
	store    pinger
	logger   zerolog.Logger
	validate *validator.Validate
	gate     func(http.Handler) http.Handler
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=256"`
	Password string `json:"password" validate:"required,max=1024"`
}

type httpMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	factory := promauto.With(reg)
	return &httpMetrics{
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method", "status"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"path", "method", "status"}),
	}
}

// middleware records RED metrics keyed by route pattern.
func (m *httpMetrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil && routeCtx.RoutePattern() != "" {
			path = routeCtx.RoutePattern()
		}

		status := strconv.Itoa(ww.Status())
		m.duration.WithLabelValues(path, r.Method, status).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(path, r.Method, status).Inc()
	})
}

func newRouter(cfg *Config, engine *goSession.Engine, store pinger, logger zerolog.Logger) http.Handler {
	s := &server{
		engine:   engine,
		store:    store,
		logger:   logger,
		validate: validator.New(),
		gate:     middleware.Gate(engine, middleware.Options{StoreTimeout: cfg.StoreTimeout}),
	}

	exporter := promexport.NewExporter(engine)
	metrics := newHTTPMetrics(exporter.Registry())

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(metrics.middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/login", s.login)
	r.Post("/logout", s.logout)
	r.With(s.gate).Get("/protected", s.protected)
	r.Get("/healthz", s.health)
	r.Handle("/metrics", exporter.Handler())

	static, err := fs.Sub(publicFiles, "public")
	if err != nil {
		panic(err)
	}
	r.Handle("/*", http.FileServer(http.FS(static)))

	return otelhttp.NewHandler(r, cfg.AppName)
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.Message{Message: "Invalid request body"})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.Message{Message: "Invalid request body"})
		return
	}

	userID, ok := authenticate(req.Username, req.Password)
	if !ok {
		middleware.WriteJSON(w, http.StatusUnauthorized, middleware.Message{Message: "Invalid username or password"})
		return
	}

	ctx := middleware.RequestContext(r)
	var previous string
	if c, err := r.Cookie(s.engine.Cookies().RefreshName); err == nil {
		previous, _ = s.engine.SessionIDFromRefresh(c.Value)
	}

	pair, err := s.engine.Issue(ctx, userID, previous)
	if err != nil {
		if errors.Is(err, goSession.ErrIssueRateLimited) {
			middleware.WriteJSON(w, http.StatusTooManyRequests, middleware.Message{Message: "Too many logins"})
			return
		}
		s.logger.Error().Err(err).Str("user_id", userID).Msg("issue failed")
		middleware.WriteJSON(w, http.StatusInternalServerError, middleware.Message{Message: "Internal server error"})
		return
	}

	middleware.SetAuthCookies(w, s.engine, pair)
	middleware.WriteJSON(w, http.StatusOK, middleware.Message{Message: "Login successful"})
}

func (s *server) protected(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		middleware.WriteJSON(w, http.StatusUnauthorized, middleware.Message{Message: "Unauthorized"})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, middleware.Message{
		Message: "Welcome to the protected resource, user " + userID,
	})
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(s.engine.Cookies().RefreshName)
	if err != nil || c.Value == "" {
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.Message{Message: "No refresh token provided"})
		return
	}

	s.engine.Revoke(middleware.RequestContext(r), c.Value)
	middleware.ClearAuthCookies(w, s.engine)
	middleware.WriteJSON(w, http.StatusOK, middleware.Message{Message: "Logged out successfully"})
}

type healthResponse struct {
	Status       string  `json:"status"`
	RedisLatency float64 `json:"redis_latency_ms"`
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()

	latency, err := s.store.Ping(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("health check failed")
		middleware.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		RedisLatency: float64(latency.Microseconds()) / 1000,
	})
}

// authenticate checks the demo credentials.
func authenticate(username, password string) (string, bool) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte("test")) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte("password")) == 1
	if userOK && passOK {
		return demoUserID, true
	}
	return "", false
}

// requestID propagates X-Request-Id or assigns a new UUID, and hands it to
// the engine for audit correlation.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(goSession.WithRequestID(r.Context(), id)))
	})
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			event := logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", w.Header().Get("X-Request-Id"))
			if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
				event = event.
					Str("trace_id", sc.TraceID().String()).
					Str("span_id", sc.SpanID().String())
			}
			event.Msg("request")
		})
	}
}
