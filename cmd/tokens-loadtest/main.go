// Command tokens-loadtest drives a goSession engine through three phases
// (fresh issuance, access verification, refresh rotation) and prints latency
// percentiles for each. Without -redis-addr or REDIS_ADDR it runs against an
// in-process miniredis.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type options struct {
	sessions    int
	concurrency int
	ops         int
	redisAddr   string
	prefix      string
	reuse       bool
	metrics     string
}

func parseFlags() (options, error) {
	var o options
	flag.IntVar(&o.sessions, "sessions", 10000, "sessions seeded before the verify and rotate phases")
	flag.IntVar(&o.concurrency, "concurrency", 256, "concurrent workers per phase")
	flag.IntVar(&o.ops, "ops", 100000, "calls per phase")
	flag.StringVar(&o.redisAddr, "redis-addr", os.Getenv("REDIS_ADDR"), "redis address (default $REDIS_ADDR, else miniredis)")
	flag.StringVar(&o.prefix, "prefix", "rt:", "revocation key prefix")
	flag.BoolVar(&o.reuse, "reuse", false, "use the reuse rotation policy")
	flag.StringVar(&o.metrics, "metrics", "", "dump engine metrics after the run: "+metricsPrometheus+" or "+metricsOTel)
	flag.Parse()

	if o.sessions <= 0 || o.concurrency <= 0 || o.ops <= 0 {
		return o, errors.New("sessions, concurrency and ops must be > 0")
	}
	switch o.metrics {
	case "", metricsPrometheus, metricsOTel:
	default:
		return o, fmt.Errorf("unknown -metrics format %q", o.metrics)
	}
	return o, nil
}

// seeded is one pre-issued user. mu serializes rotation so a worker never
// presents a refresh token another worker already spent.
type seeded struct {
	mu      sync.Mutex
	userID  string
	access  string
	refresh string
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(context.Background(), opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	client, closeRedis, err := openRedis(opts.redisAddr)
	if err != nil {
		return err
	}
	defer closeRedis()

	engine, err := buildEngine(client, opts)
	if err != nil {
		return fmt.Errorf("engine build failed: %w", err)
	}
	defer engine.Close()

	began := time.Now()
	users, err := seed(ctx, engine, opts.sessions)
	if err != nil {
		return err
	}
	fmt.Printf("seeded %d sessions in %s\n", len(users), time.Since(began).Round(time.Millisecond))

	pick := func(r *rand.Rand) *seeded { return &users[r.IntN(len(users))] }
	phases := []struct {
		name string
		op   func(r *rand.Rand, i int) bool
	}{
		{"issue", func(_ *rand.Rand, i int) bool {
			_, err := engine.Issue(ctx, fmt.Sprintf("load-%d", i), "")
			return err == nil
		}},
		{"verify", func(r *rand.Rand, _ int) bool {
			s := pick(r)
			s.mu.Lock()
			access := s.access
			s.mu.Unlock()
			return engine.Verify(ctx, access, "").Status == goSession.StatusAuthenticated
		}},
		{"rotate", func(r *rand.Rand, _ int) bool {
			s := pick(r)
			s.mu.Lock()
			defer s.mu.Unlock()
			res := engine.Verify(ctx, "", s.refresh)
			if res.Status != goSession.StatusRotated {
				return false
			}
			s.access = res.AccessToken
			if res.RefreshToken != "" {
				s.refresh = res.RefreshToken
			}
			return true
		}},
	}

	fmt.Println("---- results ----")
	for i, p := range phases {
		stats := runPhase(opts.ops, opts.concurrency, uint64(i+1), p.op)
		fmt.Printf("%s: %s\n", p.name, stats)
	}

	if opts.metrics == "" {
		return nil
	}
	fmt.Println("---- metrics ----")
	if err := printMetrics(ctx, os.Stdout, opts.metrics, engine); err != nil {
		return fmt.Errorf("metrics export failed: %w", err)
	}
	return nil
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func buildEngine(client redis.UniversalClient, opts options) (*goSession.Engine, error) {
	cfg := goSession.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("loadtest-access-secret-0123456789")
	cfg.JWT.RefreshSecret = []byte("loadtest-refresh-secret-012345678")
	cfg.Session.RedisPrefix = opts.prefix
	if opts.reuse {
		cfg.Session.RotationPolicy = goSession.RotationReuse
	}
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	return goSession.New().
		WithConfig(cfg).
		WithStore(session.NewStore(client, opts.prefix)).
		Build()
}

func seed(ctx context.Context, engine *goSession.Engine, n int) ([]seeded, error) {
	users := make([]seeded, n)
	for i := range users {
		userID := fmt.Sprintf("u-%d", i)
		pair, err := engine.Issue(ctx, userID, "")
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", userID, err)
		}
		users[i].userID = userID
		users[i].access = pair.AccessToken
		users[i].refresh = pair.RefreshToken
	}
	return users, nil
}
