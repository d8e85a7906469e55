//go:build integration
// +build integration

package test

import (
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testPrefix = "rt:"

func newIntegrationStore(t *testing.T) (*session.Store, *redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	return session.NewStore(rdb, testPrefix), rdb, mr
}

func integrationConfig(accessTTL, refreshTTL string) goSession.Config {
	cfg := goSession.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("integration-access-secret-0123456")
	cfg.JWT.RefreshSecret = []byte("integration-refresh-secret-012345")
	cfg.JWT.AccessTTL = accessTTL
	cfg.JWT.RefreshTTL = refreshTTL
	cfg.Session.RedisPrefix = testPrefix
	return cfg
}

func newIntegrationEngine(t *testing.T, client redis.UniversalClient, cfg goSession.Config) *goSession.Engine {
	t.Helper()

	engine, err := goSession.New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

// elapse lets d pass in real time. miniredis does not expire keys on its own,
// so its clock is advanced by the same amount.
func elapse(mr *miniredis.Miniredis, d time.Duration) {
	time.Sleep(d)
	if mr != nil {
		mr.FastForward(d)
	}
}
