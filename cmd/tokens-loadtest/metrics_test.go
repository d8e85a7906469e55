package main

import (
	"bytes"
	"context"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetricsEngine(t *testing.T) *goSession.Engine {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := goSession.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("metrics-access")
	cfg.JWT.RefreshSecret = []byte("metrics-refresh")
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := goSession.New().WithConfig(cfg).WithRedis(rdb).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	pair, err := engine.Issue(context.Background(), "u1", "")
	require.NoError(t, err)
	require.Equal(t, goSession.StatusRotated, engine.Verify(context.Background(), "", pair.RefreshToken).Status)
	return engine
}

func TestPrintMetricsPrometheus(t *testing.T) {
	engine := newMetricsEngine(t)

	var buf bytes.Buffer
	require.NoError(t, printMetrics(context.Background(), &buf, metricsPrometheus, engine))
	assert.Contains(t, buf.String(), "gosession_issue_success_total 1")
	assert.Contains(t, buf.String(), "gosession_verify_rotated_total 1")
}

func TestPrintMetricsOTel(t *testing.T) {
	engine := newMetricsEngine(t)

	var buf bytes.Buffer
	require.NoError(t, printMetrics(context.Background(), &buf, metricsOTel, engine))
	out := buf.String()
	assert.Contains(t, out, "gosession_issue_success_total 1\n")
	assert.Contains(t, out, "gosession_verify_latency_seconds_count 1\n")
	assert.Contains(t, out, "gosession_verify_latency_seconds_bucket{le=+Inf} 1\n")
}
