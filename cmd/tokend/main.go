// Command tokend is a demo HTTP server for goSession: cookie login, a
// protected resource behind the credential gate, and logout.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tokend: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogFormat, cfg.LogLevel, os.Stdout)
	displayAppname(cfg.AppName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(ctx, cfg.TraceEndpoint, cfg.AppName)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("trace exporter shutdown failed")
		}
	}()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	engineCfg := cfg.EngineConfig()
	for _, w := range engineCfg.Lint() {
		logger.Warn().Str("code", w.Code).Msg(w.Message)
	}

	builder := goSession.New().
		WithConfig(engineCfg).
		WithStore(store).
		WithRedis(store.Client()).
		WithLogger(logger)
	if cfg.Audit {
		builder = builder.WithAuditSink(goSession.NewLoggerSink(logger))
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(cfg, engine, store, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore dials Redis, or starts an in-process server when REDIS_URL is
// "memory".
func openStore(ctx context.Context, cfg *Config, logger zerolog.Logger) (*session.Store, func(), error) {
	url := cfg.RedisURL
	var mr *miniredis.Miniredis
	if url == memoryRedisURL {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start in-memory redis: %w", err)
		}
		url = "redis://" + mr.Addr()
		logger.Warn().Str("addr", mr.Addr()).Msg("using in-memory redis; sessions are lost on exit")
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	store, err := session.Dial(dialCtx, url, cfg.RedisPrefix)
	if err != nil {
		if mr != nil {
			mr.Close()
		}
		return nil, nil, err
	}

	latency, _ := store.Ping(dialCtx)
	logger.Info().Dur("latency", latency).Msg("connected to redis")

	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("redis close failed")
		}
		if mr != nil {
			mr.Close()
		}
	}, nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
