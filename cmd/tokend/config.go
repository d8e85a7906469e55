package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog"
)

// memoryRedisURL starts an in-process Redis instead of dialing one.
const memoryRedisURL = "memory"

type Config struct {
	AppName         string        `env:"APP_NAME" env-default:"tokend" validate:"required"`
	Addr            string        `env:"ADDR" env-default:":3000" validate:"required"`
	RedisURL        string        `env:"REDIS_URL" env-default:"redis://localhost:6379" validate:"required"`
	RedisPrefix     string        `env:"REDIS_PREFIX" env-default:"rt:" validate:"required"`
	AccessSecret    string        `env:"ACCESS_TOKEN_SECRET" env-required:"true" validate:"required"`
	RefreshSecret   string        `env:"REFRESH_TOKEN_SECRET" env-required:"true" validate:"required,nefield=AccessSecret"`
	AccessTTL       string        `env:"ACCESS_TOKEN_TTL" env-default:"15m" validate:"required"`
	RefreshTTL      string        `env:"REFRESH_TOKEN_TTL" env-default:"30d" validate:"required"`
	Production      bool          `env:"PRODUCTION" env-default:"false"`
	Domain          string        `env:"DOMAIN" env-default:"yourdomain.com" validate:"required_if=Production true,omitempty,hostname"`
	RotationPolicy  string        `env:"ROTATION_POLICY" env-default:"rotate" validate:"oneof=rotate reuse"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" env-default:"http://localhost:3000" env-separator:","`
	StoreTimeout    time.Duration `env:"STORE_TIMEOUT" env-default:"2s" validate:"gt=0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"5s" validate:"gt=0"`
	Audit           bool          `env:"AUDIT" env-default:"false"`
	LogFormat       string        `env:"LOG_FORMAT" env-default:"console" validate:"oneof=console json"`
	LogLevel        string        `env:"LOG_LEVEL" env-default:"info" validate:"oneof=trace debug info warn error"`
	TraceEndpoint   string        `env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT" validate:"omitempty,url"`
}

func LoadConfig() (*Config, error) {
	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return &cfg, nil
}

// EngineConfig maps the server settings onto the library configuration.
func (c *Config) EngineConfig() goSession.Config {
	engineCfg := goSession.DefaultConfig()
	if c.Production {
		engineCfg = goSession.ProductionConfig(c.Domain)
	}

	engineCfg.JWT.AccessSecret = []byte(c.AccessSecret)
	engineCfg.JWT.RefreshSecret = []byte(c.RefreshSecret)
	engineCfg.JWT.AccessTTL = c.AccessTTL
	engineCfg.JWT.RefreshTTL = c.RefreshTTL
	engineCfg.JWT.Issuer = c.AppName
	engineCfg.Session.RedisPrefix = c.RedisPrefix
	if c.RotationPolicy == "reuse" {
		engineCfg.Session.RotationPolicy = goSession.RotationReuse
	}
	engineCfg.Audit.Enabled = c.Audit
	engineCfg.Metrics.Enabled = true
	engineCfg.Metrics.EnableLatencyHistograms = true

	return engineCfg
}

func newLogger(format, level string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
