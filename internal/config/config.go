package config

import (
	"codedoc/internal/domain"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Engine Engine
	Log    Log
	API    API
	Redis  Redis
	Worker Worker
}

type Engine struct {
	BreakerThreshold  int           `env:"CIRCUIT_BREAKER_THRESHOLD" envDefault:"5"`
	BreakerWindow     time.Duration `env:"CIRCUIT_BREAKER_WINDOW" envDefault:"60s"`
	BreakerCooldown   time.Duration `env:"CIRCUIT_BREAKER_TIMEOUT" envDefault:"60s"`
	RetryMaxAttempts  int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RetryBackoffBase  time.Duration `env:"RETRY_BACKOFF_BASE" envDefault:"1s"`
	QAResponseTimeout int           `env:"QA_RESPONSE_TIMEOUT_MS" envDefault:"500"`
	PRAnalysisTimeout time.Duration `env:"PR_ANALYSIS_TIMEOUT" envDefault:"2s"`
	FanoutLimit       int           `env:"FAN_OUT_CONCURRENCY_LIMIT" envDefault:"10"`
	IngestFileLimit   int           `env:"INGEST_FILE_LIMIT" envDefault:"0"`
	ProvidersFile     string        `env:"PROVIDERS_FILE"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

type API struct {
	Port int `env:"API_PORT" envDefault:"8000"`
}

type Redis struct {
	Enabled      bool          `env:"REDIS_ENABLED" envDefault:"false"`
	Addr         string        `env:"REDIS_ADDRESS" envDefault:"localhost:6379"`
	Password     string        `env:"REDIS_PASSWORD"`
	DB           int           `env:"REDIS_DB" envDefault:"0"`
	StreamKey    string        `env:"REDIS_STREAM_KEY" envDefault:"codedoc:tasks"`
	Group        string        `env:"REDIS_GROUP" envDefault:"codedoc"`
	DLQStreamKey string        `env:"REDIS_DLQ_STREAM_KEY" envDefault:"codedoc:tasks:dlq"`
	ResultTTL    time.Duration `env:"REDIS_RESULT_TTL" envDefault:"24h"`
}

type Worker struct {
	Concurrency int           `env:"WORKER_CONCURRENCY" envDefault:"1"`
	BaseBackoff time.Duration `env:"WORKER_BASE_BACKOFF" envDefault:"500ms"`
	MaxBackoff  time.Duration `env:"WORKER_MAX_BACKOFF" envDefault:"30s"`
	Block       time.Duration `env:"WORKER_BLOCK" envDefault:"5s"`
}

// Load reads .env when present, then the environment. Invalid settings are
// fatal.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal().Err(err).Msg("failed to read .env")
	}

	c, err := Parse(env.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	return c
}

func Parse(opts env.Options) (*Config, error) {
	var c Config
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	e := c.Engine
	var errs []error
	if e.BreakerThreshold < 1 {
		errs = append(errs, fmt.Errorf("CIRCUIT_BREAKER_THRESHOLD must be at least 1, got %d", e.BreakerThreshold))
	}
	if e.RetryMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", e.RetryMaxAttempts))
	}
	if e.FanoutLimit < 1 {
		errs = append(errs, fmt.Errorf("FAN_OUT_CONCURRENCY_LIMIT must be at least 1, got %d", e.FanoutLimit))
	}
	if e.IngestFileLimit < 0 {
		errs = append(errs, fmt.Errorf("INGEST_FILE_LIMIT must not be negative, got %d", e.IngestFileLimit))
	}
	if e.QAResponseTimeout < 0 {
		errs = append(errs, fmt.Errorf("QA_RESPONSE_TIMEOUT_MS must not be negative, got %d", e.QAResponseTimeout))
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"CIRCUIT_BREAKER_WINDOW", e.BreakerWindow},
		{"CIRCUIT_BREAKER_TIMEOUT", e.BreakerCooldown},
		{"RETRY_BACKOFF_BASE", e.RetryBackoffBase},
		{"PR_ANALYSIS_TIMEOUT", e.PRAnalysisTimeout},
		{"REDIS_RESULT_TTL", c.Redis.ResultTTL},
	} {
		if d.value < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", d.name, d.value))
		}
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("API_PORT out of range: %d", c.API.Port))
	}
	return errors.Join(errs...)
}

// SLAThresholds returns the observational latency budgets per task type.
func (e Engine) SLAThresholds() map[domain.TaskType]time.Duration {
	return map[domain.TaskType]time.Duration{
		domain.TypeUserQuery: time.Duration(e.QAResponseTimeout) * time.Millisecond,
		domain.TypePRWebhook: e.PRAnalysisTimeout,
	}
}
