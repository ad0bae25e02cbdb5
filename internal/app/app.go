// Package app assembles the engine from configuration.
package app

import (
	"codedoc/internal/breaker"
	"codedoc/internal/capability/scripted"
	"codedoc/internal/config"
	"codedoc/internal/metrics"
	"codedoc/internal/registry"
	"codedoc/internal/retry"
	"codedoc/internal/sla"
	"codedoc/internal/usecase"
	"fmt"

	"github.com/rs/zerolog/log"
)

type App struct {
	Breaker    *breaker.Breaker
	Registry   *registry.Registry
	SLA        *sla.Monitor
	Metrics    *metrics.Collector
	Dispatcher *usecase.Dispatcher
}

// New builds the engine without any providers registered.
func New(cfg config.Engine) *App {
	b := breaker.New(breaker.Config{
		Threshold: cfg.BreakerThreshold,
		Window:    cfg.BreakerWindow,
		Cooldown:  cfg.BreakerCooldown,
	})
	exec := retry.New(retry.Config{
		MaxAttempts: cfg.RetryMaxAttempts,
		BackoffBase: cfg.RetryBackoffBase,
	}, b)
	reg := registry.New(exec)
	monitor := sla.New(cfg.SLAThresholds())
	collector := metrics.NewCollector().WithSLABreaches(monitor.Breaches)

	return &App{
		Breaker:  b,
		Registry: reg,
		SLA:      monitor,
		Metrics:  collector,
		Dispatcher: usecase.NewDispatcher(usecase.Engine{
			Registry:        reg,
			Metrics:         collector,
			SLA:             monitor,
			FanoutLimit:     cfg.FanoutLimit,
			IngestFileLimit: cfg.IngestFileLimit,
		}),
	}
}

// Load builds the engine and registers the scripted providers from
// cfg.ProvidersFile, or the embedded defaults.
func Load(cfg config.Engine) (*App, error) {
	a := New(cfg)

	file, err := scripted.Load(cfg.ProvidersFile)
	if err != nil {
		return nil, fmt.Errorf("load providers: %w", err)
	}
	names, err := scripted.RegisterAll(a.Registry, file)
	if err != nil {
		return nil, fmt.Errorf("register providers: %w", err)
	}

	source := cfg.ProvidersFile
	if source == "" {
		source = "embedded"
	}
	log.Info().Str("source", source).Strs("providers", names).Msg("providers loaded")
	return a, nil
}

type Status struct {
	Providers []string                `json:"providers"`
	Circuits  []breaker.ProviderState `json:"circuits"`
	Metrics   metrics.Snapshot        `json:"metrics"`
}

func (a *App) Status() Status {
	return Status{
		Providers: a.Registry.Names(),
		Circuits:  a.Breaker.Snapshot(),
		Metrics:   a.Metrics.Snapshot(),
	}
}
