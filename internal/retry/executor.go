package retry

import (
	"codedoc/internal/breaker"
	"codedoc/internal/domain"
	"codedoc/internal/ports"
	"codedoc/pkg/backoff"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoffBase = time.Second
)

type Config struct {
	MaxAttempts int
	BackoffBase time.Duration
}

// SleepFunc suspends the caller for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor runs one capability call with bounded retries, consulting and
// updating a shared circuit breaker.
type Executor struct {
	cfg     Config
	breaker *breaker.Breaker
	sleep   SleepFunc
	now     func() time.Time
}

type Option func(*Executor)

func WithSleep(sleep SleepFunc) Option {
	return func(e *Executor) { e.sleep = sleep }
}

func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

func New(cfg Config, b *breaker.Breaker, opts ...Option) *Executor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BackoffBase < 0 {
		cfg.BackoffBase = 0
	}
	e := &Executor{
		cfg:     cfg,
		breaker: b,
		sleep:   Sleep,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Breaker() *breaker.Breaker { return e.breaker }

// Call invokes op against agent. An open circuit fails before any attempt.
// Exhausted attempts record one breaker failure and return an
// *domain.AgentExecutionError. Cancellation during a backoff wait returns
// the context error without touching the breaker.
func (e *Executor) Call(ctx context.Context, agent, operation string, in ports.Input, op ports.Operation) (ports.Output, error) {
	logger := log.Ctx(ctx).With().Str("agent", agent).Str("operation", operation).Logger()

	if e.breaker.IsOpen(agent) {
		logger.Warn().Msg("circuit open, call rejected")
		return nil, fmt.Errorf("%w for %s", domain.ErrCircuitOpen, agent)
	}

	exec := domain.AgentExecution{
		Agent:     agent,
		Operation: operation,
		StartedAt: e.now(),
		Status:    domain.StatusRunning,
	}

	for attempt := 0; attempt < e.cfg.MaxAttempts; attempt++ {
		exec.Attempts = attempt + 1
		out, err := op(ctx, in)
		if err == nil {
			e.breaker.RecordSuccess(agent)
			exec.Status = domain.StatusCompleted
			exec.CompletedAt = e.now()
			logExecution(logger, exec)
			return out, nil
		}

		logger.Error().Err(err).Int("attempt", attempt+1).Msg("agent call failed")

		if attempt == e.cfg.MaxAttempts-1 {
			if opened := e.breaker.RecordFailure(agent); opened {
				cfg := e.breaker.Config()
				logger.Warn().
					Dur("cooldown", cfg.Cooldown).
					Int("threshold", cfg.Threshold).
					Msg("circuit breaker opened")
			}
			exec.Status = domain.StatusFailed
			exec.CompletedAt = e.now()
			exec.Err = err
			logExecution(logger, exec)
			return nil, &domain.AgentExecutionError{
				Agent:     agent,
				Operation: operation,
				Attempts:  attempt + 1,
				Last:      err,
			}
		}

		CounterFrom(ctx).add()
		if serr := e.sleep(ctx, backoff.Exponential(e.cfg.BackoffBase, attempt)); serr != nil {
			exec.Status = domain.StatusFailed
			exec.CompletedAt = e.now()
			exec.Err = serr
			logExecution(logger, exec)
			return nil, serr
		}
	}

	// MaxAttempts is always >= 1, the loop returns.
	return nil, fmt.Errorf("%w: %s.%s made no attempts", domain.ErrAgentExecutionFailed, agent, operation)
}

func logExecution(logger zerolog.Logger, exec domain.AgentExecution) {
	ev := logger.Debug()
	if exec.Err != nil {
		ev = logger.Warn().Err(exec.Err)
	}
	ev.Str("status", string(exec.Status)).
		Int("attempts", exec.Attempts).
		Dur("duration", exec.Duration()).
		Msg("agent execution finished")
}

// Sleep waits on a timer so the goroutine is parked, not spinning.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
