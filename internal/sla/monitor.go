// Package sla times latency-sensitive calls and logs threshold breaches.
// It never changes the outcome of the call it observes.
package sla

import (
	"codedoc/internal/domain"
	"codedoc/internal/ports"
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

type Monitor struct {
	thresholds map[domain.TaskType]time.Duration
	now        func() time.Time
	breaches   atomic.Int64
}

type Option func(*Monitor)

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

func New(thresholds map[domain.TaskType]time.Duration, opts ...Option) *Monitor {
	copied := make(map[domain.TaskType]time.Duration, len(thresholds))
	for k, v := range thresholds {
		if v > 0 {
			copied[k] = v
		}
	}
	m := &Monitor{thresholds: copied, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Monitor) Threshold(typ domain.TaskType) (time.Duration, bool) {
	d, ok := m.thresholds[typ]
	return d, ok
}

// Observe runs call and, when typ has a threshold, logs a breach if the call
// took longer. The call's output and error are returned unchanged.
func (m *Monitor) Observe(ctx context.Context, typ domain.TaskType, agent string, call func() (ports.Output, error)) (ports.Output, error) {
	threshold, ok := m.thresholds[typ]
	if !ok {
		return call()
	}

	start := m.now()
	out, err := call()
	elapsed := m.now().Sub(start)

	if elapsed > threshold {
		m.breaches.Add(1)
		log.Ctx(ctx).Warn().
			Str("task_type", string(typ)).
			Str("agent", agent).
			Int64("elapsed_ms", elapsed.Milliseconds()).
			Int64("threshold_ms", threshold.Milliseconds()).
			Msg("sla breach")
	}
	return out, err
}

func (m *Monitor) Breaches() int64 { return m.breaches.Load() }
