package usecase

import (
	"codedoc/internal/breaker"
	"codedoc/internal/capability"
	"codedoc/internal/domain"
	"codedoc/internal/metrics"
	"codedoc/internal/ports"
	"codedoc/internal/registry"
	"codedoc/internal/retry"
	"codedoc/internal/sla"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	clock      *testClock
	breaker    *breaker.Breaker
	registry   *registry.Registry
	sla        *sla.Monitor
	metrics    *metrics.Collector
	dispatcher *Dispatcher
	ids        int
}

type harnessConfig struct {
	maxAttempts int
	fanoutLimit int
	thresholds  map[domain.TaskType]time.Duration
}

func newHarness(t *testing.T, cfg harnessConfig) *harness {
	t.Helper()
	if cfg.maxAttempts == 0 {
		cfg.maxAttempts = 3
	}
	h := &harness{clock: newTestClock()}
	noSleep := func(ctx context.Context, d time.Duration) error { return ctx.Err() }

	h.breaker = breaker.New(breaker.Config{Threshold: 5, Window: time.Minute, Cooldown: time.Minute}, breaker.WithClock(h.clock.Now))
	exec := retry.New(retry.Config{MaxAttempts: cfg.maxAttempts, BackoffBase: time.Second}, h.breaker,
		retry.WithSleep(noSleep), retry.WithClock(h.clock.Now))
	h.registry = registry.New(exec)
	h.sla = sla.New(cfg.thresholds, sla.WithClock(h.clock.Now))
	h.metrics = metrics.NewCollector().WithSLABreaches(h.sla.Breaches)
	h.dispatcher = NewDispatcher(Engine{
		Registry:    h.registry,
		Metrics:     h.metrics,
		SLA:         h.sla,
		FanoutLimit: cfg.fanoutLimit,
	}, WithClock(h.clock.Now), WithIDGenerator(func() string {
		h.ids++
		return fmt.Sprintf("gen-%d", h.ids)
	}))
	return h
}

func (h *harness) register(t *testing.T, name string, ops map[string]ports.Operation) {
	t.Helper()
	if err := h.registry.Register(capability.New(name, ops)); err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
}

func (h *harness) submit(typ domain.TaskType, payload domain.Payload) *domain.Task {
	task := h.dispatcher.NewTask("", typ, payload)
	return h.dispatcher.Submit(context.Background(), task)
}

func constOp(out ports.Output) ports.Operation {
	return func(ctx context.Context, in ports.Input) (ports.Output, error) {
		return out, nil
	}
}

func failOp(msg string) ports.Operation {
	return func(ctx context.Context, in ports.Input) (ports.Output, error) {
		return nil, fmt.Errorf("%s", msg)
	}
}

func assertTerminal(t *testing.T, task *domain.Task) {
	t.Helper()
	if !task.Status.IsTerminal() {
		t.Fatalf("task %s not terminal: %s", task.ID, task.Status)
	}
	if task.StartedAt.Before(task.CreatedAt) || task.CompletedAt.Before(task.StartedAt) {
		t.Fatalf("timestamps out of order: created=%v started=%v completed=%v", task.CreatedAt, task.StartedAt, task.CompletedAt)
	}
	if task.Status == domain.StatusCompleted && task.Error != "" {
		t.Fatalf("completed task carries error %q", task.Error)
	}
	if task.Status == domain.StatusFailed && (task.Result != nil || task.Error == "") {
		t.Fatalf("failed task must have error and no result: %+v", task)
	}
}
