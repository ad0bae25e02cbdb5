package usecase

import (
	"codedoc/internal/domain"
	"codedoc/internal/metrics"
	"codedoc/internal/ports"
	"codedoc/internal/registry"
	"codedoc/internal/retry"
	"codedoc/internal/sla"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultFanoutLimit = 10

// Engine is everything a dispatcher needs, built once at startup.
type Engine struct {
	Registry *registry.Registry
	Metrics  *metrics.Collector
	SLA      *sla.Monitor

	// FanoutLimit bounds simultaneous calls in a fan-out stage.
	FanoutLimit int
	// IngestFileLimit caps files parsed per ingest; 0 means no cap.
	IngestFileLimit int
}

type runningTaskKey struct{}

type runningTask struct {
	id   string
	base *zerolog.Logger
}

type Handler func(ctx context.Context, t *domain.Task) (domain.Result, error)

var _ ports.Submitter = (*Dispatcher)(nil)

// Dispatcher owns the task lifecycle: it routes a task to the handler for
// its type and finalizes it, always recording metrics.
type Dispatcher struct {
	engine   Engine
	handlers map[domain.TaskType]Handler
	now      func() time.Time
	newID    func() string
}

type Option func(*Dispatcher)

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(d *Dispatcher) { d.newID = newID }
}

// NewDispatcher panics without a registry; metrics and SLA default to
// fresh instances.
func NewDispatcher(e Engine, opts ...Option) *Dispatcher {
	if e.Registry == nil {
		panic("usecase: engine registry is required")
	}
	if e.SLA == nil {
		e.SLA = sla.New(nil)
	}
	if e.Metrics == nil {
		e.Metrics = metrics.NewCollector().WithSLABreaches(e.SLA.Breaches)
	}
	if e.FanoutLimit <= 0 {
		e.FanoutLimit = DefaultFanoutLimit
	}

	d := &Dispatcher{
		engine: e,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	d.handlers = map[domain.TaskType]Handler{
		domain.TypeRepoIngest:   d.handleRepoIngest,
		domain.TypeUserQuery:    d.handleUserQuery,
		domain.TypePRWebhook:    d.handlePRWebhook,
		domain.TypeGenerateDocs: d.handleGenerateDocs,
		domain.TypeVoiceCommand: d.handleVoiceCommand,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Engine() Engine { return d.engine }

func (d *Dispatcher) Metrics() metrics.Snapshot { return d.engine.Metrics.Snapshot() }

// NewTask builds a PENDING task with a fresh id when id is empty.
func (d *Dispatcher) NewTask(id string, typ domain.TaskType, payload domain.Payload) *domain.Task {
	if id == "" {
		id = d.newID()
	}
	return domain.NewTask(id, typ, payload, d.now())
}

// Submit runs t to a terminal status and returns it. An empty or unknown
// status counts as PENDING; RUNNING and terminal tasks are returned
// unchanged.
func (d *Dispatcher) Submit(ctx context.Context, t *domain.Task) *domain.Task {
	if t.ID == "" {
		t.ID = d.newID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = d.now()
	}

	// Nested submissions log from the caller's base logger so task fields
	// are not repeated.
	base := log.Ctx(ctx)
	lc := base.With()
	if parent, ok := ctx.Value(runningTaskKey{}).(runningTask); ok {
		base = parent.base
		lc = base.With().Str("parent_task_id", parent.id)
	}
	logger := lc.
		Str("task_id", t.ID).
		Str("task_type", string(t.Type)).
		Logger()

	if !t.Status.Valid() {
		logger.Warn().Str("status", string(t.Status)).Msg("unknown task status, treating as pending")
		t.Status = domain.StatusPending
	}

	if err := t.Start(d.now()); err != nil {
		logger.Warn().Err(err).Msg("task not submitted")
		return t
	}

	ctx = context.WithValue(logger.WithContext(ctx), runningTaskKey{}, runningTask{id: t.ID, base: base})
	ctx, counter := retry.WithCounter(ctx)
	logger.Info().Msg("executing task")

	result, err := d.run(ctx, t)

	t.RetryCount = counter.Retries()
	finishedAt := d.now()
	if err != nil {
		_ = t.Fail(err, finishedAt)
	} else {
		_ = t.Complete(result, finishedAt)
	}
	d.engine.Metrics.RecordTask(t)

	ev := logger.Info()
	if t.Status == domain.StatusFailed {
		ev = logger.Error().Str("error_kind", string(t.ErrorKind)).Str("error", t.Error)
	}
	ev.Str("status", string(t.Status)).
		Int64("latency_ms", t.Latency().Milliseconds()).
		Int("retries", t.RetryCount).
		Msg("task finished")

	return t
}

func (d *Dispatcher) run(ctx context.Context, t *domain.Task) (result domain.Result, err error) {
	handler, ok := d.handlers[t.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTaskType, t.Type)
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, t)
}
