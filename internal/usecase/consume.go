package usecase

import (
	"codedoc/internal/domain"
	"codedoc/internal/ports"
	"codedoc/internal/retry"
	"codedoc/pkg/backoff"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Consumer bridges a TaskQueue to a Submitter. Every claimed task runs to a
// terminal status exactly once; failures are parked on the DLQ, not retried.
type Consumer struct {
	Q            ports.TaskQueue
	Tasks        ports.Submitter
	ConsumerName string
	Workers      int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
	Block        time.Duration
}

func (c Consumer) Run(ctx context.Context) error {
	workers := c.Workers
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			c.loop(ctx)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (c Consumer) loop(ctx context.Context) {
	block := c.Block
	if block <= 0 {
		block = 5 * time.Second
	}

	claimFailures := 0
	for {
		if ctx.Err() != nil {
			return
		}

		t, id, err := c.Q.Claim(ctx, c.ConsumerName, block)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			claimFailures++
			delay := backoff.ExponentialJitter(c.BaseBackoff, c.MaxBackoff, claimFailures)
			log.Ctx(ctx).Warn().Err(err).Dur("retry_in", delay).Msg("claim failed")
			if retry.Sleep(ctx, delay) != nil {
				return
			}
			continue
		}
		claimFailures = 0
		if t == nil {
			continue
		}

		c.Process(ctx, t, id)
	}
}

// Process runs one claimed task, stores its terminal state and acks it.
func (c Consumer) Process(ctx context.Context, t *domain.Task, streamID string) *domain.Task {
	logger := log.Ctx(ctx).With().Str("stream_id", streamID).Logger()

	t.Status = domain.StatusPending
	done := c.Tasks.Submit(ctx, t)

	if err := c.Q.SaveState(ctx, *done); err != nil {
		logger.Error().Err(err).Str("task_id", done.ID).Msg("failed to save task state")
	}

	if done.Status == domain.StatusFailed {
		if err := c.Q.ToDLQ(ctx, streamID, *done, done.Error); err != nil {
			logger.Error().Err(err).Str("task_id", done.ID).Msg("failed to move task to dlq")
		}
		return done
	}

	if err := c.Q.Ack(ctx, streamID); err != nil {
		logger.Error().Err(err).Str("task_id", done.ID).Msg("failed to ack task")
	}
	return done
}
