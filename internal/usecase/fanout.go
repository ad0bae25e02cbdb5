package usecase

import (
	"codedoc/internal/domain"
	"codedoc/internal/ports"
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type FanoutSummary struct {
	Succeeded int
	Failed    int
}

// Err is non-nil when any item failed. It is informational only.
func (s FanoutSummary) Err(stage string) error {
	if s.Failed == 0 {
		return nil
	}
	return &domain.PartialFanoutError{Stage: stage, Succeeded: s.Succeeded, Failed: s.Failed}
}

// FanOut calls fn once per input with at most limit calls in flight and
// returns after every call has settled. Individual failures are counted,
// never propagated. Inputs not yet started when ctx is done count as failed.
func FanOut(ctx context.Context, limit int, inputs []ports.Input, fn func(ctx context.Context, in ports.Input) error) FanoutSummary {
	if limit <= 0 {
		limit = 1
	}

	var succeeded, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(limit)

	for _, in := range inputs {
		g.Go(func() error {
			if ctx.Err() != nil {
				failed.Add(1)
				return nil
			}
			if err := callSafely(ctx, in, fn); err != nil {
				failed.Add(1)
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return FanoutSummary{Succeeded: int(succeeded.Load()), Failed: int(failed.Load())}
}

func callSafely(ctx context.Context, in ports.Input, fn func(ctx context.Context, in ports.Input) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fan-out call panic: %v", r)
			log.Ctx(ctx).Error().Err(err).Msg("recovered fan-out panic")
		}
	}()
	return fn(ctx, in)
}
