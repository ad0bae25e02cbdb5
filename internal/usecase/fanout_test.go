package usecase

import (
	"codedoc/internal/domain"
	"codedoc/internal/ports"
	"context"
	"errors"
	"testing"
)

func TestFanOutCountsEveryItem(t *testing.T) {
	inputs := make([]ports.Input, 10)
	for i := range inputs {
		inputs[i] = ports.Input{"n": i}
	}

	summary := FanOut(context.Background(), 3, inputs, func(ctx context.Context, in ports.Input) error {
		if in["n"].(int)%4 == 0 {
			return errors.New("boom")
		}
		return nil
	})
	if summary.Succeeded != 7 || summary.Failed != 3 {
		t.Fatalf("expected 7/3, got %+v", summary)
	}

	err := summary.Err("parser")
	if !errors.Is(err, domain.ErrPartialFanoutFailure) {
		t.Fatalf("expected partial fan-out error, got %v", err)
	}
	var perr *domain.PartialFanoutError
	if !errors.As(err, &perr) || perr.Stage != "parser" {
		t.Fatalf("expected stage parser, got %v", err)
	}
}

func TestFanOutEmptyAndClean(t *testing.T) {
	summary := FanOut(context.Background(), 0, nil, func(ctx context.Context, in ports.Input) error {
		t.Fatal("fn must not be called")
		return nil
	})
	if summary.Succeeded != 0 || summary.Failed != 0 || summary.Err("x") != nil {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
}

func TestFanOutRecoversPanics(t *testing.T) {
	inputs := []ports.Input{{"n": 1}, {"n": 2}}
	summary := FanOut(context.Background(), 2, inputs, func(ctx context.Context, in ports.Input) error {
		if in["n"] == 1 {
			panic("bad file")
		}
		return nil
	})
	if summary.Succeeded != 1 || summary.Failed != 1 {
		t.Fatalf("expected panic counted as failure, got %+v", summary)
	}
}

func TestFanOutSkipsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := 0
	summary := FanOut(ctx, 1, []ports.Input{{}, {}, {}}, func(ctx context.Context, in ports.Input) error {
		called++
		return nil
	})
	if called != 0 || summary.Failed != 3 {
		t.Fatalf("expected all items skipped, called=%d summary=%+v", called, summary)
	}
}
