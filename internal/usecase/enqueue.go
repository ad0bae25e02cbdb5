package usecase

import (
	"codedoc/internal/domain"
	"codedoc/internal/ports"
	"context"
	"fmt"
)

type Enqueuer struct {
	Q ports.TaskQueue
}

// Now publishes t for a worker to run. Unknown types are rejected here so
// they never reach the stream.
func (e Enqueuer) Now(ctx context.Context, t domain.Task) (string, error) {
	if !t.Type.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownTaskType, t.Type)
	}
	if t.Payload == nil {
		t.Payload = domain.Payload{}
	}
	t.Status = domain.StatusPending
	return e.Q.Enqueue(ctx, t)
}

// Lookup returns the stored state of a task, or nil if none is stored.
func (e Enqueuer) Lookup(ctx context.Context, id string) (*domain.Task, error) {
	return e.Q.Get(ctx, id)
}
