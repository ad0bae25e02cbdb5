package ports

import (
	"codedoc/internal/domain"
	"context"
	"time"
)

// TaskQueue carries task submissions between processes. The engine itself
// never reads from it; the worker bridges it to a Submitter.
type TaskQueue interface {
	Enqueue(ctx context.Context, t domain.Task) (string, error)
	Claim(ctx context.Context, consumer string, block time.Duration) (*domain.Task, string /*streamID*/, error)
	Ack(ctx context.Context, streamID string) error
	ToDLQ(ctx context.Context, streamID string, t domain.Task, reason string) error
	SaveState(ctx context.Context, t domain.Task) error
	Get(ctx context.Context, id string) (*domain.Task, error)
}

type Submitter interface {
	Submit(ctx context.Context, t *domain.Task) *domain.Task
}
