package retry

import (
	"context"
	"sync/atomic"
)

type counterKey struct{}

// Counter tallies retry attempts across every call made under one context.
type Counter struct {
	n atomic.Int64
}

func (c *Counter) add() {
	if c != nil {
		c.n.Add(1)
	}
}

func (c *Counter) Retries() int {
	if c == nil {
		return 0
	}
	return int(c.n.Load())
}

func WithCounter(ctx context.Context) (context.Context, *Counter) {
	c := &Counter{}
	return context.WithValue(ctx, counterKey{}, c), c
}

// CounterFrom returns nil when ctx carries no counter; a nil Counter is usable.
func CounterFrom(ctx context.Context) *Counter {
	c, _ := ctx.Value(counterKey{}).(*Counter)
	return c
}
