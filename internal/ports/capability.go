package ports

import "context"

type Input map[string]any

type Output map[string]any

// Operation is one named call a capability exposes.
type Operation func(ctx context.Context, in Input) (Output, error)

// Capability is a named provider with a fixed set of operations.
type Capability interface {
	Name() string
	Operation(name string) (Operation, bool)
}
