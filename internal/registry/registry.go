package registry

import (
	"codedoc/internal/domain"
	"codedoc/internal/ports"
	"codedoc/internal/retry"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry maps provider names to capabilities and routes every invocation
// through the retry executor.
type Registry struct {
	exec *retry.Executor

	mu        sync.RWMutex
	providers map[string]ports.Capability
}

func New(exec *retry.Executor) *Registry {
	return &Registry{
		exec:      exec,
		providers: make(map[string]ports.Capability),
	}
}

// Register adds a provider under its own name. Names are write-once.
func (r *Registry) Register(p ports.Capability) error {
	if p == nil || p.Name() == "" {
		return fmt.Errorf("invalid capability")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[p.Name()]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateAgent, p.Name())
	}
	r.providers[p.Name()] = p
	log.Info().Str("agent", p.Name()).Msg("registered agent")
	return nil
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke resolves name.operation and calls it under retry. Lookup failures
// are returned directly without retrying.
func (r *Registry) Invoke(ctx context.Context, name, operation string, in ports.Input) (ports.Output, error) {
	r.mu.RLock()
	p, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAgentNotFound, name)
	}

	op, ok := p.Operation(operation)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", domain.ErrOperationNotFound, name, operation)
	}

	return r.exec.Call(ctx, name, operation, in, op)
}
