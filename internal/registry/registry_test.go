package registry

import (
	"codedoc/internal/breaker"
	"codedoc/internal/capability"
	"codedoc/internal/domain"
	"codedoc/internal/ports"
	"codedoc/internal/retry"
	"context"
	"errors"
	"testing"
	"time"
)

func newRegistry() *Registry {
	noSleep := func(ctx context.Context, d time.Duration) error { return nil }
	return New(retry.New(retry.Config{MaxAttempts: 2}, breaker.New(breaker.Config{}), retry.WithSleep(noSleep)))
}

func echoProvider(name string) *capability.Provider {
	return capability.New(name, map[string]ports.Operation{
		"echo": func(ctx context.Context, in ports.Input) (ports.Output, error) {
			return ports.Output{"echo": in["value"]}, nil
		},
	})
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := newRegistry()
	if err := r.Register(echoProvider("qa")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register(echoProvider("qa")); !errors.Is(err, domain.ErrDuplicateAgent) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if err := r.Register(echoProvider("")); err == nil {
		t.Fatal("expected error for empty name")
	}
	if !r.Has("qa") || r.Has("parser") {
		t.Fatal("unexpected Has results")
	}
}

func TestInvoke(t *testing.T) {
	r := newRegistry()
	_ = r.Register(echoProvider("qa"))

	out, err := r.Invoke(context.Background(), "qa", "echo", ports.Input{"value": "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["echo"] != "hi" {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestInvokeLookupErrors(t *testing.T) {
	r := newRegistry()
	_ = r.Register(echoProvider("qa"))

	_, err := r.Invoke(context.Background(), "missing", "echo", nil)
	if !errors.Is(err, domain.ErrAgentNotFound) || domain.KindOf(err) != domain.KindAgentNotFound {
		t.Fatalf("expected agent not found, got %v", err)
	}

	_, err = r.Invoke(context.Background(), "qa", "nope", nil)
	if !errors.Is(err, domain.ErrOperationNotFound) || domain.KindOf(err) != domain.KindOperationNotFound {
		t.Fatalf("expected operation not found, got %v", err)
	}
}

func TestInvokeRetriesThroughExecutor(t *testing.T) {
	r := newRegistry()
	calls := 0
	_ = r.Register(capability.New("parser", map[string]ports.Operation{
		"parse_file": func(ctx context.Context, in ports.Input) (ports.Output, error) {
			calls++
			return nil, errors.New("bad file")
		},
	}))

	_, err := r.Invoke(context.Background(), "parser", "parse_file", nil)
	if domain.KindOf(err) != domain.KindAgentExecutionFailed {
		t.Fatalf("expected AgentExecutionFailed, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestNamesSorted(t *testing.T) {
	r := newRegistry()
	_ = r.Register(echoProvider("summarizer"))
	_ = r.Register(echoProvider("intake"))
	names := r.Names()
	if len(names) != 2 || names[0] != "intake" || names[1] != "summarizer" {
		t.Fatalf("unexpected names: %v", names)
	}
}
