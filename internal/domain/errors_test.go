package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{nil, ""},
		{fmt.Errorf("%w: %q", ErrUnknownTaskType, "X"), KindUnknownTaskType},
		{fmt.Errorf("%w: qa", ErrAgentNotFound), KindAgentNotFound},
		{fmt.Errorf("%w: qa.x", ErrOperationNotFound), KindOperationNotFound},
		{fmt.Errorf("%w for qa", ErrCircuitOpen), KindCircuitOpen},
		{&AgentExecutionError{Agent: "qa", Operation: "answer", Attempts: 3, Last: errors.New("boom")}, KindAgentExecutionFailed},
		{&AgentExecutionError{Agent: "qa", Operation: "answer", Attempts: 3, Last: context.DeadlineExceeded}, KindAgentExecutionFailed},
		{&PartialFanoutError{Stage: "parser", Succeeded: 1, Failed: 1}, KindPartialFanoutFailure},
		{fmt.Errorf("%w: repo_url is required", ErrInvalidPayload), KindInvalidPayload},
		{fmt.Errorf("stage: %w", context.Canceled), KindCancelled},
		{errors.New("something else"), KindInternal},
	}
	for _, c := range cases {
		if got := KindOf(c.err); got != c.want {
			t.Fatalf("KindOf(%v): expected %s, got %s", c.err, c.want, got)
		}
	}
}

func TestAgentExecutionErrorUnwraps(t *testing.T) {
	last := errors.New("rate limited")
	err := fmt.Errorf("intake stage: %w", &AgentExecutionError{Agent: "intake", Operation: "fetch_repo", Attempts: 3, Last: last})

	if !errors.Is(err, last) || !errors.Is(err, ErrAgentExecutionFailed) {
		t.Fatalf("expected both the sentinel and the last error, got %v", err)
	}
	var aerr *AgentExecutionError
	if !errors.As(err, &aerr) || aerr.Attempts != 3 {
		t.Fatalf("expected attempts 3, got %v", err)
	}
}

func TestErrorFromTask(t *testing.T) {
	task := NewTask("t1", TypeUserQuery, nil, t0)
	if ErrorFromTask(task) != nil {
		t.Fatal("pending task carries no error")
	}
	_ = task.Start(t0)
	_ = task.Fail(fmt.Errorf("%w: qa", ErrAgentNotFound), t0)

	err := ErrorFromTask(task)
	if !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("expected AgentNotFound, got %v", err)
	}
	if KindOf(err) != KindAgentNotFound {
		t.Fatalf("kind must survive the round trip, got %s", KindOf(err))
	}
}
