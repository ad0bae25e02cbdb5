package domain

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func TestTaskLifecycle(t *testing.T) {
	task := NewTask("t1", TypeUserQuery, nil, t0)
	if task.Status != StatusPending || task.Payload == nil {
		t.Fatalf("expected pending task with empty payload, got %+v", task)
	}
	if task.Latency() != 0 {
		t.Fatalf("expected zero latency before completion, got %v", task.Latency())
	}

	if err := task.Start(t0.Add(time.Second)); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := task.Complete(Result{"answer": "x"}, t0.Add(3*time.Second)); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if task.Status != StatusCompleted || !task.Status.IsTerminal() {
		t.Fatalf("expected COMPLETED, got %s", task.Status)
	}
	if task.Latency() != 2*time.Second {
		t.Fatalf("expected 2s latency, got %v", task.Latency())
	}

	if err := task.Start(t0.Add(4 * time.Second)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if err := task.Fail(errors.New("late"), t0.Add(5*time.Second)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if task.Status != StatusCompleted {
		t.Fatalf("terminal task changed status to %s", task.Status)
	}
}

func TestTaskTimestampsNeverGoBackwards(t *testing.T) {
	task := NewTask("t1", TypeRepoIngest, Payload{}, t0)
	if err := task.Start(t0.Add(-time.Minute)); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !task.StartedAt.Equal(t0) {
		t.Fatalf("started_at must be clamped to created_at, got %v", task.StartedAt)
	}
	if err := task.Fail(ErrInvalidPayload, t0.Add(-time.Hour)); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if task.CompletedAt.Before(task.StartedAt) {
		t.Fatalf("completed_at %v before started_at %v", task.CompletedAt, task.StartedAt)
	}
	if task.ErrorKind != KindInvalidPayload || task.Result != nil {
		t.Fatalf("unexpected failure state: %+v", task)
	}
}

func TestCompleteRequiresRunning(t *testing.T) {
	task := NewTask("t1", TypeUserQuery, nil, t0)
	if err := task.Complete(Result{}, t0); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestTaskTypeValid(t *testing.T) {
	for _, typ := range TaskTypes {
		if !typ.Valid() {
			t.Fatalf("%s should be valid", typ)
		}
	}
	if TaskType("repo_ingest").Valid() {
		t.Fatal("task types are case sensitive")
	}
}
