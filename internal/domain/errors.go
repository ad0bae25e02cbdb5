package domain

import (
	"context"
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindUnknownTaskType      ErrorKind = "UnknownTaskType"
	KindAgentNotFound        ErrorKind = "AgentNotFound"
	KindOperationNotFound    ErrorKind = "OperationNotFound"
	KindCircuitOpen          ErrorKind = "CircuitOpen"
	KindAgentExecutionFailed ErrorKind = "AgentExecutionFailed"
	KindPartialFanoutFailure ErrorKind = "PartialFanoutFailure"
	KindInvalidPayload       ErrorKind = "InvalidPayload"
	KindCancelled            ErrorKind = "Cancelled"
	KindInternal             ErrorKind = "Internal"
)

var (
	ErrUnknownTaskType      = errors.New("unknown task type")
	ErrAgentNotFound        = errors.New("agent not found")
	ErrOperationNotFound    = errors.New("operation not found")
	ErrCircuitOpen          = errors.New("circuit breaker open")
	ErrAgentExecutionFailed = errors.New("agent execution failed")
	ErrPartialFanoutFailure = errors.New("partial fan-out failure")
	ErrInvalidPayload       = errors.New("invalid payload")
	ErrDuplicateAgent       = errors.New("agent already registered")
	ErrInvalidTransition    = errors.New("invalid task status transition")
)

// AgentExecutionError is returned once a capability call exhausted its attempts.
type AgentExecutionError struct {
	Agent     string
	Operation string
	Attempts  int
	Last      error
}

func (e *AgentExecutionError) Error() string {
	return fmt.Sprintf("agent %s.%s failed after %d attempts: %v", e.Agent, e.Operation, e.Attempts, e.Last)
}

func (e *AgentExecutionError) Unwrap() error { return e.Last }

func (e *AgentExecutionError) Is(target error) bool { return target == ErrAgentExecutionFailed }

// PartialFanoutError summarizes a fan-out stage with failed items. It is
// informational and never fails a task on its own.
type PartialFanoutError struct {
	Stage     string
	Succeeded int
	Failed    int
}

func (e *PartialFanoutError) Error() string {
	return fmt.Sprintf("fan-out %s: %d succeeded, %d failed", e.Stage, e.Succeeded, e.Failed)
}

func (e *PartialFanoutError) Is(target error) bool { return target == ErrPartialFanoutFailure }

// KindOf maps err onto the error taxonomy. Exhausted retries win over
// whatever the provider's last error wrapped.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAgentExecutionFailed):
		return KindAgentExecutionFailed
	case errors.Is(err, ErrUnknownTaskType):
		return KindUnknownTaskType
	case errors.Is(err, ErrAgentNotFound):
		return KindAgentNotFound
	case errors.Is(err, ErrOperationNotFound):
		return KindOperationNotFound
	case errors.Is(err, ErrCircuitOpen):
		return KindCircuitOpen
	case errors.Is(err, ErrPartialFanoutFailure):
		return KindPartialFanoutFailure
	case errors.Is(err, ErrInvalidPayload):
		return KindInvalidPayload
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindInternal
	}
}

// TaskError carries a failed task's outcome as an error, keeping its kind.
type TaskError struct {
	TaskID  string
	Kind    ErrorKind
	Message string
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s: %s", e.TaskID, e.Message)
}

func (e *TaskError) Is(target error) bool {
	return sentinels[e.Kind] == target
}

var sentinels = map[ErrorKind]error{
	KindUnknownTaskType:      ErrUnknownTaskType,
	KindAgentNotFound:        ErrAgentNotFound,
	KindOperationNotFound:    ErrOperationNotFound,
	KindCircuitOpen:          ErrCircuitOpen,
	KindAgentExecutionFailed: ErrAgentExecutionFailed,
	KindPartialFanoutFailure: ErrPartialFanoutFailure,
	KindInvalidPayload:       ErrInvalidPayload,
	KindCancelled:            context.Canceled,
}

// ErrorFromTask returns nil unless t is FAILED.
func ErrorFromTask(t *Task) error {
	if t == nil || t.Status != StatusFailed {
		return nil
	}
	return &TaskError{TaskID: t.ID, Kind: t.ErrorKind, Message: t.Error}
}
