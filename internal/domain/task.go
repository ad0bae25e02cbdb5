package domain

import (
	"fmt"
	"time"
)

type TaskType string

const (
	TypeRepoIngest   TaskType = "REPO_INGEST"
	TypeUserQuery    TaskType = "USER_QUERY"
	TypePRWebhook    TaskType = "PR_WEBHOOK"
	TypeGenerateDocs TaskType = "GENERATE_DOCS"
	TypeVoiceCommand TaskType = "VOICE_COMMAND"
)

var TaskTypes = []TaskType{
	TypeRepoIngest,
	TypeUserQuery,
	TypePRWebhook,
	TypeGenerateDocs,
	TypeVoiceCommand,
}

func (t TaskType) Valid() bool {
	for _, known := range TaskTypes {
		if t == known {
			return true
		}
	}
	return false
}

type TaskStatus string

const (
	StatusPending   TaskStatus = "PENDING"
	StatusRunning   TaskStatus = "RUNNING"
	StatusCompleted TaskStatus = "COMPLETED"
	StatusFailed    TaskStatus = "FAILED"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Payload and Result are opaque, type-specific maps.
type Payload map[string]any

type Result map[string]any

type Task struct {
	ID          string     `json:"id"`
	Type        TaskType   `json:"type"`
	Payload     Payload    `json:"payload"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   time.Time  `json:"started_at,omitzero"`
	CompletedAt time.Time  `json:"completed_at,omitzero"`
	Result      Result     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	ErrorKind   ErrorKind  `json:"error_kind,omitempty"`
	RetryCount  int        `json:"retry_count"`
}

// NewTask returns a PENDING task created at now.
func NewTask(id string, typ TaskType, payload Payload, now time.Time) *Task {
	if payload == nil {
		payload = Payload{}
	}
	return &Task{
		ID:        id,
		Type:      typ,
		Payload:   payload,
		Status:    StatusPending,
		CreatedAt: now,
	}
}

// Start moves a PENDING task to RUNNING. started_at never precedes created_at.
func (t *Task) Start(now time.Time) error {
	if t.Status != StatusPending {
		return fmt.Errorf("%w: task %s is %s", ErrInvalidTransition, t.ID, t.Status)
	}
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	t.Status = StatusRunning
	t.StartedAt = now
	return nil
}

func (t *Task) Complete(result Result, now time.Time) error {
	if err := t.finish(now); err != nil {
		return err
	}
	t.Status = StatusCompleted
	t.Result = result
	t.Error = ""
	t.ErrorKind = ""
	return nil
}

func (t *Task) Fail(err error, now time.Time) error {
	if ferr := t.finish(now); ferr != nil {
		return ferr
	}
	t.Status = StatusFailed
	t.Result = nil
	t.Error = err.Error()
	t.ErrorKind = KindOf(err)
	return nil
}

func (t *Task) finish(now time.Time) error {
	if t.Status != StatusRunning {
		return fmt.Errorf("%w: task %s is %s", ErrInvalidTransition, t.ID, t.Status)
	}
	if now.Before(t.StartedAt) {
		now = t.StartedAt
	}
	t.CompletedAt = now
	return nil
}

// Latency is zero until the task is terminal.
func (t *Task) Latency() time.Duration {
	if t.CompletedAt.IsZero() || t.StartedAt.IsZero() {
		return 0
	}
	return t.CompletedAt.Sub(t.StartedAt)
}

// AgentExecution records one capability call for logging. It is not retained.
type AgentExecution struct {
	Agent       string
	Operation   string
	StartedAt   time.Time
	CompletedAt time.Time
	Status      TaskStatus
	Attempts    int
	Err         error
}

func (e AgentExecution) Duration() time.Duration {
	return e.CompletedAt.Sub(e.StartedAt)
}
