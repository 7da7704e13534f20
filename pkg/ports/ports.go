// Package ports collects the external collaborator interfaces the core
// consumes but never implements (§6): the business-logic AgentExecutor,
// plus the trivial side-effect ports (Clock, Logger, Metrics, RandomID)
// that let tests substitute deterministic behavior for wall-clock time,
// log output, metrics emission, and id generation.
package ports

import (
	"context"
	"time"

	"github.com/theapemachine/a2a-go/pkg/a2a"
	"github.com/theapemachine/a2a-go/pkg/errors"
)

// TaskUpdater is the narrow slice of TaskManager an AgentExecutor is handed
// for the one task it is working on — status/history/artifact mutation
// scoped to that task id, without exposing the rest of the TaskManager
// surface (other tasks, cache internals) to business logic.
type TaskUpdater interface {
	UpdateStatus(ctx context.Context, state a2a.TaskState, msg *a2a.Message) (*a2a.Task, *errors.RpcError)
	AddArtifact(ctx context.Context, artifact a2a.Artifact, append bool) (*a2a.Task, *errors.RpcError)
	AddMessage(ctx context.Context, msg a2a.Message) (*a2a.Task, *errors.RpcError)
}

// AgentExecutor runs the agent's actual business logic against a task.
// Execute drives the task to completion (or input-required/auth-required)
// through updater, and may return before the task reaches a terminal state
// for long-running work streamed back via C3 events. Cancel is invoked by
// tasks/cancel before the task's status is moved to canceled, giving the
// executor a chance to stop in-flight work cooperatively.
type AgentExecutor interface {
	Execute(ctx context.Context, message a2a.Message, task *a2a.Task, updater TaskUpdater) error
	Cancel(ctx context.Context, task *a2a.Task) error
}

// Clock abstracts wall-clock time so tests can inject deterministic
// timestamps instead of time.Now().
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock, backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Logger is the minimal structured-logging hook point the core depends on;
// pkg/logging's charmbracelet/log wrapper implements it in production.
type Logger interface {
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	Debug(msg string, kv ...any)
}

// Metrics is the side-effect hook point for counters/timers. No component
// in this module takes a Metrics or emits through one.
type Metrics interface {
	IncCounter(name string, labels map[string]string)
	ObserveDuration(name string, d time.Duration, labels map[string]string)
}

// NoopMetrics discards every observation.
type NoopMetrics struct{}

func (NoopMetrics) IncCounter(string, map[string]string)                 {}
func (NoopMetrics) ObserveDuration(string, time.Duration, map[string]string) {}

// RandomID generates identifiers for tasks/contexts/messages/events/push
// configs. The production default is uuid.New().String(); tests can inject
// a deterministic sequence.
type RandomID func() string
