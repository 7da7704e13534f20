package stores

import (
	"context"

	"github.com/theapemachine/a2a-go/pkg/a2a"
)

/*
Storage is the persistence port TaskManager and PushNotificationManager are
built against. It never appears on the wire and has no opinion on how a
concrete backend keeps data durable — an in-memory reference implementation
lives alongside it here, an S3-backed one in pkg/stores/s3.
*/
type Storage interface {
	SaveTask(ctx context.Context, task *a2a.Task) error
	GetTask(ctx context.Context, id string) (*a2a.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ListTasksByContext(ctx context.Context, contextID string) ([]*a2a.Task, error)
	ClearTasks(ctx context.Context) error

	SavePushConfig(ctx context.Context, taskID string, cfg a2a.PushNotificationConfig) error
	GetPushConfig(ctx context.Context, taskID, configID string) (*a2a.PushNotificationConfig, error)
	ListPushConfigs(ctx context.Context, taskID string) ([]a2a.PushNotificationConfig, error)
	DeletePushConfig(ctx context.Context, taskID, configID string) error
}

// ErrNotFound is returned by Storage implementations when a task or push
// config lookup misses. Callers translate it to an A2A error; pkg/push
// reports a missing config as errors.ErrTaskNotFound.
type ErrNotFound struct {
	Kind string
	ID   string
}

func (e *ErrNotFound) Error() string {
	return e.Kind + " not found: " + e.ID
}
