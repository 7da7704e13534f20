package s3

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/theapemachine/a2a-go/pkg/a2a"
	"github.com/theapemachine/a2a-go/pkg/stores"
)

// Store is a stores.Storage backed by an S3-compatible bucket. Tasks are
// keyed "tasks/{contextID}/{taskID}.json"; push configs "push/{taskID}/{configID}.json".
type Store struct {
	conn *Conn
}

func NewStore(conn *Conn) *Store {
	return &Store{conn: conn}
}

var _ stores.Storage = (*Store)(nil)

func taskKey(contextID, taskID string) string {
	return fmt.Sprintf("tasks/%s/%s.json", contextID, taskID)
}

func pushKey(taskID, configID string) string {
	return fmt.Sprintf("push/%s/%s.json", taskID, configID)
}

func (s *Store) SaveTask(ctx context.Context, task *a2a.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return s.conn.Put(ctx, taskKey(task.ContextID, task.ID), data)
}

func (s *Store) GetTask(ctx context.Context, id string) (*a2a.Task, error) {
	keys, err := s.conn.ListKeys(ctx, "tasks/")
	if err != nil {
		return nil, err
	}
	suffix := fmt.Sprintf("/%s.json", id)
	for _, key := range keys {
		if strings.HasSuffix(key, suffix) {
			data, err := s.conn.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			var task a2a.Task
			if err := json.Unmarshal(data, &task); err != nil {
				return nil, err
			}
			return &task, nil
		}
	}
	return nil, &stores.ErrNotFound{Kind: "task", ID: id}
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil
	}
	return s.conn.Delete(ctx, taskKey(task.ContextID, task.ID))
}

// ClearTasks deletes every object under the tasks/ prefix. Push configs live
// under a separate prefix and are left alone (§9).
func (s *Store) ClearTasks(ctx context.Context) error {
	keys, err := s.conn.ListKeys(ctx, "tasks/")
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.conn.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListTasksByContext(ctx context.Context, contextID string) ([]*a2a.Task, error) {
	keys, err := s.conn.ListKeys(ctx, fmt.Sprintf("tasks/%s/", contextID))
	if err != nil {
		return nil, err
	}
	out := make([]*a2a.Task, 0, len(keys))
	for _, key := range keys {
		data, err := s.conn.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		var task a2a.Task
		if err := json.Unmarshal(data, &task); err != nil {
			return nil, err
		}
		out = append(out, &task)
	}
	return out, nil
}

func (s *Store) SavePushConfig(ctx context.Context, taskID string, cfg a2a.PushNotificationConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return s.conn.Put(ctx, pushKey(taskID, cfg.ID), data)
}

func (s *Store) GetPushConfig(ctx context.Context, taskID, configID string) (*a2a.PushNotificationConfig, error) {
	data, err := s.conn.Get(ctx, pushKey(taskID, configID))
	if err != nil {
		return nil, &stores.ErrNotFound{Kind: "push_config", ID: configID}
	}
	var cfg a2a.PushNotificationConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Store) ListPushConfigs(ctx context.Context, taskID string) ([]a2a.PushNotificationConfig, error) {
	keys, err := s.conn.ListKeys(ctx, fmt.Sprintf("push/%s/", taskID))
	if err != nil {
		return nil, err
	}
	out := make([]a2a.PushNotificationConfig, 0, len(keys))
	for _, key := range keys {
		data, err := s.conn.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		var cfg a2a.PushNotificationConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

func (s *Store) DeletePushConfig(ctx context.Context, taskID, configID string) error {
	return s.conn.Delete(ctx, pushKey(taskID, configID))
}
