package stores

// InMemory is a concurrency-safe Storage backed by an LRU cache with a
// freshness TTL. It is good enough for single-process deployments and tests;
// a durable backend should implement the same Storage interface (see
// pkg/stores/s3).

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/theapemachine/a2a-go/pkg/a2a"
)

const (
	DefaultMaxEntries = 1000
	DefaultTTL        = 300 * time.Second
)

type taskEntry struct {
	task      *a2a.Task
	expiresAt time.Time
}

// InMemory implements Storage over an LRU cache of tasks keyed by task id
// and a plain map of push-notification configs keyed by task id, then by
// config id.
type InMemory struct {
	mu    sync.Mutex
	tasks *lru.Cache[string, *taskEntry]
	ttl   time.Duration

	pushMu    sync.Mutex
	pushCfgs  map[string]map[string]a2a.PushNotificationConfig // taskID -> configID -> config
}

func NewInMemory(maxEntries int, ttl time.Duration) *InMemory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cache, _ := lru.New[string, *taskEntry](maxEntries)
	return &InMemory{
		tasks:    cache,
		ttl:      ttl,
		pushCfgs: make(map[string]map[string]a2a.PushNotificationConfig),
	}
}

func (s *InMemory) SaveTask(ctx context.Context, task *a2a.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks.Add(task.ID, &taskEntry{task: task.Clone(), expiresAt: time.Now().Add(s.ttl)})
	return nil
}

func (s *InMemory) GetTask(ctx context.Context, id string) (*a2a.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tasks.Get(id)
	if !ok {
		return nil, &ErrNotFound{Kind: "task", ID: id}
	}
	if time.Now().After(entry.expiresAt) {
		s.tasks.Remove(id)
		return nil, &ErrNotFound{Kind: "task", ID: id}
	}
	return entry.task.Clone(), nil
}

func (s *InMemory) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	s.tasks.Remove(id)
	s.mu.Unlock()
	return nil
}

// ClearTasks empties the task cache. Push configs are untouched: they have
// an independent lifecycle from the tasks they reference (§9).
func (s *InMemory) ClearTasks(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks.Purge()
	return nil
}

// ListTasksByContext scans the cache for tasks sharing a context id. This is
// a reference implementation; a durable backend would index by context
// instead of scanning.
func (s *InMemory) ListTasksByContext(ctx context.Context, contextID string) ([]*a2a.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*a2a.Task
	for _, key := range s.tasks.Keys() {
		entry, ok := s.tasks.Peek(key)
		if !ok || time.Now().After(entry.expiresAt) {
			continue
		}
		if entry.task.ContextID == contextID {
			out = append(out, entry.task.Clone())
		}
	}
	return out, nil
}

// SavePushConfig stores a push-notification config independently of the
// task's own lifecycle: deleting the task does not remove its configs (§9).
func (s *InMemory) SavePushConfig(ctx context.Context, taskID string, cfg a2a.PushNotificationConfig) error {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()
	if s.pushCfgs[taskID] == nil {
		s.pushCfgs[taskID] = make(map[string]a2a.PushNotificationConfig)
	}
	s.pushCfgs[taskID][cfg.ID] = cfg
	return nil
}

func (s *InMemory) GetPushConfig(ctx context.Context, taskID, configID string) (*a2a.PushNotificationConfig, error) {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()
	byTask, ok := s.pushCfgs[taskID]
	if !ok {
		return nil, &ErrNotFound{Kind: "push_config", ID: configID}
	}
	cfg, ok := byTask[configID]
	if !ok {
		return nil, &ErrNotFound{Kind: "push_config", ID: configID}
	}
	clone := cfg
	return &clone, nil
}

func (s *InMemory) ListPushConfigs(ctx context.Context, taskID string) ([]a2a.PushNotificationConfig, error) {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()
	byTask := s.pushCfgs[taskID]
	out := make([]a2a.PushNotificationConfig, 0, len(byTask))
	for _, cfg := range byTask {
		out = append(out, cfg)
	}
	return out, nil
}

func (s *InMemory) DeletePushConfig(ctx context.Context, taskID, configID string) error {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()
	if byTask, ok := s.pushCfgs[taskID]; ok {
		delete(byTask, configID)
	}
	return nil
}
