// Package tasks implements the TaskManager: the single authority that
// mutates Task state, always inside a critical section serialized per task
// id. It never holds its lock across a suspension point (storage I/O or
// event publication happen with the lock released) so a slow backend or a
// lagging subscriber cannot stall an unrelated task.
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/a2a-go/pkg/a2a"
	"github.com/theapemachine/a2a-go/pkg/errors"
	"github.com/theapemachine/a2a-go/pkg/eventqueue"
	"github.com/theapemachine/a2a-go/pkg/ports"
	"github.com/theapemachine/a2a-go/pkg/stores"
)

const DefaultMaxHistoryLength = 100

// Manager is the TaskManager. One Manager instance backs an agent's whole
// task population; per-task serialization is done via taskLocks, not by
// locking the whole Manager.
type Manager struct {
	storage          stores.Storage
	queues           *queueRegistry
	maxHistoryLength int

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewManager(storage stores.Storage, maxHistoryLength int) *Manager {
	if maxHistoryLength <= 0 {
		maxHistoryLength = DefaultMaxHistoryLength
	}
	return &Manager{
		storage:          storage,
		queues:           newQueueRegistry(),
		maxHistoryLength: maxHistoryLength,
		locks:            make(map[string]*sync.Mutex),
	}
}

// Queue returns the event queue a task's context publishes on, creating one
// on first use. SSE transport and PushNotificationManager both subscribe
// through this.
func (m *Manager) Queue(contextID string) *eventqueue.Queue {
	return m.queues.get(contextID)
}

func (m *Manager) taskLock(id string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

// CreateTask starts a new task in the submitted state.
func (m *Manager) CreateTask(ctx context.Context, taskType string, params map[string]any, contextID string, metadata map[string]any) (*a2a.Task, *errors.RpcError) {
	task := a2a.NewTask(taskType, params, contextID, metadata)

	if err := m.storage.SaveTask(ctx, task); err != nil {
		return nil, errors.ErrInternal.WithMessagef("failed to persist task: %v", err)
	}

	m.emitStatus(task, false)
	return task.Clone(), nil
}

// GetTask returns the task, with History truncated to historyLength when
// positive. The stored record is never modified by this view.
func (m *Manager) GetTask(ctx context.Context, id string, historyLength int) (*a2a.Task, *errors.RpcError) {
	task, err := m.storage.GetTask(ctx, id)
	if err != nil {
		return nil, errors.ErrTaskNotFound
	}
	if historyLength > 0 {
		return task.WithHistoryLimit(historyLength), nil
	}
	return task, nil
}

// UpdateStatus validates the transition against the task lifecycle table,
// persists it, and emits task_status_update. final is true for transitions
// into a terminal state.
func (m *Manager) UpdateStatus(ctx context.Context, id string, newState a2a.TaskState, msg *a2a.Message) (*a2a.Task, *errors.RpcError) {
	lock := m.taskLock(id)
	lock.Lock()
	task, err := m.storage.GetTask(ctx, id)
	if err != nil {
		lock.Unlock()
		return nil, errors.ErrTaskNotFound
	}

	if !validTransition(task.Status.State, newState) {
		lock.Unlock()
		return nil, errors.ErrInvalidTaskState.WithMessagef("cannot move task %s from %s to %s", id, task.Status.State, newState)
	}

	task.Status = a2a.TaskStatus{State: newState, Message: msg, UpdatedAt: time.Now().UTC()}
	if msg != nil {
		m.appendHistoryLocked(task, *msg)
	}
	lock.Unlock()

	if err := m.storage.SaveTask(ctx, task); err != nil {
		return nil, errors.ErrInternal.WithMessagef("failed to persist status update: %v", err)
	}

	m.emitStatus(task, newState.Terminal())
	return task.Clone(), nil
}

// CancelTask is a convenience wrapper over UpdateStatus for the canceled
// transition; it reports TaskNotCancelable instead of InvalidTaskState when
// the task is already terminal, matching tasks/cancel's error contract.
func (m *Manager) CancelTask(ctx context.Context, id string) (*a2a.Task, *errors.RpcError) {
	task, err := m.storage.GetTask(ctx, id)
	if err != nil {
		return nil, errors.ErrTaskNotFound
	}
	if task.Status.State.Terminal() {
		return nil, errors.ErrTaskNotCancelable
	}
	return m.UpdateStatus(ctx, id, a2a.TaskStateCanceled, nil)
}

// ClearTasks purges every task from storage, leaving push-notification
// configs untouched (they outlive the tasks they were registered against).
// Intended for test fixtures and administrative resets, not normal request
// handling — no A2A method exposes it directly.
func (m *Manager) ClearTasks(ctx context.Context) *errors.RpcError {
	if err := m.storage.ClearTasks(ctx); err != nil {
		return errors.ErrInternal.WithMessagef("failed to clear tasks: %v", err)
	}
	return nil
}

// AddMessage appends msg to the task's history, trimming the oldest entry
// first (FIFO drop-oldest) if the cap would otherwise be exceeded.
func (m *Manager) AddMessage(ctx context.Context, id string, msg a2a.Message) (*a2a.Task, *errors.RpcError) {
	lock := m.taskLock(id)
	lock.Lock()
	task, err := m.storage.GetTask(ctx, id)
	if err != nil {
		lock.Unlock()
		return nil, errors.ErrTaskNotFound
	}
	m.appendHistoryLocked(task, msg)
	lock.Unlock()

	if err := m.storage.SaveTask(ctx, task); err != nil {
		return nil, errors.ErrInternal.WithMessagef("failed to persist message: %v", err)
	}
	return task.Clone(), nil
}

func (m *Manager) appendHistoryLocked(task *a2a.Task, msg a2a.Message) {
	task.History = append(task.History, msg)
	if len(task.History) > m.maxHistoryLength {
		task.History = task.History[len(task.History)-m.maxHistoryLength:]
	}
}

// AddArtifact appends a new artifact, or — when append is true and an
// artifact sharing ArtifactID already exists — concatenates parts onto it
// without deduplication.
func (m *Manager) AddArtifact(ctx context.Context, id string, artifact a2a.Artifact, append_ bool) (*a2a.Task, *errors.RpcError) {
	lock := m.taskLock(id)
	lock.Lock()
	task, err := m.storage.GetTask(ctx, id)
	if err != nil {
		lock.Unlock()
		return nil, errors.ErrTaskNotFound
	}

	merged := false
	if append_ {
		for i := range task.Artifacts {
			if task.Artifacts[i].ArtifactID == artifact.ArtifactID {
				task.Artifacts[i].Parts = append(task.Artifacts[i].Parts, artifact.Parts...)
				merged = true
				break
			}
		}
	}
	if !merged {
		task.Artifacts = append(task.Artifacts, artifact)
	}
	lock.Unlock()

	if err := m.storage.SaveTask(ctx, task); err != nil {
		return nil, errors.ErrInternal.WithMessagef("failed to persist artifact: %v", err)
	}

	m.emitArtifact(task, artifact, append_)
	return task.Clone(), nil
}

func (m *Manager) emitStatus(task *a2a.Task, final bool) {
	err := m.Queue(task.ContextID).Publish(a2a.Event{
		Type:      a2a.EventTaskStatusUpdate,
		TaskID:    task.ID,
		ContextID: task.ContextID,
		Timestamp: time.Now().UTC(),
		Data: a2a.TaskStatusUpdateData{
			TaskID:    task.ID,
			ContextID: task.ContextID,
			Status:    task.Status,
			Final:     final,
		},
	})
	if err != nil {
		log.Warn("task manager: failed to emit status event", "task", task.ID, "error", err)
	}
}

func (m *Manager) emitArtifact(task *a2a.Task, artifact a2a.Artifact, append_ bool) {
	err := m.Queue(task.ContextID).Publish(a2a.Event{
		Type:      a2a.EventTaskArtifactUpdate,
		TaskID:    task.ID,
		ContextID: task.ContextID,
		Timestamp: time.Now().UTC(),
		Data: a2a.TaskArtifactUpdateData{
			TaskID:    task.ID,
			ContextID: task.ContextID,
			Artifact:  artifact,
			Append:    append_,
		},
	})
	if err != nil {
		log.Warn("task manager: failed to emit artifact event", "task", task.ID, "error", err)
	}
}

// Updater returns a ports.TaskUpdater scoped to a single task id, handed to
// an AgentExecutor so it can drive that one task's status/history/artifacts
// without reaching the rest of the TaskManager surface.
func (m *Manager) Updater(taskID string) ports.TaskUpdater {
	return &taskUpdater{manager: m, taskID: taskID}
}

type taskUpdater struct {
	manager *Manager
	taskID  string
}

func (u *taskUpdater) UpdateStatus(ctx context.Context, state a2a.TaskState, msg *a2a.Message) (*a2a.Task, *errors.RpcError) {
	return u.manager.UpdateStatus(ctx, u.taskID, state, msg)
}

func (u *taskUpdater) AddArtifact(ctx context.Context, artifact a2a.Artifact, appendParts bool) (*a2a.Task, *errors.RpcError) {
	return u.manager.AddArtifact(ctx, u.taskID, artifact, appendParts)
}

func (u *taskUpdater) AddMessage(ctx context.Context, msg a2a.Message) (*a2a.Task, *errors.RpcError) {
	return u.manager.AddMessage(ctx, u.taskID, msg)
}

// queueRegistry lazily creates one eventqueue.Queue per context id.
type queueRegistry struct {
	mu     sync.Mutex
	queues map[string]*eventqueue.Queue
}

func newQueueRegistry() *queueRegistry {
	return &queueRegistry{queues: make(map[string]*eventqueue.Queue)}
}

func (r *queueRegistry) get(contextID string) *eventqueue.Queue {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[contextID]
	if !ok {
		q = eventqueue.New(eventqueue.DefaultBufferSize, eventqueue.DefaultRingSize)
		r.queues[contextID] = q
	}
	return q
}
