// Package push implements the PushNotificationManager (§4.4): at-least-once
// HTTP webhook delivery of task events to a caller-registered URL.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/theapemachine/a2a-go/pkg/a2a"
	"github.com/theapemachine/a2a-go/pkg/errors"
	"github.com/theapemachine/a2a-go/pkg/eventqueue"
	"github.com/theapemachine/a2a-go/pkg/stores"
	"github.com/theapemachine/a2a-go/pkg/utils"
)

// Manager owns the config CRUD surface (tasks/pushNotificationConfig/*) and
// drives webhook delivery off a task's EventQueue subscription.
type Manager struct {
	storage stores.Storage
	policy  errors.RetryPolicy
	client  *http.Client

	mu            sync.Mutex
	subscriptions map[string]*eventqueue.Subscription // taskID -> active delivery subscription
}

func NewManager(storage stores.Storage) *Manager {
	return &Manager{
		storage:       storage,
		policy:        errors.DefaultRetryPolicy(),
		client:        &http.Client{Timeout: 10 * time.Second},
		subscriptions: make(map[string]*eventqueue.Subscription),
	}
}

// SetConfig registers (or replaces) a push-notification config for a task.
// Configs outlive the task they're attached to (§9): deleting the task
// never deletes its configs.
func (m *Manager) SetConfig(ctx context.Context, taskID string, cfg a2a.PushNotificationConfig) (*a2a.TaskPushNotificationConfig, *errors.RpcError) {
	if cfg.URL == "" {
		return nil, errors.ErrInvalidParams.WithMessagef("pushNotificationConfig.url is required")
	}
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		return nil, errors.ErrInvalidParams.WithMessagef("pushNotificationConfig.url must use http or https")
	}
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	if cfg.Active == nil {
		cfg.Active = utils.Ptr(true)
	}
	if err := m.storage.SavePushConfig(ctx, taskID, cfg); err != nil {
		return nil, errors.ErrInternal.WithMessagef("failed to persist push config: %v", err)
	}
	return &a2a.TaskPushNotificationConfig{TaskID: taskID, PushNotificationConfig: cfg}, nil
}

func (m *Manager) GetConfig(ctx context.Context, taskID, configID string) (*a2a.TaskPushNotificationConfig, *errors.RpcError) {
	cfg, err := m.storage.GetPushConfig(ctx, taskID, configID)
	if err != nil {
		return nil, errors.ErrTaskNotFound.WithMessagef("no push notification config %q for task %q", configID, taskID)
	}
	return &a2a.TaskPushNotificationConfig{TaskID: taskID, PushNotificationConfig: *cfg}, nil
}

func (m *Manager) ListConfigs(ctx context.Context, taskID string) ([]a2a.TaskPushNotificationConfig, *errors.RpcError) {
	cfgs, err := m.storage.ListPushConfigs(ctx, taskID)
	if err != nil {
		return nil, errors.ErrInternal.WithMessagef("failed to list push configs: %v", err)
	}
	out := make([]a2a.TaskPushNotificationConfig, len(cfgs))
	for i, c := range cfgs {
		out[i] = a2a.TaskPushNotificationConfig{TaskID: taskID, PushNotificationConfig: c}
	}
	return out, nil
}

func (m *Manager) DeleteConfig(ctx context.Context, taskID, configID string) *errors.RpcError {
	if err := m.storage.DeletePushConfig(ctx, taskID, configID); err != nil {
		return errors.ErrInternal.WithMessagef("failed to delete push config: %v", err)
	}
	return nil
}

// Watch starts forwarding every event published on queue for taskID to all
// of the task's registered webhooks, until ctx is canceled or the queue
// closes. One subscription per task id; calling Watch again for a task
// already being watched is a no-op.
func (m *Manager) Watch(ctx context.Context, queue *eventqueue.Queue, taskID string) {
	m.mu.Lock()
	if _, exists := m.subscriptions[taskID]; exists {
		m.mu.Unlock()
		return
	}
	sub := queue.Subscribe(a2a.ForTask(taskID))
	m.subscriptions[taskID] = sub
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.subscriptions, taskID)
			m.mu.Unlock()
			sub.Unsubscribe()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				m.deliver(ctx, taskID, event)
			}
		}
	}()
}

// webhookPayload is the wire body POSTed to a registered push-notification
// endpoint (§4.3): {event_id, type, task_id, context_id, status?|artifact?,
// timestamp}. event_id is the field receivers must honor for de-duplication,
// so unlike the in-process a2a.Event (whose ID is deliberately unserialized,
// an internal queue detail) this DTO always carries it on the wire.
type webhookPayload struct {
	EventID   string          `json:"event_id"`
	Type      a2a.EventType   `json:"type"`
	TaskID    string          `json:"task_id"`
	ContextID string          `json:"context_id"`
	Status    *a2a.TaskStatus `json:"status,omitempty"`
	Artifact  *a2a.Artifact   `json:"artifact,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// newWebhookPayload projects an internal Event onto the wire DTO, picking
// status or artifact off Data depending on the event's concrete type.
func newWebhookPayload(event a2a.Event) webhookPayload {
	p := webhookPayload{
		EventID:   event.HexID(),
		Type:      event.Type,
		TaskID:    event.TaskID,
		ContextID: event.ContextID,
		Timestamp: event.Timestamp,
	}
	switch data := event.Data.(type) {
	case a2a.TaskStatusUpdateData:
		status := data.Status
		p.Status = &status
	case a2a.TaskArtifactUpdateData:
		artifact := data.Artifact
		p.Artifact = &artifact
	}
	return p
}

func (m *Manager) deliver(ctx context.Context, taskID string, event a2a.Event) {
	cfgs, err := m.storage.ListPushConfigs(ctx, taskID)
	if err != nil || len(cfgs) == 0 {
		return
	}

	payload, err := json.Marshal(newWebhookPayload(event))
	if err != nil {
		log.Error("push: failed to marshal event", "task", taskID, "error", err)
		return
	}

	for _, cfg := range cfgs {
		cfg := cfg
		if cfg.Active != nil && !*cfg.Active {
			continue
		}
		if deliverErr := errors.Retry(ctx, m.policy, shouldRetry, func() error {
			return m.send(ctx, cfg, payload)
		}); deliverErr != nil {
			log.Warn("push: delivery exhausted retries", "task", taskID, "url", cfg.URL, "error", deliverErr)
		}
	}
}

func (m *Manager) send(ctx context.Context, cfg a2a.PushNotificationConfig, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	if cfg.Token != nil {
		req.Header.Set("Authorization", "Bearer "+*cfg.Token)
	}
	if cfg.Authentication != nil {
		for _, scheme := range cfg.Authentication.Schemes {
			if scheme == "Bearer" && cfg.Authentication.Credentials != nil {
				req.Header.Set("Authorization", "Bearer "+*cfg.Authentication.Credentials)
			}
		}
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &statusError{code: resp.StatusCode}
}

type transportError struct{ err error }

func (e *transportError) Error() string { return "transport error: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("unexpected status %d", e.code) }

// shouldRetry retries transport errors and 408/429/5xx, per §4.4's
// at-least-once delivery contract. 4xx other than 408/429 is a permanent
// rejection by the receiver and is not retried.
func shouldRetry(err error) bool {
	var te *transportError
	if stderrors.As(err, &te) {
		return true
	}
	var se *statusError
	if stderrors.As(err, &se) {
		return se.code == http.StatusRequestTimeout || se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return false
}
