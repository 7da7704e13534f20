package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theapemachine/a2a-go/pkg/a2a"
	"github.com/theapemachine/a2a-go/pkg/eventqueue"
	"github.com/theapemachine/a2a-go/pkg/stores"
)

func TestSetGetListDeleteConfig(t *testing.T) {
	m := NewManager(stores.NewInMemory(0, 0))
	ctx := context.Background()

	saved, rpcErr := m.SetConfig(ctx, "task-1", a2a.PushNotificationConfig{ID: "cfg-1", URL: "https://example.test/hook"})
	require.Nil(t, rpcErr)
	assert.Equal(t, "task-1", saved.TaskID)

	got, rpcErr := m.GetConfig(ctx, "task-1", "cfg-1")
	require.Nil(t, rpcErr)
	assert.Equal(t, "https://example.test/hook", got.PushNotificationConfig.URL)

	list, rpcErr := m.ListConfigs(ctx, "task-1")
	require.Nil(t, rpcErr)
	assert.Len(t, list, 1)

	rpcErr = m.DeleteConfig(ctx, "task-1", "cfg-1")
	require.Nil(t, rpcErr)

	_, rpcErr = m.GetConfig(ctx, "task-1", "cfg-1")
	require.NotNil(t, rpcErr)
}

func TestSetConfigRejectsMissingURL(t *testing.T) {
	m := NewManager(stores.NewInMemory(0, 0))
	_, rpcErr := m.SetConfig(context.Background(), "task-1", a2a.PushNotificationConfig{ID: "cfg-1"})
	require.NotNil(t, rpcErr)
}

func TestWatchDeliversEventToWebhook(t *testing.T) {
	var received int32
	var body webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		atomic.AddInt32(&received, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	storage := stores.NewInMemory(0, 0)
	m := NewManager(storage)
	ctx := context.Background()

	_, rpcErr := m.SetConfig(ctx, "task-1", a2a.PushNotificationConfig{ID: "cfg-1", URL: srv.URL})
	require.Nil(t, rpcErr)

	queue := eventqueue.New(0, 0)
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.Watch(watchCtx, queue, "task-1")

	err := queue.Publish(a2a.Event{
		Type:      a2a.EventTaskStatusUpdate,
		TaskID:    "task-1",
		ContextID: "ctx-1",
		Data: a2a.TaskStatusUpdateData{
			TaskID:    "task-1",
			ContextID: "ctx-1",
			Status:    a2a.TaskStatus{State: a2a.TaskStateWorking},
		},
	})
	require.Nil(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&received) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Greater(t, atomic.LoadInt32(&received), int32(0))
	assert.NotEmpty(t, body.EventID)
	assert.Equal(t, "task-1", body.TaskID)
	require.NotNil(t, body.Status)
	assert.Equal(t, a2a.TaskStateWorking, body.Status.State)
}

func TestShouldRetryRulesMatchDeliveryContract(t *testing.T) {
	assert.True(t, shouldRetry(&transportError{err: context.DeadlineExceeded}))
	assert.True(t, shouldRetry(&statusError{code: http.StatusRequestTimeout}))
	assert.True(t, shouldRetry(&statusError{code: http.StatusTooManyRequests}))
	assert.True(t, shouldRetry(&statusError{code: http.StatusInternalServerError}))
	assert.False(t, shouldRetry(&statusError{code: http.StatusBadRequest}))
	assert.False(t, shouldRetry(&statusError{code: http.StatusNotFound}))
}
