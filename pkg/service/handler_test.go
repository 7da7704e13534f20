package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theapemachine/a2a-go/pkg/a2a"
	"github.com/theapemachine/a2a-go/pkg/agentcard"
	"github.com/theapemachine/a2a-go/pkg/errors"
	"github.com/theapemachine/a2a-go/pkg/executor"
	"github.com/theapemachine/a2a-go/pkg/ports"
	"github.com/theapemachine/a2a-go/pkg/push"
	"github.com/theapemachine/a2a-go/pkg/stores"
	"github.com/theapemachine/a2a-go/pkg/tasks"
)

func newTestHandler(t *testing.T, exec ports.AgentExecutor) *Handler {
	t.Helper()
	storage := stores.NewInMemory(0, 0)
	taskManager := tasks.NewManager(storage, tasks.DefaultMaxHistoryLength)
	pushManager := push.NewManager(storage)
	cards := agentcard.NewServer(a2a.AgentCard{Name: "test"}, agentcard.NewRegistry(), 0)
	cfg := DefaultConfig()
	cfg.DefaultTimeout = 2 * time.Second
	return NewHandler(context.Background(), taskManager, pushManager, cards, exec, cfg, noopLogger{})
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}

func sendParams(t *testing.T, blocking bool) json.RawMessage {
	t.Helper()
	params := a2a.MessageSendParams{
		Message:       *a2a.NewTextMessage(a2a.RoleUser, "hello"),
		Configuration: &a2a.MessageSendConfig{Blocking: blocking},
	}
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	return raw
}

func TestHandleMessageSendBlockingReturnsCompletedTask(t *testing.T) {
	h := newTestHandler(t, executor.Echo{})

	result, rpcErr := h.handleMessageSend(context.Background(), sendParams(t, true))
	require.Nil(t, rpcErr)

	out, ok := result.(map[string]any)
	require.True(t, ok)
	task, ok := out["task"].(*a2a.Task)
	require.True(t, ok)
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
}

func TestHandleMessageSendNonBlockingReturnsSubmitted(t *testing.T) {
	h := newTestHandler(t, executor.Echo{})

	result, rpcErr := h.handleMessageSend(context.Background(), sendParams(t, false))
	require.Nil(t, rpcErr)

	out, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, a2a.TaskStateSubmitted, out["status"])
}

// blockingExecutor never settles the task, to exercise the deadline path.
type blockingExecutor struct{}

func (blockingExecutor) Execute(ctx context.Context, message a2a.Message, task *a2a.Task, updater ports.TaskUpdater) error {
	<-ctx.Done()
	return nil
}
func (blockingExecutor) Cancel(ctx context.Context, task *a2a.Task) error { return nil }

func TestHandleMessageSendBlockingTimesOutAsAgentUnavailable(t *testing.T) {
	h := newTestHandler(t, blockingExecutor{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, rpcErr := h.handleMessageSend(ctx, sendParams(t, true))
	require.NotNil(t, rpcErr)
	assert.Equal(t, errors.ErrAgentUnavailable.Code, rpcErr.Code)
}

func TestHandleTasksCancelOnTerminalTaskFails(t *testing.T) {
	h := newTestHandler(t, executor.Echo{})

	result, rpcErr := h.handleMessageSend(context.Background(), sendParams(t, true))
	require.Nil(t, rpcErr)
	task := result.(map[string]any)["task"].(*a2a.Task)

	raw, err := json.Marshal(a2a.TaskIDParams{ID: task.ID})
	require.NoError(t, err)

	_, rpcErr = h.handleTasksCancel(context.Background(), raw)
	require.NotNil(t, rpcErr)
	assert.Equal(t, errors.ErrTaskNotCancelable.Code, rpcErr.Code)
}

func TestHandleTasksGetUnknownTaskIsNotFound(t *testing.T) {
	h := newTestHandler(t, executor.Echo{})

	raw, err := json.Marshal(a2a.TaskQueryParams{TaskIDParams: a2a.TaskIDParams{ID: "missing"}})
	require.NoError(t, err)

	_, rpcErr := h.handleTasksGet(context.Background(), raw)
	require.NotNil(t, rpcErr)
	assert.Equal(t, errors.ErrTaskNotFound.Code, rpcErr.Code)
}
