package tasks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theapemachine/a2a-go/pkg/a2a"
	"github.com/theapemachine/a2a-go/pkg/errors"
	"github.com/theapemachine/a2a-go/pkg/stores"
)

func newTestManager() *Manager {
	return NewManager(stores.NewInMemory(0, 0), DefaultMaxHistoryLength)
}

func TestCreateTaskStartsSubmitted(t *testing.T) {
	m := newTestManager()
	task, rpcErr := m.CreateTask(context.Background(), "echo", nil, "", nil)
	require.Nil(t, rpcErr)
	assert.Equal(t, a2a.TaskStateSubmitted, task.Status.State)
	assert.NotEmpty(t, task.ID)
	assert.NotEmpty(t, task.ContextID)
}

func TestGetTaskNotFound(t *testing.T) {
	m := newTestManager()
	_, rpcErr := m.GetTask(context.Background(), "does-not-exist", 0)
	require.NotNil(t, rpcErr)
	assert.Equal(t, errors.ErrTaskNotFound.Code, rpcErr.Code)
}

func TestUpdateStatusValidTransition(t *testing.T) {
	m := newTestManager()
	task, _ := m.CreateTask(context.Background(), "echo", nil, "", nil)

	updated, rpcErr := m.UpdateStatus(context.Background(), task.ID, a2a.TaskStateWorking, nil)
	require.Nil(t, rpcErr)
	assert.Equal(t, a2a.TaskStateWorking, updated.Status.State)
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	m := newTestManager()
	task, _ := m.CreateTask(context.Background(), "echo", nil, "", nil)

	_, rpcErr := m.UpdateStatus(context.Background(), task.ID, a2a.TaskStateCompleted, nil)
	require.NotNil(t, rpcErr)
	assert.Equal(t, errors.ErrInvalidTaskState.Code, rpcErr.Code)
}

func TestCancelTerminalTaskIsNotCancelable(t *testing.T) {
	m := newTestManager()
	task, _ := m.CreateTask(context.Background(), "echo", nil, "", nil)
	_, err := m.UpdateStatus(context.Background(), task.ID, a2a.TaskStateWorking, nil)
	require.Nil(t, err)
	_, err = m.UpdateStatus(context.Background(), task.ID, a2a.TaskStateCompleted, nil)
	require.Nil(t, err)

	_, rpcErr := m.CancelTask(context.Background(), task.ID)
	require.NotNil(t, rpcErr)
	assert.Equal(t, errors.ErrTaskNotCancelable.Code, rpcErr.Code)
}

func TestCancelWorkingTaskSucceeds(t *testing.T) {
	m := newTestManager()
	task, _ := m.CreateTask(context.Background(), "echo", nil, "", nil)
	_, err := m.UpdateStatus(context.Background(), task.ID, a2a.TaskStateWorking, nil)
	require.Nil(t, err)

	canceled, rpcErr := m.CancelTask(context.Background(), task.ID)
	require.Nil(t, rpcErr)
	assert.Equal(t, a2a.TaskStateCanceled, canceled.Status.State)
}

func TestAddMessageTrimsHistoryToCap(t *testing.T) {
	m := NewManager(stores.NewInMemory(0, 0), 3)
	task, _ := m.CreateTask(context.Background(), "echo", nil, "", nil)

	for i := 0; i < 5; i++ {
		msg := *a2a.NewTextMessage(a2a.RoleUser, "hi")
		_, err := m.AddMessage(context.Background(), task.ID, msg)
		require.Nil(t, err)
	}

	got, err := m.GetTask(context.Background(), task.ID, 0)
	require.Nil(t, err)
	assert.Len(t, got.History, 3)
}

func TestAddArtifactAppendsNewByDefault(t *testing.T) {
	m := newTestManager()
	task, _ := m.CreateTask(context.Background(), "echo", nil, "", nil)

	a1 := a2a.NewArtifact(a2a.NewTextPart("a"))
	a2_ := a2a.NewArtifact(a2a.NewTextPart("b"))

	_, err := m.AddArtifact(context.Background(), task.ID, a1, false)
	require.Nil(t, err)
	got, err := m.AddArtifact(context.Background(), task.ID, a2_, false)
	require.Nil(t, err)
	assert.Len(t, got.Artifacts, 2)
}

func TestAddArtifactAppendMergesMatchingID(t *testing.T) {
	m := newTestManager()
	task, _ := m.CreateTask(context.Background(), "echo", nil, "", nil)

	artifact := a2a.NewArtifact(a2a.NewTextPart("chunk-1"))
	_, err := m.AddArtifact(context.Background(), task.ID, artifact, false)
	require.Nil(t, err)

	artifact.Parts = []a2a.Part{a2a.NewTextPart("chunk-2")}
	got, err := m.AddArtifact(context.Background(), task.ID, artifact, true)
	require.Nil(t, err)

	require.Len(t, got.Artifacts, 1)
	assert.Len(t, got.Artifacts[0].Parts, 2)
}

func TestClearTasksRemovesExistingTasks(t *testing.T) {
	m := newTestManager()
	task, _ := m.CreateTask(context.Background(), "echo", nil, "", nil)

	rpcErr := m.ClearTasks(context.Background())
	require.Nil(t, rpcErr)

	_, getErr := m.GetTask(context.Background(), task.ID, 0)
	require.NotNil(t, getErr)
	assert.Equal(t, errors.ErrTaskNotFound.Code, getErr.Code)
}

func TestUpdateStatusEmitsQueueEvent(t *testing.T) {
	m := newTestManager()
	task, _ := m.CreateTask(context.Background(), "echo", nil, "", nil)

	sub := m.Queue(task.ContextID).Subscribe(a2a.ForTask(task.ID))
	defer sub.Unsubscribe()

	_, err := m.UpdateStatus(context.Background(), task.ID, a2a.TaskStateWorking, nil)
	require.Nil(t, err)

	select {
	case e := <-sub.Events():
		assert.Equal(t, a2a.EventTaskStatusUpdate, e.Type)
	default:
		t.Fatal("expected a task_status_update event")
	}
}
