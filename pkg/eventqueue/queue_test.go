package eventqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theapemachine/a2a-go/pkg/a2a"
)

func TestPublishDeliversInOrder(t *testing.T) {
	q := New(8, 32)
	sub := q.Subscribe(a2a.Any)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Publish(a2a.Event{Type: a2a.EventMessage}))
	}

	var last uint64
	for i := 0; i < 5; i++ {
		select {
		case e := <-sub.Events():
			assert.Greater(t, e.ID, last)
			last = e.ID
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestPublishFiltersPerSubscriber(t *testing.T) {
	q := New(8, 32)
	taskSub := q.Subscribe(a2a.ForTask("task-1"))
	otherSub := q.Subscribe(a2a.ForTask("task-2"))

	require.NoError(t, q.Publish(a2a.Event{Type: a2a.EventMessage, TaskID: "task-1"}))

	select {
	case e := <-taskSub.Events():
		assert.Equal(t, "task-1", e.TaskID)
	case <-time.After(time.Second):
		t.Fatal("expected subscriber did not receive event")
	}

	select {
	case e := <-otherSub.Events():
		t.Fatalf("unexpected event delivered to unrelated subscriber: %+v", e)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPublishOverflowDropsOldestAndMarksLagging(t *testing.T) {
	q := New(2, 32)
	sub := q.Subscribe(a2a.Any)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Publish(a2a.Event{Type: a2a.EventMessage}))
	}

	assert.True(t, sub.Lagging())
}

func TestReplayReturnsEventsAfterID(t *testing.T) {
	q := New(8, 32)

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Publish(a2a.Event{Type: a2a.EventMessage}))
	}

	replayed := q.Replay(1)
	assert.Len(t, replayed, 2)
	for _, e := range replayed {
		assert.Greater(t, e.ID, uint64(1))
	}
}

func TestCloseEmitsConnectionClosedThenClosesChannel(t *testing.T) {
	q := New(8, 32)
	sub := q.Subscribe(a2a.Any)

	q.Close()

	var sawClosedEvent bool
	for e := range sub.Events() {
		if e.Type == a2a.EventConnectionClosed {
			sawClosedEvent = true
		}
	}
	assert.True(t, sawClosedEvent)

	err := q.Publish(a2a.Event{Type: a2a.EventMessage})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	q := New(8, 32)
	sub := q.Subscribe(a2a.Any)
	sub.Unsubscribe()

	_, ok := <-sub.Events()
	assert.False(t, ok)
}
