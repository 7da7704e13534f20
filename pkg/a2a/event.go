package a2a

import (
	"fmt"
	"strconv"
	"time"
)

// EventType enumerates the kinds of Event a queue can carry. Subscribers
// switch on this discriminator before touching Data.
type EventType string

const (
	EventTaskStatusUpdate   EventType = "task_status_update"
	EventTaskArtifactUpdate EventType = "task_artifact_update"
	EventMessage            EventType = "message"
	EventHeartbeat          EventType = "heartbeat"
	EventConnectionOpened   EventType = "connection_established"
	EventConnectionClosed   EventType = "connection_closed"
	EventError              EventType = "error"
)

/*
Event is the unit of delivery on the EventQueue (C3), consumed by SSE
subscribers (C7) and the PushNotificationManager (C5). ID is monotonic per
queue/context, rendered as hex, which is what makes Last-Event-ID replay
(§4.5) possible.
*/
type Event struct {
	ID        uint64    `json:"-"`
	Type      EventType `json:"type"`
	TaskID    string    `json:"taskId,omitempty"`
	ContextID string    `json:"contextId,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// HexID renders the monotonic ID as lowercase hex, the wire form used for
// SSE "id:" fields and Last-Event-ID headers.
func (e Event) HexID() string {
	return strconv.FormatUint(e.ID, 16)
}

// ParseHexID is the inverse of HexID, used when decoding a client-supplied
// Last-Event-ID header.
func ParseHexID(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty event id")
	}
	return strconv.ParseUint(s, 16, 64)
}

// TaskStatusUpdateData is the Data payload for EventTaskStatusUpdate.
type TaskStatusUpdateData struct {
	TaskID    string     `json:"taskId"`
	ContextID string     `json:"contextId"`
	Status    TaskStatus `json:"status"`
	Final     bool       `json:"final"`
}

// TaskArtifactUpdateData is the Data payload for EventTaskArtifactUpdate.
type TaskArtifactUpdateData struct {
	TaskID    string   `json:"taskId"`
	ContextID string   `json:"contextId"`
	Artifact  Artifact `json:"artifact"`
	Append    bool     `json:"append"`
	LastChunk bool     `json:"lastChunk,omitempty"`
}

// Filter is a pure predicate over Event used by EventQueue.Subscribe.
type Filter func(Event) bool

// ForTask returns a Filter that matches events tied to a single task id.
func ForTask(taskID string) Filter {
	return func(e Event) bool { return e.TaskID == taskID }
}

// ForContext returns a Filter that matches events tied to a single context id.
func ForContext(contextID string) Filter {
	return func(e Event) bool { return e.ContextID == contextID }
}

// Any matches every event; used when no filtering is required.
func Any(Event) bool { return true }
