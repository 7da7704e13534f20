package a2a

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

/*
Task is a stateful unit of work created by message/send. ID and ContextID
are UUIDs; ContextID groups related tasks into a conversation. History is
capped by TaskManager's configured max (pkg/tasks) and Artifacts accumulate
append-only within an ArtifactID.

Invariant: ID is globally unique, Status.State is always one of the
enumerated TaskState values, and len(History) never exceeds the configured
cap.
*/
type Task struct {
	ID        string       `json:"id"`
	ContextID string       `json:"contextId"`
	Status    TaskStatus   `json:"status"`
	Artifacts []Artifact   `json:"artifacts,omitempty"`
	History   []Message    `json:"history,omitempty"`
	Metadata  TaskMetadata `json:"metadata,omitempty"`
}

// TaskMetadata carries the task's type/params bookkeeping plus caller-
// supplied extras, kept distinct from Status so state transitions never
// disturb it.
type TaskMetadata struct {
	Type      string         `json:"type,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// NewTask constructs a task in the submitted state. ContextID is generated
// when the caller does not supply one, starting a fresh conversation.
func NewTask(taskType string, params map[string]any, contextID string, extra map[string]any) *Task {
	now := time.Now().UTC()
	if contextID == "" {
		contextID = uuid.New().String()
	}
	return &Task{
		ID:        uuid.New().String(),
		ContextID: contextID,
		Status: TaskStatus{
			State:     TaskStateSubmitted,
			UpdatedAt: now,
		},
		Artifacts: make([]Artifact, 0),
		History:   make([]Message, 0),
		Metadata: TaskMetadata{
			Type:      taskType,
			Params:    params,
			CreatedAt: now,
			Extra:     extra,
		},
	}
}

// LastMessage returns the most recent history entry, or nil if history is
// empty.
func (t *Task) LastMessage() *Message {
	if len(t.History) == 0 {
		return nil
	}
	return &t.History[len(t.History)-1]
}

// Clone returns a copy safe to hand back across a TaskManager critical
// section: callers may mutate the returned value's slices and maps without
// racing the stored original.
func (t *Task) Clone() *Task {
	clone := *t
	clone.Artifacts = append([]Artifact(nil), t.Artifacts...)
	clone.History = append([]Message(nil), t.History...)
	if t.Metadata.Params != nil {
		clone.Metadata.Params = make(map[string]any, len(t.Metadata.Params))
		for k, v := range t.Metadata.Params {
			clone.Metadata.Params[k] = v
		}
	}
	if t.Metadata.Extra != nil {
		clone.Metadata.Extra = make(map[string]any, len(t.Metadata.Extra))
		for k, v := range t.Metadata.Extra {
			clone.Metadata.Extra[k] = v
		}
	}
	return &clone
}

// WithHistoryLimit returns a view of the task whose History is truncated to
// the most recent n entries, per get_task(history_length). The stored task
// itself is never mutated.
func (t *Task) WithHistoryLimit(n int) *Task {
	view := t.Clone()
	if n > 0 && n < len(view.History) {
		view.History = append([]Message(nil), view.History[len(view.History)-n:]...)
	}
	return view
}

func (t *Task) String() string {
	var sb strings.Builder

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	sectionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	bullet := "│ "

	sb.WriteString(headerStyle.Render("Task") + "\n")
	sb.WriteString(bullet + labelStyle.Render("ID: ") + valueStyle.Render(t.ID) + "\n")
	sb.WriteString(bullet + labelStyle.Render("Context: ") + valueStyle.Render(t.ContextID) + "\n")

	sb.WriteString("\n" + sectionStyle.Render("Status") + "\n")
	sb.WriteString(bullet + labelStyle.Render("State: ") + valueStyle.Render(string(t.Status.State)) + "\n")
	sb.WriteString(bullet + labelStyle.Render("Updated: ") + valueStyle.Render(t.Status.UpdatedAt.Format(time.RFC3339)) + "\n")

	if len(t.History) > 0 {
		sb.WriteString("\n" + sectionStyle.Render("History") + "\n")
		for i, msg := range t.History {
			sb.WriteString(bullet + labelStyle.Render(fmt.Sprintf("Message %d (%s): ", i+1, msg.Role)) + valueStyle.Render(msg.String()) + "\n")
		}
	}

	if len(t.Artifacts) > 0 {
		sb.WriteString("\n" + sectionStyle.Render("Artifacts") + "\n")
		for i, a := range t.Artifacts {
			name := a.ArtifactID
			if a.Name != nil {
				name = *a.Name
			}
			sb.WriteString(bullet + labelStyle.Render(fmt.Sprintf("Artifact %d: ", i+1)) + valueStyle.Render(name) + "\n")
		}
	}

	return sb.String()
}
