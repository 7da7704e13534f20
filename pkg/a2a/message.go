package a2a

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role enumerates who authored a Message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

/*
Message is an immutable record of non-artifact communication between a
client and an agent. MessageID is unique, Parts is an ordered, non-empty
sequence, and ContextID/TaskID link the message to the conversation/task it
belongs to when known.
*/
type Message struct {
	MessageID string         `json:"messageId"`
	Role      Role           `json:"role"`
	Parts     []Part         `json:"parts"`
	ContextID string         `json:"contextId,omitempty"`
	TaskID    string         `json:"taskId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Validate enforces the §3 Message invariants: unique id (non-empty here —
// global uniqueness is the caller's responsibility), at least one part, and
// every part individually valid.
func (m Message) Validate() error {
	if m.MessageID == "" {
		return fmt.Errorf("message missing messageId")
	}
	if len(m.Parts) == 0 {
		return fmt.Errorf("message must carry at least one part")
	}
	for i, p := range m.Parts {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("part %d: %w", i, err)
		}
	}
	return nil
}

func NewTextMessage(role Role, text string) *Message {
	return &Message{
		MessageID: uuid.New().String(),
		Role:      role,
		Parts:     []Part{NewTextPart(text)},
	}
}

func NewFileMessage(role Role, file *FileContent) *Message {
	return &Message{
		MessageID: uuid.New().String(),
		Role:      role,
		Parts:     []Part{{Kind: PartKindFile, File: file}},
	}
}

func NewDataMessage(role Role, data map[string]any) *Message {
	return &Message{
		MessageID: uuid.New().String(),
		Role:      role,
		Parts:     []Part{NewDataPart(data)},
	}
}

func (m *Message) String() string {
	var sb strings.Builder
	for _, part := range m.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}
