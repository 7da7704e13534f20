// Package executor provides reference AgentExecutor (§6 port) implementations.
// Echo is the one the CLI's serve command wires by default, useful for
// exercising the rest of the runtime without a real agent behind it.
package executor

import (
	"context"
	"fmt"

	"github.com/theapemachine/a2a-go/pkg/a2a"
	"github.com/theapemachine/a2a-go/pkg/ports"
)

// Echo implements ports.AgentExecutor by moving a task straight to
// completed, echoing the triggering message's text parts back as both a
// history message and an artifact.
type Echo struct{}

func (Echo) Execute(ctx context.Context, message a2a.Message, task *a2a.Task, updater ports.TaskUpdater) error {
	text := message.String()
	if text == "" {
		text = "(no text content)"
	}
	reply := fmt.Sprintf("echo: %s", text)

	if _, rpcErr := updater.AddArtifact(ctx, a2a.NewArtifact(a2a.NewTextPart(reply)), false); rpcErr != nil {
		return rpcErr
	}
	if _, rpcErr := updater.UpdateStatus(ctx, a2a.TaskStateCompleted, a2a.NewTextMessage(a2a.RoleAgent, reply)); rpcErr != nil {
		return rpcErr
	}
	return nil
}

func (Echo) Cancel(ctx context.Context, task *a2a.Task) error {
	return nil
}

var _ ports.AgentExecutor = Echo{}
