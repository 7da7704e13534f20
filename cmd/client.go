package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/theapemachine/a2a-go/pkg/a2a"
	"github.com/theapemachine/a2a-go/pkg/client"
)

var (
	agentURLFlag string
	taskIDFlag   string
	blockingFlag bool
	timeoutFlag  time.Duration

	clientCmd = &cobra.Command{
		Use:   "client",
		Short: "A2A client operations",
		Long:  `Run client operations against a remote A2A agent`,
	}

	clientSendCmd = &cobra.Command{
		Use:   "send [text]",
		Short: "Send a message via message/send",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClientSend(args[0])
		},
	}

	clientStreamCmd = &cobra.Command{
		Use:   "stream [text]",
		Short: "Send a message via message/stream and print every event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClientStream(args[0])
		},
	}

	clientGetCmd = &cobra.Command{
		Use:   "get",
		Short: "Fetch a task via tasks/get",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClientGet()
		},
	}

	clientCancelCmd = &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a task via tasks/cancel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClientCancel()
		},
	}
)

func init() {
	rootCmd.AddCommand(clientCmd)
	clientCmd.PersistentFlags().StringVar(&agentURLFlag, "agent-url", "http://localhost:3210", "base URL of the remote agent")
	clientCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 30*time.Second, "request timeout")

	clientSendCmd.Flags().BoolVar(&blockingFlag, "blocking", true, "wait for the task to settle before returning")
	clientGetCmd.Flags().StringVar(&taskIDFlag, "task-id", "", "task id to fetch")
	clientCancelCmd.Flags().StringVar(&taskIDFlag, "task-id", "", "task id to cancel")

	clientCmd.AddCommand(clientSendCmd, clientStreamCmd, clientGetCmd, clientCancelCmd)
}

func newAgentClient() *client.AgentClient {
	card := &a2a.AgentCard{Name: "cli-target", URL: agentURLFlag, ProtocolVersion: a2a.ProtocolVersion}
	return client.NewAgentClient(card, client.Config{})
}

func runClientSend(text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	msg := a2a.NewTextMessage(a2a.RoleUser, text)
	cfg := &a2a.MessageSendConfig{Blocking: blockingFlag}

	task, err := newAgentClient().SendMessage(ctx, *msg, cfg)
	if err != nil {
		return err
	}
	return printJSON(task)
}

func runClientStream(text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	msg := a2a.NewTextMessage(a2a.RoleUser, text)
	logger := charmlog.Default()

	return newAgentClient().StreamMessage(ctx, *msg, nil, func(e a2a.Event) {
		logger.Info("event", "type", e.Type, "data", e.Data)
	})
}

func runClientGet() error {
	if taskIDFlag == "" {
		return fmt.Errorf("--task-id is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	task, err := newAgentClient().GetTask(ctx, taskIDFlag, nil)
	if err != nil {
		return err
	}
	return printJSON(task)
}

func runClientCancel() error {
	if taskIDFlag == "" {
		return fmt.Errorf("--task-id is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	task, err := newAgentClient().CancelTask(ctx, taskIDFlag)
	if err != nil {
		return err
	}
	return printJSON(task)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
