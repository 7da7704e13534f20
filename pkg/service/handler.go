package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/theapemachine/a2a-go/pkg/a2a"
	"github.com/theapemachine/a2a-go/pkg/agentcard"
	"github.com/theapemachine/a2a-go/pkg/errors"
	"github.com/theapemachine/a2a-go/pkg/eventqueue"
	"github.com/theapemachine/a2a-go/pkg/jsonrpc"
	"github.com/theapemachine/a2a-go/pkg/ports"
	"github.com/theapemachine/a2a-go/pkg/push"
	"github.com/theapemachine/a2a-go/pkg/tasks"
)

/*
Handler is the RequestHandler (C10). It owns no state of its own beyond
wiring: every mutation goes through Tasks (C4) or Push (C5), every method
name below is a thin translation between a jsonrpc.HandlerFunc and those
components' Go APIs.
*/
type Handler struct {
	Tasks    *tasks.Manager
	Push     *push.Manager
	Cards    *agentcard.Server
	Executor ports.AgentExecutor
	Config   Config
	Logger   ports.Logger

	// bg is the background context long-lived subscriptions (push webhook
	// delivery) run under; it outlives any single request.
	bg context.Context

	registry *jsonrpc.Registry
}

// NewHandler wires a RequestHandler over the given components. bg is the
// context push-notification delivery goroutines are scoped to; canceling it
// stops all outstanding webhook watches.
func NewHandler(bg context.Context, taskManager *tasks.Manager, pushManager *push.Manager, cards *agentcard.Server, executor ports.AgentExecutor, cfg Config, logger ports.Logger) *Handler {
	h := &Handler{Tasks: taskManager, Push: pushManager, Cards: cards, Executor: executor, Config: cfg, Logger: logger, bg: bg}
	h.registry = jsonrpc.NewRegistry()
	h.Register(h.registry)
	return h
}

// Registry returns the method registry built at construction, for
// Mount and for callers that want to serve JSON-RPC without the streaming
// wire wrapping (e.g. an in-process test harness).
func (h *Handler) Registry() *jsonrpc.Registry {
	return h.registry
}

// Register installs the non-streaming A2A methods from §4.8 onto registry.
// Streaming methods (message/stream, tasks/resubscribe) are not registered
// here: Mount routes them to serveStream, which answers with SSE before
// normal JSON-RPC dispatch.
func (h *Handler) Register(registry *jsonrpc.Registry) {
	registry.Register("message/send", h.handleMessageSend)
	registry.Register("tasks/get", h.handleTasksGet)
	registry.Register("tasks/cancel", h.handleTasksCancel)
	registry.Register("tasks/pushNotificationConfig/set", h.handlePushSet)
	registry.Register("tasks/pushNotificationConfig/get", h.handlePushGet)
	registry.Register("tasks/pushNotificationConfig/list", h.handlePushList)
	registry.Register("tasks/pushNotificationConfig/delete", h.handlePushDelete)
	registry.Register("agent/getCard", h.handleGetCard)
	registry.Register("agent/getAuthenticatedExtendedCard", h.handleGetExtendedCard)
}

func (h *Handler) handleMessageSend(ctx context.Context, raw json.RawMessage) (any, *errors.RpcError) {
	var params a2a.MessageSendParams
	if !decodeParams(raw, &params) {
		return nil, errors.ErrInvalidParams
	}
	if err := params.Message.Validate(); err != nil {
		return nil, errors.ErrInvalidParams.WithMessagef("%v", err)
	}

	task, rpcErr := h.resolveTask(ctx, params.Message)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if _, rpcErr := h.Tasks.AddMessage(ctx, task.ID, params.Message); rpcErr != nil {
		return nil, rpcErr
	}

	blocking := params.Configuration != nil && params.Configuration.Blocking
	if params.Configuration != nil && params.Configuration.PushNotification != nil && h.Config.PushNotificationsEnabled {
		if _, rpcErr := h.Push.SetConfig(ctx, task.ID, *params.Configuration.PushNotification); rpcErr != nil {
			return nil, rpcErr
		}
		h.Push.Watch(h.bg, h.Tasks.Queue(task.ContextID), task.ID)
	}

	if !blocking {
		go h.runExecutor(detach(ctx), task, params.Message)
		return map[string]any{
			"taskId":    task.ID,
			"contextId": task.ContextID,
			"status":    a2a.TaskStateSubmitted,
		}, nil
	}

	sub := h.Tasks.Queue(task.ContextID).Subscribe(a2a.ForTask(task.ID))
	defer sub.Unsubscribe()

	go h.runExecutor(detach(ctx), task, params.Message)

	final, rpcErr := h.awaitSettled(ctx, task.ID, sub)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return map[string]any{"task": final}, nil
}

// resolveTask returns the task a message/send targets: the existing task
// named by message.TaskID, or a freshly created one when absent.
func (h *Handler) resolveTask(ctx context.Context, msg a2a.Message) (*a2a.Task, *errors.RpcError) {
	if msg.TaskID != "" {
		return h.Tasks.GetTask(ctx, msg.TaskID, 0)
	}
	return h.Tasks.CreateTask(ctx, "message/send", nil, msg.ContextID, msg.Metadata)
}

// runExecutor moves task to working and invokes the AgentExecutor,
// recovering a failed/returned-error run into a failed status so a crashing
// executor never leaves a task stuck in working forever. Executor panics
// are not recovered here deliberately — they indicate a programming error
// in business logic the caller owns, not a protocol concern.
func (h *Handler) runExecutor(ctx context.Context, task *a2a.Task, msg a2a.Message) {
	if _, rpcErr := h.Tasks.UpdateStatus(ctx, task.ID, a2a.TaskStateWorking, nil); rpcErr != nil {
		h.Logger.Warn("requesthandler: could not move task to working", "task", task.ID, "error", rpcErr)
		return
	}

	updater := h.Tasks.Updater(task.ID)
	if err := h.Executor.Execute(ctx, msg, task, updater); err != nil {
		h.Logger.Error("requesthandler: executor failed", "task", task.ID, "error", err)
		current, rpcErr := h.Tasks.GetTask(ctx, task.ID, 0)
		if rpcErr == nil && !current.Status.State.Terminal() {
			_, _ = h.Tasks.UpdateStatus(ctx, task.ID, a2a.TaskStateFailed, a2a.NewTextMessage(a2a.RoleAgent, err.Error()))
		}
	}
}

// awaitSettled blocks until the task reaches a terminal state or
// input-required, or ctx's deadline expires.
func (h *Handler) awaitSettled(ctx context.Context, taskID string, sub *eventqueue.Subscription) (*a2a.Task, *errors.RpcError) {
	for {
		select {
		case <-ctx.Done():
			return nil, errors.ErrAgentUnavailable.WithData(map[string]any{"reason": "deadline_exceeded"})
		case event, ok := <-sub.Events():
			if !ok {
				return nil, errors.ErrAgentUnavailable.WithData(map[string]any{"reason": "deadline_exceeded"})
			}
			data, ok := event.Data.(a2a.TaskStatusUpdateData)
			if !ok {
				continue
			}
			if data.Final || data.Status.State == a2a.TaskStateInputRequired {
				return h.Tasks.GetTask(ctx, taskID, 0)
			}
		}
	}
}

func (h *Handler) handleTasksGet(ctx context.Context, raw json.RawMessage) (any, *errors.RpcError) {
	var params a2a.TaskQueryParams
	if !decodeParams(raw, &params) {
		return nil, errors.ErrInvalidParams
	}
	if params.ID == "" {
		return nil, errors.ErrInvalidParams.WithMessagef("id is required")
	}
	historyLength := 0
	if params.HistoryLength != nil {
		historyLength = *params.HistoryLength
	}
	return h.Tasks.GetTask(ctx, params.ID, historyLength)
}

func (h *Handler) handleTasksCancel(ctx context.Context, raw json.RawMessage) (any, *errors.RpcError) {
	var params a2a.TaskIDParams
	if !decodeParams(raw, &params) {
		return nil, errors.ErrInvalidParams
	}
	if params.ID == "" {
		return nil, errors.ErrInvalidParams.WithMessagef("id is required")
	}

	task, rpcErr := h.Tasks.GetTask(ctx, params.ID, 0)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if task.Status.State.Terminal() {
		return nil, errors.ErrTaskNotCancelable
	}
	if err := h.Executor.Cancel(ctx, task); err != nil {
		h.Logger.Warn("requesthandler: executor cancel returned error", "task", task.ID, "error", err)
	}
	return h.Tasks.CancelTask(ctx, params.ID)
}

func (h *Handler) handlePushSet(ctx context.Context, raw json.RawMessage) (any, *errors.RpcError) {
	if !h.Config.PushNotificationsEnabled {
		return nil, errors.ErrCapabilityNotSupported.WithMessagef("push notifications are disabled")
	}
	var params a2a.TaskPushNotificationConfig
	if !decodeParams(raw, &params) {
		return nil, errors.ErrInvalidParams
	}
	task, rpcErr := h.Tasks.GetTask(ctx, params.TaskID, 0)
	if rpcErr != nil {
		return nil, rpcErr
	}
	cfg, rpcErr := h.Push.SetConfig(ctx, params.TaskID, params.PushNotificationConfig)
	if rpcErr != nil {
		return nil, rpcErr
	}
	h.Push.Watch(h.bg, h.Tasks.Queue(task.ContextID), task.ID)
	return cfg, nil
}

func (h *Handler) handlePushGet(ctx context.Context, raw json.RawMessage) (any, *errors.RpcError) {
	var params a2a.TaskPushNotificationDeleteParams
	if !decodeParams(raw, &params) {
		return nil, errors.ErrInvalidParams
	}
	return h.Push.GetConfig(ctx, params.TaskID, params.PushNotificationConfigID)
}

func (h *Handler) handlePushList(ctx context.Context, raw json.RawMessage) (any, *errors.RpcError) {
	var params a2a.TaskPushNotificationListParams
	if !decodeParams(raw, &params) {
		return nil, errors.ErrInvalidParams
	}
	return h.Push.ListConfigs(ctx, params.TaskID)
}

func (h *Handler) handlePushDelete(ctx context.Context, raw json.RawMessage) (any, *errors.RpcError) {
	var params a2a.TaskPushNotificationDeleteParams
	if !decodeParams(raw, &params) {
		return nil, errors.ErrInvalidParams
	}
	if rpcErr := h.Push.DeleteConfig(ctx, params.TaskID, params.PushNotificationConfigID); rpcErr != nil {
		return nil, rpcErr
	}
	return map[string]any{"taskId": params.TaskID, "pushNotificationConfigId": params.PushNotificationConfigID, "deleted": true}, nil
}

func (h *Handler) handleGetCard(ctx context.Context, raw json.RawMessage) (any, *errors.RpcError) {
	return h.Cards.Card(CallerID(ctx)), nil
}

func (h *Handler) handleGetExtendedCard(ctx context.Context, raw json.RawMessage) (any, *errors.RpcError) {
	if !IsAuthenticated(ctx) {
		return nil, errors.ErrAuthenticationRequired
	}
	claims := Claims(ctx)
	return h.Cards.ExtendedCard(CallerID(ctx), func(card *a2a.AgentCard) {
		if card.Authentication == nil && len(claims) > 0 {
			card.Authentication = &a2a.AgentAuthentication{}
		}
	}), nil
}

// detach returns a context carrying ctx's values but not its deadline or
// cancellation, for work that must outlive the inbound request (the
// asynchronous executor run backing a non-blocking/streaming send).
func detach(ctx context.Context) context.Context {
	return detachedContext{parent: ctx}
}

type detachedContext struct{ parent context.Context }

func (detachedContext) Deadline() (time.Time, bool) { return time.Time{}, false }
func (detachedContext) Done() <-chan struct{}       { return nil }
func (detachedContext) Err() error                  { return nil }
func (d detachedContext) Value(key any) any         { return d.parent.Value(key) }
