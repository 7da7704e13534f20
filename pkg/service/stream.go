package service

import (
	"encoding/json"
	"net/http"

	"github.com/theapemachine/a2a-go/pkg/a2a"
	"github.com/theapemachine/a2a-go/pkg/errors"
	"github.com/theapemachine/a2a-go/pkg/sse"
)

// serveStream handles the two methods that escape normal JSON-RPC dispatch
// (§4.8, §6): message/stream and tasks/resubscribe both respond with an SSE
// stream rather than a single JSON-RPC response object.
func (h *Handler) serveStream(w http.ResponseWriter, r *http.Request, method string, raw json.RawMessage) {
	switch method {
	case "message/stream":
		h.streamMessageSend(w, r, raw)
	case "tasks/resubscribe":
		h.streamResubscribe(w, r, raw)
	default:
		http.Error(w, "unknown streaming method", http.StatusBadRequest)
	}
}

// streamMessageSend is message/send's twin: same task resolution and
// history/push-config side effects, but the executor always runs
// asynchronously and the caller follows along over SSE instead of getting
// a single blocking/non-blocking response.
func (h *Handler) streamMessageSend(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var params a2a.MessageSendParams
	if !decodeParams(raw, &params) {
		writeStreamError(w, errors.ErrInvalidParams)
		return
	}
	if err := params.Message.Validate(); err != nil {
		writeStreamError(w, errors.ErrInvalidParams.WithMessagef("%v", err))
		return
	}

	ctx := r.Context()
	task, rpcErr := h.resolveTask(ctx, params.Message)
	if rpcErr != nil {
		writeStreamError(w, rpcErr)
		return
	}
	if _, rpcErr := h.Tasks.AddMessage(ctx, task.ID, params.Message); rpcErr != nil {
		writeStreamError(w, rpcErr)
		return
	}

	if params.Configuration != nil && params.Configuration.PushNotification != nil && h.Config.PushNotificationsEnabled {
		if _, rpcErr := h.Push.SetConfig(ctx, task.ID, *params.Configuration.PushNotification); rpcErr != nil {
			writeStreamError(w, rpcErr)
			return
		}
		h.Push.Watch(h.bg, h.Tasks.Queue(task.ContextID), task.ID)
	}

	// Subscribe before launching the executor so a fast run can never settle
	// the task ahead of the stream picking it up, same race avoided in
	// handleMessageSend.
	queue := h.Tasks.Queue(task.ContextID)
	go h.runExecutor(detach(ctx), task, params.Message)

	sse.ServeQueue(w, r, queue, a2a.ForTask(task.ID), h.Config.HeartbeatInterval)
}

// streamResubscribe reopens an existing task's event stream, replaying
// from Last-Event-ID when the client supplies one (handled by
// sse.ServeQueue itself).
func (h *Handler) streamResubscribe(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var params a2a.TaskIDParams
	if !decodeParams(raw, &params) {
		writeStreamError(w, errors.ErrInvalidParams)
		return
	}
	if params.ID == "" {
		writeStreamError(w, errors.ErrInvalidParams.WithMessagef("id is required"))
		return
	}

	task, rpcErr := h.Tasks.GetTask(r.Context(), params.ID, 0)
	if rpcErr != nil {
		writeStreamError(w, rpcErr)
		return
	}

	sse.ServeQueue(w, r, h.Tasks.Queue(task.ContextID), a2a.ForTask(task.ID), h.Config.HeartbeatInterval)
}

// writeStreamError reports a failure that happens before the SSE upgrade
// (bad params, unknown task) as a plain JSON error body; once ServeQueue has
// written its 200 and headers there is no way back to a JSON error response,
// matching why every check above runs before the first byte is written.
func writeStreamError(w http.ResponseWriter, rpcErr *errors.RpcError) {
	status := http.StatusInternalServerError
	switch rpcErr.Code {
	case errors.ErrInvalidParams.Code, errors.ErrInvalidRequest.Code:
		status = http.StatusBadRequest
	case errors.ErrTaskNotFound.Code:
		status = http.StatusNotFound
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rpcErr)
}
