package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/theapemachine/a2a-go/pkg/jsonrpc"
)

const maxPeekBytes = 10 << 20 // mirrors jsonrpc.Server's body cap

// Mount installs the full HTTP surface from §6 onto mux under the given
// path prefix: POST/GET {mount}/rpc for JSON-RPC and SSE, plus the
// AgentCardServer's discovery endpoints. mount == "" mounts at the root.
func (h *Handler) Mount(mux *http.ServeMux, mount string) {
	mount = strings.TrimSuffix(mount, "/")
	rpcServer := jsonrpc.NewServer(h.registry)

	mux.HandleFunc(mount+"/rpc", func(w http.ResponseWriter, r *http.Request) {
		method, raw, ok := peekMethod(r)
		if !ok {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		if h.Config.StreamingEnabled && (method == "message/stream" || method == "tasks/resubscribe") {
			h.serveStream(w, r, method, raw)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
		defer cancel()
		rpcServer.ServeHTTP(w, r.WithContext(ctx))
	})

	mux.HandleFunc(mount+"/agent-card", h.Cards.HandleCard)
	mux.HandleFunc(mount+"/agent-card.jws", h.Cards.HandleCardJWS)
	mux.HandleFunc(mount+"/capabilities", h.Cards.HandleCapabilities)
}

func (h *Handler) timeout() time.Duration {
	if h.Config.DefaultTimeout <= 0 {
		return DefaultConfig().DefaultTimeout
	}
	return h.Config.DefaultTimeout
}

// peekMethod extracts the method name and raw params without consuming a
// POST body permanently: it restores r.Body so a non-streaming request
// still reaches jsonrpc.Server intact, including for batches (whose first
// element's method decides nothing here — batches never carry a streaming
// method and fall straight through to rpcServer).
func peekMethod(r *http.Request) (method string, raw json.RawMessage, ok bool) {
	if r.Method == http.MethodGet {
		method = r.URL.Query().Get("method")
		if method == "" {
			return "", nil, false
		}
		return method, json.RawMessage(r.URL.Query().Get("params")), true
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	if err != nil {
		return "", nil, false
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] == '[' {
		return "", nil, true // batch: no single streaming method to peek
	}

	var req jsonrpc.RPCRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return "", nil, true // malformed: let rpcServer produce the ParseError
	}
	return req.Method, req.Params, true
}
