package jsonrpc

import (
	"context"
	"encoding/json"

	"github.com/theapemachine/a2a-go/pkg/errors"
)

// HandlerFunc handles one method's params and returns its result, or an
// RpcError to be placed on the response envelope.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, *errors.RpcError)

// Registry maps A2A method names to their handler. It is the "method
// registry" the engine dispatches through — handlers are registered once at
// startup by pkg/service's RequestHandler wiring.
type Registry struct {
	handlers map[string]HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

func (r *Registry) Register(method string, h HandlerFunc) {
	r.handlers[method] = h
}

func (r *Registry) Lookup(method string) (HandlerFunc, bool) {
	h, ok := r.handlers[method]
	return h, ok
}
