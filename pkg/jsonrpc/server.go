package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/theapemachine/a2a-go/pkg/errors"
)

const maxBodyBytes = 10 << 20 // 10MiB, maps to 413 per §6

/*
Server dispatches JSON-RPC requests through a Registry. It supports both
single requests and batches, and honors notification semantics (a request
with no id never produces a response entry, even when the method errors).
*/
type Server struct {
	Registry *Registry
}

func NewServer(registry *Registry) *Server {
	return &Server{Registry: registry}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST supported", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		if err.Error() == "http: request body too large" {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.respond(w, newError(nil, errors.ErrParseError))
		return
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		s.respond(w, newError(nil, errors.ErrInvalidRequest))
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if body[0] == '[' {
		s.handleBatch(w, r.Context(), body)
		return
	}
	s.handleSingle(w, r.Context(), body)
}

func (s *Server) handleBatch(w http.ResponseWriter, ctx context.Context, body []byte) {
	var batch []RPCRequest
	if err := json.Unmarshal(body, &batch); err != nil {
		s.respond(w, newError(nil, errors.ErrParseError))
		return
	}
	if len(batch) == 0 {
		s.respond(w, newError(nil, errors.ErrInvalidRequest))
		return
	}

	responses := make([]RPCResponse, 0, len(batch))
	for i := range batch {
		resp := s.dispatch(ctx, &batch[i])
		if !batch[i].IsNotification() {
			responses = append(responses, resp)
		}
	}

	if len(responses) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_ = json.NewEncoder(w).Encode(responses)
}

func (s *Server) handleSingle(w http.ResponseWriter, ctx context.Context, body []byte) {
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.respond(w, newError(nil, errors.ErrParseError))
		return
	}

	resp := s.dispatch(ctx, &req)
	if req.IsNotification() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) dispatch(ctx context.Context, req *RPCRequest) RPCResponse {
	if req.JSONRPC != "2.0" || req.Method == "" {
		return newError(req.ID, errors.ErrInvalidRequest)
	}

	handler, ok := s.Registry.Lookup(req.Method)
	if !ok {
		return newError(req.ID, errors.ErrMethodNotFound)
	}

	result, rpcErr := handler(ctx, normalizeParams(req.Params))
	if rpcErr != nil {
		return newError(req.ID, rpcErr)
	}
	return newResult(req.ID, result)
}

func (s *Server) respond(w http.ResponseWriter, resp RPCResponse) {
	status := http.StatusOK
	if resp.Error != nil && (resp.Error.Code == errors.ErrInvalidRequest.Code || resp.Error.Code == errors.ErrParseError.Code) {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
