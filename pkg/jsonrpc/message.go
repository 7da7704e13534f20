package jsonrpc

import (
	"encoding/json"

	"github.com/theapemachine/a2a-go/pkg/errors"
)

// RPCRequest is a single JSON-RPC 2.0 request object. ID is nil for a
// notification — the engine must never write a response for one, even when
// dispatch fails.
type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether req carries no id.
func (req *RPCRequest) IsNotification() bool {
	return len(req.ID) == 0 || string(req.ID) == "null"
}

// RPCResponse is a single JSON-RPC 2.0 response object. Result and Error are
// mutually exclusive.
type RPCResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      json.RawMessage  `json:"id,omitempty"`
	Result  any              `json:"result,omitempty"`
	Error   *errors.RpcError `json:"error,omitempty"`
}

func newResult(id json.RawMessage, result any) RPCResponse {
	return RPCResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func newError(id json.RawMessage, e *errors.RpcError) RPCResponse {
	if e == nil {
		e = errors.ErrInternal
	}
	return RPCResponse{JSONRPC: "2.0", ID: id, Error: e}
}
